// Package export renders finished lecture jobs as Word documents.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/nguyentantai21042004/lecture-flow/internal/ledger"
	"github.com/nguyentantai21042004/lecture-flow/internal/transcript"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
	color    = "000000"

	// transcriptParagraphChars keeps transcript paragraphs readable.
	transcriptParagraphChars = 900
)

var (
	reHeading = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	reBold    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet  = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
	reUnsafe  = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)
)

type blockKind int

const (
	blockHeading blockKind = iota
	blockBullet
	blockText
)

type block struct {
	kind  blockKind
	level int
	text  string
}

type span struct {
	text string
	bold bool
}

// WriteJob saves job as a .docx at path: title, summary, then transcript.
func WriteJob(job ledger.Job, path string) error {
	if job.Status != ledger.StatusCompleted {
		return fmt.Errorf("job %s is %s, not %s", job.ID, job.Status, ledger.StatusCompleted)
	}

	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	addStyledRun(doc.AddParagraph(""), titleOf(job), true, 18)
	addStyledRun(doc.AddParagraph(""), "Created "+job.CreatedAt.Format("2006-01-02 15:04 MST"), false, 11)

	addStyledRun(doc.AddParagraph(""), "Summary", true, 16)
	for _, b := range parseMarkdown(job.SummaryText) {
		p := doc.AddParagraph("")
		switch b.kind {
		case blockHeading:
			addStyledRun(p, b.text, true, headingSize(b.level))
		case blockBullet:
			addRichText(p, "• "+b.text)
		default:
			addRichText(p, b.text)
		}
	}

	addStyledRun(doc.AddParagraph(""), "Transcript", true, 16)
	for _, para := range transcriptParagraphs(job.TranscriptText) {
		doc.AddParagraph("").AddText(para).Font(fontName).Size(fontSize).Color(color)
	}

	if err := doc.SaveTo(path); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Filename is the download name for job's document.
func Filename(job ledger.Job) string {
	base := titleOf(job)
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = strings.Trim(reUnsafe.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = job.ID
	}
	return base + ".docx"
}

func titleOf(job ledger.Job) string {
	if t := strings.TrimSpace(job.Title); t != "" {
		return t
	}
	return job.ID
}

// parseMarkdown reduces summary markdown to the blocks the document supports.
func parseMarkdown(markdown string) []block {
	var blocks []block
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "---" {
			continue
		}

		if m := reHeading.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, block{kind: blockHeading, level: len(m[1]), text: m[2]})
			continue
		}
		if m := reBullet.FindStringSubmatch(trimmed); m != nil {
			blocks = append(blocks, block{kind: blockBullet, text: m[1]})
			continue
		}
		blocks = append(blocks, block{kind: blockText, text: trimmed})
	}
	return blocks
}

// splitBold splits text on **bold** markers.
func splitBold(text string) []span {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	var spans []span
	for i, part := range parts {
		if part != "" {
			spans = append(spans, span{text: cleanMarkdownInline(part)})
		}
		if i < len(matches) {
			spans = append(spans, span{text: cleanMarkdownInline(matches[i][1]), bold: true})
		}
	}
	return spans
}

// transcriptParagraphs breaks a single-line transcript on sentence boundaries.
func transcriptParagraphs(text string) []string {
	return transcript.Chunk(transcript.Normalize(text), transcriptParagraphChars)
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 15
	case 3:
		return 14
	default:
		return fontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(cleanMarkdownInline(text)).Font(fontName).Size(size).Color(color)
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	for _, s := range splitBold(text) {
		run := p.AddText(s.text).Font(fontName).Size(fontSize).Color(color)
		if s.bold {
			run.Bold(true)
		}
	}
}

func cleanMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
