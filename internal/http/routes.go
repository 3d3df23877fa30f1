package http

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nguyentantai21042004/lecture-flow/internal/export"
	"github.com/nguyentantai21042004/lecture-flow/internal/jobs"
	"github.com/nguyentantai21042004/lecture-flow/internal/ledger"
	"github.com/nguyentantai21042004/lecture-flow/internal/logger"
	"github.com/nguyentantai21042004/lecture-flow/internal/storage"
)

// AudioSaver stores an uploaded audio file and returns its location.
type AudioSaver interface {
	Save(jobID, filename string, r io.Reader) (string, error)
}

type API struct {
	jobs   jobs.Service
	audio  AudioSaver
	logger logger.Logger
	newID  func() string
}

func NewAPI(svc jobs.Service, audio AudioSaver, log logger.Logger) *API {
	return &API{jobs: svc, audio: audio, logger: log, newID: uuid.NewString}
}

func registerRoutes(r *gin.Engine, api *API) {
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", api.handleHealth)
		apiGroup.POST("/upload", api.handleUpload)
		apiGroup.GET("/status/:job_id", api.handleStatus)
		apiGroup.GET("/result/:job_id", api.handleResult)
		apiGroup.GET("/result/:job_id/docx", api.handleResultDocx)
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *API) handleUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondMessage(c, http.StatusRequestEntityTooLarge, "File too large")
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			respondMessage(c, http.StatusBadRequest, "No file part")
		default:
			respondError(c, http.StatusBadRequest, err)
		}
		return
	}

	title := storage.SecureFilename(fh.Filename)
	if title == "" {
		respondMessage(c, http.StatusBadRequest, "No selected file")
		return
	}
	if !storage.IsAllowed(fh.Filename) {
		respondMessage(c, http.StatusBadRequest, "Unsupported file type")
		return
	}

	src, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	defer src.Close()

	id := a.newID()
	location, err := a.audio.Save(id, fh.Filename, src)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			respondMessage(c, http.StatusBadRequest, "Unsupported file type")
			return
		}
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	job, err := a.jobs.Submit(c.Request.Context(), id, title, location)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "status": job.Status})
}

func (a *API) handleStatus(c *gin.Context) {
	job, ok := a.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "status": job.Status})
}

func (a *API) handleResult(c *gin.Context) {
	job, ok := a.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":     job.ID,
		"title":      job.Title,
		"status":     job.Status,
		"transcript": job.TranscriptText,
		"summary":    job.SummaryText,
		"created_at": job.CreatedAt.Format(time.RFC3339),
	})
}

func (a *API) handleResultDocx(c *gin.Context) {
	job, ok := a.lookup(c)
	if !ok {
		return
	}
	if job.Status != ledger.StatusCompleted {
		respondMessage(c, http.StatusConflict, "Job is not completed")
		return
	}

	dir, err := os.MkdirTemp("", "lecture-export-*")
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, job.ID+".docx")
	if err := export.WriteJob(job, path); err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}

	c.FileAttachment(path, export.Filename(job))
}

// lookup loads the job named by the route and writes the error response
// when it cannot.
func (a *API) lookup(c *gin.Context) (ledger.Job, bool) {
	job, err := a.jobs.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		if errors.Is(err, ledger.ErrJobNotFound) {
			respondMessage(c, http.StatusNotFound, "Job not found")
			return ledger.Job{}, false
		}
		respondError(c, http.StatusInternalServerError, err)
		return ledger.Job{}, false
	}
	return job, true
}

func respondError(c *gin.Context, status int, err error) {
	respondMessage(c, status, err.Error())
}

func respondMessage(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
