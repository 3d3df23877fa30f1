// Package storage keeps uploaded lecture audio on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrUnsupportedType is returned for files outside AllowedExtensions.
var ErrUnsupportedType = errors.New("unsupported file type")

// AllowedExtensions lists the accepted audio formats, without the dot.
var AllowedExtensions = map[string]bool{
	"wav": true,
	"mp3": true,
	"m4a": true,
	"ogg": true,
}

var reUnsafe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// AudioStore saves audio payloads as <jobID>_<name> in one directory.
type AudioStore struct {
	dir string
}

// NewAudioStore creates the upload directory if needed.
func NewAudioStore(dir string) (*AudioStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &AudioStore{dir: dir}, nil
}

// Dir returns the upload directory.
func (s *AudioStore) Dir() string {
	return s.dir
}

// IsAllowed reports whether filename has an accepted audio extension.
func IsAllowed(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return ext != "" && AllowedExtensions[ext]
}

// SecureFilename reduces a client-supplied name to a safe base name:
// directory parts are dropped, whitespace becomes '_', and anything outside
// [A-Za-z0-9_.-] is removed. Leading dots are stripped.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.Join(strings.Fields(name), "_")
	name = reUnsafe.ReplaceAllString(name, "")
	return strings.TrimLeft(name, "._")
}

// Save writes r to the store and returns the audio location.
func (s *AudioStore) Save(jobID, filename string, r io.Reader) (string, error) {
	name, err := s.checkName(filename)
	if err != nil {
		return "", err
	}

	dest := s.path(jobID, name)
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dest)
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("close audio file: %w", err)
	}

	return dest, nil
}

// Import moves an existing file into the store, copying when a rename is
// not possible (for example across filesystems).
func (s *AudioStore) Import(jobID, srcPath string) (string, error) {
	name, err := s.checkName(filepath.Base(srcPath))
	if err != nil {
		return "", err
	}

	dest := s.path(jobID, name)
	if err := os.Rename(srcPath, dest); err == nil {
		return dest, nil
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source audio: %w", err)
	}
	defer src.Close()

	if _, err := s.Save(jobID, name, src); err != nil {
		return "", err
	}
	if err := os.Remove(srcPath); err != nil {
		return "", fmt.Errorf("remove source audio: %w", err)
	}
	return dest, nil
}

func (s *AudioStore) checkName(filename string) (string, error) {
	name := SecureFilename(filename)
	if name == "" || !IsAllowed(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, filename)
	}
	return name, nil
}

func (s *AudioStore) path(jobID, name string) string {
	return filepath.Join(s.dir, jobID+"_"+name)
}
