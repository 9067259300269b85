package services

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"alfredoptarigan/hiring-evaluator/internal/models"
)

var ErrFileTooLarge = errors.New("file exceeds the maximum upload size")

// DocumentLoader reads resumes into memory. Nothing is written to disk.
type DocumentLoader interface {
	LoadUpload(file *multipart.FileHeader) (models.Document, error)
	LoadFile(path string) (models.Document, error)
}

type documentLoader struct {
	maxFileSize int64
}

// NewDocumentLoader builds a loader; maxFileSize <= 0 disables the size check.
func NewDocumentLoader(maxFileSize int64) DocumentLoader {
	return &documentLoader{maxFileSize: maxFileSize}
}

func (l *documentLoader) LoadUpload(file *multipart.FileHeader) (models.Document, error) {
	if err := l.checkSize(file.Filename, file.Size); err != nil {
		return models.Document{}, err
	}

	src, err := file.Open()
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	contentType := file.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = contentTypeFor(file.Filename)
	}

	return models.Document{
		Filename:    filepath.Base(file.Filename),
		ContentType: contentType,
		Content:     content,
	}, nil
}

func (l *documentLoader) LoadFile(path string) (models.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return models.Document{}, fmt.Errorf("%s is a directory", path)
	}
	if err := l.checkSize(path, info.Size()); err != nil {
		return models.Document{}, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return models.Document{
		Filename:    filepath.Base(path),
		ContentType: contentTypeFor(path),
		Content:     content,
	}, nil
}

// UnreadableDocument stands in for a resume that failed to load so the batch
// keeps one entry per submitted file.
func UnreadableDocument(name string, err error) models.Document {
	return models.Document{
		Filename: filepath.Base(name),
		LoadErr:  err,
	}
}

func (l *documentLoader) checkSize(name string, size int64) error {
	if l.maxFileSize > 0 && size > l.maxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, filepath.Base(name), size, l.maxFileSize)
	}
	return nil
}

// contentTypeFor guesses from the extension; the extractor sniffs content
// when this comes back empty.
func contentTypeFor(name string) string {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".md", ".markdown":
		return mediaMarkdown
	case ".docx":
		return mediaDOCX
	default:
		return mime.TypeByExtension(ext)
	}
}
