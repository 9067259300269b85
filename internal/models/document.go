package models

import (
	"path/filepath"
	"strings"
)

// Document is one uploaded resume blob as it arrives from the transport layer.
type Document struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`

	// LoadErr is set when the upload could not be read at all. The candidate
	// still gets an entry, failed at extraction.
	LoadErr error `json:"-"`
}

// Extension returns the lower-cased file extension, including the dot.
func (d Document) Extension() string {
	return strings.ToLower(filepath.Ext(d.Filename))
}

// MediaType returns the content type without parameters such as charset.
func (d Document) MediaType() string {
	mediaType := d.ContentType
	if idx := strings.Index(mediaType, ";"); idx != -1 {
		mediaType = mediaType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
