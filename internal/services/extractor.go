package services

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"alfredoptarigan/hiring-evaluator/internal/models"
)

const (
	mediaPDF      = "application/pdf"
	mediaDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mediaHTML     = "text/html"
	mediaPlain    = "text/plain"
	mediaMarkdown = "text/markdown"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrEmptyDocument     = errors.New("no text content found in document")
)

// TextExtractor turns an uploaded document into plain text.
type TextExtractor interface {
	Extract(doc models.Document) (string, error)
}

type textExtractor struct{}

func NewTextExtractor() TextExtractor {
	return &textExtractor{}
}

func (e *textExtractor) Extract(doc models.Document) (string, error) {
	if len(doc.Content) == 0 {
		return "", &ExtractionError{Filename: doc.Filename, Err: ErrEmptyDocument}
	}

	var (
		text string
		err  error
	)

	switch detectFormat(doc) {
	case mediaPDF:
		text, err = extractPDF(doc.Content)
	case mediaDOCX:
		text, err = extractDOCX(doc.Content)
	case mediaHTML:
		text, err = extractHTML(doc.Content)
	case mediaPlain, mediaMarkdown:
		text, err = extractPlain(doc.Content)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, doc.MediaType())
	}
	if err != nil {
		return "", &ExtractionError{Filename: doc.Filename, Err: err}
	}

	text = CleanText(text)
	if text == "" {
		return "", &ExtractionError{Filename: doc.Filename, Err: ErrEmptyDocument}
	}

	return text, nil
}

// detectFormat prefers the declared content type and falls back to the
// extension, then to sniffing valid UTF-8 as plain text.
func detectFormat(doc models.Document) string {
	switch doc.MediaType() {
	case mediaPDF, mediaDOCX, mediaHTML, mediaPlain, mediaMarkdown:
		return doc.MediaType()
	}

	switch doc.Extension() {
	case ".pdf":
		return mediaPDF
	case ".docx":
		return mediaDOCX
	case ".html", ".htm":
		return mediaHTML
	case ".txt", ".text":
		return mediaPlain
	case ".md", ".markdown":
		return mediaMarkdown
	}

	if bytes.HasPrefix(doc.Content, []byte("%PDF-")) {
		return mediaPDF
	}
	if utf8.Valid(doc.Content) {
		return mediaPlain
	}
	return ""
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip unreadable pages; the rest of the resume is still useful.
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

var (
	docxParagraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:tab/>`)
	xmlTag           = regexp.MustCompile(`<[^>]*>`)
)

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = docxParagraphEnd.ReplaceAllString(content, "\n")
	content = xmlTag.ReplaceAllString(content, "")

	return html.UnescapeString(content), nil
}

func extractHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, nav, iframe, noscript").Remove()

	var textBlocks []string
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, td, dt, dd").Each(func(i int, s *goquery.Selection) {
		// Nested blocks are picked up through their own selection.
		if s.Find("p, li").Length() > 0 {
			return
		}
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text != "" {
			textBlocks = append(textBlocks, text)
		}
	})
	if len(textBlocks) > 0 {
		return strings.Join(textBlocks, "\n"), nil
	}

	return doc.Find("body").Text(), nil
}

func extractPlain(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", errors.New("text document is not valid UTF-8")
	}
	return string(data), nil
}

// CleanText trims every line and drops blank ones.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")

	lines := strings.Split(text, "\n")
	var cleanedLines []string

	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	return strings.Join(cleanedLines, "\n")
}
