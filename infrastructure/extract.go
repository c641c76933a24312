package infrastructure

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/sirupsen/logrus"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"staffable/domain"
)

// MaxExtractedChars caps the text handed to prompts.
const MaxExtractedChars = 20000

// TextExtractor turns uploaded CVs into plain text.
type TextExtractor struct {
	maxSize int64
	log     *logrus.Logger
}

func NewTextExtractor(maxSize int64, log *logrus.Logger) *TextExtractor {
	return &TextExtractor{maxSize: maxSize, log: log}
}

// Extract reads txt, pdf and docx files.
func (x *TextExtractor) Extract(filename string, r io.Reader) (domain.Document, error) {
	doc := domain.Document{Filename: filepath.Base(filename)}

	data, err := io.ReadAll(io.LimitReader(r, x.maxSize+1))
	if err != nil {
		return doc, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > x.maxSize {
		return doc, fmt.Errorf("%w: %s is larger than %d bytes", domain.ErrInvalidInput, doc.Filename, x.maxSize)
	}

	var text string
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")); ext {
	case "txt":
		text = string(data)
	case "pdf":
		text, err = x.extractPDF(data)
	case "docx":
		text, err = extractDocx(data)
	default:
		return doc, fmt.Errorf("%w: unsupported file type %q, use txt, pdf or docx", domain.ErrInvalidInput, ext)
	}
	if err != nil {
		return doc, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, doc.Filename, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return doc, fmt.Errorf("%w: no text found in %s", domain.ErrInvalidInput, doc.Filename)
	}
	if r := []rune(text); len(r) > MaxExtractedChars {
		text = string(r[:MaxExtractedChars])
	}
	doc.Text = text
	return doc, nil
}

func (x *TextExtractor) extractPDF(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("failed to get page count: %w", err)
	}
	if numPages == 0 {
		return "", errors.New("PDF has no pages")
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			x.log.WithError(err).WithField("page", i).Warn("skipping unreadable PDF page")
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			x.log.WithError(err).WithField("page", i).Warn("skipping PDF page")
			continue
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			x.log.WithError(err).WithField("page", i).Warn("skipping PDF page")
			continue
		}
		if pageText != "" {
			sb.WriteString(pageText)
			sb.WriteString("\n\n")
		}
	}

	if sb.Len() == 0 {
		return "", errors.New("no text could be extracted from any page of the PDF")
	}
	return sb.String(), nil
}

var (
	docxParagraph = regexp.MustCompile(`</w:p>`)
	docxTag       = regexp.MustCompile(`<[^>]+>`)
)

func extractDocx(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read docx: %w", err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = docxParagraph.ReplaceAllString(content, "\n")
	content = docxTag.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}
