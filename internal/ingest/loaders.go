package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// ErrUnsupported marks a file whose format no loader handles. The scanner
// skips such files and counts them in the run summary.
var ErrUnsupported = errors.New("unsupported document format")

// Loader extracts the plain text content of a source file.
type Loader interface {
	Load(ctx context.Context, path string) (string, error)
}

// TextLoader reads Markdown and plain-text files verbatim.
type TextLoader struct{}

// Load reads the file as UTF-8 text.
func (TextLoader) Load(_ context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// PDFLoader extracts the text layer of a PDF file.
type PDFLoader struct{}

// Load concatenates the plain text of all pages.
func (PDFLoader) Load(_ context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text from %s: %w", filepath.Base(path), err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", fmt.Errorf("failed to read pdf text from %s: %w", filepath.Base(path), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// HTMLLoader converts an HTML document to Markdown text before chunking.
type HTMLLoader struct{}

// Load converts the file's HTML content to Markdown.
func (HTMLLoader) Load(_ context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	markdown, err := htmltomarkdown.ConvertString(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to convert html %s: %w", filepath.Base(path), err)
	}
	return markdown, nil
}

// loaderFor picks a Loader for the file, preferring well-known extensions
// and falling back to content sniffing for everything else.
func loaderFor(path string) (Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		return TextLoader{}, nil
	case ".pdf":
		return PDFLoader{}, nil
	case ".html", ".htm":
		return HTMLLoader{}, nil
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, err
	}
	switch {
	case mtype.Is("application/pdf"):
		return PDFLoader{}, nil
	case mtype.Is("text/html"):
		return HTMLLoader{}, nil
	case strings.HasPrefix(mtype.String(), "text/"):
		return TextLoader{}, nil
	}
	return nil, fmt.Errorf("%w: %s (%s)", ErrUnsupported, filepath.Base(path), mtype.String())
}
