package extractor

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gen2brain/go-fitz"
	lpdf "github.com/ledongthuc/pdf"
	rscpdf "rsc.io/pdf"
)

// PDFMethod extracts text from raw PDF bytes
type PDFMethod interface {
	Name() string
	Extract(data []byte) (string, error)
}

// DefaultPDFMethods returns the PDF chain in the order it is tried.
func DefaultPDFMethods() []PDFMethod {
	return []PDFMethod{
		mupdfMethod{},
		ledongthucMethod{},
		rscMethod{},
	}
}

type mupdfMethod struct{}

func (mupdfMethod) Name() string { return "pdf_mupdf" }

func (mupdfMethod) Extract(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

type ledongthucMethod struct{}

func (ledongthucMethod) Name() string { return "pdf_ledongthuc" }

func (ledongthucMethod) Extract(data []byte) (string, error) {
	r, err := lpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

type rscMethod struct{}

func (rscMethod) Name() string { return "pdf_rsc" }

func (rscMethod) Extract(data []byte) (string, error) {
	r, err := rscpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		var lastY float64
		for j, t := range page.Content().Text {
			if j > 0 && t.Y != lastY {
				b.WriteString("\n")
			}
			b.WriteString(t.S)
			lastY = t.Y
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// IsPDF classifies a resolved URL as a PDF document.
func IsPDF(resolved string) bool {
	lower := strings.ToLower(resolved)
	return strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "pdf")
}
