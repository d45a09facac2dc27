package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"quizform-backend/internal/logger"
	"quizform-backend/internal/models"
)

type DocumentFormat string

const (
	FormatPDF      DocumentFormat = "pdf"
	FormatDOCX     DocumentFormat = "docx"
	FormatText     DocumentFormat = "txt"
	FormatMarkdown DocumentFormat = "md"
)

var supportedFormats = []models.SupportedFormat{
	{Extension: ".pdf", MimeType: "application/pdf", Description: "PDF document"},
	{Extension: ".docx", MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Description: "Word document"},
	{Extension: ".txt", MimeType: "text/plain", Description: "Plain text"},
	{Extension: ".md", MimeType: "text/markdown", Description: "Markdown"},
	{Extension: ".markdown", MimeType: "text/markdown", Description: "Markdown"},
}

func SupportedFormats() []models.SupportedFormat {
	out := make([]models.SupportedFormat, len(supportedFormats))
	copy(out, supportedFormats)
	return out
}

func acceptedExtensions() string {
	exts := make([]string, 0, len(supportedFormats))
	for _, f := range supportedFormats {
		exts = append(exts, f.Extension)
	}
	return strings.Join(exts, ", ")
}

// IngestionError aborts extraction of one file.
type IngestionError struct {
	Filename    string
	Unsupported bool
	Err         error
}

func (e *IngestionError) Error() string {
	if e.Unsupported {
		return fmt.Sprintf("unsupported file type for text extraction: %q", e.Filename)
	}
	return fmt.Sprintf("extract %q: %v", e.Filename, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

func (e *IngestionError) UserMessage() string {
	if e.Unsupported {
		return fmt.Sprintf("%q is not a supported file type. Accepted formats: %s.", e.Filename, acceptedExtensions())
	}
	return fmt.Sprintf("%q could not be read. Check that the file is not damaged or password protected.", e.Filename)
}

// DetectFormat picks the format from the file extension, falling back to
// the declared content type.
func DetectFormat(filename, contentType string) (DocumentFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".txt":
		return FormatText, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/pdf":
		return FormatPDF, nil
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX, nil
	case "text/plain":
		return FormatText, nil
	case "text/markdown", "text/x-markdown":
		return FormatMarkdown, nil
	}

	return "", &IngestionError{Filename: filename, Unsupported: true}
}

// ExtractResult is the text of one document plus what happened on the way.
type ExtractResult struct {
	Text     string
	Pages    int
	OCRPages []int
	Warnings []string
}

type FileExtractConfig struct {
	// A PDF page is treated as scanned when its text has fewer than
	// OCRMinTextChars characters and it is taller than OCRMinPageHeight
	// points.
	OCRMinTextChars  int
	OCRMinPageHeight float64
}

func DefaultFileExtractConfig() FileExtractConfig {
	return FileExtractConfig{OCRMinTextChars: 50, OCRMinPageHeight: 100}
}

type FileExtractService struct {
	ocr    OCRClient
	raster Rasterizer
	cfg    FileExtractConfig
	log    *logger.Logger
}

// NewFileExtractService wires extraction. A nil ocr or raster disables the
// scanned-page fallback; such pages keep whatever text they had.
func NewFileExtractService(ocr OCRClient, raster Rasterizer, cfg FileExtractConfig, log *logger.Logger) *FileExtractService {
	if log == nil {
		log = logger.Nop()
	}
	return &FileExtractService{
		ocr:    ocr,
		raster: raster,
		cfg:    cfg,
		log:    log.With("service", "FileExtractService"),
	}
}

func (s *FileExtractService) ExtractTextFromPath(ctx context.Context, path string) (*ExtractResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &IngestionError{Filename: filepath.Base(path), Err: err}
	}
	return s.Extract(ctx, filepath.Base(path), "", b)
}

// Extract returns the plain text of an uploaded document.
func (s *FileExtractService) Extract(ctx context.Context, filename, contentType string, data []byte) (*ExtractResult, error) {
	format, err := DetectFormat(filename, contentType)
	if err != nil {
		s.log.Warn("✗ Unsupported document", "filename", filename, "content_type", contentType)
		return nil, err
	}

	var res *ExtractResult
	switch format {
	case FormatPDF:
		res, err = s.extractPDF(ctx, data)
	case FormatDOCX:
		res, err = s.extractDOCX(data)
	case FormatText, FormatMarkdown:
		res, err = s.extractTXT(data)
	default:
		return nil, &IngestionError{Filename: filename, Unsupported: true}
	}
	if err != nil {
		s.log.Warn("✗ Document extraction failed", "filename", filename, "format", format, "error", err)
		return nil, &IngestionError{Filename: filename, Err: err}
	}

	s.log.Info("Document extracted",
		"filename", filename,
		"format", format,
		"pages", res.Pages,
		"ocr_pages", len(res.OCRPages),
		"chars", utf8.RuneCountInString(res.Text),
	)
	return res, nil
}

func (s *FileExtractService) extractTXT(data []byte) (*ExtractResult, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("text file is not valid UTF-8")
	}
	text := normalizeExtractedText(strings.TrimPrefix(string(data), "\ufeff"))
	if text == "" {
		return nil, fmt.Errorf("text file is empty")
	}
	return &ExtractResult{Text: text, Pages: 1}, nil
}

// extractPDF walks the pages in order. Each page's text, or its OCR text,
// is appended before the next page is read.
func (s *FileExtractService) extractPDF(ctx context.Context, data []byte) (*ExtractResult, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	res := &ExtractResult{}
	doc := &pdfSource{data: data}
	defer doc.cleanup()

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		res.Pages++

		content, err := pagePlainText(page)
		if err != nil {
			s.log.Warn("PDF page text failed", "page", pageIndex, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("Page %d: text could not be read directly.", pageIndex))
		}

		if s.isScanned(content, pageHeight(page)) {
			content = s.ocrPage(ctx, doc, pageIndex, content, res)
		}

		b.WriteString(content)
		b.WriteString("\n\n")
	}

	text := normalizeExtractedText(b.String())
	if text == "" {
		return nil, fmt.Errorf("no extractable text found in pdf")
	}
	res.Text = text
	return res, nil
}

func (s *FileExtractService) isScanned(text string, height float64) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) < s.cfg.OCRMinTextChars &&
		height > s.cfg.OCRMinPageHeight
}

// ocrPage returns the OCR text for a scanned page, or the sparse text when
// OCR is unavailable or fails.
func (s *FileExtractService) ocrPage(ctx context.Context, doc *pdfSource, pageIndex int, sparse string, res *ExtractResult) string {
	if s.ocr == nil || s.raster == nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Page %d looks scanned but OCR is not enabled; only the text found directly in the file was kept.", pageIndex))
		return sparse
	}

	path, err := doc.path()
	if err == nil {
		var png []byte
		png, err = s.raster.RenderPage(ctx, path, pageIndex)
		if err == nil {
			var text string
			text, err = s.ocr.ExtractText(ctx, png)
			if err == nil {
				res.OCRPages = append(res.OCRPages, pageIndex)
				if strings.TrimSpace(text) == "" {
					return sparse
				}
				return text
			}
		}
	}

	ocrErr := &OcrError{Page: pageIndex, Err: err}
	s.log.Warn("OCR fallback failed", "page", pageIndex, "error", err)
	res.Warnings = append(res.Warnings, ocrErr.UserMessage())
	return sparse
}

// pagePlainText guards against the pdf library panicking on unusual
// content streams.
func pagePlainText(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read page content: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}

// pageHeight reads the MediaBox, which may be inherited from an ancestor
// Pages node. Zero means unknown.
func pageHeight(page pdf.Page) float64 {
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			return math.Abs(box.Index(3).Float64() - box.Index(1).Float64())
		}
	}
	return 0
}

// pdfSource writes the uploaded bytes to disk once, the first time a page
// needs rendering.
type pdfSource struct {
	data []byte
	file string
}

func (d *pdfSource) path() (string, error) {
	if d.file != "" {
		return d.file, nil
	}
	f, err := os.CreateTemp("", "quizform-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp pdf: %w", err)
	}
	if _, err := f.Write(d.data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp pdf: %w", err)
	}
	d.file = f.Name()
	return d.file, nil
}

func (d *pdfSource) cleanup() {
	if d.file != "" {
		os.Remove(d.file)
	}
}

func (s *FileExtractService) extractDOCX(data []byte) (*ExtractResult, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var documentXML []byte
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			documentXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, err
			}
			break
		}
	}

	if len(documentXML) == 0 {
		return nil, fmt.Errorf("docx document.xml not found")
	}

	text := normalizeExtractedText(stripDOCXML(documentXML))
	if text == "" {
		return nil, fmt.Errorf("no extractable text found in docx")
	}
	return &ExtractResult{Text: text, Pages: 1}, nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripDOCXML(src []byte) string {
	s := string(src)

	// Paragraphs, line breaks and tabs
	s = strings.ReplaceAll(s, "</w:p>", "\n")
	s = strings.ReplaceAll(s, "<w:br/>", "\n")
	s = strings.ReplaceAll(s, "<w:br />", "\n")
	s = strings.ReplaceAll(s, "<w:tab/>", "\t")

	s = xmlTagPattern.ReplaceAllString(s, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}
