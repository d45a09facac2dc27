package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"quizform-backend/internal/logger"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

// buildTestPDF writes a minimal PDF with one page per entry. Page sizes are
// inherited from the Pages node so pageHeight has to walk up to find them.
func buildTestPDF(t *testing.T, pageTexts []string, height int) []byte {
	t.Helper()

	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pageTexts))
	for i := range pageTexts {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 %d] >>",
		strings.Join(kids, " "), len(pageTexts), height))
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range pageTexts {
		content := ""
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 700 Td (%s) Tj ET", text)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

type fakeRasterizer struct {
	pages []int
	err   error
}

func (f *fakeRasterizer) RenderPage(_ context.Context, pdfPath string, page int) ([]byte, error) {
	f.pages = append(f.pages, page)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fmt.Sprintf("png-of-page-%d", page)), nil
}

type fakeOCR struct {
	calls [][]byte
	text  string
	err   error
}

func (f *fakeOCR) ExtractText(_ context.Context, png []byte) (string, error) {
	f.calls = append(f.calls, png)
	if f.err != nil {
		return "", &OcrError{Err: f.err}
	}
	return f.text, nil
}

const richPage = "What is the capital of Japan? The answer is Tokyo. Kyoto was the former capital."

func TestExtractPDF_RichPageSkipsOCR(t *testing.T) {
	ocr := &fakeOCR{text: "should not be used"}
	raster := &fakeRasterizer{}
	svc := NewFileExtractService(ocr, raster, DefaultFileExtractConfig(), logger.Nop())

	res, err := svc.Extract(context.Background(), "quiz.pdf", "application/pdf", buildTestPDF(t, []string{richPage}, 792))
	require.NoError(t, err)

	assert.Empty(t, ocr.calls)
	assert.Empty(t, raster.pages)
	assert.Equal(t, 1, res.Pages)
	assert.Contains(t, res.Text, "capital of Japan")
	assert.Empty(t, res.OCRPages)
}

func TestExtractPDF_SparseTallPageOCRsOnce(t *testing.T) {
	ocr := &fakeOCR{text: "Scanned question: name the largest ocean."}
	raster := &fakeRasterizer{}
	svc := NewFileExtractService(ocr, raster, DefaultFileExtractConfig(), logger.Nop())

	res, err := svc.Extract(context.Background(), "quiz.pdf", "", buildTestPDF(t, []string{richPage, "Fig. 1"}, 792))
	require.NoError(t, err)

	require.Len(t, ocr.calls, 1)
	assert.Equal(t, []byte("png-of-page-2"), ocr.calls[0])
	assert.Equal(t, []int{2}, raster.pages)
	assert.Equal(t, []int{2}, res.OCRPages)
	assert.Equal(t, 2, res.Pages)

	first := strings.Index(res.Text, "capital of Japan")
	second := strings.Index(res.Text, "largest ocean")
	require.True(t, first >= 0 && second >= 0, "text: %q", res.Text)
	assert.Less(t, first, second, "pages must stay in order")
	assert.NotContains(t, res.Text, "Fig. 1")
}

func TestExtractPDF_ShortPageIsNotScanned(t *testing.T) {
	ocr := &fakeOCR{text: "unused"}
	svc := NewFileExtractService(ocr, &fakeRasterizer{}, DefaultFileExtractConfig(), logger.Nop())

	// A 90pt tall strip is below the height threshold even though its text is sparse.
	res, err := svc.Extract(context.Background(), "label.pdf", "", buildTestPDF(t, []string{"Label"}, 90))
	require.NoError(t, err)
	assert.Empty(t, ocr.calls)
	assert.Equal(t, "Label", res.Text)
}

func TestExtractPDF_OCRFailureKeepsSparseText(t *testing.T) {
	ocr := &fakeOCR{err: errors.New("upstream 503")}
	svc := NewFileExtractService(ocr, &fakeRasterizer{}, DefaultFileExtractConfig(), logger.Nop())

	res, err := svc.Extract(context.Background(), "scan.pdf", "", buildTestPDF(t, []string{richPage, "Fig. 1"}, 792))
	require.NoError(t, err)

	assert.Len(t, ocr.calls, 1)
	assert.Contains(t, res.Text, "Fig. 1")
	assert.Empty(t, res.OCRPages)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Page 2")
}

func TestExtractPDF_RasterFailureIsSoft(t *testing.T) {
	ocr := &fakeOCR{text: "unused"}
	raster := &fakeRasterizer{err: errors.New("pdftoppm failed")}
	svc := NewFileExtractService(ocr, raster, DefaultFileExtractConfig(), logger.Nop())

	res, err := svc.Extract(context.Background(), "scan.pdf", "", buildTestPDF(t, []string{richPage, "Fig. 1"}, 792))
	require.NoError(t, err)
	assert.Empty(t, ocr.calls)
	assert.Len(t, res.Warnings, 1)
}

func TestExtractPDF_OCRDisabledWarns(t *testing.T) {
	svc := NewFileExtractService(nil, nil, DefaultFileExtractConfig(), logger.Nop())

	res, err := svc.Extract(context.Background(), "scan.pdf", "", buildTestPDF(t, []string{richPage, "Fig. 1"}, 792))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "OCR is not enabled")
}

func TestExtractPDF_TunableThreshold(t *testing.T) {
	ocr := &fakeOCR{text: "ocr text"}
	cfg := FileExtractConfig{OCRMinTextChars: 200, OCRMinPageHeight: 100}
	svc := NewFileExtractService(ocr, &fakeRasterizer{}, cfg, logger.Nop())

	_, err := svc.Extract(context.Background(), "quiz.pdf", "", buildTestPDF(t, []string{richPage}, 792))
	require.NoError(t, err)
	assert.Len(t, ocr.calls, 1, "a higher character threshold treats the rich page as scanned")
}

func TestExtract_TextAndMarkdown(t *testing.T) {
	svc := NewFileExtractService(nil, nil, DefaultFileExtractConfig(), logger.Nop())

	res, err := svc.Extract(context.Background(), "notes.md", "", []byte("\ufeff# Heading\r\n\r\n\r\n\r\n  Body line  \r\n"))
	require.NoError(t, err)
	assert.Equal(t, "# Heading\n\nBody line", res.Text)

	res, err = svc.Extract(context.Background(), "upload", "text/plain; charset=utf-8", []byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", res.Text)
}

func TestExtract_DOCX(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Q1: Tom &amp; Jerry?</w:t></w:r></w:p><w:p><w:r><w:t>A</w:t><w:tab/><w:t>B</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	svc := NewFileExtractService(nil, nil, DefaultFileExtractConfig(), logger.Nop())
	res, err := svc.Extract(context.Background(), "quiz.docx", "", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Q1: Tom & Jerry?\nA\tB", res.Text)
}

func TestExtract_UnsupportedListsFormats(t *testing.T) {
	svc := NewFileExtractService(nil, nil, DefaultFileExtractConfig(), logger.Nop())

	_, err := svc.Extract(context.Background(), "slides.pptx", "application/octet-stream", []byte("x"))
	var ingErr *IngestionError
	require.True(t, errors.As(err, &ingErr))
	assert.True(t, ingErr.Unsupported)
	for _, ext := range []string{".pdf", ".docx", ".txt", ".md"} {
		assert.Contains(t, ingErr.UserMessage(), ext)
	}
}

func TestExtract_UnreadableFile(t *testing.T) {
	svc := NewFileExtractService(nil, nil, DefaultFileExtractConfig(), logger.Nop())

	_, err := svc.Extract(context.Background(), "broken.pdf", "", []byte("not a pdf"))
	var ingErr *IngestionError
	require.True(t, errors.As(err, &ingErr))
	assert.False(t, ingErr.Unsupported)

	_, err = svc.Extract(context.Background(), "empty.txt", "", []byte("   \n"))
	require.True(t, errors.As(err, &ingErr))
}

func TestExtract_FailureCauseIsLogged(t *testing.T) {
	log, logs := observedLogger()
	svc := NewFileExtractService(nil, nil, DefaultFileExtractConfig(), log)

	_, err := svc.Extract(context.Background(), "broken.pdf", "", []byte("not a pdf"))
	require.Error(t, err)
	entries := logs.FilterMessage("✗ Document extraction failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken.pdf", entries[0].ContextMap()["filename"])
	assert.NotEmpty(t, entries[0].ContextMap()["error"])

	_, err = svc.Extract(context.Background(), "slides.pptx", "", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("✗ Unsupported document").Len())
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename    string
		contentType string
		want        DocumentFormat
		wantErr     bool
	}{
		{"a.PDF", "", FormatPDF, false},
		{"a.markdown", "", FormatMarkdown, false},
		{"blob", "application/pdf", FormatPDF, false},
		{"blob", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", FormatDOCX, false},
		{"a.txt", "application/pdf", FormatText, false},
		{"a.doc", "", "", true},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.filename, tt.contentType)
		if tt.wantErr {
			assert.Error(t, err, tt.filename)
			continue
		}
		require.NoError(t, err, tt.filename)
		assert.Equal(t, tt.want, got, tt.filename)
	}
}
