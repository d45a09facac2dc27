package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Rasterizer renders one page of a PDF to PNG.
type Rasterizer interface {
	RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error)
}

// PdftoppmRasterizer shells out to poppler's pdftoppm.
type PdftoppmRasterizer struct {
	path string
	dpi  int
}

func NewPdftoppmRasterizer(path string, dpi int) *PdftoppmRasterizer {
	if path == "" {
		path = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 150
	}
	return &PdftoppmRasterizer{path: path, dpi: dpi}
}

// Available reports whether the pdftoppm binary can be found.
func (r *PdftoppmRasterizer) Available() error {
	if _, err := exec.LookPath(r.path); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", r.path, err)
	}
	return nil
}

func (r *PdftoppmRasterizer) RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error) {
	if page <= 0 {
		return nil, fmt.Errorf("page must be >= 1")
	}

	outDir, err := os.MkdirTemp("", "quizform-page-")
	if err != nil {
		return nil, fmt.Errorf("mkdir outDir: %w", err)
	}
	defer os.RemoveAll(outDir)

	prefix := filepath.Join(outDir, "page")
	args := []string{
		"-r", strconv.Itoa(r.dpi),
		"-png",
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		pdfPath, prefix,
	}

	cmd := exec.CommandContext(ctx, r.path, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w; out=%s", err, string(out))
	}

	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("no image produced by pdftoppm: %w; out=%s", err, string(out))
	}
	return img, nil
}
