// Package converter shells out to a LibreOffice (soffice) binary to
// render an uploaded DOCX into the PDF used for rendered-page text
// extraction and evidence anchoring. The conversion itself is treated
// as an opaque external tool: this package only owns locating the
// binary, building an isolated user profile per run, and bounding the
// subprocess with a timeout.
package converter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// DefaultTimeout bounds how long a single conversion may run before it
// is killed and treated as a failure.
const DefaultTimeout = 60 * time.Second

// Converter renders a DOCX file to PDF via a local soffice installation.
type Converter struct {
	binary  string
	timeout time.Duration
}

// New locates the soffice binary on PATH. binaryOverride, if non-empty,
// is used instead (set via config for non-standard installs).
func New(binaryOverride string, timeout time.Duration) (*Converter, error) {
	bin := binaryOverride
	if bin == "" {
		bin = "soffice"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("converter: soffice binary %q not found on PATH: %w", bin, err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Converter{binary: path, timeout: timeout}, nil
}

// ToPDF writes docxBytes to a scratch directory, invokes soffice in
// headless mode with an isolated profile, and returns the resulting PDF
// bytes. The scratch directory is removed before returning.
func (c *Converter) ToPDF(ctx context.Context, docxBytes []byte) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "sws-convert-*")
	if err != nil {
		return nil, fmt.Errorf("converter: create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	srcPath := filepath.Join(tmpDir, "source.docx")
	if err := os.WriteFile(srcPath, docxBytes, 0o600); err != nil {
		return nil, fmt.Errorf("converter: write source docx: %w", err)
	}

	profileDir := filepath.Join(tmpDir, "profile")
	if err := os.MkdirAll(profileDir, 0o700); err != nil {
		return nil, fmt.Errorf("converter: create profile dir: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.binary,
		"-env:UserInstallation=file://"+profileDir,
		"--headless", "--invisible", "--nologo", "--norestore",
		"--convert-to", "pdf:writer_pdf_Export",
		"--outdir", tmpDir,
		srcPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("converter: soffice conversion failed: %w (output: %s)", err, out)
	}

	pdfPath := filepath.Join(tmpDir, "source.pdf")
	pdfBytes, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("converter: expected output PDF missing: %w", err)
	}
	if len(pdfBytes) == 0 {
		return nil, fmt.Errorf("converter: generated PDF is empty")
	}
	return pdfBytes, nil
}
