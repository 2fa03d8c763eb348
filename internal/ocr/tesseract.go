package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/simjak/docling/internal/logger"
	"github.com/simjak/docling/pkg/models"
)

// TesseractConfig configures the tesseract command-line engine.
type TesseractConfig struct {
	// Command is the binary name or path. Defaults to "tesseract".
	Command string
	// DataDir is passed as --tessdata-dir when set.
	DataDir string
	// Timeout bounds a single recognition run. Zero means no limit.
	Timeout time.Duration
}

// TesseractCli drives a locally installed tesseract binary through its
// command-line interface. The version probe runs at most once per handle;
// its outcome (name, version or failure) is cached and shared by all
// subsequent calls.
type TesseractCli struct {
	cfg    TesseractConfig
	parser *TSVParser
	log    zerolog.Logger

	probeOnce sync.Once
	probeErr  error
	name      string
	version   string
}

// NewTesseractCli creates a handle for the tesseract binary. No process is
// started until Probe or Recognize is called.
func NewTesseractCli(cfg TesseractConfig) *TesseractCli {
	if cfg.Command == "" {
		cfg.Command = "tesseract"
	}
	return &TesseractCli{
		cfg:    cfg,
		parser: NewTSVParser(),
		log:    logger.WithComponent("ocr-tesseract"),
	}
}

// Name returns the engine name reported by the probe. Valid after Probe.
func (t *TesseractCli) Name() string {
	if t.name == "" {
		return "tesseract"
	}
	return t.name
}

// Version returns the engine version reported by the probe. Valid after Probe.
func (t *TesseractCli) Version() string {
	return t.version
}

// Probe checks that the binary exists and records its name and version from
// `<cmd> --version`. It executes at most once; later calls return the cached
// result. A missing or unstartable binary yields ErrEngineNotFound.
func (t *TesseractCli) Probe(ctx context.Context) error {
	t.probeOnce.Do(func() {
		t.probeErr = t.runProbe(ctx)
	})
	return t.probeErr
}

func (t *TesseractCli) runProbe(ctx context.Context) error {
	const op = "Probe"

	if _, err := exec.LookPath(t.cfg.Command); err != nil {
		return WrapOcrError(op, ErrEngineNotFound, fmt.Sprintf("%s: %v", t.cfg.Command, err))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.cfg.Command, "--version")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		// Some engine builds exit non-zero from --version; the banner
		// still counts. Only a process that never ran is a failure.
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return WrapOcrError(op, ErrEngineNotFound,
				fmt.Sprintf("%s --version: %v", t.cfg.Command, err))
		}
	}

	t.name, t.version = parseVersionBanner(stdout.String(), stderr.String())
	t.log.Debug().
		Str("name", t.name).
		Str("version", t.version).
		Msg("Probed OCR engine")
	return nil
}

// parseVersionBanner extracts the engine name and version from --version
// output. Windows builds print the banner on stdout, Linux builds on stderr.
// Without any output the fixed sentinel pair is returned.
func parseVersionBanner(stdout, stderr string) (name, version string) {
	banner := strings.TrimSpace(stdout)
	if banner == "" {
		banner = strings.TrimSpace(stderr)
	}

	name, version = "tesseract", "XXX"
	for _, line := range strings.Split(banner, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name = fields[0]
		if len(fields) > 1 {
			version = fields[1]
		}
		break
	}
	return name, version
}

// Recognize runs the engine over the image at imagePath and returns the
// recognized rows. Coordinates in the result are pixels in the image's own
// coordinate system.
func (t *TesseractCli) Recognize(ctx context.Context, imagePath string, opts RecognizeOptions) ([]models.RawCell, error) {
	const op = "Recognize"

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	args := make([]string, 0, 7)
	if len(opts.Languages) > 0 {
		args = append(args, "-l", strings.Join(opts.Languages, "+"))
	}
	if t.cfg.DataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.DataDir)
	}
	args = append(args, imagePath, "stdout", "tsv")
	cmdline := t.cfg.Command + " " + strings.Join(args, " ")

	t.log.Debug().Str("command", cmdline).Msg("Running OCR engine")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.cfg.Command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// A killed engine can leave child processes holding the output pipes;
	// WaitDelay bounds how long Run waits for them after ctx cancellation.
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		detail := fmt.Sprintf("%s: %v", cmdline, err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			detail = fmt.Sprintf("%s: timed out after %s", cmdline, t.cfg.Timeout)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			detail += ": " + msg
		}
		return nil, WrapOcrError(op, ErrEngineExecution, detail)
	}

	return t.parser.Parse(stdout.String())
}
