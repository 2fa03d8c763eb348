package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/simjak/docling/internal/backend"
	"github.com/simjak/docling/internal/config"
	"github.com/simjak/docling/internal/logger"
	"github.com/simjak/docling/internal/ocr"
	"github.com/simjak/docling/internal/pipeline"
	"github.com/simjak/docling/pkg/models"
)

var convertCmd = &cobra.Command{
	Use:   "convert [image-file...]",
	Short: "Convert scanned documents into structured text cells",
	Long: `Convert scanned document images into structured text cells.

Each input file is rendered as a page and run through the OCR stage: regions
that need recognition are selected, rendered as supersampled crops, handed to
the configured OCR engine, and the recognized cells are mapped back into page
coordinates and reconciled with any text the page already carried.

Supported inputs: PNG, JPEG, TIFF, BMP scans.

The tesseract engine (default) requires a locally installed tesseract binary.
The vision and docai engines require Google Cloud credentials:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Google Cloud project ID (docai)
  DOCUMENT_AI_PROCESSOR_ID - OCR processor ID (docai)`,
	Example: `  # Convert a scan and print the recognized text
  docling convert scan.png

  # Full structured output with cell geometry
  docling convert scan.png --json -o cells.json

  # German and English recognition at higher supersampling
  docling convert scan.png --langs deu,eng --scale 4

  # Use Google Cloud Vision instead of the local tesseract binary
  docling convert scan.png --engine vision

  # Convert a batch of scans
  docling convert page-*.png --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

// ConvertOutput represents the JSON output structure when --json is used.
type ConvertOutput struct {
	ID            string         `json:"id"`
	FileName      string         `json:"file_name"`
	FileSize      int64          `json:"file_size"`
	Engine        string         `json:"engine,omitempty"`
	EngineVersion string         `json:"engine_version,omitempty"`
	Status        string         `json:"status"`
	Pages         []*models.Page `json:"pages"`
	CellCount     int            `json:"cell_count"`
	OcrCellCount  int            `json:"ocr_cell_count"`
	ProcessedAt   time.Time      `json:"processed_at"`
	Duration      string         `json:"duration"`
}

func init() {
	rootCmd.AddCommand(convertCmd)
	registerConvertFlags(convertCmd)
}

func registerConvertFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output file path (default: stdout; single input only)")
	cmd.Flags().Bool("json", false, "Output as JSON with cell geometry")
	cmd.Flags().String("engine", "", "OCR engine: tesseract, vision, or docai (default from OCR_ENGINE)")
	cmd.Flags().StringSlice("langs", nil, "OCR languages, e.g. eng,deu (default from OCR_LANGUAGES)")
	cmd.Flags().Float64("scale", 0, "Supersampling scale for OCR crops (default from OCR_SCALE)")
	cmd.Flags().Int("timeout", 0, "Per-invocation engine timeout in seconds (default from OCR_TIMEOUT_SECONDS)")
	cmd.Flags().Bool("force-full-page-ocr", false, "Recognize every page in full, even pages with embedded text")
	cmd.Flags().Bool("no-ocr", false, "Disable the OCR stage; pages keep only their programmatic text")
	cmd.Flags().Bool("debug-ocr", false, "Log the selected OCR regions and produced cells per page")
}

func runConvert(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("convert")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := applyConvertFlags(cmd, cfg); err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	debugOCR, _ := cmd.Flags().GetBool("debug-ocr")

	if outputPath != "" && len(args) > 1 {
		return fmt.Errorf("--output accepts a single input file, got %d", len(args))
	}

	log.Info().
		Strs("inputs", args).
		Str("engine", cfg.OCREngine).
		Bool("ocr", cfg.OCREnabled).
		Bool("json", jsonOutput).
		Msg("Starting conversion")

	// Validate every input before any engine work happens.
	infos := make([]os.FileInfo, len(args))
	for i, path := range args {
		info, err := validateInputFile(path, log)
		if err != nil {
			return err
		}
		infos[i] = info
	}

	ctx, cancel := signalContext(log)
	defer cancel()

	// With --no-ocr no engine is needed at all, so a missing tesseract binary
	// or missing cloud credentials must not block the conversion.
	var engine ocr.Engine
	if cfg.OCREnabled {
		engine, err = buildEngine(ctx, cfg, log)
		if err != nil {
			return err
		}
	}

	stage, err := ocr.NewStage(ctx, ocr.StageConfig{
		Enabled:       cfg.OCREnabled,
		Scale:         cfg.OCRScale,
		Languages:     cfg.OCRLanguages,
		ForceFullPage: cfg.ForceFullPageOCR,
	}, engine)
	if err != nil {
		return handleConvertError(err, log)
	}
	if debugOCR {
		stage.SetDebugHook(ocrDebugHook())
	}

	var engineName, engineVersion string
	if stage.Enabled() {
		engineName = engine.Name()
		engineVersion = engine.Version()
	}

	for i, input := range args {
		res, err := convertOne(ctx, stage, input)
		if err != nil {
			return handleConvertError(err, log)
		}
		if err := outputConvertResults(res, engineName, engineVersion, infos[i], outputPath, jsonOutput, log); err != nil {
			return err
		}
	}
	return nil
}

// applyConvertFlags overrides environment-derived config with any flags the
// user set explicitly. Non-positive scale and timeout overrides are rejected.
func applyConvertFlags(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("engine") {
		cfg.OCREngine, _ = cmd.Flags().GetString("engine")
	}
	if cmd.Flags().Changed("langs") {
		cfg.OCRLanguages, _ = cmd.Flags().GetStringSlice("langs")
	}
	if cmd.Flags().Changed("scale") {
		scale, _ := cmd.Flags().GetFloat64("scale")
		if scale <= 0 {
			return fmt.Errorf("--scale must be positive (got %v)", scale)
		}
		cfg.OCRScale = scale
	}
	if cmd.Flags().Changed("timeout") {
		secs, _ := cmd.Flags().GetInt("timeout")
		if secs <= 0 {
			return fmt.Errorf("--timeout must be positive (got %d)", secs)
		}
		cfg.OCRTimeout = time.Duration(secs) * time.Second
	}
	if cmd.Flags().Changed("force-full-page-ocr") {
		cfg.ForceFullPageOCR, _ = cmd.Flags().GetBool("force-full-page-ocr")
	}
	if noOCR, _ := cmd.Flags().GetBool("no-ocr"); noOCR {
		cfg.OCREnabled = false
	}
	return nil
}

// validateInputFile checks that the input exists and is a readable,
// non-empty regular file.
func validateInputFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", path).
				Msg("Input file not found")
			return nil, fmt.Errorf("input file not found: %s", path)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", path).
				Msg("Permission denied accessing input file")
			return nil, fmt.Errorf("permission denied accessing input file: %s", path)
		}
		return nil, fmt.Errorf("error accessing input file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", path).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", path).
			Msg("Input file is empty")
		return nil, fmt.Errorf("input file is empty: %s", path)
	}

	return fileInfo, nil
}

// signalContext returns a context canceled by SIGINT/SIGTERM so an in-flight
// engine invocation is torn down instead of orphaned.
func signalContext(log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling conversion")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// buildEngine constructs the configured OCR engine handle. No probe happens
// here; the stage probes at construction.
func buildEngine(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.Engine, error) {
	switch cfg.OCREngine {
	case "tesseract":
		return ocr.NewTesseractCli(ocr.TesseractConfig{
			Command: cfg.TesseractCmd,
			DataDir: cfg.TessdataDir,
			Timeout: cfg.OCRTimeout,
		}), nil

	case "vision", "docai":
		// Check for credentials before creating a client so the user gets
		// guidance instead of an opaque transport error.
		hasCredentials := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_CREDENTIALS") != ""
		if !hasCredentials {
			log.Error().
				Str("engine", cfg.OCREngine).
				Msg("Google Cloud credentials not configured")
			return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
				"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
				"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
				"2. Export GOOGLE_CREDENTIALS with inline JSON:\n" +
				"   export GOOGLE_CREDENTIALS='{\"type\":\"service_account\",\"project_id\":\"your-project\",...}'\n\n" +
				"3. Check that your .env file contains the credentials variables")
		}
		if cfg.OCREngine == "vision" {
			return ocr.NewGoogleVision(ctx)
		}
		return ocr.NewDocumentAI(ctx)

	default:
		return nil, fmt.Errorf("unknown OCR engine %q (expected tesseract, vision, or docai)", cfg.OCREngine)
	}
}

// convertOne runs a single input through the pipeline. A raster input is one
// page sized to its native pixels.
func convertOne(ctx context.Context, stage *ocr.Stage, input string) (*pipeline.ConversionResult, error) {
	pageBackend, err := backend.Open(input)
	if err != nil {
		return nil, err
	}

	width, height := pageBackend.Size()
	pages := []*models.Page{{
		Number:  1,
		Width:   width,
		Height:  height,
		Backend: pageBackend,
	}}

	return pipeline.New(stage).Run(ctx, input, pages)
}

// ocrDebugHook returns a visualization hook that dumps the regions and cells
// of each OCR pass to the log.
func ocrDebugHook() ocr.DebugHook {
	log := logger.WithComponent("ocr-debug")
	return func(page *models.Page, regions []models.BoundingBox, cells []models.Cell) {
		for _, r := range regions {
			log.Info().
				Int("page", page.Number).
				Float64("l", r.L).
				Float64("t", r.T).
				Float64("r", r.R).
				Float64("b", r.B).
				Msg("OCR region")
		}
		for _, c := range cells {
			log.Info().
				Int("page", page.Number).
				Int("id", c.ID).
				Str("text", c.Text).
				Float64("confidence", c.Confidence).
				Float64("l", c.BBox.L).
				Float64("t", c.BBox.T).
				Float64("r", c.BBox.R).
				Float64("b", c.BBox.B).
				Msg("OCR cell")
		}
	}
}

// handleConvertError provides user-friendly error messages for conversion failures
func handleConvertError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Conversion failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("conversion was canceled")
	case errors.Is(err, ocr.ErrEngineNotFound):
		return fmt.Errorf("OCR engine is not available. Please verify:\n\n"+
			"1. tesseract is installed and on PATH (or TESSERACT_CMD points at it):\n"+
			"   apt-get install tesseract-ocr  /  brew install tesseract\n\n"+
			"2. Or select a cloud engine:\n"+
			"   docling convert --engine vision ...\n\n"+
			"3. Or skip recognition entirely with --no-ocr\n\n"+
			"Original error: %w", err)
	case errors.Is(err, ocr.ErrMissingCredentials):
		return fmt.Errorf("Google Cloud credentials validation failed. Please verify:\n\n"+
			"1. Credentials file exists and is readable\n"+
			"2. JSON format is valid\n"+
			"3. Service account has proper permissions\n\n"+
			"Original error: %w", err)
	case errors.Is(err, ocr.ErrEngineExecution):
		return fmt.Errorf("OCR engine invocation failed; the page was not committed: %w", err)
	case errors.Is(err, backend.ErrBackendInvalid):
		return fmt.Errorf("input cannot be rendered: %w", err)
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "auth:") ||
		strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n"+
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path\n"+
			"2. Or set GOOGLE_CREDENTIALS with inline JSON credentials\n"+
			"3. Ensure the service account has the Vision / Document AI user role\n\n"+
			"Original error: %v", err)
	default:
		return fmt.Errorf("conversion failed: %w", err)
	}
}

// outputConvertResults formats and writes one conversion's results. The
// engine identity is blank when the OCR stage never ran.
func outputConvertResults(res *pipeline.ConversionResult, engineName, engineVersion string, fileInfo os.FileInfo, outputPath string, jsonOutput bool, log zerolog.Logger) error {
	var outputData []byte
	var err error

	cellCount, ocrCount := countCells(res.Pages)

	if jsonOutput {
		out := ConvertOutput{
			ID:            res.ID,
			FileName:      filepath.Base(fileInfo.Name()),
			FileSize:      fileInfo.Size(),
			Engine:        engineName,
			EngineVersion: engineVersion,
			Status:        string(res.Status),
			Pages:         res.Pages,
			CellCount:     cellCount,
			OcrCellCount:  ocrCount,
			ProcessedAt:   res.FinishedAt,
			Duration:      res.Elapsed().String(),
		}

		outputData, err = json.MarshalIndent(out, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		var sb strings.Builder
		for i, page := range res.Pages {
			if i > 0 {
				sb.WriteString("\n")
			}
			for _, cell := range page.Cells {
				sb.WriteString(cell.Text)
				sb.WriteString("\n")
			}
		}
		outputData = []byte(sb.String())
	}

	log.Info().
		Str("input", res.Input).
		Int("cells", cellCount).
		Int("ocr_cells", ocrCount).
		Msg("Conversion output ready")

	if outputPath != "" {
		if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(outputData)).
			Msg("Conversion results written to file")
		return nil
	}

	if _, err := os.Stdout.Write(outputData); err != nil {
		log.Error().Err(err).Msg("Failed to write to stdout")
		return fmt.Errorf("failed to write output: %w", err)
	}
	if jsonOutput {
		fmt.Println()
	}
	return nil
}

// countCells tallies total and OCR-produced cells across pages.
func countCells(pages []*models.Page) (total, fromOCR int) {
	for _, page := range pages {
		total += len(page.Cells)
		for _, cell := range page.Cells {
			if cell.FromOCR {
				fromOCR++
			}
		}
	}
	return total, fromOCR
}
