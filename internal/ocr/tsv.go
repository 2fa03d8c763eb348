package ocr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simjak/docling/internal/logger"
	"github.com/simjak/docling/pkg/models"
)

// requiredColumns are the TSV header names the parser must locate. Additional
// columns (level, page_num, block_num, ...) are ignored.
var requiredColumns = []string{"left", "top", "width", "height", "conf", "text"}

// TSVParser turns the tab-separated tabular output of an OCR engine into
// typed rows. Columns are located by header name, so column order and extra
// columns do not matter. Rows without recognizable text are structural
// detections and are dropped; rows with unparseable numeric fields are
// skipped with a warning instead of failing the whole result.
type TSVParser struct {
	log zerolog.Logger
}

// NewTSVParser creates a parser for engine tabular output.
func NewTSVParser() *TSVParser {
	return &TSVParser{log: logger.WithComponent("ocr-tsv")}
}

// Parse decodes raw TSV text into rows, preserving input order. It fails only
// when the header row is missing or lacks a required column; per-row problems
// are never fatal.
func (p *TSVParser) Parse(raw string) ([]models.RawCell, error) {
	const op = "Parse"

	lines := strings.Split(raw, "\n")
	header := ""
	body := 0
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			header = strings.TrimRight(line, "\r")
			body = i + 1
			break
		}
	}
	if header == "" {
		return nil, WrapOcrError(op, ErrEngineExecution, "engine produced no tabular output")
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, WrapOcrError(op, err, fmt.Sprintf("header: %q", header))
	}
	textIdx := cols["text"]

	var rows []models.RawCell
	for n, line := range lines[body:] {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		// Structural detections (page/block/line markers) carry no text
		// field or a blank one; they are layout scaffolding, not content.
		if len(fields) <= textIdx || strings.TrimSpace(fields[textIdx]) == "" {
			continue
		}

		row, err := parseRow(fields, cols)
		if err != nil {
			p.log.Warn().
				Err(err).
				Int("line", body+n+1).
				Msg("Skipping malformed result row")
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// columnIndex maps required column names to their positions in the header.
func columnIndex(header string) (map[string]int, error) {
	names := strings.Split(header, "\t")
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("tabular output is missing required column %q", required)
		}
	}
	return index, nil
}

func parseRow(fields []string, cols map[string]int) (models.RawCell, error) {
	numeric := func(name string) (float64, error) {
		idx := cols[name]
		if idx >= len(fields) {
			return 0, fmt.Errorf("row has no %s field", name)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(fields[idx]), 64)
		if err != nil {
			return 0, fmt.Errorf("bad %s value %q", name, fields[idx])
		}
		return value, nil
	}

	var row models.RawCell
	var err error
	if row.Left, err = numeric("left"); err != nil {
		return models.RawCell{}, err
	}
	if row.Top, err = numeric("top"); err != nil {
		return models.RawCell{}, err
	}
	if row.Width, err = numeric("width"); err != nil {
		return models.RawCell{}, err
	}
	if row.Height, err = numeric("height"); err != nil {
		return models.RawCell{}, err
	}
	if row.Confidence, err = numeric("conf"); err != nil {
		return models.RawCell{}, err
	}
	row.Text = fields[cols["text"]]
	return row, nil
}
