package ocr

import (
	"errors"
	"strings"
	"testing"
)

const tesseractHeader = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext"

func tsvLine(left, top, width, height, conf, text string) string {
	return strings.Join([]string{"5", "1", "1", "1", "1", "1", left, top, width, height, conf, text}, "\t")
}

func TestTSVParserDropsTextlessRows(t *testing.T) {
	input := strings.Join([]string{
		tesseractHeader,
		tsvLine("1", "1", "1", "1", "95", ""),
		tsvLine("10", "10", "20", "5", "88", "Hi"),
	}, "\n")

	rows, err := NewTSVParser().Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Parse() returned %d rows, want 1", len(rows))
	}
	if rows[0].Text != "Hi" {
		t.Errorf("rows[0].Text = %q, want %q", rows[0].Text, "Hi")
	}
	if rows[0].Confidence != 88 {
		t.Errorf("rows[0].Confidence = %v, want 88", rows[0].Confidence)
	}
}

func TestTSVParserParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantTexts []string
		wantErr   bool
	}{
		{
			name: "typical engine output",
			input: strings.Join([]string{
				tesseractHeader,
				"1\t1\t0\t0\t0\t0\t0\t0\t300\t300\t-1\t",
				"2\t1\t1\t0\t0\t0\t30\t30\t100\t20\t-1\t",
				tsvLine("30", "30", "45", "15", "96.21", "Hello"),
				tsvLine("80", "30", "50", "15", "91.00", "World"),
			}, "\n"),
			wantTexts: []string{"Hello", "World"},
		},
		{
			name: "whitespace only text dropped",
			input: strings.Join([]string{
				tesseractHeader,
				tsvLine("1", "1", "1", "1", "90", "   "),
				tsvLine("5", "5", "5", "5", "90", "kept"),
			}, "\n"),
			wantTexts: []string{"kept"},
		},
		{
			name: "column order does not matter",
			input: strings.Join([]string{
				"text\tconf\theight\twidth\ttop\tleft",
				"first\t70\t10\t40\t12\t7",
				"second\t80\t10\t40\t12\t60",
			}, "\n"),
			wantTexts: []string{"first", "second"},
		},
		{
			name: "extra columns ignored",
			input: strings.Join([]string{
				"left\ttop\twidth\theight\tconf\ttext\textra",
				"1\t2\t3\t4\t50\tword\tnoise",
			}, "\n"),
			wantTexts: []string{"word"},
		},
		{
			name: "malformed numeric row skipped",
			input: strings.Join([]string{
				tesseractHeader,
				tsvLine("oops", "1", "1", "1", "90", "bad"),
				tsvLine("5", "5", "5", "5", "90", "good"),
			}, "\n"),
			wantTexts: []string{"good"},
		},
		{
			name: "crlf line endings",
			input: strings.Join([]string{
				tesseractHeader,
				tsvLine("1", "2", "3", "4", "75", "dos"),
			}, "\r\n"),
			wantTexts: []string{"dos"},
		},
		{
			name:    "empty output",
			input:   "",
			wantErr: true,
		},
		{
			name:    "missing required column",
			input:   "left\ttop\twidth\theight\ttext\nfoo",
			wantErr: true,
		},
	}

	parser := NewTSVParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := parser.Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(rows) != len(tt.wantTexts) {
				t.Fatalf("Parse() returned %d rows, want %d", len(rows), len(tt.wantTexts))
			}
			for i, want := range tt.wantTexts {
				if rows[i].Text != want {
					t.Errorf("rows[%d].Text = %q, want %q", i, rows[i].Text, want)
				}
			}
		})
	}
}

func TestTSVParserGeometry(t *testing.T) {
	input := strings.Join([]string{
		tesseractHeader,
		tsvLine("30", "30", "60", "15", "96.21", "Hello"),
	}, "\n")

	rows, err := NewTSVParser().Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Parse() returned %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row.Left != 30 || row.Top != 30 || row.Width != 60 || row.Height != 15 {
		t.Errorf("geometry = (%v, %v, %v, %v), want (30, 30, 60, 15)",
			row.Left, row.Top, row.Width, row.Height)
	}
	if row.Confidence != 96.21 {
		t.Errorf("Confidence = %v, want 96.21", row.Confidence)
	}
}

func TestTSVParserEmptyOutputError(t *testing.T) {
	_, err := NewTSVParser().Parse("\n\n")
	if err == nil {
		t.Fatal("Parse() error = nil, want error")
	}
	if !errors.Is(err, ErrEngineExecution) {
		t.Errorf("Parse() error = %v, want ErrEngineExecution", err)
	}
}
