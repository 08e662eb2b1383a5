package tables

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// scriptedExtractor fails the first failures calls and records the files and
// ranges it saw.
type scriptedExtractor struct {
	failures int
	calls    []*PageRange
	paths    []string
	exists   []bool
}

func (s *scriptedExtractor) Extract(_ context.Context, path string, pages *PageRange) ([]Table, error) {
	s.calls = append(s.calls, pages)
	s.paths = append(s.paths, path)
	_, err := os.Stat(path)
	s.exists = append(s.exists, err == nil)
	if len(s.calls) <= s.failures {
		return nil, errors.New("conversion crashed")
	}
	return []Table{{Index: 1, Rows: [][]string{{"a", "b"}}}}, nil
}

func TestConverter_Convert(t *testing.T) {
	tests := []struct {
		name         string
		targetPage   int
		failures     int
		wantErr      bool
		wantAttempts int
		wantPages    *PageRange
		wantRanges   []*PageRange
	}{
		{
			name:         "target page first try",
			targetPage:   4,
			wantAttempts: 1,
			wantPages:    &PageRange{4, 4},
			wantRanges:   []*PageRange{{4, 4}},
		},
		{
			name:         "single page failure falls back to full document",
			targetPage:   4,
			failures:     1,
			wantAttempts: 2,
			wantPages:    nil,
			wantRanges:   []*PageRange{{4, 4}, nil},
		},
		{
			name:         "no target page",
			targetPage:   0,
			failures:     2,
			wantAttempts: 3,
			wantRanges:   []*PageRange{nil, nil, nil},
		},
		{
			name:       "all attempts fail",
			targetPage: 2,
			failures:   3,
			wantErr:    true,
			wantRanges: []*PageRange{{2, 2}, nil, nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &scriptedExtractor{failures: tt.failures}
			result, err := NewConverter(ex, 2, nil).Convert(context.Background(), "doc.pdf", tt.targetPage)

			if len(ex.calls) != len(tt.wantRanges) {
				t.Fatalf("calls = %d, want %d", len(ex.calls), len(tt.wantRanges))
			}
			for i, want := range tt.wantRanges {
				got := ex.calls[i]
				if (got == nil) != (want == nil) || (got != nil && *got != *want) {
					t.Errorf("call %d range = %v, want %v", i+1, got, want)
				}
			}

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			if result.Attempts != tt.wantAttempts {
				t.Errorf("Attempts = %d, want %d", result.Attempts, tt.wantAttempts)
			}
			if (result.Pages == nil) != (tt.wantPages == nil) {
				t.Errorf("Pages = %v, want %v", result.Pages, tt.wantPages)
			}
			if len(result.Tables) != 1 {
				t.Errorf("Tables = %d", len(result.Tables))
			}
		})
	}
}

func TestConverter_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := &scriptedExtractor{}
	_, err := NewConverter(ex, 2, nil).Convert(ctx, "doc.pdf", 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(ex.calls) != 0 {
		t.Errorf("extractor called %d times", len(ex.calls))
	}
}

// pageCutter writes a stand-in one-page PDF.
type pageCutter struct {
	err   error
	calls int
	dir   string
}

func (p *pageCutter) ExtractPage(pdfPath string, page int, outDir string) (string, error) {
	p.calls++
	p.dir = outDir
	if p.err != nil {
		return "", p.err
	}
	out := filepath.Join(outDir, fmt.Sprintf("page-%d.pdf", page))
	return out, os.WriteFile(out, []byte("%PDF-1.7 one page"), 0644)
}

func TestConverter_SendsSinglePageFile(t *testing.T) {
	cutter := &pageCutter{}
	ex := &scriptedExtractor{failures: 1}
	result, err := NewConverter(ex, 2, nil, WithPageSplitter(cutter)).Convert(context.Background(), "report.pdf", 7)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if cutter.calls != 1 {
		t.Errorf("ExtractPage calls = %d, want 1", cutter.calls)
	}
	if len(ex.paths) != 2 {
		t.Fatalf("extractor calls = %d, want 2", len(ex.paths))
	}
	if ex.paths[0] != filepath.Join(cutter.dir, "page-7.pdf") || ex.calls[0] != nil || !ex.exists[0] {
		t.Errorf("first attempt sent %q range %v, want the cut page with no range", ex.paths[0], ex.calls[0])
	}
	if ex.paths[1] != "report.pdf" || ex.calls[1] != nil {
		t.Errorf("fallback sent %q range %v, want the whole document", ex.paths[1], ex.calls[1])
	}
	if result.Attempts != 2 || result.Pages != nil {
		t.Errorf("result = %+v", result)
	}
	if _, err := os.Stat(cutter.dir); !os.IsNotExist(err) {
		t.Errorf("page dir %s not removed: %v", cutter.dir, err)
	}
}

func TestConverter_SinglePageTablesKeepTargetPage(t *testing.T) {
	ex := &scriptedExtractor{}
	result, err := NewConverter(ex, 0, nil, WithPageSplitter(&pageCutter{})).Convert(context.Background(), "report.pdf", 3)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if result.Tables[0].Page != 3 {
		t.Errorf("table page = %d, want 3", result.Tables[0].Page)
	}
	if result.Pages == nil || *result.Pages != (PageRange{3, 3}) {
		t.Errorf("Pages = %v, want 3-3", result.Pages)
	}
}

func TestConverter_SplitFailureUsesPageRange(t *testing.T) {
	ex := &scriptedExtractor{}
	cutter := &pageCutter{err: errors.New("trim failed")}
	_, err := NewConverter(ex, 0, nil, WithPageSplitter(cutter)).Convert(context.Background(), "report.pdf", 5)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if ex.paths[0] != "report.pdf" || ex.calls[0] == nil || *ex.calls[0] != (PageRange{5, 5}) {
		t.Errorf("sent %q range %v, want whole file with page 5", ex.paths[0], ex.calls[0])
	}
}
