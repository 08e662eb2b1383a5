package tables

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExportedFiles maps output keys (csv_1, html_1, md_1, ...) to file paths.
type ExportedFiles map[string]string

// ExportPath returns the path of a table export: {dir}/{stem}-table-{n}.{ext}.
func ExportPath(dir, stem string, index int, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-table-%d.%s", stem, index, ext))
}

// Export writes CSV, HTML and Markdown renderings of every table into dir.
func Export(tables []Table, dir, stem string) (ExportedFiles, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := ExportedFiles{}
	for _, t := range tables {
		csvData, err := t.CSV()
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", t.Index, err)
		}

		renderings := []struct {
			ext  string
			data string
		}{
			{"csv", csvData},
			{"html", t.HTML()},
			{"md", t.Markdown()},
		}
		for _, r := range renderings {
			path := ExportPath(dir, stem, t.Index, r.ext)
			if err := os.WriteFile(path, []byte(r.data), 0644); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", path, err)
			}
			files[fmt.Sprintf("%s_%d", r.ext, t.Index)] = path
		}
	}
	return files, nil
}
