package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finparser/mapping"
	"finparser/statement"
)

// ErrResultNotFound is returned when a document has no saved statement.
var ErrResultNotFound = errors.New("pipeline: results not found")

// Results reads and edits saved statements under an output root laid out as
// {root}/{COMPANY}_{document}/{document}-financial-data.json.
type Results struct {
	root   string
	config *mapping.Config
	now    func() time.Time
}

// NewResults creates a Results rooted at root. config validates company names.
func NewResults(root string, config *mapping.Config) *Results {
	return &Results{root: root, config: config, now: time.Now}
}

// Root returns the output root.
func (r *Results) Root() string {
	return r.root
}

// DocumentDir returns the output directory of a company's document.
func (r *Results) DocumentDir(company, document string) string {
	return filepath.Join(r.root, fmt.Sprintf("%s_%s", company, document))
}

func (r *Results) jsonPath(company, document string) string {
	return filepath.Join(r.DocumentDir(company, document), document+"-financial-data.json")
}

// Load returns the saved statement of a document.
func (r *Results) Load(company, document string) (*statement.Statement, error) {
	if err := checkName(company, document); err != nil {
		return nil, err
	}
	path := r.jsonPath(company, document)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w for %s/%s", ErrResultNotFound, company, document)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	var stmt statement.Statement
	if err := json.Unmarshal(data, &stmt); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &stmt, nil
}

// Update replaces the line items of a document's statement and returns the
// path written. With createNew the original is kept and the edit goes to a
// timestamped file.
func (r *Results) Update(company, document string, items []statement.LineItem, createNew bool) (string, error) {
	if strings.TrimSpace(company) == "" {
		return "", statement.ErrMissingCompany
	}
	if items == nil {
		return "", statement.ErrMissingFinancialData
	}
	if r.config != nil {
		if _, err := r.config.Company(company); err != nil {
			return "", err
		}
	}
	if err := checkName(company, document); err != nil {
		return "", err
	}

	stmt, err := r.Load(company, document)
	if errors.Is(err, ErrResultNotFound) {
		stmt, err = &statement.Statement{CompanyName: company}, nil
	}
	if err != nil {
		return "", err
	}
	stmt.FinancialData = items
	stmt.ExtractionMethod = statement.MethodManual
	stmt.Normalize()
	if err := stmt.Validate(); err != nil {
		return "", err
	}

	dir := r.DocumentDir(company, document)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := r.jsonPath(company, document)
	if createNew {
		stamp := r.now().Format("20060102_150405")
		path = filepath.Join(dir, fmt.Sprintf("%s-financial-data-edited-%s.json", document, stamp))
	}
	if err := writeJSON(path, stmt); err != nil {
		return "", err
	}
	return path, nil
}

// ErrInvalidName is returned for company or document names that would
// escape the output root.
var ErrInvalidName = errors.New("pipeline: invalid company or document name")

func checkName(names ...string) error {
	for _, n := range names {
		if n == "" || n == "." || n == ".." || strings.ContainsAny(n, `/\`) {
			return fmt.Errorf("%w: %q", ErrInvalidName, n)
		}
	}
	return nil
}
