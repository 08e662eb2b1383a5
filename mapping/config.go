// Package mapping turns a statement table into line items using per-company
// row and column configuration.
package mapping

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed companies.yaml
var defaultConfig []byte

var (
	// ErrUnknownCompany is returned for companies missing from the configuration.
	ErrUnknownCompany = errors.New("mapping: unknown company")

	// ErrUnknownLayout is returned when a company or item names a layout that does not exist.
	ErrUnknownLayout = errors.New("mapping: unknown column layout")

	// ErrInvalidConfig is returned for structurally invalid configuration.
	ErrInvalidConfig = errors.New("mapping: invalid configuration")
)

const (
	layoutsKey         = "column_layouts"
	labelKey           = "label"
	defaultLayout      = "standard"
	defaultLabelColumn = 2
)

// PeriodColumn maps a period label (e.g. 30.06.2025 or 31.03.2025_Y) to a
// 1-based table column.
type PeriodColumn struct {
	Period string
	Column int
}

// ColumnLayout describes where the label and each period sit in a row.
// Periods keep the order in which the configuration lists them.
type ColumnLayout struct {
	Name        string
	LabelColumn int
	Periods     []PeriodColumn
}

// UnmarshalYAML reads a mapping node so that period order is preserved.
func (l *ColumnLayout) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: column layout must be a mapping (line %d)", ErrInvalidConfig, node.Line)
	}
	l.LabelColumn = defaultLabelColumn
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		col, err := strconv.Atoi(value.Value)
		if err != nil || col < 1 {
			return fmt.Errorf("%w: column for %q must be a positive integer (line %d)", ErrInvalidConfig, key, value.Line)
		}
		if key == labelKey {
			l.LabelColumn = col
			continue
		}
		l.Periods = append(l.Periods, PeriodColumn{Period: key, Column: col})
	}
	return nil
}

// ItemConfig locates one metric in a company's statement table. TRNumber is
// the 1-based table row; 0 relies on label matching.
type ItemConfig struct {
	Key          string   `yaml:"key"`
	Labels       []string `yaml:"labels"`
	TRNumber     int      `yaml:"tr_number"`
	ColumnLayout string   `yaml:"column_layout"`
}

// CompanyConfig is the mapping configuration of one company.
type CompanyConfig struct {
	// Key is the configuration key, e.g. "pg"
	Key           string       `yaml:"-"`
	Name          string       `yaml:"name"`
	ColumnLayout  string       `yaml:"column_layout"`
	FinancialData []ItemConfig `yaml:"financial_data"`
}

// Config holds column layouts and companies in file order.
type Config struct {
	Layouts   map[string]ColumnLayout
	Companies []*CompanyConfig
}

// UnmarshalYAML reads column_layouts and treats every other top-level key as a company.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: top level must be a mapping", ErrInvalidConfig)
	}
	c.Layouts = map[string]ColumnLayout{}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]

		if key == layoutsKey {
			if value.Kind != yaml.MappingNode {
				return fmt.Errorf("%w: %s must be a mapping", ErrInvalidConfig, layoutsKey)
			}
			for j := 0; j+1 < len(value.Content); j += 2 {
				name := value.Content[j].Value
				var layout ColumnLayout
				if err := value.Content[j+1].Decode(&layout); err != nil {
					return fmt.Errorf("layout %s: %w", name, err)
				}
				layout.Name = name
				c.Layouts[name] = layout
			}
			continue
		}

		company := &CompanyConfig{}
		if err := value.Decode(company); err != nil {
			return fmt.Errorf("company %s: %w", key, err)
		}
		company.Key = key
		if company.Name == "" {
			company.Name = strings.ToUpper(key)
		}
		if company.ColumnLayout == "" {
			company.ColumnLayout = defaultLayout
		}
		c.Companies = append(c.Companies, company)
	}
	return nil
}

// LoadConfig reads the configuration at path, or the embedded default when path is empty.
// JSON files are accepted since JSON is a subset of YAML.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return ParseConfig(defaultConfig)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read company configuration: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates configuration data.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every referenced layout exists and every item has a key.
func (c *Config) Validate() error {
	if len(c.Companies) == 0 {
		return fmt.Errorf("%w: no companies configured", ErrInvalidConfig)
	}
	for _, company := range c.Companies {
		if _, ok := c.Layouts[company.ColumnLayout]; !ok {
			return fmt.Errorf("%w: %q used by %s", ErrUnknownLayout, company.ColumnLayout, company.Key)
		}
		for i, item := range company.FinancialData {
			if strings.TrimSpace(item.Key) == "" {
				return fmt.Errorf("%w: %s item %d has no key", ErrInvalidConfig, company.Key, i+1)
			}
			if item.TRNumber < 0 {
				return fmt.Errorf("%w: %s item %s has negative tr_number", ErrInvalidConfig, company.Key, item.Key)
			}
			if item.ColumnLayout == "" {
				continue
			}
			if _, ok := c.Layouts[item.ColumnLayout]; !ok {
				return fmt.Errorf("%w: %q used by %s.%s", ErrUnknownLayout, item.ColumnLayout, company.Key, item.Key)
			}
		}
	}
	return nil
}

// SupportedCompanies returns display names in configuration order.
func (c *Config) SupportedCompanies() []string {
	names := make([]string, len(c.Companies))
	for i, company := range c.Companies {
		names[i] = company.Name
	}
	return names
}

// ResolveCompany maps a display name such as "P&G" (any case) or a
// configuration key such as "pg" to the configuration key.
func (c *Config) ResolveCompany(name string) (string, error) {
	company, err := c.Company(name)
	if err != nil {
		return "", err
	}
	return company.Key, nil
}

// Company returns the configuration for a display name or key.
func (c *Config) Company(name string) (*CompanyConfig, error) {
	wanted := strings.TrimSpace(name)
	for _, company := range c.Companies {
		if strings.EqualFold(company.Name, wanted) || strings.EqualFold(company.Key, wanted) {
			return company, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCompany, name)
}

// IsSupported reports whether name resolves to a configured company.
func (c *Config) IsSupported(name string) bool {
	_, err := c.Company(name)
	return err == nil
}

// Layout returns the named layout.
func (c *Config) Layout(name string) (ColumnLayout, error) {
	layout, ok := c.Layouts[name]
	if !ok {
		return ColumnLayout{}, fmt.Errorf("%w: %s", ErrUnknownLayout, name)
	}
	return layout, nil
}
