package diagnostics

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Category is the closed set of read-failure classifications devices report.
type Category string

const (
	MRZIncomplete   Category = "mrz_incomplete"
	ChipUnreachable Category = "chip_unreachable"
	BACDenied       Category = "bac_denied"
	PACEDenied      Category = "pace_denied"
	Timeout         Category = "timeout"
	ChipDamaged     Category = "chip_damaged"
	LegacyChip      Category = "legacy_chip"
)

// Categories lists every known failure category in a stable order.
func Categories() []Category {
	return []Category{MRZIncomplete, ChipUnreachable, BACDenied, PACEDenied, Timeout, ChipDamaged, LegacyChip}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

var (
	ErrUnknownCategory = errors.New("unknown failure category")
)

// Advice is the troubleshooting entry served for one failure category.
type Advice struct {
	Category Category `yaml:"category" json:"category"`
	Title    string   `yaml:"title" json:"title"`
	Causes   []string `yaml:"causes" json:"causes"`
	Tips     []string `yaml:"tips" json:"tips"`
}

// Catalog maps failure categories to advice. Loaded from the embedded
// default or from an operator-provided yaml override.
type Catalog struct {
	entries map[Category]*Advice
}

//go:embed advice.yaml
var defaultAdvice []byte

// DefaultCatalog parses the embedded advice file. It panics on a corrupt
// embed, which only a bad build can produce.
func DefaultCatalog() *Catalog {
	c, err := parse(defaultAdvice)
	if err != nil {
		panic(fmt.Sprintf("embedded advice catalog: %v", err))
	}
	return c
}

// LoadCatalog reads an override file. An empty path falls back to the
// embedded default.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read advice catalog: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (*Catalog, error) {
	var doc struct {
		Advice []*Advice `yaml:"advice"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse advice catalog: %w", err)
	}
	c := &Catalog{entries: make(map[Category]*Advice, len(doc.Advice))}
	for _, a := range doc.Advice {
		if !a.Category.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, a.Category)
		}
		c.entries[a.Category] = a
	}
	for _, k := range Categories() {
		if _, ok := c.entries[k]; !ok {
			return nil, fmt.Errorf("advice catalog missing category %q", k)
		}
	}
	return c, nil
}

// Lookup returns the advice for a category.
func (c *Catalog) Lookup(cat Category) (*Advice, error) {
	a, ok := c.entries[cat]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	return a, nil
}

// All returns every advice entry in category order.
func (c *Catalog) All() []*Advice {
	out := make([]*Advice, 0, len(c.entries))
	for _, k := range Categories() {
		if a, ok := c.entries[k]; ok {
			out = append(out, a)
		}
	}
	return out
}
