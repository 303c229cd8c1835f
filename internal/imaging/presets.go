package imaging

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// IdentityFilterID is the preset that leaves the original untouched.
const IdentityFilterID = "none"

//go:embed presets.yaml
var builtinPresets []byte

// Preset is a named filter from the catalog.
type Preset struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	CSS         string       `json:"css" yaml:"css"`
	Adjustments []Adjustment `json:"adjustments,omitempty" yaml:"-"`
}

// IsIdentity reports whether the preset changes nothing.
func (p Preset) IsIdentity() bool {
	return len(p.Adjustments) == 0
}

type presetFile struct {
	Filters []Preset `yaml:"filters"`
}

// Catalog is an ordered, read-only preset table.
type Catalog struct {
	order []string
	byID  map[string]Preset
}

// DefaultCatalog parses the embedded preset table.
func DefaultCatalog() (*Catalog, error) {
	return parseCatalog(builtinPresets, nil)
}

// LoadCatalog parses the embedded presets and then merges the YAML file at
// path, if any. Entries with an existing id replace the built-in preset.
func LoadCatalog(path string) (*Catalog, error) {
	base, err := DefaultCatalog()
	if err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return base, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("imaging: read presets: %w", err)
	}
	return parseCatalog(data, base)
}

func parseCatalog(data []byte, base *Catalog) (*Catalog, error) {
	var file presetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("imaging: decode presets: %w", err)
	}
	cat := &Catalog{byID: map[string]Preset{}}
	if base != nil {
		cat.order = append(cat.order, base.order...)
		for id, p := range base.byID {
			cat.byID[id] = p
		}
	}
	for _, p := range file.Filters {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("imaging: preset without id")
		}
		adjustments, err := ParseDescriptor(p.CSS)
		if err != nil {
			return nil, fmt.Errorf("imaging: preset %q: %w", p.ID, err)
		}
		p.Adjustments = adjustments
		if p.Name == "" {
			p.Name = p.ID
		}
		if _, exists := cat.byID[p.ID]; !exists {
			cat.order = append(cat.order, p.ID)
		}
		cat.byID[p.ID] = p
	}
	if _, ok := cat.byID[IdentityFilterID]; !ok {
		cat.order = append([]string{IdentityFilterID}, cat.order...)
		cat.byID[IdentityFilterID] = Preset{ID: IdentityFilterID, Name: "Normal", CSS: "none"}
	}
	return cat, nil
}

// Lookup returns the preset with the given id.
func (c *Catalog) Lookup(id string) (Preset, bool) {
	p, ok := c.byID[strings.TrimSpace(id)]
	return p, ok
}

// List returns the presets in table order.
func (c *Catalog) List() []Preset {
	out := make([]Preset, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
