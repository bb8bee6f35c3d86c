// Package ontology answers Biolink model questions the pipeline needs:
// predicate descriptions, inverse predicates, and qualified forms.
package ontology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Qualified is the qualified form of a predicate: a broader predicate plus
// the qualifiers that recover the original meaning.
type Qualified struct {
	Predicate                string `json:"predicate" yaml:"predicate"`
	ObjectAspectQualifier    string `json:"object_aspect_qualifier" yaml:"object_aspect_qualifier"`
	ObjectDirectionQualifier string `json:"object_direction_qualifier" yaml:"object_direction_qualifier"`
}

// Toolkit holds the ontology mapping tables. All lookups are read-only after
// construction, so a Toolkit is safe for concurrent use.
type Toolkit struct {
	descriptions map[string]string
	inverses     map[string]string
	qualified    map[string]Qualified
}

// New creates a Toolkit from already-loaded tables. Nil maps are allowed.
func New(descriptions, inverses map[string]string, qualified map[string]Qualified) *Toolkit {
	if descriptions == nil {
		descriptions = map[string]string{}
	}
	if inverses == nil {
		inverses = map[string]string{}
	}
	if qualified == nil {
		qualified = map[string]Qualified{}
	}
	return &Toolkit{
		descriptions: descriptions,
		inverses:     inverses,
		qualified:    qualified,
	}
}

// Files names the three mapping files backing a Toolkit. Any may be empty,
// leaving that table blank.
type Files struct {
	DescriptionFile        string
	InverseFile            string
	QualifiedPredicateFile string
}

// Load builds a Toolkit from mapping files. Files may be JSON or YAML.
func Load(files Files) (*Toolkit, error) {
	var descriptions, inverses map[string]string
	var qualified map[string]Qualified

	if files.DescriptionFile != "" {
		if err := loadMapping(files.DescriptionFile, &descriptions); err != nil {
			return nil, fmt.Errorf("failed to load description mapping: %w", err)
		}
	}
	if files.InverseFile != "" {
		if err := loadMapping(files.InverseFile, &inverses); err != nil {
			return nil, fmt.Errorf("failed to load inverse mapping: %w", err)
		}
	}
	if files.QualifiedPredicateFile != "" {
		if err := loadMapping(files.QualifiedPredicateFile, &qualified); err != nil {
			return nil, fmt.Errorf("failed to load qualified predicate mapping: %w", err)
		}
	}

	return New(descriptions, inverses, qualified), nil
}

func loadMapping(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}

// Description returns the short description for a predicate, falling back to
// the predicate name itself when no description is known.
func (t *Toolkit) Description(predicate string) string {
	if d, ok := t.descriptions[predicate]; ok && d != "" {
		return d
	}
	return predicate
}

// Descriptions returns the full description table.
func (t *Toolkit) Descriptions() map[string]string {
	return t.descriptions
}

// InverseOf returns the inverse predicate, if one is defined.
func (t *Toolkit) InverseOf(predicate string) (string, bool) {
	inv, ok := t.inverses[predicate]
	return inv, ok
}

// QualifiedForm returns the qualified form of a predicate, if one is defined.
func (t *Toolkit) QualifiedForm(predicate string) (Qualified, bool) {
	q, ok := t.qualified[predicate]
	return q, ok
}
