// Package form holds the state of the counter report form: which fields are
// enabled, which are required, how complete the form is and what gets sent
// as form data.
package form

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// GeneralSection is the section that stays enabled when the counter is off.
const GeneralSection = "general-status"

// PowerField is the toggle that enables or disables every other section.
const PowerField = "isOn"

// NoteSuffix names the note that belongs to a pass/fail check.
const NoteSuffix = "Note"

// Radio values used by toggles and checks.
const (
	Pass = "true"
	Fail = "false"
)

// Kind is the input type of a field.
type Kind string

const (
	KindToggle Kind = "toggle" // yes/no radio
	KindCheck  Kind = "check"  // pass/fail radio
	KindText   Kind = "text"
	KindNote   Kind = "note"
	KindSelect Kind = "select"
	KindMedia  Kind = "media" // uploaded separately, never part of form data
)

// IsRadio reports whether the kind is a radio group.
func (k Kind) IsRadio() bool { return k == KindToggle || k == KindCheck }

// FieldDef describes one input.
type FieldDef struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Kind     Kind     `yaml:"kind"`
	Required bool     `yaml:"required"`
	Options  []string `yaml:"options,omitempty"`
}

// Section groups fields under a heading.
type Section struct {
	ID     string     `yaml:"id"`
	Title  string     `yaml:"title"`
	Fields []FieldDef `yaml:"fields"`
}

// Checklist is the definition of the report form.
type Checklist struct {
	Title    string    `yaml:"title"`
	Sections []Section `yaml:"sections"`
}

//go:embed checklist.yaml
var defaultChecklist []byte

// DefaultChecklist returns the built-in checklist.
func DefaultChecklist() *Checklist {
	c, err := ParseChecklist(defaultChecklist)
	if err != nil {
		panic("form: built-in checklist: " + err.Error())
	}
	return c
}

// LoadChecklist reads a checklist from a YAML file.
func LoadChecklist(path string) (*Checklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checklist: %w", err)
	}
	return ParseChecklist(data)
}

// ParseChecklist decodes and validates a YAML checklist.
func ParseChecklist(data []byte) (*Checklist, error) {
	var c Checklist
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse checklist: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that field names are unique, kinds are known, select
// fields have options and the power toggle lives in the general section.
func (c *Checklist) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	power := false
	for _, s := range c.Sections {
		if s.ID == "" {
			errs = append(errs, errors.New("section without id"))
		}
		for _, f := range s.Fields {
			if f.Name == "" {
				errs = append(errs, fmt.Errorf("section %s: field without name", s.ID))
				continue
			}
			if seen[f.Name] {
				errs = append(errs, fmt.Errorf("duplicate field %q", f.Name))
			}
			seen[f.Name] = true
			switch f.Kind {
			case KindToggle, KindCheck, KindText, KindNote, KindMedia:
			case KindSelect:
				if len(f.Options) == 0 {
					errs = append(errs, fmt.Errorf("select %q has no options", f.Name))
				}
			default:
				errs = append(errs, fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind))
			}
			if f.Name == PowerField {
				if s.ID != GeneralSection || f.Kind != KindToggle {
					errs = append(errs, fmt.Errorf("%s must be a toggle in section %s", PowerField, GeneralSection))
				}
				power = true
			}
		}
	}
	if !power {
		errs = append(errs, fmt.Errorf("missing %s toggle", PowerField))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid checklist: %w", err)
	}
	return nil
}

// NoteFor returns the name of the note that belongs to check.
func NoteFor(check string) string { return check + NoteSuffix }

// checkOf returns the check a note belongs to.
func checkOf(note string) (string, bool) {
	return strings.CutSuffix(note, NoteSuffix)
}
