package form

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrUnknownField = errors.New("unknown field")
	ErrDisabled     = errors.New("field is disabled while the counter is off")
	ErrBadValue     = errors.New("value not allowed for field")
)

// Labels for the submit action.
const (
	LabelSubmit     = "Submit Report"
	LabelIncomplete = "Complete Required Fields"
)

// Field is the current state of one input.
type Field struct {
	FieldDef
	Section  string
	Value    string
	Required bool
	Disabled bool
}

// Satisfied reports whether the field counts as completed.
func (f Field) Satisfied() bool {
	if f.Kind.IsRadio() {
		return f.Value != ""
	}
	return strings.TrimSpace(f.Value) != ""
}

// Form is the editable state of a report built from a Checklist. It is not
// safe for concurrent use.
type Form struct {
	list    *Checklist
	defs    map[string]FieldDef
	section map[string]string
	values  map[string]string
	// notes made required by a failed check
	noteRequired map[string]bool
}

// New returns an empty form for c.
func New(c *Checklist) *Form {
	f := &Form{
		list:         c,
		defs:         make(map[string]FieldDef),
		section:      make(map[string]string),
		values:       make(map[string]string),
		noteRequired: make(map[string]bool),
	}
	for _, s := range c.Sections {
		for _, d := range s.Fields {
			f.defs[d.Name] = d
			f.section[d.Name] = s.ID
		}
	}
	return f
}

// Checklist returns the definition the form was built from.
func (f *Form) Checklist() *Checklist { return f.list }

// Powered reports whether the counter is marked on. An unanswered power
// toggle leaves every section enabled.
func (f *Form) Powered() bool { return f.values[PowerField] != Fail }

// SetValue sets a field from user input and re-applies dependent
// requirements.
func (f *Form) SetValue(name, value string) error {
	d, ok := f.defs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	if f.disabled(name) {
		return fmt.Errorf("%w: %s", ErrDisabled, name)
	}
	if !allowed(d, value) {
		return fmt.Errorf("%w: %s=%q", ErrBadValue, name, value)
	}
	f.values[name] = value
	if d.Kind == KindCheck {
		f.applyCheck(name)
	}
	return nil
}

// Value returns the current value of a field.
func (f *Form) Value(name string) string { return f.values[name] }

// Field returns the state of a named field.
func (f *Form) Field(name string) (Field, bool) {
	d, ok := f.defs[name]
	if !ok {
		return Field{}, false
	}
	return Field{
		FieldDef: d,
		Section:  f.section[name],
		Value:    f.values[name],
		Required: f.required(name),
		Disabled: f.disabled(name),
	}, true
}

// Fields returns every field in checklist order.
func (f *Form) Fields() []Field {
	var out []Field
	for _, s := range f.list.Sections {
		for _, d := range s.Fields {
			fld, _ := f.Field(d.Name)
			out = append(out, fld)
		}
	}
	return out
}

// SectionDisabled reports whether every field of a section is disabled.
func (f *Form) SectionDisabled(id string) bool {
	return id != GeneralSection && !f.Powered()
}

// Progress returns completed required fields over total required fields,
// between 0 and 1. A form with nothing required reports 0.
func (f *Form) Progress() float64 {
	total, done := 0, 0
	for _, fld := range f.Fields() {
		if !fld.Required {
			continue
		}
		total++
		if fld.Satisfied() {
			done++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}

// Missing returns the labels of required fields that are not completed.
func (f *Form) Missing() []string {
	var out []string
	for _, fld := range f.Fields() {
		if fld.Required && !fld.Satisfied() {
			out = append(out, fld.Label)
		}
	}
	return out
}

// Valid reports whether every enabled required field is completed.
func (f *Form) Valid() bool { return len(f.Missing()) == 0 }

// SubmitLabel returns the text of the submit action.
func (f *Form) SubmitLabel() string {
	if f.Valid() {
		return LabelSubmit
	}
	return LabelIncomplete
}

// Values returns the form data to send: every enabled input, with radio
// groups only when answered. Disabled fields and media are left out.
func (f *Form) Values() map[string]string {
	out := make(map[string]string)
	for _, fld := range f.Fields() {
		if fld.Disabled || fld.Kind == KindMedia {
			continue
		}
		if fld.Kind.IsRadio() && fld.Value == "" {
			continue
		}
		out[fld.Name] = fld.Value
	}
	return out
}

// Populate fills the form from saved form data. Unknown keys and values a
// field cannot hold are ignored. Requirements are re-applied afterwards.
func (f *Form) Populate(values map[string]string) {
	for name, v := range values {
		d, ok := f.defs[name]
		if !ok || d.Kind == KindMedia || !allowed(d, v) {
			continue
		}
		f.values[name] = v
	}
	clear(f.noteRequired)
	for name, d := range f.defs {
		if d.Kind == KindCheck {
			f.applyCheck(name)
		}
	}
}

// applyCheck makes the check's note required when it failed and optional
// when it passed. Checks without a note are left alone.
func (f *Form) applyCheck(check string) {
	note := NoteFor(check)
	if d, ok := f.defs[note]; !ok || d.Kind != KindNote {
		return
	}
	switch f.values[check] {
	case Fail:
		f.noteRequired[note] = true
	case Pass:
		delete(f.noteRequired, note)
	}
}

func (f *Form) required(name string) bool {
	if f.disabled(name) {
		return false
	}
	if f.defs[name].Required {
		return true
	}
	if f.defs[name].Kind != KindNote {
		return false
	}
	if _, ok := checkOf(name); !ok {
		return false
	}
	return f.noteRequired[name]
}

func (f *Form) disabled(name string) bool {
	return f.SectionDisabled(f.section[name])
}

func allowed(d FieldDef, v string) bool {
	switch d.Kind {
	case KindToggle, KindCheck:
		return v == Pass || v == Fail || v == ""
	case KindSelect:
		return v == "" || slices.Contains(d.Options, v)
	case KindMedia:
		return false
	}
	return true
}
