package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checks = []string{"printerCheck", "scannerCheck", "cashDrawerCheck", "displayCheck", "networkCheck"}

func complete(t *testing.T, f *Form) {
	t.Helper()
	require.NoError(t, f.SetValue(PowerField, Pass))
	for _, c := range checks {
		require.NoError(t, f.SetValue(c, Pass))
	}
	require.NoError(t, f.SetValue("overallCondition", "Good"))
}

func TestDefaultChecklist(t *testing.T) {
	c := DefaultChecklist()
	assert.Equal(t, "Counter Report Checklist", c.Title)
	require.NotEmpty(t, c.Sections)
	assert.Equal(t, GeneralSection, c.Sections[0].ID)

	var media int
	for _, s := range c.Sections {
		for _, d := range s.Fields {
			if d.Kind == KindMedia {
				media++
			}
		}
	}
	assert.Equal(t, 2, media)
}

func TestParseChecklist_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no power", "sections:\n  - id: a\n    fields:\n      - {name: x, kind: text}\n", "missing isOn"},
		{"power outside general", "sections:\n  - id: a\n    fields:\n      - {name: isOn, kind: toggle}\n", "must be a toggle"},
		{"duplicate", "sections:\n  - id: general-status\n    fields:\n      - {name: isOn, kind: toggle}\n      - {name: isOn, kind: toggle}\n", "duplicate"},
		{"select without options", "sections:\n  - id: general-status\n    fields:\n      - {name: isOn, kind: toggle}\n      - {name: s, kind: select}\n", "no options"},
		{"unknown kind", "sections:\n  - id: general-status\n    fields:\n      - {name: isOn, kind: toggle}\n      - {name: s, kind: slider}\n", "unknown kind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChecklist([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestForm_ConditionalNote(t *testing.T) {
	f := New(DefaultChecklist())
	note := NoteFor("printerCheck")

	fld, _ := f.Field(note)
	assert.False(t, fld.Required, "note optional before the check is answered")

	require.NoError(t, f.SetValue("printerCheck", Fail))
	fld, _ = f.Field(note)
	assert.True(t, fld.Required)

	// other checks are unaffected
	other, _ := f.Field(NoteFor("scannerCheck"))
	assert.False(t, other.Required)

	require.NoError(t, f.SetValue("printerCheck", Pass))
	fld, _ = f.Field(note)
	assert.False(t, fld.Required)
}

func TestForm_FailedCheckBlocksSubmitUntilNoted(t *testing.T) {
	f := New(DefaultChecklist())
	complete(t, f)
	require.True(t, f.Valid())
	assert.Equal(t, LabelSubmit, f.SubmitLabel())

	require.NoError(t, f.SetValue("networkCheck", Fail))
	assert.False(t, f.Valid())
	assert.Equal(t, LabelIncomplete, f.SubmitLabel())
	assert.Equal(t, []string{"Network notes"}, f.Missing())

	require.NoError(t, f.SetValue(NoteFor("networkCheck"), "   "))
	assert.False(t, f.Valid(), "whitespace is not a note")

	require.NoError(t, f.SetValue(NoteFor("networkCheck"), "switch port dead"))
	assert.True(t, f.Valid())
}

func TestForm_Progress(t *testing.T) {
	f := New(DefaultChecklist())
	assert.Zero(t, f.Progress())

	// 7 required: isOn, five checks, overallCondition
	require.NoError(t, f.SetValue(PowerField, Pass))
	assert.InDelta(t, 1.0/7, f.Progress(), 1e-9)

	require.NoError(t, f.SetValue("printerCheck", Fail))
	// the failed check adds its note to the required set
	assert.InDelta(t, 2.0/8, f.Progress(), 1e-9)

	complete(t, f)
	assert.InDelta(t, 1.0, f.Progress(), 1e-9)
}

func TestForm_ProgressNothingRequired(t *testing.T) {
	c, err := ParseChecklist([]byte("sections:\n  - id: general-status\n    fields:\n      - {name: isOn, kind: toggle}\n      - {name: c, kind: text}\n"))
	require.NoError(t, err)
	f := New(c)
	require.NoError(t, f.SetValue("c", "x"))
	assert.Zero(t, f.Progress())
	assert.True(t, f.Valid())
}

func TestForm_PowerOffDisablesOtherSections(t *testing.T) {
	f := New(DefaultChecklist())
	require.NoError(t, f.SetValue("printerCheck", Fail))
	require.NoError(t, f.SetValue("ipAddress", "10.0.0.7"))

	require.NoError(t, f.SetValue(PowerField, Fail))
	assert.False(t, f.Powered())
	assert.True(t, f.SectionDisabled("hardware"))
	assert.False(t, f.SectionDisabled(GeneralSection))

	for _, fld := range f.Fields() {
		if fld.Section == GeneralSection {
			assert.False(t, fld.Disabled, fld.Name)
			continue
		}
		assert.True(t, fld.Disabled, fld.Name)
		assert.False(t, fld.Required, fld.Name)
	}

	assert.True(t, f.Valid(), "only the power toggle is required while off")
	assert.InDelta(t, 1.0, f.Progress(), 1e-9)
	assert.Equal(t, map[string]string{PowerField: Fail}, f.Values())

	err := f.SetValue("scannerCheck", Pass)
	assert.ErrorIs(t, err, ErrDisabled)

	// switching back on restores the previous answers and requirements
	require.NoError(t, f.SetValue(PowerField, Pass))
	assert.Equal(t, "10.0.0.7", f.Values()["ipAddress"])
	note, _ := f.Field(NoteFor("printerCheck"))
	assert.True(t, note.Required)
}

func TestForm_SetValueRejects(t *testing.T) {
	f := New(DefaultChecklist())
	assert.ErrorIs(t, f.SetValue("nope", "x"), ErrUnknownField)
	assert.ErrorIs(t, f.SetValue("printerCheck", "maybe"), ErrBadValue)
	assert.ErrorIs(t, f.SetValue("overallCondition", "Excellent"), ErrBadValue)
	assert.ErrorIs(t, f.SetValue("counterPhoto", "x"), ErrBadValue)
}

func TestForm_Values(t *testing.T) {
	f := New(DefaultChecklist())
	require.NoError(t, f.SetValue(PowerField, Pass))
	require.NoError(t, f.SetValue("printerCheck", Pass))

	got := f.Values()
	assert.Equal(t, Pass, got[PowerField])
	assert.Equal(t, Pass, got["printerCheck"])
	assert.NotContains(t, got, "scannerCheck", "unanswered radios are left out")
	assert.Contains(t, got, "comments", "empty text inputs are sent")
	assert.NotContains(t, got, "counterPhoto")
}

func TestForm_Populate(t *testing.T) {
	f := New(DefaultChecklist())
	f.Populate(map[string]string{
		PowerField:         Pass,
		"printerCheck":     Fail,
		"printerCheckNote": "paper jam",
		"overallCondition": "Fair",
		"unknownField":     "ignored",
		"scannerCheck":     "bogus",
	})

	assert.Equal(t, Fail, f.Value("printerCheck"))
	assert.Equal(t, "paper jam", f.Value("printerCheckNote"))
	assert.Empty(t, f.Value("scannerCheck"))
	note, _ := f.Field("printerCheckNote")
	assert.True(t, note.Required, "requirements follow loaded answers")

	// a loaded power-off disables the rest
	g := New(DefaultChecklist())
	g.Populate(map[string]string{PowerField: Fail, "printerCheck": Pass})
	assert.True(t, g.SectionDisabled("hardware"))
	assert.Equal(t, map[string]string{PowerField: Fail}, g.Values())
}
