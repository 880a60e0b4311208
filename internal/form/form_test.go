package form

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	title    = FieldSpec{Name: "titulo", Label: "Título", Required: true}
	duration = FieldSpec{Name: "duracao", Label: "Duração", Kind: KindNumeric, Required: true}
	calories = FieldSpec{Name: "calorias", Label: "Calorias", Kind: KindNumeric, Required: true}
	notes    = FieldSpec{Name: "exercicios", Label: "Exercícios"}
)

func workoutLayout(t *testing.T) Layout {
	t.Helper()
	l, err := NewLayout(title, Row{duration, calories}, notes)
	require.NoError(t, err)
	return l
}

func TestNewLayoutRejectsDuplicates(t *testing.T) {
	_, err := NewLayout(title, Row{duration, title})
	require.ErrorIs(t, err, ErrDuplicateField)
}

func TestNewLayoutRejectsEmptyEntries(t *testing.T) {
	_, err := NewLayout(title, Row{})
	require.ErrorIs(t, err, ErrEmptyRow)

	_, err = NewLayout(FieldSpec{Label: "nameless"})
	require.ErrorIs(t, err, ErrEmptyField)
}

func TestMustLayoutPanicsOnInvalidLayout(t *testing.T) {
	require.Panics(t, func() { MustLayout(title, title) })
}

func TestCheckKeys(t *testing.T) {
	l := workoutLayout(t)
	require.NoError(t, l.CheckKeys("titulo", "duracao", "calorias", "exercicios", "data"))

	err := l.CheckKeys("titulo", "duracao")
	require.ErrorIs(t, err, ErrMissingKey)
	require.Contains(t, err.Error(), "calorias")
	require.Contains(t, err.Error(), "exercicios")
}

func TestFieldsFlattenRowsInOrder(t *testing.T) {
	l := workoutLayout(t)
	names := make([]string, 0)
	for _, f := range l.Fields() {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"titulo", "duracao", "calorias", "exercicios"}, names)
	require.Len(t, l.Nodes(), 3)
}

func TestArrangeSplitsRowsEvenly(t *testing.T) {
	l := MustLayout(title, Row{duration, calories}, Row{
		{Name: "proteina"}, {Name: "carbos"}, {Name: "gordura"},
	})

	lines := l.Arrange(40, 2)
	require.Len(t, lines, 3)

	require.Equal(t, []Cell{{Field: title, Offset: 0, Width: 40}}, lines[0].Cells)

	require.Equal(t, Cell{Field: duration, Offset: 0, Width: 19, GapAfter: 2}, lines[1].Cells[0])
	require.Equal(t, Cell{Field: calories, Offset: 21, Width: 19}, lines[1].Cells[1])

	// 40 - 4 = 36 columns across three cells
	cells := lines[2].Cells
	require.Equal(t, []int{12, 12, 12}, []int{cells[0].Width, cells[1].Width, cells[2].Width})
	require.Equal(t, []int{0, 14, 28}, []int{cells[0].Offset, cells[1].Offset, cells[2].Offset})
	require.Equal(t, 0, cells[2].GapAfter)
}

func TestArrangeGivesRemainderToLeftmostCells(t *testing.T) {
	l := MustLayout(Row{{Name: "a"}, {Name: "b"}, {Name: "c"}})
	cells := l.Arrange(11, 0)[0].Cells
	require.Equal(t, []int{4, 4, 3}, []int{cells[0].Width, cells[1].Width, cells[2].Width})
}

func TestDescribeFractions(t *testing.T) {
	rows := workoutLayout(t).Describe()
	require.Len(t, rows, 3)
	require.InDelta(t, 1.0, rows[0][0].Fraction, 1e-9)
	require.False(t, rows[0][0].MarginAfter)
	require.InDelta(t, 0.5, rows[1][0].Fraction, 1e-9)
	require.True(t, rows[1][0].MarginAfter)
	require.False(t, rows[1][1].MarginAfter)
	require.Equal(t, KindNumeric, rows[1][1].Kind)
}

func TestOpenPrefillsEveryField(t *testing.T) {
	e := NewEngine()
	require.Equal(t, StateClosed, e.State())

	e.Open(workoutLayout(t), ModeEdit, Values{"titulo": "Cardio", "ignored": "x"})
	require.Equal(t, StateOpen, e.State())
	require.Equal(t, ModeEdit, e.Mode())
	require.Equal(t, Values{"titulo": "Cardio", "duracao": "", "calorias": "", "exercicios": ""}, e.Values())
}

func TestOnFieldChange(t *testing.T) {
	e := NewEngine()
	require.ErrorIs(t, e.OnFieldChange("titulo", "x"), ErrFormClosed)

	e.Open(workoutLayout(t), ModeCreate, nil)
	require.NoError(t, e.OnFieldChange("duracao", "45"))
	require.Equal(t, "45", e.Value("duracao"))
	require.Equal(t, "", e.Value("titulo"))
	require.ErrorIs(t, e.OnFieldChange("missing", "1"), ErrUnknownField)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		values Values
		want   FieldErrors
	}{
		{
			name:   "blank required",
			values: Values{"titulo": "   ", "duracao": "30", "calorias": "200"},
			want:   FieldErrors{"titulo": ErrRequired},
		},
		{
			name:   "non numeric",
			values: Values{"titulo": "Run", "duracao": "abc", "calorias": "200"},
			want:   FieldErrors{"duracao": ErrNotNumeric},
		},
		{
			name:   "decimal forms accepted",
			values: Values{"titulo": "Run", "duracao": " 7.5 ", "calorias": "-.5"},
			want:   FieldErrors{},
		},
		{
			name:   "optional blank",
			values: Values{"titulo": "Run", "duracao": "1", "calorias": "2", "exercicios": ""},
			want:   FieldErrors{},
		},
		{
			name:   "everything missing",
			values: Values{},
			want:   FieldErrors{"titulo": ErrRequired, "duracao": ErrRequired, "calorias": ErrRequired},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := NewEngine()
			e.Open(workoutLayout(t), ModeCreate, tc.values)
			require.Equal(t, tc.want, e.Validate())
		})
	}
}

func TestIsNumeric(t *testing.T) {
	for _, ok := range []string{"1", "+2", "-3", "4.", ".5", "6.75", " 8 "} {
		require.True(t, IsNumeric(ok), ok)
	}
	for _, bad := range []string{"", "abc", "1e3", "1,5", "--1", ".", "12 min"} {
		require.False(t, IsNumeric(bad), bad)
	}
}

func TestSubmitFailureKeepsFormOpen(t *testing.T) {
	e := NewEngine()
	e.Open(workoutLayout(t), ModeCreate, Values{"duracao": "x"})

	values, err := e.Submit()
	require.Nil(t, values)
	require.ErrorIs(t, err, ErrValidationFailed)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, ErrNotNumeric, verr.Fields["duracao"])
	require.Equal(t, StateOpen, e.State())
	require.Equal(t, ErrRequired, e.Errors()["titulo"])
	require.Equal(t, "Campo obrigatório", e.Errors().Messages()["titulo"])

	require.NoError(t, e.OnFieldChange("titulo", "Run"))
	_, stillThere := e.Errors()["titulo"]
	require.False(t, stillThere)
}

func TestSubmitSuccessReturnsCopy(t *testing.T) {
	e := NewEngine()
	e.Open(workoutLayout(t), ModeCreate, Values{"titulo": "Run", "duracao": "30", "calorias": "250"})

	values, err := e.Submit()
	require.NoError(t, err)
	values["titulo"] = "changed"
	require.Equal(t, "Run", e.Value("titulo"))
	require.Empty(t, e.Errors())
}

func TestRejectAndClose(t *testing.T) {
	e := NewEngine()
	e.Open(workoutLayout(t), ModeEdit, Values{"titulo": "Run", "duracao": "0", "calorias": "1"})

	verr := e.Reject("duracao", ErrInvalid)
	require.Equal(t, "Campo inválido", verr.Fields.Messages()["duracao"])
	require.Equal(t, StateOpen, e.State())

	e.Close()
	require.Equal(t, StateClosed, e.State())
	require.Equal(t, ModeCreate, e.Mode())
	require.Nil(t, e.Values())
	require.Empty(t, e.Errors())

	_, err := e.Submit()
	require.ErrorIs(t, err, ErrFormClosed)
}
