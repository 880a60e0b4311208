package domain

import (
	"strings"
	"time"

	"example.com/wellness/internal/form"
	"example.com/wellness/internal/screen"
)

// WorkoutsKey is the storage slot of the workout list.
const WorkoutsKey = "@treinos_list"

// Workout is one training session. Duration and calories are stored with their units
// ("60 min", "350 cal").
type Workout struct {
	ID        int64    `json:"id"`
	Title     string   `json:"titulo"`
	Duration  string   `json:"duracao"`
	Calories  string   `json:"calorias"`
	Date      string   `json:"data"`
	Exercises []string `json:"exercicios"`
}

func (w Workout) RecordID() int64 { return w.ID }

func (w Workout) WithRecordID(id int64) Workout {
	w.ID = id
	return w
}

// SeedWorkouts is the first-run workout list.
func SeedWorkouts() []Workout {
	return []Workout{
		{
			ID:        1,
			Title:     "Treino de Força",
			Duration:  "60 min",
			Calories:  "350 cal",
			Date:      "05/01/2024",
			Exercises: []string{"Agachamento", "Supino", "Barra fixa"},
		},
		{
			ID:        2,
			Title:     "Cardio HIIT",
			Duration:  "30 min",
			Calories:  "280 cal",
			Date:      "04/01/2024",
			Exercises: []string{"Burpees", "Jump squat", "Mountain climbers"},
		},
	}
}

// WorkoutLayout is the add/edit form of a workout.
var WorkoutLayout = form.MustLayout(
	form.FieldSpec{Name: "titulo", Label: "Nome do Treino", Placeholder: "Ex: Treino de Força", Required: true},
	form.Row{
		{Name: "duracao", Label: "Duração (min)", Placeholder: "45", Kind: form.KindNumeric, Required: true},
		{Name: "calorias", Label: "Calorias", Placeholder: "350", Kind: form.KindNumeric, Required: true},
	},
	form.FieldSpec{Name: "exercicios", Label: "Exercícios (separados por vírgula)", Placeholder: "Agachamento, Supino..."},
)

// WorkoutSummary is the weekly card of the workout screen. Minutes and calories are
// fixed display values; only the session count follows the list.
type WorkoutSummary struct {
	WeeklyMinutes  int `json:"weeklyMinutes"`
	CaloriesBurned int `json:"caloriesBurned"`
	Sessions       int `json:"sessions"`
}

// SummarizeWorkouts builds the workout summary.
func SummarizeWorkouts(list []Workout) WorkoutSummary {
	return WorkoutSummary{WeeklyMinutes: 45, CaloriesBurned: 630, Sessions: len(list)}
}

// SplitExercises turns "a, b ,c" into ["a","b","c"], dropping blank entries.
func SplitExercises(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func workoutValues(w Workout) form.Values {
	return form.Values{
		"titulo":     w.Title,
		"duracao":    strings.TrimSuffix(w.Duration, " min"),
		"calorias":   strings.TrimSuffix(w.Calories, " cal"),
		"exercicios": strings.Join(w.Exercises, ", "),
	}
}

func workoutFromValues(v form.Values, existing *Workout, now time.Time) (Workout, form.FieldErrors) {
	w := Workout{Date: Today(now)}
	if existing != nil {
		w = *existing
	}
	w.Title = strings.TrimSpace(v["titulo"])
	w.Duration = withUnit(v["duracao"], " min")
	w.Calories = withUnit(v["calorias"], " cal")
	w.Exercises = SplitExercises(v["exercicios"])
	return w, nil
}

// WorkoutBinding wires workouts into a screen controller.
func WorkoutBinding() screen.Binding[Workout, WorkoutSummary] {
	return screen.Binding[Workout, WorkoutSummary]{
		Domain: "workouts",
		Title:  "Treinos",
		Key:    WorkoutsKey,
		Seed:   SeedWorkouts,
		Layout: WorkoutLayout,
		Blank: func(time.Time) form.Values {
			return form.Values{}
		},
		ToValues:   workoutValues,
		FromValues: workoutFromValues,
		Aggregate:  SummarizeWorkouts,
		Row: func(w Workout) screen.Row {
			return screen.Row{
				ID:     w.ID,
				Title:  w.Title,
				Detail: w.Duration + " • " + w.Calories + " • " + strings.Join(w.Exercises, ", "),
				Badge:  w.Date,
			}
		},
		DeletePrompt: func(w Workout) screen.Prompt {
			return screen.DeletePrompt(`Tem certeza que deseja excluir o treino "` + w.Title + `"?`)
		},
	}
}
