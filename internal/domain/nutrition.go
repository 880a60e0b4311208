package domain

import (
	"math"
	"strings"
	"time"

	"example.com/wellness/internal/form"
	"example.com/wellness/internal/screen"
)

const (
	// MealsKey is the storage slot of the meal list.
	MealsKey = "@refeicoes_list"
	// DailyCalorieGoal is the target used for the progress bar.
	DailyCalorieGoal = 2000
)

// Meal is one logged meal. Nutrient amounts are stored with their units ("420 cal", "25g prot").
type Meal struct {
	ID       int64  `json:"id"`
	Title    string `json:"titulo"`
	Time     string `json:"horario"`
	Calories string `json:"calorias"`
	Protein  string `json:"proteina"`
	Carbs    string `json:"carbos"`
	Fat      string `json:"gordura"`
}

func (m Meal) RecordID() int64 { return m.ID }

func (m Meal) WithRecordID(id int64) Meal {
	m.ID = id
	return m
}

// SeedMeals is the first-run meal list.
func SeedMeals() []Meal {
	return []Meal{
		{ID: 1, Title: "Café da Manhã", Time: "08:00", Calories: "420 cal", Protein: "25g prot", Carbs: "45g carbs", Fat: "12g gord"},
		{ID: 2, Title: "Almoço", Time: "12:30", Calories: "680 cal", Protein: "40g prot", Carbs: "65g carbs", Fat: "22g gord"},
	}
}

// MealLayout is the add/edit form of a meal.
var MealLayout = form.MustLayout(
	form.FieldSpec{Name: "titulo", Label: "Nome da Refeição", Placeholder: "Ex: Almoço", Required: true},
	form.FieldSpec{Name: "horario", Label: "Horário (HH:MM)", Placeholder: "08:00", Required: true},
	form.FieldSpec{Name: "calorias", Label: "Calorias (kcal)", Placeholder: "450", Kind: form.KindNumeric, Required: true},
	form.Row{
		{Name: "proteina", Label: "Proteína (g)", Placeholder: "25", Kind: form.KindNumeric},
		{Name: "carbos", Label: "Carboidratos (g)", Placeholder: "45", Kind: form.KindNumeric},
		{Name: "gordura", Label: "Gordura (g)", Placeholder: "12", Kind: form.KindNumeric},
	},
)

// MealSummary is the daily calorie card.
type MealSummary struct {
	Calories int     `json:"calories"`
	Protein  int     `json:"protein"`
	Goal     int     `json:"goal"`
	Progress float64 `json:"progress"`
}

// SummarizeMeals totals calories and protein and computes progress against the daily goal,
// capped at 100.
func SummarizeMeals(list []Meal) MealSummary {
	s := MealSummary{Goal: DailyCalorieGoal}
	for _, m := range list {
		s.Calories += LeadingNumber(m.Calories)
		s.Protein += LeadingNumber(m.Protein)
	}
	s.Progress = math.Min(100, float64(s.Calories)/DailyCalorieGoal*100)
	return s
}

func mealValues(m Meal) form.Values {
	return form.Values{
		"titulo":   m.Title,
		"horario":  m.Time,
		"calorias": strings.TrimSuffix(m.Calories, " cal"),
		"proteina": strings.TrimSuffix(m.Protein, "g prot"),
		"carbos":   strings.TrimSuffix(m.Carbs, "g carbs"),
		"gordura":  strings.TrimSuffix(m.Fat, "g gord"),
	}
}

func mealFromValues(v form.Values, existing *Meal, _ time.Time) (Meal, form.FieldErrors) {
	var m Meal
	if existing != nil {
		m = *existing
	}
	m.Title = strings.TrimSpace(v["titulo"])
	m.Time = strings.TrimSpace(v["horario"])
	m.Calories = withUnit(v["calorias"], " cal")
	m.Protein = withUnit(v["proteina"], "g prot")
	m.Carbs = withUnit(v["carbos"], "g carbs")
	m.Fat = withUnit(v["gordura"], "g gord")
	return m, nil
}

// NutritionBinding wires meals into a screen controller.
func NutritionBinding() screen.Binding[Meal, MealSummary] {
	return screen.Binding[Meal, MealSummary]{
		Domain: "nutrition",
		Title:  "Nutrição",
		Key:    MealsKey,
		Seed:   SeedMeals,
		Layout: MealLayout,
		Blank: func(time.Time) form.Values {
			return form.Values{}
		},
		ToValues:   mealValues,
		FromValues: mealFromValues,
		Aggregate:  SummarizeMeals,
		Row: func(m Meal) screen.Row {
			return screen.Row{
				ID:     m.ID,
				Title:  m.Title,
				Detail: strings.Join([]string{m.Protein, m.Carbs, m.Fat}, " • "),
				Badge:  m.Time + " • " + m.Calories,
			}
		},
		DeletePrompt: func(m Meal) screen.Prompt {
			return screen.DeletePrompt(`Tem certeza que deseja excluir a refeição "` + m.Title + `"?`)
		},
	}
}
