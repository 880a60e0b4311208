package domain

// Tip categories and the "all" tab.
const (
	TabAll       = "Todas"
	TabMental    = "Mental"
	TabPhysical  = "Física"
	TabEmotional = "Emocional"
)

// Tabs lists the tip filter tabs in display order.
var Tabs = []string{TabAll, TabMental, TabPhysical, TabEmotional}

// Tip is a static well-being suggestion.
type Tip struct {
	ID          int    `json:"id"`
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	Time        string `json:"time"`
	Category    string `json:"category"`
}

var tips = []Tip{
	{ID: 1, Icon: "sparkles-outline", Title: "Pratique Mindfulness", Description: "Reserve 10 minutos diários para meditação. Isso pode reduzir o estresse e melhorar o foco.", Difficulty: "Fácil", Time: "10 min", Category: TabMental},
	{ID: 2, Icon: "water-outline", Title: "Hidrate-se Adequadamente", Description: "Beba pelo menos 2 litros de água por dia. Mantenha uma garrafa sempre por perto.", Difficulty: "Fácil", Time: "Todo dia", Category: TabPhysical},
	{ID: 3, Icon: "heart-outline", Title: "Pratique Gratidão", Description: "Anote 3 coisas pelas quais você é grato todos os dias. Isso melhora o humor e bem-estar.", Difficulty: "Fácil", Time: "5 min", Category: TabMental},
	{ID: 4, Icon: "sunny-outline", Title: "Caminhe ao Sol", Description: "Exposição solar matinal por 15-20 minutos ajuda na produção de vitamina D e regula o sono.", Difficulty: "Fácil", Time: "20 min", Category: TabPhysical},
	{ID: 5, Icon: "leaf-outline", Title: "Organize seu Ambiente", Description: "Um espaço organizado contribui para uma mente mais clara e produtiva.", Difficulty: "Médio", Time: "30 min", Category: TabMental},
}

// ValidTab reports whether tab is one of Tabs.
func ValidTab(tab string) bool {
	for _, t := range Tabs {
		if t == tab {
			return true
		}
	}
	return false
}

// FilterTips returns the tips of one category; TabAll and "" return every tip.
func FilterTips(tab string) []Tip {
	out := make([]Tip, 0, len(tips))
	for _, tip := range tips {
		if tab == "" || tab == TabAll || tip.Category == tab {
			out = append(out, tip)
		}
	}
	return out
}

// WellbeingIndex is the well-being card with per-category scores.
type WellbeingIndex struct {
	Overall    int            `json:"overall"`
	Categories map[string]int `json:"categories"`
	Challenge  Challenge      `json:"challenge"`
}

// Challenge is the weekly habit challenge.
type Challenge struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   int    `json:"completed"`
	Total       int    `json:"total"`
}

// Wellbeing returns the current well-being index.
func Wellbeing() WellbeingIndex {
	return WellbeingIndex{
		Overall: 78,
		Categories: map[string]int{
			TabMental:    82,
			TabPhysical:  75,
			TabEmotional: 80,
		},
		Challenge: Challenge{
			Title:       "Pratique 5 minutos de respiração profunda",
			Description: "Todos os dias desta semana, reserve 5 minutos para exercícios de respiração. Isso pode reduzir significativamente o estresse e ansiedade.",
			Completed:   3,
			Total:       7,
		},
	}
}
