package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"example.com/wellness/internal/form"
	"example.com/wellness/internal/screen"
)

const (
	// SleepKey is the storage slot of the sleep list.
	SleepKey = "@sleep_records_list"
	// MaxSleepHours is the duration that earns the full duration score.
	MaxSleepHours = 8.0
	// ConsistentQuality is the minimum quality counted as a consistent night.
	ConsistentQuality = 70
)

// SleepEntry is one night. Durations are in hours, Quality in percent.
type SleepEntry struct {
	ID         int64   `json:"id"`
	Date       string  `json:"date"`
	Duration   float64 `json:"duration"`
	DeepSleep  float64 `json:"deepSleep"`
	LightSleep float64 `json:"lightSleep"`
	REM        float64 `json:"rem"`
	Quality    int     `json:"quality"`
}

func (s SleepEntry) RecordID() int64 { return s.ID }

func (s SleepEntry) WithRecordID(id int64) SleepEntry {
	s.ID = id
	return s
}

// SeedSleep is the first-run sleep list.
func SeedSleep() []SleepEntry {
	return []SleepEntry{
		{ID: 1, Date: "06/01/2025", Duration: 7.5, DeepSleep: 2.1, LightSleep: 4.8, REM: 0.6, Quality: 85},
		{ID: 2, Date: "05/01/2025", Duration: 6.8, DeepSleep: 1.5, LightSleep: 4.5, REM: 0.8, Quality: 72},
		{ID: 3, Date: "04/01/2025", Duration: 8.1, DeepSleep: 2.5, LightSleep: 4.6, REM: 1.0, Quality: 90},
		{ID: 4, Date: "03/01/2025", Duration: 7.2, DeepSleep: 1.8, LightSleep: 4.4, REM: 1.0, Quality: 78},
		{ID: 5, Date: "02/01/2025", Duration: 6.5, DeepSleep: 1.0, LightSleep: 4.0, REM: 1.5, Quality: 65},
		{ID: 6, Date: "01/01/2025", Duration: 7.8, DeepSleep: 2.2, LightSleep: 4.6, REM: 1.0, Quality: 88},
	}
}

// SleepLayout is the add/edit form of a night.
var SleepLayout = form.MustLayout(
	form.FieldSpec{Name: "date", Label: "Data", Placeholder: "DD/MM/AAAA", Required: true},
	form.FieldSpec{Name: "duration", Label: "Duração Total (horas)", Placeholder: "Ex: 7.5", Kind: form.KindNumeric, Required: true},
	form.Row{
		{Name: "deepSleep", Label: "Sono Profundo (h)", Placeholder: "Ex: 2.1", Kind: form.KindNumeric},
		{Name: "lightSleep", Label: "Sono Leve (h)", Placeholder: "Ex: 4.8", Kind: form.KindNumeric},
		{Name: "rem", Label: "REM (h)", Placeholder: "Ex: 0.6", Kind: form.KindNumeric},
	},
)

// QualityScore weighs duration (50), deep sleep against a 20% target (30) and REM against a
// 15% target (20), each capped, and rounds the total capped at 100. A non-positive total
// scores 0.
func QualityScore(total, deep, rem float64) int {
	if total <= 0 {
		return 0
	}
	durationScore := math.Min(1, total/MaxSleepHours) * 50
	deepScore := math.Min(1, deep/(total*0.2)) * 30
	remScore := math.Min(1, rem/(total*0.15)) * 20
	return int(math.Round(math.Min(100, durationScore+deepScore+remScore)))
}

// QualityBand labels a quality percentage.
func QualityBand(quality int) string {
	switch {
	case quality >= 80:
		return "Excelente"
	case quality >= ConsistentQuality:
		return "Bom"
	default:
		return "Razoável"
	}
}

// SleepSummary is the sleep dashboard.
type SleepSummary struct {
	LastNight      SleepEntry   `json:"lastNight"`
	LastNightBand  string       `json:"lastNightBand"`
	WeeklyAverage  float64      `json:"weeklyAverage"`
	AverageQuality int          `json:"averageQuality"`
	Consistency    int          `json:"consistency"`
	History        []SleepEntry `json:"history"`
}

// ParseSleepDate parses a DD/MM/YYYY date.
func ParseSleepDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SummarizeSleep sorts the history newest first (unparsable dates last) and averages the
// nights with a positive duration.
func SummarizeSleep(list []SleepEntry) SleepSummary {
	history := make([]SleepEntry, len(list))
	copy(history, list)
	sort.SliceStable(history, func(i, j int) bool {
		ti, okI := ParseSleepDate(history[i].Date)
		tj, okJ := ParseSleepDate(history[j].Date)
		if okI != okJ {
			return okI
		}
		return ti.After(tj)
	})

	s := SleepSummary{History: history}
	if len(history) > 0 {
		s.LastNight = history[0]
	}
	s.LastNightBand = QualityBand(s.LastNight.Quality)

	var (
		valid      int
		duration   float64
		quality    int
		consistent int
	)
	for _, e := range list {
		if e.Duration <= 0 {
			continue
		}
		valid++
		duration += e.Duration
		quality += e.Quality
		if e.Quality >= ConsistentQuality {
			consistent++
		}
	}
	if valid > 0 {
		s.WeeklyAverage = math.Round(duration/float64(valid)*10) / 10
		s.AverageQuality = int(math.Round(float64(quality) / float64(valid)))
		s.Consistency = int(math.Round(float64(consistent) / float64(valid) * 100))
	}
	return s
}

func sleepValues(e SleepEntry) form.Values {
	return form.Values{
		"date":       e.Date,
		"duration":   formatFloat(e.Duration),
		"deepSleep":  formatFloat(e.DeepSleep),
		"lightSleep": formatFloat(e.LightSleep),
		"rem":        formatFloat(e.REM),
	}
}

func sleepFromValues(v form.Values, existing *SleepEntry, _ time.Time) (SleepEntry, form.FieldErrors) {
	var e SleepEntry
	if existing != nil {
		e = *existing
	}
	errs := form.FieldErrors{}

	total, ok := parseFloat(v["duration"])
	if !ok || total <= 0 {
		errs["duration"] = form.ErrInvalid
	}
	deep, _ := parseFloat(v["deepSleep"])
	light, _ := parseFloat(v["lightSleep"])
	rem, _ := parseFloat(v["rem"])
	for name, f := range map[string]float64{"deepSleep": deep, "lightSleep": light, "rem": rem} {
		if f < 0 {
			errs[name] = form.ErrInvalid
		}
	}
	if len(errs) > 0 {
		return SleepEntry{}, errs
	}

	e.Date = strings.TrimSpace(v["date"])
	e.Duration = total
	e.DeepSleep = deep
	e.LightSleep = light
	e.REM = rem
	e.Quality = QualityScore(total, deep, rem)
	return e, nil
}

// SleepBinding wires sleep entries into a screen controller.
func SleepBinding() screen.Binding[SleepEntry, SleepSummary] {
	return screen.Binding[SleepEntry, SleepSummary]{
		Domain: "sleep",
		Title:  "Sono",
		Key:    SleepKey,
		Seed:   SeedSleep,
		Layout: SleepLayout,
		Blank: func(now time.Time) form.Values {
			return form.Values{"date": Today(now)}
		},
		ToValues:   sleepValues,
		FromValues: sleepFromValues,
		Aggregate:  SummarizeSleep,
		Row: func(e SleepEntry) screen.Row {
			return screen.Row{
				ID:     e.ID,
				Title:  e.Date,
				Detail: fmt.Sprintf("%.1fh", e.Duration),
				Badge:  fmt.Sprintf("%d%% %s", e.Quality, QualityBand(e.Quality)),
			}
		},
		DeletePrompt: func(e SleepEntry) screen.Prompt {
			return screen.DeletePrompt("Tem certeza que deseja excluir o registro de sono de " + e.Date + "?")
		},
	}
}
