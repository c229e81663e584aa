package utils

import (
	"strings"
	"time"
)

var accentReplacer = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u",
	"ç", "c",
)

// Normalize lower-cases, trims and strips Portuguese accents so free text can
// be compared against alias and token tables.
func Normalize(s string) string {
	return accentReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// Weekday labels stored on slots, normalized (lower case, no accents).
var weekdayLabels = [7]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda",
	time.Tuesday:   "terca",
	time.Wednesday: "quarta",
	time.Thursday:  "quinta",
	time.Friday:    "sexta",
	time.Saturday:  "sabado",
}

// Display names used in replies.
var weekdayDisplay = map[string]string{
	"domingo": "Domingo",
	"segunda": "Segunda-feira",
	"terca":   "Terça-feira",
	"quarta":  "Quarta-feira",
	"quinta":  "Quinta-feira",
	"sexta":   "Sexta-feira",
	"sabado":  "Sábado",
}

// WeekdayLabel returns the normalized label cached on slots for t's weekday.
func WeekdayLabel(t time.Time) string {
	return weekdayLabels[t.Weekday()]
}

// WeekdayFromLabel resolves a normalized weekday token (optionally carrying a
// "-feira" style suffix) back to a time.Weekday. ok is false for non-weekday
// tokens.
func WeekdayFromLabel(label string) (time.Weekday, bool) {
	label = strings.TrimSuffix(strings.TrimSuffix(label, "-feira"), " feira")
	for wd, l := range weekdayLabels {
		if l == label {
			return time.Weekday(wd), true
		}
	}
	return 0, false
}

// WeekdayDisplay returns the user-facing name for a stored weekday label.
func WeekdayDisplay(label string) string {
	if d, ok := weekdayDisplay[label]; ok {
		return d
	}
	return label
}

// TitleName normalizes spacing and capitalizes each word of a client name.
func TitleName(name string) string {
	words := strings.Fields(name)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
