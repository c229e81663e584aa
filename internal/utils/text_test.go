package utils

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Sexta-Feira às 10:00 ": "sexta-feira as 10:00",
		"NÃO":                     "nao",
		"João":                    "joao",
		"Terça":                   "terca",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWeekdayLabelRoundTrip(t *testing.T) {
	// A full week starting Sunday, 2025-01-05.
	for d := 0; d < 7; d++ {
		day := time.Date(2025, 1, 5+d, 12, 0, 0, 0, time.UTC)
		label := WeekdayLabel(day)
		wd, ok := WeekdayFromLabel(label)
		if !ok {
			t.Fatalf("WeekdayFromLabel(%q) not recognized", label)
		}
		if wd != day.Weekday() {
			t.Fatalf("WeekdayFromLabel(%q) = %v, want %v", label, wd, day.Weekday())
		}
	}
}

func TestWeekdayFromLabelSuffixes(t *testing.T) {
	for _, label := range []string{"sexta", "sexta-feira", "sexta feira"} {
		wd, ok := WeekdayFromLabel(label)
		if !ok || wd != time.Friday {
			t.Fatalf("WeekdayFromLabel(%q) = %v, %v; want Friday", label, wd, ok)
		}
	}
	if _, ok := WeekdayFromLabel("amanha"); ok {
		t.Fatal("WeekdayFromLabel(\"amanha\") should not resolve")
	}
}

func TestTitleName(t *testing.T) {
	cases := map[string]string{
		"carlos silva":  "Carlos Silva",
		"  MARIA souza": "Maria Souza",
		"":              "",
	}
	for in, want := range cases {
		if got := TitleName(in); got != want {
			t.Fatalf("TitleName(%q) = %q, want %q", in, got, want)
		}
	}
}
