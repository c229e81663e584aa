package service

import (
	"errors"
	"regexp"
	"strconv"
	"time"

	"github.com/caiomachado-24/ReservAI/internal/db"
	"github.com/caiomachado-24/ReservAI/internal/entities"
	"github.com/caiomachado-24/ReservAI/internal/utils"
)

var (
	// ErrUnparsableDateTime means no rule produced a concrete timestamp; the
	// caller re-prompts without touching the session step.
	ErrUnparsableDateTime = errors.New("could not parse a date/time from the message")
	// ErrNoSlotsAvailable means the desired time parsed but the available list
	// is empty.
	ErrNoSlotsAvailable = errors.New("no available slots")
)

// SlotResolution is the resolver outcome. Exact is false when Slot is the
// nearest fallback, which requires explicit user confirmation before booking.
type SlotResolution struct {
	Slot  *db.TimeSlot
	Exact bool
}

// SlotResolver turns free text (or a classifier-supplied timestamp) into a
// candidate slot. Resolution rules, in priority order: numbered list position,
// weekday+time phrase, structured date_time parameter, bare HH:MM.
type SlotResolver struct {
	Location *time.Location
	Now      func() time.Time
}

func NewSlotResolver(loc *time.Location) *SlotResolver {
	return &SlotResolver{Location: loc, Now: time.Now}
}

var (
	listIndexRe  = regexp.MustCompile(`^(\d{1,2})$`)
	weekdayRe    = regexp.MustCompile(`(domingo|segunda|terca|quarta|quinta|sexta|sabado)(?:[- ]feira)?`)
	clockTimeRe  = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	hSuffixRe    = regexp.MustCompile(`(\d{1,2})h(\d{2})?`)
	wordHourRe   = regexp.MustCompile(`(\d{1,2})\s*(?:horas|hrs|hs)`)
	bareNumberRe = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// Resolve maps the user's message onto a slot. shown is the numbered list last
// presented to the user (position selection); available is the full future
// available-slot list, ordered by start time, used for exact and nearest
// matching.
func (r *SlotResolver) Resolve(text string, shown, available []db.TimeSlot, result *entities.IntentResult) (*SlotResolution, error) {
	norm := utils.Normalize(text)

	// 1. Position in the list as shown to the user (1-indexed).
	if m := listIndexRe.FindStringSubmatch(norm); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= len(shown) {
			slot := shown[n-1]
			return &SlotResolution{Slot: &slot, Exact: true}, nil
		}
	}

	want, ok := r.desiredTime(norm, result)
	if !ok {
		return nil, ErrUnparsableDateTime
	}
	return r.match(want, available)
}

// desiredTime derives the concrete timestamp the user asked for.
func (r *SlotResolver) desiredTime(norm string, result *entities.IntentResult) (time.Time, bool) {
	now := r.Now().In(r.Location)

	// 2. Weekday + time phrase ("sexta 10:00", "terça-feira as 14h30").
	if m := weekdayRe.FindStringSubmatch(norm); m != nil {
		if weekday, ok := utils.WeekdayFromLabel(m[1]); ok {
			if hour, minute, ok := extractTime(norm, true); ok {
				delta := (int(weekday) - int(now.Weekday()) + 7) % 7
				want := time.Date(now.Year(), now.Month(), now.Day()+delta, hour, minute, 0, 0, r.Location)
				if delta == 0 && !want.After(now) {
					want = want.AddDate(0, 0, 7)
				}
				return want, true
			}
		}
	}

	// 3. Structured date_time parameter from the classifier.
	if raw := result.StringParam("date_time"); raw != "" {
		if want, err := parseParamTime(raw, r.Location); err == nil {
			return want, true
		}
	}

	// 4. Bare HH:MM means "today at that time", rolling to tomorrow if past.
	if m := clockTimeRe.FindStringSubmatch(norm); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if validClock(hour, minute) {
			want := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, r.Location)
			if !want.After(now) {
				want = want.AddDate(0, 0, 1)
			}
			return want, true
		}
	}

	return time.Time{}, false
}

// match finds an exact slot (same weekday label, same hour:minute) or falls
// back to the nearest available slot by absolute time distance. Ties keep the
// first candidate in list order.
func (r *SlotResolver) match(want time.Time, available []db.TimeSlot) (*SlotResolution, error) {
	if len(available) == 0 {
		return nil, ErrNoSlotsAvailable
	}

	label := utils.WeekdayLabel(want)
	for i := range available {
		start := available[i].StartTime.In(r.Location)
		if available[i].WeekdayLabel == label && start.Hour() == want.Hour() && start.Minute() == want.Minute() {
			return &SlotResolution{Slot: &available[i], Exact: true}, nil
		}
	}

	nearest := 0
	best := absDuration(available[0].StartTime.Sub(want))
	for i := 1; i < len(available); i++ {
		if d := absDuration(available[i].StartTime.Sub(want)); d < best {
			best = d
			nearest = i
		}
	}
	return &SlotResolution{Slot: &available[nearest], Exact: false}, nil
}

// extractTime pulls an hour and optional minute out of normalized text.
// allowBare accepts a plain number as the hour, used only when a weekday
// token anchors the phrase.
func extractTime(norm string, allowBare bool) (hour, minute int, ok bool) {
	if m := clockTimeRe.FindStringSubmatch(norm); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		return hour, minute, validClock(hour, minute)
	}
	if m := hSuffixRe.FindStringSubmatch(norm); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		return hour, minute, validClock(hour, minute)
	}
	if m := wordHourRe.FindStringSubmatch(norm); m != nil {
		hour, _ = strconv.Atoi(m[1])
		return hour, 0, validClock(hour, 0)
	}
	if allowBare {
		if m := bareNumberRe.FindStringSubmatch(norm); m != nil {
			hour, _ = strconv.Atoi(m[1])
			return hour, 0, validClock(hour, 0)
		}
	}
	return 0, 0, false
}

func parseParamTime(raw string, loc *time.Location) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t.In(loc), nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

func validClock(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
