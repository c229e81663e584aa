package service

import (
	"regexp"
	"strings"

	"github.com/caiomachado-24/ReservAI/internal/entities"
	"github.com/caiomachado-24/ReservAI/internal/utils"
)

// Fixed token sets for yes/no steps. Matching is substring-based on the
// normalized text, except for the single-letter shortcuts.
var (
	affirmationTokens = []string{"sim", "pode", "confirmo", "confirma", "isso", "ok", "claro", "certeza", "perfeito", "quero"}
	negationTokens    = []string{"nao", "negativo", "errado", "deixa", "cancela", "desisto"}
	// At the cancel confirmation "cancela" restates the request instead of
	// negating it, so that step uses a reduced negation set.
	cancelConfirmNegations = []string{"nao", "negativo", "errado", "deixa", "desisto"}
)

var selectionNumberRe = regexp.MustCompile(`^\d{1,2}$`)

// ReconcileIntent rewrites the classifier's fallback label into the concrete
// intent implied by the session's current step. Intents the classifier names
// confidently pass through untouched, and without a session the classifier's
// intent is used verbatim.
func ReconcileIntent(intent entities.Intent, text string, sess *entities.Session) entities.Intent {
	if sess == nil || sess.Step == entities.StepNone {
		return intent
	}
	if intent != entities.IntentUnknown {
		return intent
	}

	norm := utils.Normalize(text)

	switch sess.Step {
	case entities.StepAwaitingDateTime, entities.StepAwaitingNewDateTime:
		// Anything typed while a date/time is pending is a date/time answer.
		return entities.IntentProvideDateTime

	case entities.StepConfirmNearestSlot, entities.StepAwaitingFinalConfirm,
		entities.StepConfirmRescheduleStart, entities.StepAwaitingRescheduleConfirm:
		if isNegation(norm) {
			return entities.IntentReject
		}
		if isAffirmation(norm) {
			return entities.IntentConfirm
		}
		return intent

	case entities.StepConfirmCancel:
		if norm == "n" || containsAny(norm, cancelConfirmNegations) {
			return entities.IntentReject
		}
		if isAffirmation(norm) || strings.Contains(norm, "cancela") {
			return entities.IntentConfirm
		}
		return intent

	case entities.StepAwaitingNameConfirm:
		if isNegation(norm) {
			return entities.IntentReject
		}
		if isAffirmation(norm) {
			return entities.IntentConfirm
		}
		// Free text at the name step is the corrected name.
		return entities.IntentProvideName

	case entities.StepSelectAppointment:
		if selectionNumberRe.MatchString(norm) {
			return entities.IntentSelectAppointment
		}
		if isNegation(norm) {
			return entities.IntentReject
		}
		return intent
	}

	return intent
}

func isAffirmation(norm string) bool {
	return norm == "s" || containsAny(norm, affirmationTokens)
}

func isNegation(norm string) bool {
	return norm == "n" || containsAny(norm, negationTokens)
}

func containsAny(norm string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(norm, token) {
			return true
		}
	}
	return false
}
