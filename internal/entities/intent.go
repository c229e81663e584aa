package entities

// Intent is the typed set of conversation intents. The classifier returns a
// raw label; classifier.go maps it into this enum and the reconciler may
// rewrite IntentUnknown based on the session step.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentGreeting
	IntentSelectService
	IntentProvideDateTime
	IntentConfirm
	IntentReject
	IntentProvideName
	IntentSelectAppointment
	IntentCancelAppointment
	IntentReschedule
)

func (i Intent) String() string {
	switch i {
	case IntentGreeting:
		return "greeting"
	case IntentSelectService:
		return "select_service"
	case IntentProvideDateTime:
		return "provide_date_time"
	case IntentConfirm:
		return "confirm"
	case IntentReject:
		return "reject"
	case IntentProvideName:
		return "provide_name"
	case IntentSelectAppointment:
		return "select_appointment"
	case IntentCancelAppointment:
		return "cancel_appointment"
	case IntentReschedule:
		return "reschedule"
	default:
		return "unknown"
	}
}

// IntentResult is the classifier output for one message.
type IntentResult struct {
	Intent       Intent
	Label        string
	Params       map[string]interface{}
	FallbackText string
}

// StringParam returns a string parameter, tolerating a nested record with a
// field of the same name (the classifier wraps chosen-slot structures that way).
func (r *IntentResult) StringParam(name string) string {
	if r == nil || r.Params == nil {
		return ""
	}
	switch v := r.Params[name].(type) {
	case string:
		return v
	case map[string]interface{}:
		if s, ok := v[name].(string); ok {
			return s
		}
	}
	return ""
}

// StringListParam returns a parameter that may be a single string or a list.
func (r *IntentResult) StringListParam(name string) []string {
	if r == nil || r.Params == nil {
		return nil
	}
	switch v := r.Params[name].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
