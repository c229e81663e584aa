package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/caiomachado-24/ReservAI/internal/entities"
)

// IntentClassifier is the boundary to the external NLU service. It is an
// oracle: labels it confidently names are trusted, the fallback label gets
// reconciled against the session step.
type IntentClassifier interface {
	Classify(text, locale string) (*entities.IntentResult, error)
}

// IntentFromLabel maps the classifier's label taxonomy onto the typed enum.
// Unknown labels (including the default fallback) map to IntentUnknown.
func IntentFromLabel(label string) entities.Intent {
	switch label {
	case "saudacao":
		return entities.IntentGreeting
	case "selecionar_servico", "agendar_servico":
		return entities.IntentSelectService
	case "informar_data":
		return entities.IntentProvideDateTime
	case "confirmar":
		return entities.IntentConfirm
	case "negar":
		return entities.IntentReject
	case "informar_nome":
		return entities.IntentProvideName
	case "selecionar_agendamento":
		return entities.IntentSelectAppointment
	case "cancelar_agendamento":
		return entities.IntentCancelAppointment
	case "remarcar_agendamento":
		return entities.IntentReschedule
	default:
		return entities.IntentUnknown
	}
}

// HTTPClassifier calls the classification service over JSON/HTTP.
type HTTPClassifier struct {
	URL    string
	APIKey string
	Client *http.Client
}

func NewHTTPClassifier(url, apiKey string) *HTTPClassifier {
	return &HTTPClassifier{
		URL:    url,
		APIKey: apiKey,
		Client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClassifier) Classify(text, locale string) (*entities.IntentResult, error) {
	payload, err := json.Marshal(map[string]string{
		"text":   text,
		"locale": locale,
	})
	if err != nil {
		return nil, fmt.Errorf("error encoding classifier request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error building classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var body struct {
		IntentLabel     string                 `json:"intent_label"`
		Parameters      map[string]interface{} `json:"parameters"`
		FulfillmentText string                 `json:"fulfillment_text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("error decoding classifier response: %w", err)
	}

	return &entities.IntentResult{
		Intent:       IntentFromLabel(body.IntentLabel),
		Label:        body.IntentLabel,
		Params:       body.Parameters,
		FallbackText: body.FulfillmentText,
	}, nil
}
