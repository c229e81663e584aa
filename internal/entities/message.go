package entities

// InboundMessage is what the messaging gateway webhook delivers for one turn.
type InboundMessage struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	DisplayName    string `json:"display_name,omitempty"`
}

// Reply is the outbound text the transport layer wraps into the gateway envelope.
type Reply struct {
	Text string `json:"text"`
}
