package domain

// Status classifies the outcome carried by an Envelope.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusInfo    Status = "info"
)

// Envelope is the structured result of any processing step. Every envelope
// returned to a caller has a non-empty Status and at least one of Message
// or SpokenText.
type Envelope struct {
	Status     Status         `json:"status"`
	Message    string         `json:"message"`
	SpokenText string         `json:"spoken_text,omitempty"`
	AgentID    string         `json:"agent,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Success builds a success envelope.
func Success(message string) Envelope {
	return Envelope{Status: StatusSuccess, Message: message}
}

// Info builds an info envelope.
func Info(message string) Envelope {
	return Envelope{Status: StatusInfo, Message: message}
}

// Error builds an error envelope.
func Error(message string) Envelope {
	return Envelope{Status: StatusError, Message: message}
}

// WithSpoken sets the conversational phrasing.
func (e Envelope) WithSpoken(text string) Envelope {
	e.SpokenText = text
	return e
}

// WithAgent sets the agent that produced the envelope.
func (e Envelope) WithAgent(agentID string) Envelope {
	e.AgentID = agentID
	return e
}

// WithData merges key/value pairs into the envelope's payload.
func (e Envelope) WithData(kv map[string]any) Envelope {
	if e.Data == nil {
		e.Data = make(map[string]any, len(kv))
	}
	for k, v := range kv {
		e.Data[k] = v
	}
	return e
}

// Spoken returns the conversational phrasing, falling back to Message.
func (e Envelope) Spoken() string {
	if e.SpokenText != "" {
		return e.SpokenText
	}
	return e.Message
}

// IsError reports whether the envelope carries an error status.
func (e Envelope) IsError() bool { return e.Status == StatusError }
