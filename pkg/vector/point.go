// Package vector defines the vector store boundary emunet writes its
// conversational memory through: points, collection schemas, drivers and the
// collection manager.
package vector

// Payload keys stored alongside every point.
const (
	PayloadText      = "text"
	PayloadRole      = "role"
	PayloadSessionID = "session_id"
)

// Payload is the data stored with a point.
type Payload struct {
	// Text is the embedded text, stored verbatim.
	Text string

	// Role is the author of Text ("user" or "assistant").
	Role string

	// SessionID identifies the chat session that wrote the point.
	SessionID string
}

// Map returns the payload in the key/value shape stores persist.
func (p Payload) Map() map[string]string {
	m := map[string]string{PayloadText: p.Text}
	if p.Role != "" {
		m[PayloadRole] = p.Role
	}
	if p.SessionID != "" {
		m[PayloadSessionID] = p.SessionID
	}
	return m
}

// PayloadFromMap is the inverse of Payload.Map.
func PayloadFromMap(m map[string]string) Payload {
	return Payload{
		Text:      m[PayloadText],
		Role:      m[PayloadRole],
		SessionID: m[PayloadSessionID],
	}
}

// Point is one stored vector with its identifier and payload. Points are
// written once and never modified.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload Payload
}
