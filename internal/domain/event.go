package domain

// Request lifecycle event types fanned out to realtime subscribers.
const (
	EventRequestCreated   = "request.created"
	EventRequestResponded = "request.responded"
)

// RequestEvent notifies a wallet about activity on an access request. Events
// are addressed to a wallet channel: owners hear about new requests,
// requesters hear about responses.
type RequestEvent struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Wallet  string        `json:"wallet"`
	Request AccessRequest `json:"request"`
}
