package domain

import "time"

// RequestStatus tracks an access request through its lifecycle. A request is
// pending exactly while the owner has not responded; approved and denied are
// terminal for that response (a requester may re-request after a denial,
// which resets the same row to pending).
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusDenied   RequestStatus = "denied"
)

// Decision is the owner's answer to a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

// AccessRequest is a requester's ask to be granted access to one piece of
// content. Unique per (requester, content ref).
type AccessRequest struct {
	ID              string        `json:"id"`
	RequesterWallet string        `json:"requesterWallet"`
	OwnerWallet     string        `json:"ownerWallet"`
	ContentRef      string        `json:"contentRef"`
	Message         string        `json:"message,omitempty"`
	Status          RequestStatus `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// SharedStatus is the state of a SharedAccess record.
type SharedStatus string

const (
	SharedActive  SharedStatus = "active"
	SharedRevoked SharedStatus = "revoked"
)

// SharedAccess is derived bookkeeping created when a request is approved.
// It backs the fast "shared with me" listing; the grant document, not this
// row, is what actually decides decryptability.
type SharedAccess struct {
	OwnerWallet  string       `json:"ownerWallet"`
	ViewerWallet string       `json:"viewerWallet"`
	ContentRef   string       `json:"contentRef"`
	Status       SharedStatus `json:"status"`
	CreatedAt    time.Time    `json:"createdAt"`
}
