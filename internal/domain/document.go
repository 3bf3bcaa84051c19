package domain

import "time"

// PublishedDocument is one snapshot of a grant document that went out to the
// content store. Snapshots are never deleted; the log exists so a grant lost
// to a pointer race can be recovered from an earlier address.
type PublishedDocument struct {
	Address        string    `json:"address"`
	ContentAddress string    `json:"contentAddress"`
	OwnerWallet    string    `json:"ownerWallet"`
	ViewerWallets  []string  `json:"viewerWallets"`
	PublishedAt    time.Time `json:"publishedAt"`
}
