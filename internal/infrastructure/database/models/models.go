package models

import (
	"time"

	"github.com/lib/pq"
)

type AccessRequest struct {
	ID              string    `json:"id" gorm:"primaryKey;type:text"`
	RequesterWallet string    `json:"requesterWallet" gorm:"type:text;uniqueIndex:idx_requester_content"`
	OwnerWallet     string    `json:"ownerWallet" gorm:"type:text;index"`
	ContentRef      string    `json:"contentRef" gorm:"type:text;uniqueIndex:idx_requester_content"`
	Message         string    `json:"message" gorm:"type:text"`
	Status          string    `json:"status" gorm:"type:text;index"`
	CDate           time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate           time.Time `json:"mdate" gorm:"autoUpdateTime"`
}

type SharedAccess struct {
	ViewerWallet string    `json:"viewerWallet" gorm:"primaryKey;type:text"`
	ContentRef   string    `json:"contentRef" gorm:"primaryKey;type:text"`
	OwnerWallet  string    `json:"ownerWallet" gorm:"type:text;index"`
	Status       string    `json:"status" gorm:"type:text"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

// DocumentLog is append only. Every published grant document snapshot lands
// here, keyed by its content address.
type DocumentLog struct {
	Address        string         `json:"address" gorm:"primaryKey;type:text"`
	ContentAddress string         `json:"contentAddress" gorm:"type:text;index"`
	OwnerWallet    string         `json:"ownerWallet" gorm:"type:text;index"`
	Viewers        pq.StringArray `json:"viewers" gorm:"type:text[]"`
	CDate          time.Time      `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}
