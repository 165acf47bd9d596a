package storage

import "time"

// QueryLog is one completed dashboard request: which view, what was asked and how it ended.
type QueryLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	View       string `gorm:"index;not null" json:"view"`
	Input      string `json:"input"`
	Outcome    string `gorm:"not null" json:"outcome"` // ok, validation_error, domain_error, transport_error
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `gorm:"type:text" json:"error,omitempty"`
	Rows       int    `json:"rows"`
	DurationMs int64  `json:"duration_ms"`
	Stale      bool   `json:"stale"`
}
