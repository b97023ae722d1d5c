package model

import "time"

// Role identifies which of the two store directories a file lives in.
type Role string

const (
	RoleIncoming  Role = "incoming"
	RoleConverted Role = "converted"
)

// StoredFile is one file on disk. The converted counterpart of an incoming
// file shares its base name, so the pair is correlated by name alone.
type StoredFile struct {
	Name         string    `json:"name"`
	OriginalName string    `json:"original_name,omitempty"`
	Role         Role      `json:"role"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
}

// RetentionPolicy is fixed at startup.
type RetentionPolicy struct {
	Interval time.Duration
	TTL      time.Duration
}

// ConversionResult pairs the stored original with its SVG output.
type ConversionResult struct {
	Original  StoredFile
	Converted StoredFile
	MIMEType  string
	Duration  time.Duration
}
