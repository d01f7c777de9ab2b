package db

import (
	"time"
)

type Printer struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Host        string     `json:"host"`
	Port        int        `json:"port"`
	TapeSizeMM  int        `json:"tape_size_mm"`
	Status      string     `json:"status"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
	TotalPrints int64      `json:"total_prints"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type PrintJob struct {
	ID           int64      `json:"id"`
	Ref          string     `json:"ref"`
	PrinterID    int64      `json:"printer_id"`
	Pages        int        `json:"pages"`
	Payload      []byte     `json:"-"`
	Status       string     `json:"status"`
	Priority     int        `json:"priority"`
	ErrorMessage string     `json:"error_message"`
	SubmittedBy  string     `json:"submitted_by"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

type Webhook struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Secret     string    `json:"secret,omitempty"`
	EventsJSON string    `json:"events_json"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Encrypted bool      `json:"encrypted"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AuditLog struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type"`
	EntityID    int64     `json:"entity_id"`
	DetailsJSON string    `json:"details_json"`
	IPAddress   string    `json:"ip_address"`
	CreatedAt   time.Time `json:"created_at"`
}

type JobFilter struct {
	PrinterID int64
	Status    string
	FromDate  *time.Time
	ToDate    *time.Time
	OrderBy   string
	OrderDir  string
	Limit     int
	Offset    int
}
