package model

import "time"

// Vendor statuses observed on discovered records.
const (
	VendorStatusDiscovered = "discovered"
)

// Vendor is a commercial tool or company found for a task in phase 1.
type Vendor struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Name        string    `json:"vendor_name"`
	ProductName string    `json:"product_name"`
	EvidenceURL string    `json:"evidence_url,omitempty"`
	Source      string    `json:"source,omitempty"`
	Status      string    `json:"status"`
	APS2024     float64   `json:"aps_2024"`
	APS2025     float64   `json:"aps_2025"`
	APS2026     float64   `json:"aps_2026"`
	IsVerified  bool      `json:"is_verified"`
	Position    int       `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Timeline phase labels for the past, present and future capability snapshots.
const (
	TimelinePast    = "1A (Past)"
	TimelinePresent = "1B (Present)"
	TimelineFuture  = "1C (Future)"
)

// Timeline records a vendor's capability score for one year.
type Timeline struct {
	ID                    string    `json:"id"`
	VendorID              string    `json:"vendor_id"`
	Phase                 string    `json:"phase"`
	Year                  int       `json:"year"`
	APSScore              float64   `json:"aps_score"`
	CapabilityDescription string    `json:"capability_description,omitempty"`
	Source                string    `json:"source,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}
