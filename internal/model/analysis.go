package model

import "time"

// Can-handle tags for capability mappings.
const (
	CanHandleYes       = "yes"
	CanHandleNo        = "no"
	CanHandlePartially = "partially"
)

// CapabilityMapping scores a vendor against a single subtask of a task.
type CapabilityMapping struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	VendorID    string    `json:"vendor_id"`
	SubtaskID   string    `json:"subtask_id"`
	VendorName  string    `json:"vendor_name,omitempty"`
	SubtaskName string    `json:"subtask_name,omitempty"`
	CanHandle   string    `json:"can_handle"`
	APS2024     float64   `json:"aps_2024"`
	APS2025     float64   `json:"aps_2025"`
	APS2026     float64   `json:"aps_2026"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FinalAnalysis is the terminal artifact of the pipeline for one task.
type FinalAnalysis struct {
	ID              string             `json:"id"`
	TaskID          string             `json:"task_id"`
	BestVendorID    string             `json:"best_vendor_id,omitempty"`
	BestVendorName  string             `json:"best_vendor_name,omitempty"`
	Automation2024  float64            `json:"automation_2024"`
	Automation2025  float64            `json:"automation_2025"`
	Automation2026  float64            `json:"automation_2026"`
	HRFScores       map[string]float64 `json:"hrf_scores"`
	CompositeScore  float64            `json:"rpi_score"`
	Recommendations []string           `json:"recommendations"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// HRF factor names.
const (
	HRFRegulatory       = "regulatory_requirement"
	HRFTrust            = "trust_verification_needed"
	HRFDomainExpertise  = "domain_expertise_required"
	HRFCustomerImpact   = "customer_impact"
	HRFMissionCritical  = "mission_criticality"
	HRFWeightedTotalKey = "weighted_hrf_total"
)

// HRFFactors lists the five human requirement factors in report order.
var HRFFactors = []string{
	HRFRegulatory,
	HRFTrust,
	HRFDomainExpertise,
	HRFCustomerImpact,
	HRFMissionCritical,
}

// Report is a read projection of a task and everything derived from it.
type Report struct {
	Task      Task                `json:"task"`
	Vendors   []Vendor            `json:"vendors"`
	Subtasks  []Subtask           `json:"subtasks"`
	Timelines []Timeline          `json:"timelines"`
	Mappings  []CapabilityMapping `json:"mappings"`
	Analysis  *FinalAnalysis      `json:"analysis,omitempty"`
}
