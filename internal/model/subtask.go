package model

// AI applicability tags for subtasks.
const (
	AIApplicableYes       = "yes"
	AIApplicableNo        = "no"
	AIApplicablePartially = "partially"
)

// Subtask is one component of a task produced by phase 2.
type Subtask struct {
	ID           string  `json:"id"`
	TaskID       string  `json:"task_id"`
	Name         string  `json:"subtask_name"`
	Description  string  `json:"description,omitempty"`
	TimePercent  float64 `json:"time_percent"`
	Importance   float64 `json:"importance"`
	AIApplicable string  `json:"ai_applicable"`
	Weight       float64 `json:"onet_weight"`
	Position     int     `json:"-"`
}

// SubtaskWeight derives the weight of a subtask from its importance and share of time.
func SubtaskWeight(importance, timePercent float64) float64 {
	return importance * (timePercent / 100)
}
