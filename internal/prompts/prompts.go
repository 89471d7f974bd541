// Package prompts renders the instructions sent to the model in each
// pipeline phase. Every function is pure: the same inputs always produce
// the same text.
package prompts

import (
	"fmt"
	"strings"
)

// VendorDiscovery asks for 5-8 real vendors whose products automate the
// task. extra is optional context gathered from feeds and search; when
// non-empty it is appended under its own heading.
func VendorDiscovery(task, extra string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an analyst of commercial AI automation products.

TASK: %s

Identify between 5 and 8 vendors that sell a product able to automate or
substantially assist with this task. Only name real, shipping products or
publicly announced roadmaps. Prefer vendors with a public product page or
announcement you can cite.

For each vendor provide:
- vendor_company: the company name
- product_name: the specific product or feature
- capability: what the product does for this task, in one sentence
- what_it_replaces: the manual work it removes
- evidence_link: an https URL to a product page or announcement
- status: one of "commercial", "beta", "announced"
- domain: the industry or function the product targets
`, task)

	if extra = strings.TrimSpace(extra); extra != "" {
		fmt.Fprintf(&b, `
ADDITIONAL CONTEXT FROM REAL-WORLD SOURCES:
%s

Use this context where it is relevant, but do not limit yourself to it.
`, extra)
	}

	b.WriteString(`
Respond with a JSON array only:
[
  {"vendor_company": "...", "product_name": "...", "capability": "...",
   "what_it_replaces": "...", "evidence_link": "https://...",
   "status": "commercial", "domain": "..."}
]`)
	return b.String()
}

// TimelinePast asks how well the product handled the task in 2023.
func TimelinePast(vendor, product, task string) string {
	return fmt.Sprintf(`Assess %s %s as it existed in 2023.

TASK: %s

Score its automation potential for this task on a 0.0-1.0 scale, where 0.0
means no help and 1.0 means fully automated with no human review.

Respond with JSON only:
{"vendor": %q, "product": %q, "aps_score_2023": 0.0, "capability_in_2023": "..."}`,
		vendor, product, task, vendor, product)
}

// TimelinePresent asks for the product's current capability and adoption.
func TimelinePresent(vendor, product, task string) string {
	return fmt.Sprintf(`Assess %s %s as it is available today.

TASK: %s

Score its current automation potential for this task on a 0.0-1.0 scale and
describe adoption. Cite the most recent product announcement if one exists.

Respond with JSON only:
{"vendor": %q, "product": %q, "aps_score_current": 0.0,
 "current_capability": "...", "adoption_rate": "low|medium|high",
 "production_ready": true, "latest_announcement_url": "https://..."}`,
		vendor, product, task, vendor, product)
}

// TimelineFuture asks for the expected capability once announced features ship.
func TimelineFuture(vendor, product, task string) string {
	return fmt.Sprintf(`Project %s %s into the next release cycle (2025-2026).

TASK: %s

Base the projection only on announced roadmaps, previews or betas. Score the
expected automation potential for this task on a 0.0-1.0 scale.

Respond with JSON only:
{"vendor": %q, "product": %q, "aps_score_expected": 0.0,
 "capability_if_released": "...", "confidence_level": "low|medium|high",
 "evidence_url": "https://..."}`,
		vendor, product, task, vendor, product)
}

// Subtasks asks for a decomposition of the task into 5-8 subtasks whose
// time shares sum to 100.
func Subtasks(task string) string {
	return fmt.Sprintf(`Break the following task into its component subtasks.

TASK: %s

List between 5 and 8 subtasks a person performs to complete it. For each one
estimate the share of total time it takes (time_percent, all shares summing
to 100), its importance on a 0.0-1.0 scale, and whether AI can currently
take it on (ai_applicable: "yes", "no" or "partially") with a short reason.

Respond with JSON only:
{
  "main_task": %q,
  "subtasks": [
    {"id": 1, "subtask_name": "...", "description": "...",
     "time_percent": 20, "importance": 0.8,
     "ai_applicable": "partially", "why": "..."}
  ]
}`, task, task)
}

// CapabilityMapping asks which of the task's subtasks a vendor covers, with
// per-year scores.
func CapabilityMapping(task, vendorsJSON, subtasksJSON string) string {
	return fmt.Sprintf(`Map vendor capabilities onto the subtasks of a task.

TASK: %s

VENDORS:
%s

SUBTASKS:
%s

For every vendor and every subtask decide whether the vendor's product can
handle the subtask (can_handle: "yes", "no" or "partially") and score its
automation potential for 2024, 2025 and 2026 on a 0.0-1.0 scale. Use the
subtask names exactly as given.

Respond with JSON only:
{
  "capability_analysis": [
    {"vendor": "...", "tool": "...",
     "subtask_coverage": [
       {"subtask": "...", "can_handle": "partially",
        "aps_2024": 0.0, "aps_2025": 0.0, "aps_2026": 0.0}
     ]}
  ]
}`, task, vendorsJSON, subtasksJSON)
}

// FinalAnalysis asks for the best vendor, the human requirement factors and
// the overall automation outlook, given the capability mappings.
func FinalAnalysis(task, mappingJSON string) string {
	return fmt.Sprintf(`Produce the final automation assessment for a task.

TASK: %s

CAPABILITY MAPPINGS:
%s

1. Score each vendor overall and pick the best one for the task today.
2. Rate the human requirement factors, each on a 0.0-1.0 scale where 1.0
   means a human must stay involved:
   - regulatory_requirement
   - trust_verification_needed
   - domain_expertise_required
   - customer_impact
   - mission_criticality
   Combine them into weighted_hrf_total and interpret the result.
3. Estimate the share of the whole task that can be automated in 2024,
   2025 and 2026, as percentages.
4. Recommend an implementation strategy and the tools to adopt.

Respond with JSON only:
{
  "vendor_scores": [{"vendor": "...", "overall_score": 0.0}],
  "hrf_analysis": {
    "regulatory_requirement": 0.0, "trust_verification_needed": 0.0,
    "domain_expertise_required": 0.0, "customer_impact": 0.0,
    "mission_criticality": 0.0, "weighted_hrf_total": 0.0,
    "interpretation": "..."
  },
  "final_analysis": {
    "best_vendor_current": "...",
    "best_vendor_aps_2024": 0.0, "best_vendor_aps_2025": 0.0,
    "task_automation_percent_2024": "0%%",
    "task_automation_percent_2025": "0%%",
    "task_automation_percent_2026": "0%%",
    "automation_trend": "...",
    "implementation_strategy": "...",
    "tools_to_implement": ["..."],
    "key_recommendations": ["..."]
  }
}`, task, mappingJSON)
}
