// Package validator classifies whether a discovered vendor record looks real.
package validator

import (
	"net/url"

	"github.com/sells-group/vendor-pipeline/internal/normalize"
)

// Verdict reason codes.
const (
	ReasonEvidenceURL    = "has_evidence_url"
	ReasonNameAndProduct = "has_name_and_product"
	ReasonInsufficient   = "insufficient_evidence"
)

// Accepted key aliases for loosely shaped records.
var (
	nameKeys    = []string{"vendor_name", "vendor", "vendor_company"}
	productKeys = []string{"product_name", "product"}
	urlKeys     = []string{"evidence_url", "evidence", "evidence_link"}
)

// Verdict is the outcome of validating one record.
type Verdict struct {
	Valid  bool   `json:"is_real"`
	Reason string `json:"reason"`
}

// Validator applies local heuristics only. It never performs network I/O.
type Validator struct{}

// New returns a Validator.
func New() *Validator { return &Validator{} }

// Validate inspects a decoded vendor record.
func (v *Validator) Validate(record map[string]any) Verdict {
	return v.Check(
		normalize.FirstString(record, nameKeys...),
		normalize.FirstString(record, productKeys...),
		normalize.FirstString(record, urlKeys...),
	)
}

// Check accepts a record with an http(s) evidence URL that has a host, or
// failing that one with both a name and a product.
func (v *Validator) Check(name, product, evidenceURL string) Verdict {
	if validURL(evidenceURL) {
		return Verdict{Valid: true, Reason: ReasonEvidenceURL}
	}
	if name != "" && product != "" {
		return Verdict{Valid: true, Reason: ReasonNameAndProduct}
	}
	return Verdict{Valid: false, Reason: ReasonInsufficient}
}

func validURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
