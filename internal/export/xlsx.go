// Package export renders a task report as a spreadsheet or a YAML document.
package export

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/vendor-pipeline/internal/model"
)

// Sheet names, in workbook order.
const (
	SheetVendors    = "Vendors"
	SheetSubtasks   = "Subtasks"
	SheetTimelines  = "Timelines"
	SheetCapability = "Capability"
	SheetAnalysis   = "Analysis"
)

// XLSX writes the report as a workbook to w.
func XLSX(w io.Writer, r *model.Report) error {
	if r == nil {
		return eris.New("export: nil report")
	}
	f := xlsx.NewFile()

	steps := []struct {
		name string
		fill func(*xlsx.Sheet, *model.Report)
	}{
		{SheetVendors, fillVendors},
		{SheetSubtasks, fillSubtasks},
		{SheetTimelines, fillTimelines},
		{SheetCapability, fillCapability},
		{SheetAnalysis, fillAnalysis},
	}
	for _, s := range steps {
		sheet, err := f.AddSheet(s.name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", s.name)
		}
		s.fill(sheet, r)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func fillVendors(sheet *xlsx.Sheet, r *model.Report) {
	addHeader(sheet, "Vendor", "Product", "Evidence URL", "Source", "Verified", "APS 2024", "APS 2025", "APS 2026")
	for _, v := range r.Vendors {
		row := sheet.AddRow()
		addStrings(row, v.Name, v.ProductName, v.EvidenceURL, v.Source)
		row.AddCell().SetBool(v.IsVerified)
		addFloats(row, v.APS2024, v.APS2025, v.APS2026)
	}
}

func fillSubtasks(sheet *xlsx.Sheet, r *model.Report) {
	addHeader(sheet, "Subtask", "Description", "Time %", "Importance", "AI Applicable", "Weight")
	for _, s := range r.Subtasks {
		row := sheet.AddRow()
		addStrings(row, s.Name, s.Description)
		addFloats(row, s.TimePercent, s.Importance)
		addStrings(row, s.AIApplicable)
		addFloats(row, s.Weight)
	}
}

func fillTimelines(sheet *xlsx.Sheet, r *model.Report) {
	names := make(map[string]string, len(r.Vendors))
	for _, v := range r.Vendors {
		names[v.ID] = v.Name
	}

	addHeader(sheet, "Vendor", "Phase", "Year", "APS", "Capability", "Source")
	for _, tl := range r.Timelines {
		row := sheet.AddRow()
		addStrings(row, names[tl.VendorID], tl.Phase)
		row.AddCell().SetInt(tl.Year)
		addFloats(row, tl.APSScore)
		addStrings(row, tl.CapabilityDescription, tl.Source)
	}
}

// fillCapability writes a subtask by vendor matrix of can-handle tags with
// the 2025 score, e.g. "yes (0.80)". Pairs with no mapping stay blank.
func fillCapability(sheet *xlsx.Sheet, r *model.Report) {
	type key struct{ vendor, subtask string }
	cells := make(map[key]model.CapabilityMapping, len(r.Mappings))
	for _, m := range r.Mappings {
		cells[key{m.VendorID, m.SubtaskID}] = m
	}

	header := sheet.AddRow()
	header.AddCell().SetString("Subtask")
	for _, v := range r.Vendors {
		header.AddCell().SetString(v.Name)
	}

	for _, s := range r.Subtasks {
		row := sheet.AddRow()
		row.AddCell().SetString(s.Name)
		for _, v := range r.Vendors {
			m, ok := cells[key{v.ID, s.ID}]
			if !ok {
				row.AddCell()
				continue
			}
			row.AddCell().SetString(m.CanHandle + " (" + strconv.FormatFloat(m.APS2025, 'f', 2, 64) + ")")
		}
	}
}

func fillAnalysis(sheet *xlsx.Sheet, r *model.Report) {
	addHeader(sheet, "Metric", "Value")
	addPair(sheet, "Task", r.Task.Description)
	addPair(sheet, "Status", string(r.Task.Status))

	a := r.Analysis
	if a == nil {
		addPair(sheet, "Analysis", "not completed")
		return
	}
	addPair(sheet, "Best vendor", a.BestVendorName)
	addNumber(sheet, "Automation 2024", a.Automation2024)
	addNumber(sheet, "Automation 2025", a.Automation2025)
	addNumber(sheet, "Automation 2026", a.Automation2026)
	for _, f := range model.HRFFactors {
		addNumber(sheet, f, a.HRFScores[f])
	}
	if total, ok := a.HRFScores[model.HRFWeightedTotalKey]; ok {
		addNumber(sheet, model.HRFWeightedTotalKey, total)
	}
	addNumber(sheet, "RPI score", a.CompositeScore)
	for i, rec := range a.Recommendations {
		addPair(sheet, "Recommendation "+strconv.Itoa(i+1), rec)
	}
}

func addHeader(sheet *xlsx.Sheet, cols ...string) {
	addStrings(sheet.AddRow(), cols...)
}

func addStrings(row *xlsx.Row, vals ...string) {
	for _, v := range vals {
		row.AddCell().SetString(v)
	}
}

func addFloats(row *xlsx.Row, vals ...float64) {
	for _, v := range vals {
		row.AddCell().SetFloat(v)
	}
}

func addPair(sheet *xlsx.Sheet, k, v string) {
	addStrings(sheet.AddRow(), k, v)
}

func addNumber(sheet *xlsx.Sheet, k string, v float64) {
	row := sheet.AddRow()
	row.AddCell().SetString(k)
	row.AddCell().SetFloat(v)
}
