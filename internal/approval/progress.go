package approval

import (
	"github.com/shopspring/decimal"

	"docapproval/internal/model"
)

// Progress is the aggregate view of a document's approval chain.
type Progress struct {
	Status   string  `json:"status"`
	Percent  float64 `json:"percent"`
	Approved int     `json:"approved"`
	Total    int     `json:"total"`
}

// Compute derives document status and completion from the persisted steps.
//
// Without any rejection the percentage is approved groups over all groups.
// After a rejection it is approved groups over k, where k is the position of
// the earliest rejected group among resolved groups, so it never reaches 100.
// A document with no steps keeps its last persisted status.
func Compute(reg *Registry, doc *model.Document, steps []model.ApprovalStep) Progress {
	groups := GroupSteps(reg, steps)

	total := len(groups)
	approved := 0
	for _, g := range groups {
		if g.Status == model.StepApproved {
			approved++
		}
	}

	if k := earliestRejectedPosition(groups); k > 0 {
		return Progress{
			Status:   model.DocumentRejected,
			Percent:  percent(approved, k),
			Approved: approved,
			Total:    total,
		}
	}

	if total == 0 {
		status := doc.DocumentStatus
		if status == "" {
			status = model.DocumentPending
		}
		return Progress{Status: status}
	}

	status := model.DocumentPending
	if approved == total {
		status = model.DocumentApproved
	}
	return Progress{
		Status:   status,
		Percent:  percent(approved, total),
		Approved: approved,
		Total:    total,
	}
}

// earliestRejectedPosition returns the 1-based rank of the first rejected group
// among resolved groups in sequence order, or 0 when nothing was rejected.
func earliestRejectedPosition(groups []Group) int {
	resolved := 0
	for _, g := range groups {
		if g.Status == model.StepPending {
			continue
		}
		resolved++
		if g.Status == model.StepRejected {
			return resolved
		}
	}
	return 0
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	p := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(whole))).
		Round(2)
	f, _ := p.Float64()
	return f
}
