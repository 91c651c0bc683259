package validation

import (
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
)

const (
	// AllocationTolerance is how far the allocation total may drift from 100
	AllocationTolerance = 0.01

	// allocationEpsilon absorbs float rounding so 99.99 sits inside the tolerance
	allocationEpsilon = 1e-9
)

var donorEmailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// WaqfOptions carries the context a waqf validation depends on
type WaqfOptions struct {
	// Create is true when there is no prior version of the document
	Create bool

	// MinInitialCapital is enforced only on create
	MinInitialCapital float64
}

// Waqf validates an endowment: text fields, donor identity, allocations,
// financial metrics, and reporting preferences.
func Waqf(waqf *models.Waqf, opts WaqfOptions) []services.Violation {
	violations := Struct(waqf)

	if waqf.Description != "" && blank(waqf.Description) {
		violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid, "description", "description is required"))
	}
	if waqf.Donor.Name != "" && blank(waqf.Donor.Name) {
		violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid, "donor.name", "donor name is required"))
	}
	if waqf.Donor.Email != "" && !donorEmailRegex.MatchString(waqf.Donor.Email) {
		violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid, "donor.email", "invalid email format"))
	}
	if waqf.Status != "" && !waqf.Status.IsValid() {
		violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
			"status", "invalid status: %s", waqf.Status))
	}
	if opts.Create && waqf.InitialCapital < opts.MinInitialCapital {
		violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
			"initialCapital", "initial capital must be at least %s", formatAmount(opts.MinInitialCapital)))
	}

	violations = append(violations, Allocations(waqf.CauseAllocation)...)
	violations = append(violations, Financial(&waqf.Financial)...)

	if f := waqf.ReportingPreferences.Frequency; f != "" && !f.IsValid() {
		violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
			"reportingPreferences.frequency", "invalid reporting frequency: %s", f))
	}
	return violations
}

// Allocations checks each percentage is within [0,100] and the total is 100
// within AllocationTolerance. A bad total is a quota violation.
func Allocations(allocations map[string]float64) []services.Violation {
	var violations []services.Violation

	causes := make([]string, 0, len(allocations))
	for id := range allocations {
		causes = append(causes, id)
	}
	sort.Strings(causes)
	var total float64
	for _, id := range causes {
		pct := allocations[id]
		total += pct
		if pct < 0 || pct > 100 || math.IsNaN(pct) {
			violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
				"causeAllocation."+id, "invalid percentage %.2f%% for cause %s", pct, id))
		}
	}

	if math.Abs(total-100) > AllocationTolerance+allocationEpsilon {
		violations = append(violations, services.Violationf(services.ErrorTypeQuotaViolation,
			"causeAllocation", "allocations sum to %.2f%% (must be 100%%)", total))
	}
	return violations
}

// Financial checks the money invariants that tags alone cannot express
func Financial(m *models.FinancialMetrics) []services.Violation {
	if m.TotalDistributed > m.TotalDonations {
		return []services.Violation{
			services.NewViolation(services.ErrorTypeStructuralInvalid, "financial.totalDistributed",
				"distributed amount cannot exceed donations"),
		}
	}
	return nil
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
