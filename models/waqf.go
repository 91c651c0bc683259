package models

// WaqfStatus represents the lifecycle state of an endowment
type WaqfStatus string

const (
	WaqfStatusActive    WaqfStatus = "active"
	WaqfStatusPaused    WaqfStatus = "paused"
	WaqfStatusCompleted WaqfStatus = "completed"
)

// IsValid reports whether s is a known waqf status
func (s WaqfStatus) IsValid() bool {
	switch s {
	case WaqfStatusActive, WaqfStatusPaused, WaqfStatusCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether no further change is accepted in this state
func (s WaqfStatus) IsTerminal() bool {
	switch s {
	case WaqfStatusCompleted:
		return true
	case WaqfStatusActive, WaqfStatusPaused:
		return false
	}
	return false
}

// DonorProfile identifies the donor of a waqf
type DonorProfile struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,max=254"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Address string `json:"address,omitempty" validate:"max=500"`
}

// FinancialMetrics tracks the money flowing through a waqf
type FinancialMetrics struct {
	TotalDonations    float64 `json:"totalDonations" validate:"gte=0"`
	TotalDistributed  float64 `json:"totalDistributed" validate:"gte=0"`
	CurrentBalance    float64 `json:"currentBalance" validate:"gte=0"`
	InvestmentReturns float64 `json:"investmentReturns,omitempty"`
	GrowthRate        float64 `json:"growthRate" validate:"gte=-100,lte=1000"`
}

// NotificationPreferences selects which messages the donor receives
type NotificationPreferences struct {
	ContributionReminders bool `json:"contributionReminders"`
	ImpactReports         bool `json:"impactReports"`
	FinancialUpdates      bool `json:"financialUpdates"`
}

// ReportingFrequency is how often the donor receives reports
type ReportingFrequency string

const (
	ReportingWeekly    ReportingFrequency = "weekly"
	ReportingMonthly   ReportingFrequency = "monthly"
	ReportingQuarterly ReportingFrequency = "quarterly"
	ReportingYearly    ReportingFrequency = "yearly"
)

// IsValid reports whether f is a known frequency
func (f ReportingFrequency) IsValid() bool {
	switch f {
	case ReportingWeekly, ReportingMonthly, ReportingQuarterly, ReportingYearly:
		return true
	}
	return false
}

// ReportingPreferences configures donor reporting
type ReportingPreferences struct {
	Frequency      ReportingFrequency `json:"frequency,omitempty"`
	ReportTypes    []string           `json:"reportTypes,omitempty"`
	DeliveryMethod string             `json:"deliveryMethod,omitempty"`
}

// Waqf is an endowment pooling a donor's capital for allocation to causes
type Waqf struct {
	ID                   string                  `json:"id,omitempty"`
	Name                 string                  `json:"name" validate:"required,max=200"`
	Description          string                  `json:"description" validate:"required,max=5000"`
	Donor                DonorProfile            `json:"donor"`
	InitialCapital       float64                 `json:"initialCapital" validate:"gte=0"`
	CauseAllocation      map[string]float64      `json:"causeAllocation"`
	SupportedCauses      []string                `json:"supportedCauses,omitempty"`
	Status               WaqfStatus              `json:"status" validate:"required"`
	Financial            FinancialMetrics        `json:"financial"`
	Notifications        NotificationPreferences `json:"notifications"`
	ReportingPreferences ReportingPreferences    `json:"reportingPreferences"`
	CreatedBy            string                  `json:"createdBy" validate:"required"`
	CreatedAt            int64                   `json:"createdAt,omitempty"`
	UpdatedAt            int64                   `json:"updatedAt,omitempty"`
}

// WaqfCreatorEditableFields are the top-level fields a non-admin creator may change
var WaqfCreatorEditableFields = []string{"name", "description", "donor"}

// AllocationTotal sums the cause allocation percentages
func (w *Waqf) AllocationTotal() float64 {
	var total float64
	for _, pct := range w.CauseAllocation {
		total += pct
	}
	return total
}
