package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
)

func float(v float64) *float64 { return &v }

func validAdmin() *models.AdminUser {
	return models.NewAdminUser("ops@example.org", models.RoleEditor,
		[]models.Permission{models.PermissionContent, models.PermissionUsers}, "root")
}

func validCause() *models.Cause {
	return &models.Cause{
		ID:          "c1",
		Title:       "Clean water",
		Description: "Wells for three villages",
		Category:    "Humanitarian_Aid",
		GoalAmount:  10000,
		Status:      models.CauseStatusDraft,
		CreatedBy:   "u1",
	}
}

func validWaqf() *models.Waqf {
	return &models.Waqf{
		Name:            "Family endowment",
		Description:     "Education support",
		Donor:           models.DonorProfile{Name: "Aisha", Email: "aisha@example.org"},
		InitialCapital:  500,
		CauseAllocation: map[string]float64{"c1": 60, "c2": 40},
		Status:          models.WaqfStatusActive,
		Financial:       models.FinancialMetrics{TotalDonations: 500, TotalDistributed: 100, CurrentBalance: 400},
		CreatedBy:       "donor",
	}
}

func messages(violations []services.Violation) string {
	msgs := make([]string, 0, len(violations))
	for _, v := range violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}

func TestAdmin(t *testing.T) {
	assert.Empty(t, Admin(validAdmin()))

	t.Run("editor holding settings", func(t *testing.T) {
		a := validAdmin()
		a.Permissions = []models.Permission{models.PermissionContent, models.PermissionSettings}
		v := Admin(a)
		require.Len(t, v, 1)
		assert.Contains(t, v[0].Message, "settings")
	})

	t.Run("bad email", func(t *testing.T) {
		a := validAdmin()
		a.Email = "not-an-address"
		v := Admin(a)
		require.Len(t, v, 1)
		assert.Equal(t, "email", v[0].Field)
		assert.Equal(t, "email must be a valid email", v[0].Message)
	})

	t.Run("missing creator", func(t *testing.T) {
		a := validAdmin()
		a.CreatedBy = ""
		v := Admin(a)
		require.Len(t, v, 1)
		assert.Equal(t, "createdBy", v[0].Field)
	})
}

func TestApproval(t *testing.T) {
	ok := &models.ApprovalRecord{TargetAdmin: "u2", ApprovedBy: "u1", Timestamp: 1}
	assert.Empty(t, Approval(ok))

	self := &models.ApprovalRecord{TargetAdmin: "u1", ApprovedBy: "u1", Timestamp: 1}
	v := Approval(self)
	require.Len(t, v, 1)
	assert.Equal(t, services.ErrorTypePermissionDenied, v[0].Type)

	assert.Len(t, Approval(&models.ApprovalRecord{}), 3)
}

func TestAuditRecords(t *testing.T) {
	assert.Empty(t, AuditRecord(models.NewAuditRecord(models.AuditActionRoleChange, "u1", "u2", 10)))
	v := AuditRecord(models.NewAuditRecord("wipe_admins", "u1", "u2", 10))
	require.Len(t, v, 1)
	assert.Contains(t, v[0].Message, "invalid audit action")

	assert.Empty(t, WaqfAudit(models.NewWaqfAudit("w1", models.WaqfAuditPause, "u1", 10)))
	assert.NotEmpty(t, WaqfAudit(models.NewWaqfAudit("w1", "archive", "u1", 10)))
}

func TestCause(t *testing.T) {
	assert.Empty(t, Cause(validCause()))

	tests := []struct {
		name   string
		mutate func(c *models.Cause)
		field  string
	}{
		{"title too long", func(c *models.Cause) { c.Title = strings.Repeat("x", 201) }, "title"},
		{"blank title", func(c *models.Cause) { c.Title = "   " }, "title"},
		{"description too long", func(c *models.Cause) { c.Description = strings.Repeat("x", 5001) }, "description"},
		{"zero goal", func(c *models.Cause) { c.GoalAmount = 0 }, "goalAmount"},
		{"goal over ceiling", func(c *models.Cause) { c.GoalAmount = 10_000_001 }, "goalAmount"},
		{"negative raised", func(c *models.Cause) { c.RaisedAmount = float(-1) }, "raisedAmount"},
		{"raised over 150 percent", func(c *models.Cause) { c.RaisedAmount = float(15001) }, "raisedAmount"},
		{"unknown category", func(c *models.Cause) { c.Category = "crypto" }, "category"},
		{"unknown status", func(c *models.Cause) { c.Status = "archived" }, "status"},
		{"unknown priority", func(c *models.Cause) { p := models.CausePriority("asap"); c.Priority = &p }, "priority"},
		{"image without extension or host", func(c *models.Cause) { c.ImageURL = "https://example.org/page" }, "imageUrl"},
		{"image with ftp scheme", func(c *models.Cause) { c.ImageURL = "ftp://example.org/a.png" }, "imageUrl"},
		{"deleted without metadata", func(c *models.Cause) { c.Deleted = true }, "deleted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCause()
			tt.mutate(c)
			v := Cause(c)
			require.NotEmpty(t, v)
			assert.Equal(t, tt.field, v[0].Field, messages(v))
			assert.Equal(t, services.ErrorTypeStructuralInvalid, v[0].Type)
		})
	}

	t.Run("raised at 150 percent", func(t *testing.T) {
		c := validCause()
		c.RaisedAmount = float(15000)
		assert.Empty(t, Cause(c))
	})
}

func TestIsImageURL(t *testing.T) {
	valid := []string{
		"https://example.org/photo.JPG",
		"http://example.org/a/b/c.webp",
		"https://i.imgur.com/abc",
		"https://res.cloudinary.com/demo/image/upload/sample",
		"https://bucket.s3.amazonaws.com/key",
		"https://lh3.googleusercontent.com/x",
	}
	for _, u := range valid {
		assert.True(t, IsImageURL(u), u)
	}

	invalid := []string{
		"",
		"example.org/photo.jpg",
		"javascript:alert(1).png",
		"https://example.org/photo.jpg.exe",
		"https://imgur.com.evil.net/x",
	}
	for _, u := range invalid {
		assert.False(t, IsImageURL(u), u)
	}
}

func TestWaqf(t *testing.T) {
	assert.Empty(t, Waqf(validWaqf(), WaqfOptions{Create: true, MinInitialCapital: 100}))

	t.Run("initial capital only enforced on create", func(t *testing.T) {
		w := validWaqf()
		w.InitialCapital = 50
		v := Waqf(w, WaqfOptions{Create: true, MinInitialCapital: 100})
		require.Len(t, v, 1)
		assert.Equal(t, "initialCapital", v[0].Field)
		assert.Equal(t, "initial capital must be at least 100", v[0].Message)

		assert.Empty(t, Waqf(w, WaqfOptions{Create: false, MinInitialCapital: 100}))
	})

	tests := []struct {
		name   string
		mutate func(w *models.Waqf)
		field  string
		typ    services.ErrorType
	}{
		{"missing description", func(w *models.Waqf) { w.Description = "" }, "description", services.ErrorTypeStructuralInvalid},
		{"missing donor name", func(w *models.Waqf) { w.Donor.Name = "" }, "donor.name", services.ErrorTypeStructuralInvalid},
		{"bad donor email", func(w *models.Waqf) { w.Donor.Email = "aisha at example" }, "donor.email", services.ErrorTypeStructuralInvalid},
		{"over distribution", func(w *models.Waqf) { w.Financial.TotalDistributed = 600 }, "financial.totalDistributed", services.ErrorTypeStructuralInvalid},
		{"negative balance", func(w *models.Waqf) { w.Financial.CurrentBalance = -1 }, "financial.currentBalance", services.ErrorTypeStructuralInvalid},
		{"growth below floor", func(w *models.Waqf) { w.Financial.GrowthRate = -100.5 }, "financial.growthRate", services.ErrorTypeStructuralInvalid},
		{"growth above ceiling", func(w *models.Waqf) { w.Financial.GrowthRate = 1000.5 }, "financial.growthRate", services.ErrorTypeStructuralInvalid},
		{"allocations short", func(w *models.Waqf) { w.CauseAllocation = map[string]float64{"c1": 60, "c2": 39.9} }, "causeAllocation", services.ErrorTypeQuotaViolation},
		{"unknown frequency", func(w *models.Waqf) { w.ReportingPreferences.Frequency = "daily" }, "reportingPreferences.frequency", services.ErrorTypeStructuralInvalid},
		{"unknown status", func(w *models.Waqf) { w.Status = "archived" }, "status", services.ErrorTypeStructuralInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := validWaqf()
			tt.mutate(w)
			v := Waqf(w, WaqfOptions{})
			require.NotEmpty(t, v)
			assert.Equal(t, tt.field, v[0].Field, messages(v))
			assert.Equal(t, tt.typ, v[0].Type)
		})
	}
}

func TestAllocations(t *testing.T) {
	assert.Empty(t, Allocations(map[string]float64{"c1": 50, "c2": 49.99}), "99.99 is within tolerance")
	assert.Empty(t, Allocations(map[string]float64{"c1": 50, "c2": 50.01}), "100.01 is within tolerance")
	assert.Empty(t, Allocations(map[string]float64{"c1": 33.33, "c2": 33.33, "c3": 33.34}))

	v := Allocations(map[string]float64{"c1": 50, "c2": 49.9})
	require.Len(t, v, 1)
	assert.Equal(t, services.ErrorTypeQuotaViolation, v[0].Type)
	assert.Equal(t, "allocations sum to 99.90% (must be 100%)", v[0].Message)

	v = Allocations(map[string]float64{"c1": 150, "c2": -50})
	require.Len(t, v, 2)
	assert.Equal(t, "causeAllocation.c1", v[0].Field)
	assert.Equal(t, "causeAllocation.c2", v[1].Field)

	assert.NotEmpty(t, Allocations(nil))
}
