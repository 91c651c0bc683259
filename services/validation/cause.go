package validation

import (
	"net/url"
	"strings"

	"github.com/upb/waqf-policy-engine/models"
	"github.com/upb/waqf-policy-engine/services"
)

// MaxRaisedRatio bounds the raised amount relative to the goal
const MaxRaisedRatio = 1.5

var (
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}
	imageHosts      = []string{"imgur.com", "cloudinary.com", "amazonaws.com", "googleusercontent.com"}
)

// Cause validates the fields of a cause. Status side-conditions belong to
// the transition checker.
func Cause(cause *models.Cause) []services.Violation {
	violations := Struct(cause)

	if cause.Title != "" && blank(cause.Title) {
		violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid, "title", "title cannot be blank"))
	}
	if cause.Description != "" && blank(cause.Description) {
		violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid, "description", "description cannot be blank"))
	}
	if cause.Category != "" && !models.IsCauseCategory(cause.Category) {
		violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
			"category", "invalid category: %s", cause.Category))
	}
	if cause.Status != "" && !cause.Status.IsValid() {
		violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
			"status", "invalid status: %s", cause.Status))
	}
	if cause.Priority != nil && !cause.Priority.IsValid() {
		violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
			"priority", "invalid priority: %s", *cause.Priority))
	}

	if cause.RaisedAmount != nil {
		raised := *cause.RaisedAmount
		switch {
		case raised < 0:
			violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid,
				"raisedAmount", "raised amount cannot be negative"))
		case cause.GoalAmount > 0 && raised > cause.GoalAmount*MaxRaisedRatio:
			violations = append(violations, services.Violationf(services.ErrorTypeStructuralInvalid,
				"raisedAmount", "raised amount %.2f exceeds 150%% of the goal %.2f", raised, cause.GoalAmount))
		}
	}

	if cause.ImageURL != "" && !IsImageURL(cause.ImageURL) {
		violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid,
			"imageUrl", "invalid image URL format"))
	}

	if cause.Deleted {
		if cause.DeletedAt == nil || cause.DeletedBy == nil || blank(*cause.DeletedBy) {
			violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid,
				"deleted", "a deleted cause requires deletedAt and deletedBy"))
		}
		if cause.IsActive {
			violations = append(violations, services.NewViolation(services.ErrorTypeStructuralInvalid,
				"isActive", "a deleted cause cannot be active"))
		}
	}
	return violations
}

// IsImageURL reports whether raw is an http(s) URL that either ends in a known
// image extension or points at a known image host.
func IsImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	path := strings.ToLower(u.Path)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range imageHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
