package invariant

import (
	"fmt"
	"strings"

	"github.com/upb/waqf-policy-engine/services"
)

// HeaderUserAgent is the request header the device gate inspects
const HeaderUserAgent = "user-agent"

// BusinessHours rejects a mutation of a gated collection outside the
// configured UTC window.
func (c *Checker) BusinessHours(collection string) []services.Violation {
	if !c.cfg.BusinessHoursApply(collection) {
		return nil
	}
	if c.cfg.BusinessHours.Contains(c.clock.Now()) {
		return nil
	}
	return []services.Violation{
		services.Violationf(services.ErrorTypeTimeWindowViolation, "",
			"%s changes only allowed %s-%s UTC", collection,
			clockTime(c.cfg.BusinessHours.StartSecond), clockTime(c.cfg.BusinessHours.EndSecond)),
	}
}

// Device rejects a mutation of a gated collection from a request without a
// user agent or from a mobile device.
func (c *Checker) Device(collection string, headers map[string]string) []services.Violation {
	if !c.cfg.DeviceGateApplies(collection) {
		return nil
	}
	ua, ok := Header(headers, HeaderUserAgent)
	if !ok || strings.TrimSpace(ua) == "" {
		return []services.Violation{
			services.NewViolation(services.ErrorTypeTimeWindowViolation, HeaderUserAgent, "missing user-agent header"),
		}
	}
	if strings.Contains(ua, "Mobile") {
		return []services.Violation{
			services.Violationf(services.ErrorTypeTimeWindowViolation, HeaderUserAgent,
				"%s changes not allowed from mobile devices", collection),
		}
	}
	return nil
}

// Header looks a header up case-insensitively
func Header(headers map[string]string, name string) (string, bool) {
	if v, ok := headers[name]; ok {
		return v, true
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

func clockTime(second int) string {
	return fmt.Sprintf("%02d:%02d", second/3600, (second%3600)/60)
}
