// Package validator lints a loaded catalog for content that validates but
// leaves the concierge with little to say: empty categories, items without
// descriptions, rooms with no booking channel, labels nobody can match.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/conserje/internal/classify"
	"github.com/aretw0/conserje/pkg/domain"
)

// Severity grades a Finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Finding is one lint result. ItemID is empty for catalog-wide findings.
type Finding struct {
	Severity Severity
	ItemID   string
	Message  string
}

func (f Finding) String() string {
	if f.ItemID == "" {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", f.Severity, f.ItemID, f.Message)
}

// Lint inspects c and returns its findings in catalog order.
func Lint(c *domain.Catalog) []Finding {
	var findings []Finding
	add := func(sev Severity, id, format string, args ...any) {
		findings = append(findings, Finding{Severity: sev, ItemID: id, Message: fmt.Sprintf(format, args...)})
	}

	for _, cat := range domain.Categories {
		if len(c.ByCategory(cat)) == 0 {
			add(SeverityWarning, "", "category %s has no items and is left out of the menu", cat)
		}
	}
	if len(c.Rules) == 0 {
		add(SeverityInfo, "", "no governance rules; generated copy only follows the built-in tone")
	}

	intents, profiles := classify.Intents(), classify.Profiles()
	for _, item := range c.Items {
		if item.Factual == "" && item.Experiential == "" {
			add(SeverityWarning, item.ID, "no description; replies fall back to the name only")
		}
		switch item.Category {
		case domain.CategoryRooms:
			if c.BookingURL(item) == "" {
				add(SeverityWarning, item.ID, "room has no reserva_url and the hotel has none either")
			}
			if item.CheckIn == "" || item.CheckOut == "" {
				add(SeverityInfo, item.ID, "check_in/check_out missing")
			}
		case domain.CategoryFacilities:
			if !item.HasHours() {
				add(SeverityInfo, item.ID, "no opening hours; hour questions get the front desk answer")
			}
		case domain.CategoryRecommendations:
			if item.MapURL == "" {
				add(SeverityInfo, item.ID, "no mapa_url; directions questions cannot link a map")
			}
		}
		if unknown := unknownLabels(item.Intents, intents); len(unknown) > 0 {
			add(SeverityWarning, item.ID, "intenciones never inferred from guests: %s", strings.Join(unknown, ", "))
		}
		if unknown := unknownLabels(item.Profiles, profiles); len(unknown) > 0 {
			add(SeverityWarning, item.ID, "perfil_ideal never inferred from guests: %s", strings.Join(unknown, ", "))
		}
	}
	return findings
}

// Warnings counts the findings with SeverityWarning.
func Warnings(findings []Finding) int {
	n := 0
	for _, f := range findings {
		if f.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

func unknownLabels(values, known []string) []string {
	var out []string
	for _, v := range values {
		if !slices.Contains(known, strings.ToLower(strings.TrimSpace(v))) {
			out = append(out, v)
		}
	}
	return out
}
