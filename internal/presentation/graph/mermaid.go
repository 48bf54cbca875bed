// Package graph draws the catalog as the guest navigates it: hotel, category
// menus and items, as a Mermaid flowchart.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/conserje/pkg/domain"
)

// Overlay marks a session's position on the graph.
type Overlay struct {
	// Shown are items already presented to the guest.
	Shown []string
	// Current is the item in focus.
	Current string
}

// SessionOverlay derives an overlay from a stored session.
func SessionOverlay(s *domain.Session) *Overlay {
	if s == nil {
		return nil
	}
	o := &Overlay{Current: s.ActiveItemID}
	if s.LastShownItemID != "" {
		o.Shown = append(o.Shown, s.LastShownItemID)
	}
	if s.Category != "" {
		o.Shown = append(o.Shown, s.Category.MenuID())
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the catalog.
// Shapes:
// - Hotel: ((Circle))
// - Category menu: [/Parallelogram/]
// - Item: [Rectangle], with restrictions and conditions on a second line
func GenerateMermaid(c *domain.Catalog, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    hotel((\"%s\"))\n", escape(c.Hotel.Name))

	for _, cat := range c.PresentCategories() {
		catID := sanitizeMermaidID(cat.MenuID())
		fmt.Fprintf(&sb, "    %s[/\"%s\"/]\n", catID, escape(cat.Label()))
		fmt.Fprintf(&sb, "    hotel --> %s\n", catID)

		for _, item := range c.ByCategory(cat) {
			itemID := sanitizeMermaidID(item.ID)
			label := escape(item.Name)
			var notes []string
			if len(item.Restrictions) > 0 {
				notes = append(notes, "⛔ "+strings.Join(item.Restrictions, ", "))
			}
			if len(item.Conditions) > 0 {
				notes = append(notes, "📋 "+strings.Join(item.Conditions, ", "))
			}
			if len(notes) > 0 {
				label += " <br/> " + escape(strings.Join(notes, " <br/> "))
			}
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", itemID, label)

			arrow := "-->"
			if c.BookingURL(item) != "" && cat == domain.CategoryRooms {
				arrow = "-- reserva -->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", catID, arrow, itemID)
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Shown {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !seen[safeID] && id != overlay.Current {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.Current))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
