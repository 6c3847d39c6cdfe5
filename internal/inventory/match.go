// Package inventory filters and ranks tenant inventory against a prospect's
// purchasing capacity and preferences.
package inventory

import (
	"fmt"
	"sort"
	"strings"

	"qualification-workers/internal/models"
)

// RoomPolicy decides how bedroom and bathroom preferences compare to an item.
// The same policy applies to properties and unit models.
type RoomPolicy string

const (
	RoomsExact   RoomPolicy = "exact"
	RoomsAtLeast RoomPolicy = "at_least"
)

func ParseRoomPolicy(s string) (RoomPolicy, error) {
	switch RoomPolicy(s) {
	case "", RoomsExact:
		return RoomsExact, nil
	case RoomsAtLeast:
		return RoomsAtLeast, nil
	}
	return "", fmt.Errorf("unknown room policy %q", s)
}

// Criteria are the prospect-side filters. Nil room counts and an empty
// property type impose no restriction; empty zones mean any zone.
type Criteria struct {
	Zones        []string `json:"zones"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *int     `json:"bathrooms,omitempty"`
	PropertyType string   `json:"propertyType,omitempty"`
}

func CriteriaFromPreferences(p models.Preferences) Criteria {
	return Criteria{
		Zones:        p.Zones,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		PropertyType: p.PropertyType,
	}
}

type Options struct {
	RoomPolicy RoomPolicy
	// Limit caps the result length; zero means no cap.
	Limit int
}

// MatchResult is one matched item and how far under budget it is.
type MatchResult struct {
	Item           models.InventoryItem `json:"item"`
	BudgetHeadroom int64                `json:"budgetHeadroom"`
}

var availableStatuses = map[string]bool{
	"active":    true,
	"available": true,
}

// Available reports whether an item can be offered at all.
func Available(item models.InventoryItem) bool {
	if !availableStatuses[strings.ToLower(strings.TrimSpace(item.Status))] {
		return false
	}
	if item.Kind == models.KindUnitModel && item.AvailableUnits <= 0 {
		return false
	}
	return true
}

// Match returns the items affordable under capacity that satisfy criteria,
// cheapest first with ties broken by ID. An ineligible capacity matches nothing.
func Match(capacity models.CapacityEstimate, criteria Criteria, items []models.InventoryItem, opts Options) []MatchResult {
	if !capacity.Eligible() {
		return []MatchResult{}
	}

	zones := normalizeZones(criteria.Zones)
	wantType := strings.ToLower(strings.TrimSpace(criteria.PropertyType))

	out := make([]MatchResult, 0)
	for _, item := range items {
		if !Available(item) || item.Price <= 0 || item.Price > capacity.MaxPropertyPrice {
			continue
		}
		if len(zones) > 0 && !zones[strings.ToLower(strings.TrimSpace(item.Zone))] {
			continue
		}
		if !roomsMatch(opts.RoomPolicy, criteria.Bedrooms, item.Bedrooms) ||
			!roomsMatch(opts.RoomPolicy, criteria.Bathrooms, item.Bathrooms) {
			continue
		}
		if itemType := strings.ToLower(strings.TrimSpace(item.PropertyType)); wantType != "" && itemType != "" && itemType != wantType {
			continue
		}

		out = append(out, MatchResult{
			Item:           item,
			BudgetHeadroom: capacity.MaxPropertyPrice - item.Price,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Item.Price != out[j].Item.Price {
			return out[i].Item.Price < out[j].Item.Price
		}
		return out[i].Item.ID < out[j].Item.ID
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

func normalizeZones(zones []string) map[string]bool {
	set := make(map[string]bool, len(zones))
	for _, z := range zones {
		if z = strings.ToLower(strings.TrimSpace(z)); z != "" {
			set[z] = true
		}
	}
	return set
}

func roomsMatch(policy RoomPolicy, want *int, have int) bool {
	if want == nil {
		return true
	}
	if policy == RoomsAtLeast {
		return have >= *want
	}
	return have == *want
}
