// internal/models/inventory.go
package models

import "strconv"

type InventoryKind string

const (
	KindProperty  InventoryKind = "property"
	KindProject   InventoryKind = "project"
	KindUnitModel InventoryKind = "unit_model"
)

// InventoryItem is a standalone property or a project unit model. Unit models
// carry the zone and status of their parent project.
type InventoryItem struct {
	ID             string        `json:"id"`
	TenantID       string        `json:"tenant_id"`
	Kind           InventoryKind `json:"kind"`
	ProjectID      string        `json:"project_id,omitempty"`
	ProjectName    string        `json:"project_name,omitempty"`
	Title          string        `json:"title"`
	PropertyType   string        `json:"property_type,omitempty"`
	Price          int64         `json:"price"`
	Zone           string        `json:"zone"`
	Bedrooms       int           `json:"bedrooms"`
	Bathrooms      int           `json:"bathrooms"`
	AreaM2         float64       `json:"area_m2"`
	Status         string        `json:"status"`
	AvailableUnits int           `json:"available_units,omitempty"`
}

// UnitModel is one sellable layout inside a project.
type UnitModel struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	PropertyType   string  `json:"property_type,omitempty"`
	Price          int64   `json:"price"`
	Bedrooms       int     `json:"bedrooms"`
	Bathrooms      int     `json:"bathrooms"`
	AreaM2         float64 `json:"area_m2"`
	AvailableUnits int     `json:"available_units"`
}

// Project groups unit models under one development. Zone and status belong to
// the project.
type Project struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"tenant_id"`
	Name         string      `json:"name"`
	PropertyType string      `json:"property_type,omitempty"`
	Zone         string      `json:"zone"`
	Status       string      `json:"status"`
	UnitModels   []UnitModel `json:"unit_models"`
}

// Items flattens the project into one InventoryItem per unit model. A unit
// model without an ID is numbered after its project.
func (p Project) Items() []InventoryItem {
	items := make([]InventoryItem, 0, len(p.UnitModels))
	for i, m := range p.UnitModels {
		id := m.ID
		if id == "" {
			id = p.ID + "-" + strconv.Itoa(i+1)
		}
		propertyType := m.PropertyType
		if propertyType == "" {
			propertyType = p.PropertyType
		}
		items = append(items, InventoryItem{
			ID:             id,
			TenantID:       p.TenantID,
			Kind:           KindUnitModel,
			ProjectID:      p.ID,
			ProjectName:    p.Name,
			Title:          m.Title,
			PropertyType:   propertyType,
			Price:          m.Price,
			Zone:           p.Zone,
			Bedrooms:       m.Bedrooms,
			Bathrooms:      m.Bathrooms,
			AreaM2:         m.AreaM2,
			Status:         p.Status,
			AvailableUnits: m.AvailableUnits,
		})
	}
	return items
}
