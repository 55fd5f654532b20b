package models

import "time"

type UnitStatus string

const (
	UnitStatusVacant   UnitStatus = "Vacant"
	UnitStatusOccupied UnitStatus = "Occupied"
)

// Unit is a rentable space inside a managed property. Status and
// CurrentLeaseID move together: Occupied iff an active lease is attached.
type Unit struct {
	ID             string     `json:"id" db:"id"`
	PropertyID     string     `json:"property_id" db:"property_id"`
	Name           string     `json:"name" db:"name"`
	Beds           *int       `json:"beds,omitempty" db:"beds"`
	Baths          *float64   `json:"baths,omitempty" db:"baths"`
	Sqft           *int       `json:"sqft,omitempty" db:"sqft"`
	Status         UnitStatus `json:"status" db:"status"`
	CurrentLeaseID *string    `json:"current_lease_id,omitempty" db:"current_lease_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsVacant reports whether a new lease may be originated on this unit.
func (u Unit) IsVacant() bool {
	return u.Status == UnitStatusVacant && u.CurrentLeaseID == nil
}
