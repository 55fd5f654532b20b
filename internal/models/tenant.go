package models

import "time"

// Tenant is the landlord-facing record of a renter: contact details attached
// to a property. It is distinct from TenantUser, the renter's own portal
// login. Authorization never goes through Tenant.UserID; the property
// ownership chain is authoritative.
type Tenant struct {
	ID           string    `json:"id" db:"id"`
	PropertyID   string    `json:"property_id" db:"property_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone" db:"phone"`
	ContactNotes string    `json:"contact_notes,omitempty" db:"contact_notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
