package models

import "time"

// TenantUser is a renter's portal credential, one per unique email. It starts
// Invited (no password, pending invitation token) and becomes Active once the
// invitation is accepted and a password is set.
type TenantUser struct {
	ID                     string     `json:"id" db:"id"`
	Email                  string     `json:"email" db:"email"`
	PasswordHash           *string    `json:"-" db:"password_hash"`
	TenantID               string     `json:"tenant_id" db:"tenant_id"`
	InvitationTokenHash    *string    `json:"-" db:"invitation_token_hash"`
	InvitationExpires      *time.Time `json:"invitation_expires,omitempty" db:"invitation_expires"`
	PasswordResetTokenHash *string    `json:"-" db:"password_reset_token_hash"`
	PasswordResetExpires   *time.Time `json:"-" db:"password_reset_expires"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// IsActivated reports whether the portal account has a password set.
func (u TenantUser) IsActivated() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// InvitationValid reports whether the pending invitation can still be accepted.
func (u TenantUser) InvitationValid(now time.Time) bool {
	return u.InvitationTokenHash != nil && u.InvitationExpires != nil && now.Before(*u.InvitationExpires)
}

// ResetValid reports whether the pending password reset can still be used.
func (u TenantUser) ResetValid(now time.Time) bool {
	return u.PasswordResetTokenHash != nil && u.PasswordResetExpires != nil && now.Before(*u.PasswordResetExpires)
}
