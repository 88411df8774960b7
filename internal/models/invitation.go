package models

import "time"

// Invitation is an email-targeted, single-use join offer. Only the digest of
// the secret token is stored.
type Invitation struct {
	ID         int        `db:"id" json:"id"`
	GroupID    int        `db:"group_id" json:"group_id"`
	Email      string     `db:"email" json:"email"`
	TokenHash  string     `db:"token_hash" json:"-"`
	InvitedBy  int        `db:"invited_by" json:"invited_by"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	AcceptedAt *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	AcceptedBy *int       `db:"accepted_by" json:"accepted_by,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// IsExpired reports whether the invitation expired at the given instant.
func (i Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// IsAccepted reports whether the invitation has been used.
func (i Invitation) IsAccepted() bool {
	return i.AcceptedAt != nil
}

// InvitationEmail is the payload handed to the notification sender.
type InvitationEmail struct {
	To          string    `json:"to"`
	GroupName   string    `json:"group_name"`
	InviterName string    `json:"inviter_name"`
	InviteURL   string    `json:"invite_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// InviteCode is a reusable, human-typable join code for a group.
type InviteCode struct {
	Code      string    `db:"code" json:"code"`
	GroupID   int       `db:"group_id" json:"group_id"`
	CreatedBy int       `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
