package models

import "time"

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	UserID      int
	Email       string
	DisplayName string
}

// Profile is the minimal profile row used for display and lazy provisioning.
type Profile struct {
	ID          int       `db:"id" json:"id"`
	Email       string    `db:"email" json:"email"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AvatarURL   string    `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Movie is the locally cached catalog reference used to enrich feeds.
type Movie struct {
	ID        int    `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	PosterURL string `db:"poster_url" json:"poster_url,omitempty"`
}
