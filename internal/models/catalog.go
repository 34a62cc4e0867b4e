package models

import "time"

// Material is a catalog item that can be requested and stocked.
type Material struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Name       string    `db:"name" json:"name"`
	CategoryID *string   `db:"category_id" json:"category_id,omitempty"`
	UnitID     string    `db:"unit_id" json:"unit_id"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Unit is a measurement unit (bag, m3, kg, piece).
type Unit struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Symbol string `db:"symbol" json:"symbol"`
}

// Store is a physical warehouse that holds stock.
type Store struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  string    `db:"location" json:"location"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Site is a construction site that raises requisitions.
type Site struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  string    `db:"location" json:"location"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SiteAssignment links a reviewer to a site for request routing.
type SiteAssignment struct {
	ID        string    `db:"id" json:"id"`
	SiteID    string    `db:"site_id" json:"site_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      UserRole  `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
