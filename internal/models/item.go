package models

import "time"

// Item is a rentable garment. Available is the single source of truth for
// whether a new booking can be created right now.
type Item struct {
	ID          int64     `yaml:"id" json:"id"`
	OwnerID     int64     `yaml:"owner_id" json:"owner_id"`
	Name        string    `yaml:"name" json:"name"`
	Size        string    `yaml:"size" json:"size"`
	Color       string    `yaml:"color" json:"color"`
	Category    string    `yaml:"category" json:"category"`
	PricePerDay int64     `yaml:"price_per_day" json:"price_per_day"`
	Available   bool      `yaml:"available" json:"available"`
	Version     int64     `yaml:"-" json:"version"`
	CreatedAt   time.Time `yaml:"-" json:"created_at"`
	UpdatedAt   time.Time `yaml:"-" json:"updated_at"`
}
