package domain

import (
	"strings"
	"time"
)

// MaxRating is the upper bound of a product rating.
const MaxRating = 5.0

// Product represents a sellable item in the catalog.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Category    string    `json:"category"`
	Stock       int       `json:"stock"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	Rating      float64   `json:"rating"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FeedKey returns the key under which the trolley feed reports this product.
func (p Product) FeedKey() string {
	return NormalizeName(p.Name)
}

// NormalizeName lower-cases a product name so it can be matched against feed keys.
func NormalizeName(name string) string {
	return strings.ToLower(name)
}
