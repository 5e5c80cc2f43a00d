package domain

import "time"

// Location is the normalized output shape every geocoding source is reduced
// to, regardless of provider schema.
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name"`
	Type        string  `json:"type,omitempty"`
}

// GeocodeResult is a single provider hit after provider-specific shaping.
// Address components are retained for display-name construction and for
// synthesizing place-level entries for the import queue.
type GeocodeResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name"`

	// Type is the provider's feature classification (city, county, address,
	// poi, ...), lower-cased.
	Type string `json:"type,omitempty"`

	City    string `json:"city,omitempty"`
	County  string `json:"county,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`

	// PlaceID is the provider-assigned identifier, zero when absent.
	PlaceID int64 `json:"place_id,omitempty"`

	// Source names the provider that produced the result.
	Source string `json:"source,omitempty"`
}

// Location reduces the result to the common response shape.
func (r *GeocodeResult) Location() Location {
	return Location{
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		DisplayName: r.DisplayName,
		Type:        r.Type,
	}
}

// GeocacheEntry is a persisted geocoding result keyed by the normalized query
// string. LastAccessed orders entries for eviction only; it is bumped on every
// hit without touching the resolved fields.
type GeocacheEntry struct {
	Key          string    `json:"key" db:"key"`
	Latitude     float64   `json:"latitude" db:"latitude"`
	Longitude    float64   `json:"longitude" db:"longitude"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	LastAccessed time.Time `json:"last_accessed" db:"last_accessed"`
}

// PendingPlace is a durable queue record awaiting import into the self-hosted
// geocoding index. Only place-level entries are ever enqueued; non-place
// results are reduced to their most specific place attribute first.
type PendingPlace struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Type       string    `json:"type" db:"type"`
	Latitude   float64   `json:"latitude" db:"latitude"`
	Longitude  float64   `json:"longitude" db:"longitude"`
	City       string    `json:"city,omitempty" db:"city"`
	County     string    `json:"county,omitempty" db:"county"`
	State      string    `json:"state,omitempty" db:"state"`
	Country    string    `json:"country,omitempty" db:"country"`
	EnqueuedAt time.Time `json:"enqueued_at" db:"enqueued_at"`
}
