package domain

// Shop is a physical venue hosting events. Owned by the ingestion pipeline and
// read-only here, except City which the reverse-geocode backfill may set.
type Shop struct {
	ID      string `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Address string `json:"address,omitempty" db:"address"`

	// Nullable pending geocode.
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`

	// Cached human-readable city label.
	City string `json:"city,omitempty" db:"city"`

	// Geohash cells at both index precisions, empty until geocoded.
	CellCoarse string `json:"cell_coarse,omitempty" db:"cell_coarse"`
	CellFine   string `json:"cell_fine,omitempty" db:"cell_fine"`
}

// HasCoordinates reports whether the shop has been geocoded.
func (s *Shop) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}
