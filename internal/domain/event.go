package domain

import "time"

// Event is a scheduled occurrence at a game store. Records are created and
// overwritten by the ingestion pipeline on every scrape cycle and are read-only
// to the query subsystem. Shop fields are denormalized so the read path never
// needs a join.
type Event struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description,omitempty" db:"description"`

	Location string `json:"location,omitempty" db:"location"`
	Address  string `json:"address,omitempty" db:"address"`
	City     string `json:"city,omitempty" db:"city"`
	State    string `json:"state,omitempty" db:"state"`
	Country  string `json:"country,omitempty" db:"country"`

	// Nullable: an event may never have been geocoded.
	Latitude  *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude *float64 `json:"longitude,omitempty" db:"longitude"`

	StartDate time.Time  `json:"start_date" db:"start_date"`
	StartTime string     `json:"start_time,omitempty" db:"start_time"`
	EndDate   *time.Time `json:"end_date,omitempty" db:"end_date"`

	EventType   string `json:"event_type,omitempty" db:"event_type"`
	Organizer   string `json:"organizer,omitempty" db:"organizer"`
	PlayerCount int    `json:"player_count" db:"player_count"`
	MaxPlayers  int    `json:"max_players" db:"max_players"`
	Price       string `json:"price,omitempty" db:"price"`
	URL         string `json:"url,omitempty" db:"url"`
	ImageURL    string `json:"image_url,omitempty" db:"image_url"`

	ShopID        string   `json:"shop_id,omitempty" db:"shop_id"`
	ShopName      string   `json:"shop_name,omitempty" db:"shop_name"`
	ShopLatitude  *float64 `json:"shop_latitude,omitempty" db:"shop_latitude"`
	ShopLongitude *float64 `json:"shop_longitude,omitempty" db:"shop_longitude"`

	// Geohash cell of the hosting shop, used only as a candidate filter.
	// Never authoritative: distance refinement always runs on raw coordinates.
	Cell string `json:"cell,omitempty" db:"cell"`
}

// Coords returns the coordinates used for distance refinement: the hosting
// shop's position when linked, otherwise the event's own position. The second
// return is false when neither is available.
func (e *Event) Coords() (float64, float64, bool) {
	if e.ShopLatitude != nil && e.ShopLongitude != nil {
		return *e.ShopLatitude, *e.ShopLongitude, true
	}
	if e.Latitude != nil && e.Longitude != nil {
		return *e.Latitude, *e.Longitude, true
	}
	return 0, 0, false
}

// DateKey formats the event's start date as the day-bucket key.
func (e *Event) DateKey() string {
	return e.StartDate.UTC().Format("2006-01-02")
}
