package dto

// EventQueryRequest carries every filter the events endpoint accepts. Lat
// and Lng must be present together to activate the spatial path; all other
// filters apply on either path.
type EventQueryRequest struct {
	Lat      *float64 `json:"lat" query:"lat" validate:"omitempty,min=-90,max=90"`
	Lng      *float64 `json:"lng" query:"lng" validate:"omitempty,min=-180,max=180"`
	RadiusKm float64  `json:"radius_km" query:"radius_km" validate:"omitempty,min=0.1,max=1000"`

	StartDateFrom string `json:"start_date_from" query:"start_date_from" validate:"omitempty,datetime=2006-01-02"`
	StartDateTo   string `json:"start_date_to" query:"start_date_to" validate:"omitempty,datetime=2006-01-02"`
	CalendarMode  bool   `json:"calendar_mode" query:"calendar_mode"`

	City      string `json:"city" query:"city"`
	State     string `json:"state" query:"state"`
	Country   string `json:"country" query:"country"`
	EventType string `json:"event_type" query:"event_type"`
	Search    string `json:"search" query:"search"`

	Page  int `json:"page" query:"page" validate:"omitempty,min=1"`
	Limit int `json:"limit" query:"limit" validate:"omitempty,min=1,max=200"`
}

// HasCenter reports whether both coordinates are present.
func (r *EventQueryRequest) HasCenter() bool {
	return r.Lat != nil && r.Lng != nil
}

// GeocodeRequest is a forward geocoding query.
type GeocodeRequest struct {
	Query string `json:"query" query:"q" validate:"required,min=2"`
}

// SuggestRequest is an autocomplete query.
type SuggestRequest struct {
	Query string `json:"query" query:"q" validate:"required,min=2"`
	Limit int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=10"`
}

// ReverseGeocodeRequest asks which place contains a point. Pointers keep
// "field missing" distinguishable from a legitimate zero coordinate on the
// equator or prime meridian.
type ReverseGeocodeRequest struct {
	Lat *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lon *float64 `json:"lon" validate:"required,min=-180,max=180"`
}
