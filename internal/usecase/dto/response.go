package dto

import "github.com/tabletop-events/internal/domain"

// EventQueryResponse pairs a result page with the post-filter total.
type EventQueryResponse struct {
	Events []domain.Event `json:"events"`
	Total  int            `json:"total"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
}

// GeocodeResponse is a single resolved location.
type GeocodeResponse struct {
	Location domain.Location `json:"location"`
}

// SuggestResponse is an ordered list of autocomplete candidates.
type SuggestResponse struct {
	Suggestions []domain.Location `json:"suggestions"`
}
