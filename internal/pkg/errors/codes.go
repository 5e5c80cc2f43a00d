package errors

import "net/http"

var (
	// ErrLocationNotFound signals a geocoding miss. Exhausted provider
	// chains and missing configuration both surface as this, never as a
	// 500-class error.
	ErrLocationNotFound = New(
		"LOCATION_NOT_FOUND",
		"Location not found",
		http.StatusNotFound,
	)

	// ErrProviderUnavailable marks a single provider failing. Recovered
	// internally by falling through to the next provider; never returned
	// to HTTP callers directly.
	ErrProviderUnavailable = New(
		"PROVIDER_UNAVAILABLE",
		"Geocoding provider unavailable",
		http.StatusBadGateway,
	)

	// ErrIndexUnavailable marks the spatial cell index as missing or still
	// backfilling. Recovered internally by the date-scan fallback.
	ErrIndexUnavailable = New(
		"INDEX_UNAVAILABLE",
		"Spatial index unavailable",
		http.StatusServiceUnavailable,
	)

	ErrInvalidCoordinates = New(
		"INVALID_COORDINATES",
		"Invalid coordinates provided",
		http.StatusBadRequest,
	)

	ErrInvalidRadius = New(
		"INVALID_RADIUS",
		"Invalid radius value",
		http.StatusBadRequest,
	)

	ErrInvalidDateRange = New(
		"INVALID_DATE_RANGE",
		"Invalid date range",
		http.StatusBadRequest,
	)

	ErrDatabaseError = New(
		"DATABASE_ERROR",
		"Storage operation failed",
		http.StatusInternalServerError,
	)

	ErrInvalidRequest = New(
		"INVALID_REQUEST",
		"Invalid request parameters",
		http.StatusBadRequest,
	)

	ErrInternalServer = New(
		"INTERNAL_SERVER_ERROR",
		"Internal server error",
		http.StatusInternalServerError,
	)
)
