package utils

import (
	geohash "github.com/TomiHiltunen/geohash-golang"
)

// Geohash precisions for the spatial cell index. Coarse cells span roughly
// 156 km per edge, fine cells roughly 39 km.
const (
	CoarseCellPrecision = 3
	FineCellPrecision   = 4
)

// EncodeCell returns the geohash cell of a coordinate at the given precision.
func EncodeCell(lat, lon float64, precision int) string {
	return geohash.EncodeWithPrecision(lat, lon, precision)
}

// CellSpan returns the latitude and longitude extent in degrees of the cell
// containing the given coordinate at the given precision. Used to step a
// bounding box when enumerating candidate cells.
func CellSpan(lat, lon float64, precision int) (latSpan, lonSpan float64) {
	box := geohash.Decode(EncodeCell(lat, lon, precision))
	latSpan = box.NorthEast().Lat() - box.SouthWest().Lat()
	lonSpan = box.NorthEast().Lng() - box.SouthWest().Lng()
	return latSpan, lonSpan
}
