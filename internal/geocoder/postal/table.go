package postal

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tabletop-events/internal/domain"
)

//go:embed zipcodes.csv
var zipData string

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// IsZIPCode reports whether the query looks like a 5-digit US postal code.
func IsZIPCode(query string) bool {
	return zipPattern.MatchString(strings.TrimSpace(query))
}

// Entry is one postal-code row from the embedded table.
type Entry struct {
	ZIP       string
	City      string
	State     string
	Latitude  float64
	Longitude float64
}

// Result shapes the entry into the common geocode result form.
func (e *Entry) Result() domain.GeocodeResult {
	return domain.GeocodeResult{
		Latitude:    e.Latitude,
		Longitude:   e.Longitude,
		Name:        e.City,
		DisplayName: fmt.Sprintf("%s, %s %s", e.City, e.State, e.ZIP),
		Type:        "postcode",
		City:        e.City,
		State:       e.State,
		Country:     "United States",
		Source:      "postal",
	}
}

// Table is the static ZIP lookup consulted before any network provider.
// Most reliable and zero network cost, so it always goes first.
type Table struct {
	entries map[string]Entry
	logger  *zap.Logger
}

// NewTable parses the embedded postal-code CSV.
func NewTable(logger *zap.Logger) (*Table, error) {
	reader := csv.NewReader(strings.NewReader(zipData))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse postal table: %w", err)
	}

	entries := make(map[string]Entry, len(records))
	for i, rec := range records {
		if i == 0 {
			// header
			continue
		}
		if len(rec) != 5 {
			return nil, fmt.Errorf("postal table row %d: expected 5 columns, got %d", i, len(rec))
		}
		lat, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("postal table row %d: bad latitude: %w", i, err)
		}
		lon, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("postal table row %d: bad longitude: %w", i, err)
		}
		entries[rec[0]] = Entry{
			ZIP:       rec[0],
			Latitude:  lat,
			Longitude: lon,
			City:      rec[3],
			State:     rec[4],
		}
	}

	logger.Info("Postal table loaded", zap.Int("entries", len(entries)))

	return &Table{entries: entries, logger: logger}, nil
}

// Lookup returns the entry for an exact 5-digit code.
func (t *Table) Lookup(zip string) (Entry, bool) {
	e, ok := t.entries[strings.TrimSpace(zip)]
	return e, ok
}

// Size returns the number of loaded entries.
func (t *Table) Size() int {
	return len(t.entries)
}
