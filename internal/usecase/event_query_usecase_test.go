package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tabletop-events/internal/config"
	"github.com/tabletop-events/internal/domain"
	apperrors "github.com/tabletop-events/internal/pkg/errors"
	"github.com/tabletop-events/internal/usecase/dto"
)

func testQueryConfig() config.QueryConfig {
	return config.QueryConfig{
		DefaultRadiusKm:      100,
		MaxCells:             50,
		DayScanBatch:         10,
		DefaultWindowDays:    90,
		CalendarWindowMonths: 3,
		CalendarCap:          5000,
	}
}

func newQueryFixture(store *fakeEventStore) *EventQueryUseCase {
	index := NewSpatialEventIndex(store, zap.NewNop(), 50, 10)
	return NewEventQueryUseCase(index, testQueryConfig(), zap.NewNop())
}

func seededStore(now time.Time) *fakeEventStore {
	store := newFakeEventStore()
	store.addShop("sf", 37.7749, -122.4194)
	store.addShop("sac", 38.5816, -121.4944)

	store.addEvent(domain.Event{
		ID: "magic-1", Name: "Friday Night Magic", Description: "Weekly Magic tournament",
		City: "San Francisco", State: "CA", Country: "USA",
		EventType: "tournament", ShopID: "sf",
		StartDate: now.AddDate(0, 0, 3),
	})
	store.addEvent(domain.Event{
		ID: "dnd-1", Name: "D&D Adventurers League", Location: "Back room",
		City: "San Francisco", State: "CA", Country: "USA",
		EventType: "campaign", ShopID: "sf",
		StartDate: now.AddDate(0, 0, 5),
	})
	store.addEvent(domain.Event{
		ID: "magic-2", Name: "Modern Masters", Description: "Magic draft night",
		City: "Sacramento", State: "CA", Country: "USA",
		EventType: "tournament", ShopID: "sac",
		StartDate: now.AddDate(0, 0, 10),
	})
	return store
}

func TestEventQueryUseCase_Query(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("no center lists everything in the window", func(t *testing.T) {
		uc := newQueryFixture(seededStore(now))

		resp, err := uc.Query(ctx, dto.EventQueryRequest{})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.Total)
		require.Len(t, resp.Events, 3)
		// Ascending by start date.
		assert.Equal(t, "magic-1", resp.Events[0].ID)
		assert.Equal(t, "dnd-1", resp.Events[1].ID)
		assert.Equal(t, "magic-2", resp.Events[2].ID)
	})

	t.Run("center activates the radius path", func(t *testing.T) {
		uc := newQueryFixture(seededStore(now))
		lat, lng := 37.7749, -122.4194

		resp, err := uc.Query(ctx, dto.EventQueryRequest{Lat: &lat, Lng: &lng, RadiusKm: 50})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Total)
		for _, event := range resp.Events {
			assert.Equal(t, "sf", event.ShopID)
		}
	})

	t.Run("default radius applies when omitted", func(t *testing.T) {
		uc := newQueryFixture(seededStore(now))
		lat, lng := 37.7749, -122.4194

		// Default 100 km still excludes Sacramento at ~120 km.
		resp, err := uc.Query(ctx, dto.EventQueryRequest{Lat: &lat, Lng: &lng})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Total)
	})

	t.Run("city filter", func(t *testing.T) {
		uc := newQueryFixture(seededStore(now))

		resp, err := uc.Query(ctx, dto.EventQueryRequest{City: "sacramento"})
		require.NoError(t, err)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "magic-2", resp.Events[0].ID)
	})

	t.Run("event type filter is exact", func(t *testing.T) {
		uc := newQueryFixture(seededStore(now))

		resp, err := uc.Query(ctx, dto.EventQueryRequest{EventType: "tournament"})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Total)

		resp, err = uc.Query(ctx, dto.EventQueryRequest{EventType: "tourna"})
		require.NoError(t, err)
		assert.Zero(t, resp.Total)
	})

	t.Run("search matches name description or location", func(t *testing.T) {
		uc := newQueryFixture(seededStore(now))

		resp, err := uc.Query(ctx, dto.EventQueryRequest{Search: "magic"})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Total)

		resp, err = uc.Query(ctx, dto.EventQueryRequest{Search: "back room"})
		require.NoError(t, err)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "dnd-1", resp.Events[0].ID)
	})

	t.Run("filters apply on the radius path too", func(t *testing.T) {
		uc := newQueryFixture(seededStore(now))
		lat, lng := 37.7749, -122.4194

		resp, err := uc.Query(ctx, dto.EventQueryRequest{
			Lat: &lat, Lng: &lng, RadiusKm: 50, EventType: "campaign",
		})
		require.NoError(t, err)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "dnd-1", resp.Events[0].ID)
	})

	t.Run("pagination slices after filtering", func(t *testing.T) {
		store := newFakeEventStore()
		store.addShop("sf", 37.7749, -122.4194)
		for i := 0; i < 25; i++ {
			store.addEvent(domain.Event{
				ID:        fmt.Sprintf("e%02d", i),
				Name:      "Game Night",
				ShopID:    "sf",
				StartDate: now.AddDate(0, 0, i%7+1),
			})
		}
		uc := newQueryFixture(store)

		resp, err := uc.Query(ctx, dto.EventQueryRequest{Page: 2, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 25, resp.Total)
		assert.Len(t, resp.Events, 10)
		assert.Equal(t, 2, resp.Page)

		resp, err = uc.Query(ctx, dto.EventQueryRequest{Page: 3, Limit: 10})
		require.NoError(t, err)
		assert.Len(t, resp.Events, 5)

		resp, err = uc.Query(ctx, dto.EventQueryRequest{Page: 9, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, resp.Events)
		assert.Equal(t, 25, resp.Total)
	})

	t.Run("explicit date bounds", func(t *testing.T) {
		uc := newQueryFixture(seededStore(now))

		from := now.AddDate(0, 0, 4).Format("2006-01-02")
		to := now.AddDate(0, 0, 6).Format("2006-01-02")
		resp, err := uc.Query(ctx, dto.EventQueryRequest{StartDateFrom: from, StartDateTo: to})
		require.NoError(t, err)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "dnd-1", resp.Events[0].ID)
	})

	t.Run("calendar mode returns everything unpaginated", func(t *testing.T) {
		store := seededStore(now)
		// An event behind now, inside the trailing calendar window but
		// outside the default forward-only window.
		store.addEvent(domain.Event{
			ID: "past", Name: "Last Month Meetup", ShopID: "sf",
			StartDate: now.AddDate(0, -1, 0),
		})
		uc := newQueryFixture(store)

		resp, err := uc.Query(ctx, dto.EventQueryRequest{CalendarMode: true, Page: 2, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 4, resp.Total)
		assert.Len(t, resp.Events, 4)
		assert.Equal(t, "past", resp.Events[0].ID)
	})

	t.Run("invalid date range", func(t *testing.T) {
		uc := newQueryFixture(seededStore(now))

		_, err := uc.Query(ctx, dto.EventQueryRequest{StartDateFrom: "not-a-date"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)

		_, err = uc.Query(ctx, dto.EventQueryRequest{
			StartDateFrom: "2026-10-01",
			StartDateTo:   "2026-09-01",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)
	})

	t.Run("invalid coordinates and radius", func(t *testing.T) {
		uc := newQueryFixture(seededStore(now))
		lat, lng := 95.0, 0.0

		_, err := uc.Query(ctx, dto.EventQueryRequest{Lat: &lat, Lng: &lng})
		assert.ErrorIs(t, err, apperrors.ErrInvalidCoordinates)

		lat = 37.7749
		lng = -122.4194
		_, err = uc.Query(ctx, dto.EventQueryRequest{Lat: &lat, Lng: &lng, RadiusKm: 5000})
		assert.ErrorIs(t, err, apperrors.ErrInvalidRadius)
	})
}
