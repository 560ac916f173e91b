package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"homezoo/partner-portal/onboarding-service/pkg/geospatial"
)

// SearchNearby runs a user-initiated place search for the open nearby editor.
// Failures are reported to the caller.
func (w *Wizard) SearchNearby(ctx context.Context, query string) ([]PlaceResult, error) {
	query = strings.TrimSpace(query)
	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	if w.session.Editor.Entity != EntityNearby {
		w.mu.Unlock()
		return nil, ErrEditorClosed
	}
	w.mu.Unlock()

	if query == "" {
		return nil, invalid(StepNearby, "query", "Enter a place to search for.")
	}
	results, err := w.deps.Locations.SearchLocation(ctx, query)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.session.Error = "Location search failed. Please try again."
		return nil, fmt.Errorf("search nearby places: %w", err)
	}
	if w.session.Editor.Entity == EntityNearby {
		w.session.SearchResults = results
	}
	w.session.Error = ""
	return results, nil
}

// SelectNearbyResult fills the scratch place from search result i. Name and
// type are set immediately; the distance is computed best effort.
func (w *Wizard) SelectNearbyResult(ctx context.Context, i int) error {
	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.session.Editor.Entity != EntityNearby {
		w.mu.Unlock()
		return ErrEditorClosed
	}
	if i < 0 || i >= len(w.session.SearchResults) {
		w.mu.Unlock()
		return fmt.Errorf("%w: result %d", ErrNoSearchResults, i)
	}
	result := w.session.SearchResults[i]
	editor := w.session.Editor
	w.session.ScratchNearby = NearbyPlace{
		Name: result.Name,
		Type: NormalizePlaceType(result.Type),
	}
	w.session.SearchResults = nil
	coords := append([]string(nil), w.draft.Location.Coordinates...)
	addr := w.draft.Address
	w.mu.Unlock()

	origin, ok := parseCoordinates(coords)
	if !ok {
		origin, ok = w.geocodeProperty(ctx, addr)
	}
	if !ok {
		return nil
	}

	km, err := w.deps.Locations.CalculateDistance(ctx, origin.Lat(), origin.Lon(), result.Lat, result.Lng)
	if err != nil {
		w.logger.Info("Distance lookup failed", zap.String("place", result.Name), zap.Error(err))
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session.Editor == editor && w.session.ScratchNearby.Name == result.Name {
		w.session.ScratchNearby.DistanceKm = formatFloat(geospatial.RoundKm(km))
	}
	return nil
}

func parseCoordinates(coords []string) (orb.Point, bool) {
	if len(coords) != 2 {
		return orb.Point{}, false
	}
	p, err := geospatial.ParsePoint(coords[0], coords[1])
	return p, err == nil
}

// geocodeProperty forward-geocodes the property address and stores the
// coordinates when the location is still blank.
func (w *Wizard) geocodeProperty(ctx context.Context, addr Address) (orb.Point, bool) {
	parts := make([]string, 0, 5)
	for _, s := range []string{addr.FullAddress, addr.Area, addr.City, addr.State, addr.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return orb.Point{}, false
	}

	results, err := w.deps.Locations.SearchLocation(ctx, strings.Join(parts, ", "))
	if err != nil || len(results) == 0 {
		w.logger.Info("Property geocoding failed", zap.Error(err))
		return orb.Point{}, false
	}
	p := orb.Point{results[0].Lng, results[0].Lat}
	if geospatial.ValidatePoint(p) != nil {
		return orb.Point{}, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, known := parseCoordinates(w.draft.Location.Coordinates); !known && w.mutableLocked() == nil {
		d := w.draft
		d.Location = Location{Type: "Point", Coordinates: geospatial.FormatPoint(p)}
		w.draft = d
		w.persistLocked()
	}
	return p, true
}

// ReverseGeocode pins the property at lat/lng and fills the address from it.
// The coordinates are kept even when the address lookup fails.
func (w *Wizard) ReverseGeocode(ctx context.Context, lat, lng float64) error {
	p := orb.Point{lng, lat}
	if err := geospatial.ValidatePoint(p); err != nil {
		return invalid(StepLocation, "location.coordinates", "Those coordinates are not on the map.")
	}

	w.mu.Lock()
	if err := w.mutableLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	d := w.draft
	d.Location = Location{Type: "Point", Coordinates: geospatial.FormatPoint(p)}
	w.draft = d
	w.persistLocked()
	w.mu.Unlock()

	addr, err := w.deps.Locations.GetAddressFromCoordinates(ctx, lat, lng)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.session.Error = "Could not look up the address. Please fill it in manually."
		return fmt.Errorf("reverse geocode: %w", err)
	}
	if w.mutableLocked() != nil || addr == nil {
		return nil
	}
	d = w.draft
	d.Address = *addr
	w.draft = d
	w.session.Error = ""
	w.persistLocked()
	return nil
}
