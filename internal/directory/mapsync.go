package directory

import (
	"fmt"
	"sync"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"tutorfinder/pkg/geo"
)

// Marker is one provider pin. Details is the command a click on it dispatches.
type Marker struct {
	ProviderID string
	Position   geo.Point
	Name       string
	Service    string
	Rating     float64
	Details    ShowDetails
}

// RadiusOverlay is the circle drawn around the anchor.
type RadiusOverlay struct {
	Center       geo.Point
	RadiusMeters float64
}

// Surface is the map (and card list) being drawn on.
type Surface interface {
	AddMarker(m Marker)
	RemoveMarker(providerID string)
	SetOverlay(o RadiusOverlay)
	RemoveOverlay()
	ShowCards(providers []Provider)
	CenterOn(p geo.Point)
}

// MapSync keeps a Surface in step with a provider sequence. It is not safe
// for concurrent use; the Controller serializes calls.
type MapSync struct {
	surface Surface
	markers map[string]Marker
	order   []string
	overlay *RadiusOverlay
}

// NewMapSync creates a MapSync drawing on surface.
func NewMapSync(surface Surface) *MapSync {
	return &MapSync{
		surface: surface,
		markers: make(map[string]Marker),
	}
}

func markerFor(p Provider) Marker {
	return Marker{
		ProviderID: p.ID,
		Position:   p.Location,
		Name:       p.Name,
		Service:    p.Service,
		Rating:     p.Rating,
		Details:    ShowDetails{ProviderID: p.ID},
	}
}

// Sync leaves exactly one marker per provider in providers. Markers already
// showing an unchanged provider are left alone, so syncing the same sequence
// twice touches no marker. Cards are always redrawn in sequence order.
func (m *MapSync) Sync(providers []Provider) {
	wanted := make(map[string]Marker, len(providers))
	order := make([]string, 0, len(providers))
	cards := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if _, dup := wanted[p.ID]; dup {
			continue
		}
		wanted[p.ID] = markerFor(p)
		order = append(order, p.ID)
		cards = append(cards, p)
	}

	for _, id := range m.order {
		current := m.markers[id]
		if next, ok := wanted[id]; !ok || next != current {
			m.surface.RemoveMarker(id)
			delete(m.markers, id)
		}
	}
	for _, id := range order {
		if _, ok := m.markers[id]; ok {
			continue
		}
		mk := wanted[id]
		m.surface.AddMarker(mk)
		m.markers[id] = mk
	}
	m.order = order

	m.surface.ShowCards(cards)
}

// SetRadius replaces the radius overlay. An unchanged overlay is left as is.
func (m *MapSync) SetRadius(anchor geo.Point, radiusKm float64) {
	next := RadiusOverlay{Center: anchor, RadiusMeters: radiusKm * 1000}
	if m.overlay != nil {
		if *m.overlay == next {
			return
		}
		m.surface.RemoveOverlay()
	}
	m.surface.SetOverlay(next)
	m.overlay = &next
}

// Focus centers the surface on a marked provider. Returns false when no marker has that id.
func (m *MapSync) Focus(providerID string) bool {
	mk, ok := m.markers[providerID]
	if !ok {
		return false
	}
	m.surface.CenterOn(mk.Position)
	return true
}

// Markers returns the current markers in sequence order.
func (m *MapSync) Markers() []Marker {
	out := make([]Marker, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.markers[id])
	}
	return out
}

// Overlay returns the current radius overlay, if any.
func (m *MapSync) Overlay() (RadiusOverlay, bool) {
	if m.overlay == nil {
		return RadiusOverlay{}, false
	}
	return *m.overlay, true
}

// GeoJSON encodes the markers and the overlay as a FeatureCollection.
func (m *MapSync) GeoJSON() ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(m.order)+1)}
	for _, mk := range m.Markers() {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       mk.ProviderID,
			Geometry: geom.NewPointFlat(geom.XY, []float64{mk.Position.Lng, mk.Position.Lat}),
			Properties: map[string]interface{}{
				"kind":    "provider",
				"name":    mk.Name,
				"service": mk.Service,
				"rating":  mk.Rating,
			},
		})
	}
	if m.overlay != nil {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{m.overlay.Center.Lng, m.overlay.Center.Lat}),
			Properties: map[string]interface{}{
				"kind":   "radius",
				"radius": m.overlay.RadiusMeters,
			},
		})
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode map state: %w", err)
	}
	return b, nil
}

// RecordingSurface is an in-memory Surface that keeps the drawn state and a
// log of operations.
type RecordingSurface struct {
	mu      sync.Mutex
	ops     []string
	markers map[string]Marker
	overlay *RadiusOverlay
	cards   []Provider
	center  *geo.Point
}

// NewRecordingSurface creates an empty RecordingSurface.
func NewRecordingSurface() *RecordingSurface {
	return &RecordingSurface{markers: make(map[string]Marker)}
}

func (s *RecordingSurface) AddMarker(m Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "add:"+m.ProviderID)
	s.markers[m.ProviderID] = m
}

func (s *RecordingSurface) RemoveMarker(providerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "remove:"+providerID)
	delete(s.markers, providerID)
}

func (s *RecordingSurface) SetOverlay(o RadiusOverlay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, fmt.Sprintf("overlay:%g", o.RadiusMeters))
	s.overlay = &o
}

func (s *RecordingSurface) RemoveOverlay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "remove-overlay")
	s.overlay = nil
}

func (s *RecordingSurface) ShowCards(providers []Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = copyProviders(providers)
}

func (s *RecordingSurface) CenterOn(p geo.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "center")
	s.center = &p
}

// Ops returns the marker and overlay operations so far and clears the log.
func (s *RecordingSurface) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := s.ops
	s.ops = nil
	return ops
}

// MarkerCount returns the number of markers on the surface.
func (s *RecordingSurface) MarkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

// HasOverlay reports whether an overlay is drawn.
func (s *RecordingSurface) HasOverlay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overlay != nil
}

// Cards returns the cards last shown.
func (s *RecordingSurface) Cards() []Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProviders(s.cards)
}

// Center returns the last point centered on.
func (s *RecordingSurface) Center() (geo.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.center == nil {
		return geo.Point{}, false
	}
	return *s.center, true
}
