package directory

import (
	"strings"

	"tutorfinder/pkg/geo"
)

// AllServices disables the service predicate.
const AllServices = "all"

// DefaultRadiusKm is the radius used on start and after a reset.
const DefaultRadiusKm = 1.0

// DefaultAnchor is the anchor used until the user is located.
var DefaultAnchor = geo.Point{Lat: 30.1687, Lng: 66.9859}

// Criteria selects providers by service, rating floor and distance from Anchor.
type Criteria struct {
	Service   string
	MinRating float64
	RadiusKm  float64
	Anchor    geo.Point
}

// DefaultCriteria returns the criteria in effect before the user touches any filter.
func DefaultCriteria() Criteria {
	return Criteria{
		Service:   AllServices,
		MinRating: 0,
		RadiusKm:  DefaultRadiusKm,
		Anchor:    DefaultAnchor,
	}
}

// Matches reports whether p passes all three predicates.
func (c Criteria) Matches(p Provider) bool {
	if c.Service != "" && c.Service != AllServices && p.Service != c.Service {
		return false
	}
	if p.Rating < c.MinRating {
		return false
	}
	return geo.Distance(c.Anchor, p.Location) <= c.RadiusKm*1000
}

// Filter returns the providers matching c, in their original order.
func Filter(providers []Provider, c Criteria) []Provider {
	out := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if c.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Search returns the providers whose name or service contains query, ignoring
// case, in their original order. It ignores any Criteria.
func Search(providers []Provider, query string) []Provider {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Service), q) {
			out = append(out, p)
		}
	}
	return out
}
