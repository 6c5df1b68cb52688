package directory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"tutorfinder/pkg/geo"
)

var (
	// ErrRefreshFailed wraps any failure to fetch the provider list.
	ErrRefreshFailed = errors.New("provider refresh failed")
	// ErrStaleResponse is returned when a newer refresh was applied first.
	ErrStaleResponse = errors.New("stale provider response discarded")
)

// RawReview is a review as it arrives on the wire.
type RawReview struct {
	User   string `json:"user"`
	Rating Number `json:"rating"`
	Text   string `json:"text"`
}

// RawProvider is a provider as it arrives on the wire, before coercion.
type RawProvider struct {
	ID            string      `json:"id"`
	OwnerID       *string     `json:"ownerId"`
	Name          string      `json:"name"`
	Qualification string      `json:"qualification"`
	Experience    string      `json:"experience"`
	Service       string      `json:"service"`
	Fees          string      `json:"fees"`
	Timing        string      `json:"timing"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	Description   string      `json:"description"`
	Lat           Number      `json:"lat"`
	Lng           Number      `json:"lng"`
	Image         string      `json:"image"`
	Rating        Number      `json:"rating"`
	UserReviews   []RawReview `json:"userReviews"`
}

// Review is a normalized review.
type Review struct {
	User   string
	Rating int
	Text   string
}

// Provider is a normalized provider as held in the snapshot.
type Provider struct {
	ID            string
	OwnerID       string
	Name          string
	Qualification string
	Experience    string
	Service       string
	Fees          string
	Timing        string
	Phone         string
	Address       string
	Description   string
	Image         string
	Location      geo.Point
	Rating        float64
	Reviews       []Review
}

// Source fetches the full provider list.
type Source interface {
	FetchProviders(ctx context.Context) ([]RawProvider, error)
}

// Store caches the last successfully fetched provider list.
type Store struct {
	source Source

	issued atomic.Uint64

	mu       sync.RWMutex
	applied  uint64
	snapshot []Provider
}

// NewStore creates an empty Store backed by source.
func NewStore(source Source) *Store {
	return &Store{source: source}
}

// Refresh fetches the full list and replaces the snapshot. On failure the
// previous snapshot is kept. A response that lost the race against a later
// Refresh call is discarded with ErrStaleResponse.
func (s *Store) Refresh(ctx context.Context) ([]Provider, error) {
	seq := s.issued.Add(1)

	raw, err := s.source.FetchProviders(ctx)
	if err != nil {
		logrus.WithError(err).WithField("seq", seq).Warn("failed to refresh providers, keeping previous list")
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	next := normalize(raw)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.applied {
		logrus.WithFields(logrus.Fields{"seq": seq, "applied": s.applied}).Debug("discarding stale provider response")
		return nil, ErrStaleResponse
	}
	s.applied = seq
	s.snapshot = next
	return copyProviders(next), nil
}

// Snapshot returns a copy of the current list.
func (s *Store) Snapshot() []Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyProviders(s.snapshot)
}

// Lookup finds a provider in the current list.
func (s *Store) Lookup(id string) (Provider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.snapshot {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

func copyProviders(in []Provider) []Provider {
	out := make([]Provider, len(in))
	copy(out, in)
	return out
}

// normalize coerces the wire list. Providers without a usable location are
// dropped: they can neither be placed on the map nor measured.
func normalize(raw []RawProvider) []Provider {
	out := make([]Provider, 0, len(raw))
	for _, r := range raw {
		loc := geo.Point{Lat: r.Lat.Value, Lng: r.Lng.Value}
		if !r.Lat.Valid || !r.Lng.Valid || !loc.Valid() {
			logrus.WithFields(logrus.Fields{"provider_id": r.ID, "name": r.Name}).Warn("dropping provider without a valid location")
			continue
		}

		p := Provider{
			ID:            r.ID,
			Name:          r.Name,
			Qualification: r.Qualification,
			Experience:    r.Experience,
			Service:       r.Service,
			Fees:          r.Fees,
			Timing:        r.Timing,
			Phone:         r.Phone,
			Address:       r.Address,
			Description:   r.Description,
			Image:         r.Image,
			Location:      loc,
			Rating:        r.Rating.Or(0),
			Reviews:       make([]Review, 0, len(r.UserReviews)),
		}
		if r.OwnerID != nil {
			p.OwnerID = strings.TrimSpace(*r.OwnerID)
		}
		for _, rv := range r.UserReviews {
			p.Reviews = append(p.Reviews, Review{
				User:   rv.User,
				Rating: int(math.Round(rv.Rating.Or(0))),
				Text:   rv.Text,
			})
		}
		out = append(out, p)
	}
	return out
}
