package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"tutorfinder/internal/models"
	"tutorfinder/pkg/geo"
)

// Command errors. Backend failures come back as *APIError or ErrBackend.
var (
	ErrInvalidCommand  = errors.New("invalid command")
	ErrNotSignedIn     = errors.New("sign in first")
	ErrForbidden       = errors.New("not allowed for this account")
	ErrNoProviderOpen  = errors.New("no provider selected")
	ErrUnknownProvider = errors.New("unknown provider")
)

// Backend is the API surface the controller drives.
type Backend interface {
	Source
	Login(ctx context.Context, username, password string) (Session, error)
	Register(ctx context.Context, username, password string, role models.Role) (Session, error)
	ResetPassword(ctx context.Context, username, newPassword string) error
	SubmitReview(ctx context.Context, review ReviewRequest) (float64, error)
	CreateProvider(ctx context.Context, draft ProviderDraft) (string, error)
	UpdateProvider(ctx context.Context, draft ProviderDraft) error
	DeleteProvider(ctx context.Context, id string) error
}

// Mode tells which pipeline produced the visible list.
type Mode int

const (
	ModeFilter Mode = iota
	ModeSearch
)

func (m Mode) String() string {
	if m == ModeSearch {
		return "search"
	}
	return "filter"
}

// State is everything the views render from.
type State struct {
	Session  *Session
	Criteria Criteria
	Mode     Mode
	Query    string
	Visible  []Provider
	DetailID string
}

// Command is an input to Controller.Dispatch.
type Command interface {
	command()
}

type (
	// Refresh refetches the provider list.
	Refresh struct{}
	// ApplyFilters replaces service, rating floor and radius; the anchor is kept.
	ApplyFilters struct {
		Service   string
		MinRating float64
		RadiusKm  float64
	}
	// SetAnchor moves the anchor, typically to the user's located position.
	SetAnchor struct{ Point geo.Point }
	// ResetFilters moves the anchor back to the default and the radius to 1 km.
	ResetFilters struct{}
	// SearchText shows the text matches of Query. An empty query does nothing.
	SearchText struct{ Query string }
	// ShowDetails opens a provider. Center also moves the map to it.
	ShowDetails struct {
		ProviderID string
		Center     bool
	}
	// CloseDetails closes the open provider.
	CloseDetails struct{}
	// Login signs in and persists the session.
	Login struct{ Username, Password string }
	// Register creates an account and signs in as it.
	Register struct {
		Username, Password string
		Role               models.Role
	}
	Logout struct{}
	// ResetPassword replaces the password of Username.
	ResetPassword struct{ Username, NewPassword string }
	// SubmitReview reviews the open provider as the signed-in user.
	SubmitReview struct {
		Rating int
		Text   string
	}
	// SaveProvider creates the listing when Draft.ID is empty, updates it otherwise.
	SaveProvider struct{ Draft ProviderDraft }
	// DeleteProvider deletes ID, or the open provider when ID is empty.
	DeleteProvider struct{ ID string }
)

func (Refresh) command() {}
func (ApplyFilters) command() {}
func (SetAnchor) command() {}
func (ResetFilters) command() {}
func (SearchText) command() {}
func (ShowDetails) command() {}
func (CloseDetails) command() {}
func (Login) command() {}
func (Register) command() {}
func (Logout) command() {}
func (ResetPassword) command() {}
func (SubmitReview) command() {}
func (SaveProvider) command() {}
func (DeleteProvider) command() {}

// Controller owns the client state and applies commands to it. Network calls
// run outside the state lock.
type Controller struct {
	backend  Backend
	store    *Store
	mapSync  *MapSync
	sessions *SessionStore

	mu    sync.Mutex
	state State
}

// NewController restores the persisted session and draws the default radius.
// sessions may be nil to keep the session in memory only.
func NewController(backend Backend, store *Store, mapSync *MapSync, sessions *SessionStore) (*Controller, error) {
	c := &Controller{
		backend:  backend,
		store:    store,
		mapSync:  mapSync,
		sessions: sessions,
		state: State{
			Criteria: DefaultCriteria(),
			Mode:     ModeFilter,
			Visible:  []Provider{},
		},
	}
	if sessions != nil {
		session, err := sessions.Load()
		if err != nil {
			return nil, err
		}
		c.state.Session = session
	}
	c.mapSync.SetRadius(c.state.Criteria.Anchor, c.state.Criteria.RadiusKm)
	return c, nil
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Visible = copyProviders(c.state.Visible)
	if c.state.Session != nil {
		session := *c.state.Session
		s.Session = &session
	}
	return s
}

// Lookup finds a provider in the last fetched list, filtered out or not.
func (c *Controller) Lookup(id string) (Provider, bool) {
	return c.store.Lookup(id)
}

// Dispatch applies cmd. On error the visible state is left as it was.
func (c *Controller) Dispatch(ctx context.Context, cmd Command) error {
	switch cmd := cmd.(type) {
	case Refresh:
		return c.refresh(ctx)
	case ApplyFilters:
		return c.applyFilters(cmd)
	case SetAnchor:
		return c.setAnchor(cmd)
	case ResetFilters:
		c.mu.Lock()
		defer c.mu.Unlock()
		c.state.Criteria.Anchor = DefaultAnchor
		c.state.Criteria.RadiusKm = DefaultRadiusKm
		c.state.Mode = ModeFilter
		c.state.Query = ""
		c.mapSync.SetRadius(c.state.Criteria.Anchor, c.state.Criteria.RadiusKm)
		c.redrawLocked()
		return nil
	case SearchText:
		return c.search(cmd)
	case ShowDetails:
		return c.showDetails(cmd)
	case CloseDetails:
		c.mu.Lock()
		c.state.DetailID = ""
		c.mu.Unlock()
		return nil
	case Login:
		session, err := c.backend.Login(ctx, cmd.Username, cmd.Password)
		if err != nil {
			return err
		}
		return c.signIn(session)
	case Register:
		session, err := c.backend.Register(ctx, cmd.Username, cmd.Password, cmd.Role)
		if err != nil {
			return err
		}
		return c.signIn(session)
	case Logout:
		if c.sessions != nil {
			if err := c.sessions.Clear(); err != nil {
				return err
			}
		}
		c.mu.Lock()
		c.state.Session = nil
		c.mu.Unlock()
		return nil
	case ResetPassword:
		return c.backend.ResetPassword(ctx, cmd.Username, cmd.NewPassword)
	case SubmitReview:
		return c.submitReview(ctx, cmd)
	case SaveProvider:
		return c.saveProvider(ctx, cmd)
	case DeleteProvider:
		return c.deleteProvider(ctx, cmd)
	default:
		return fmt.Errorf("%w: %T", ErrInvalidCommand, cmd)
	}
}

func (c *Controller) refresh(ctx context.Context) error {
	_, err := c.store.Refresh(ctx)
	if errors.Is(err, ErrStaleResponse) {
		return nil
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redrawLocked()
	return nil
}

// refreshAfterMutation refreshes once a write succeeded. A failed refresh is
// logged only: the write happened and the next refresh will show it.
func (c *Controller) refreshAfterMutation(ctx context.Context, what string) {
	if err := c.refresh(ctx); err != nil {
		logrus.WithError(err).WithField("after", what).Warn("refresh after change failed")
	}
}

// redrawLocked recomputes the visible list from the latest snapshot with the
// current mode. Callers hold c.mu.
func (c *Controller) redrawLocked() {
	providers := c.store.Snapshot()
	var visible []Provider
	if c.state.Mode == ModeSearch {
		visible = Search(providers, c.state.Query)
	} else {
		visible = Filter(providers, c.state.Criteria)
	}
	c.state.Visible = visible
	c.mapSync.Sync(visible)

	if c.state.DetailID != "" {
		if _, ok := c.store.Lookup(c.state.DetailID); !ok {
			c.state.DetailID = ""
		}
	}
}

func (c *Controller) applyFilters(cmd ApplyFilters) error {
	if cmd.RadiusKm < 0 {
		return fmt.Errorf("%w: radius must not be negative", ErrInvalidCommand)
	}
	if cmd.MinRating < 0 || cmd.MinRating > 5 {
		return fmt.Errorf("%w: minimum rating must be between 0 and 5", ErrInvalidCommand)
	}
	service := strings.TrimSpace(cmd.Service)
	if service == "" {
		service = AllServices
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Criteria.Service = service
	c.state.Criteria.MinRating = cmd.MinRating
	c.state.Criteria.RadiusKm = cmd.RadiusKm
	c.state.Mode = ModeFilter
	c.state.Query = ""
	c.mapSync.SetRadius(c.state.Criteria.Anchor, c.state.Criteria.RadiusKm)
	c.redrawLocked()
	return nil
}

func (c *Controller) setAnchor(cmd SetAnchor) error {
	if !cmd.Point.Valid() {
		return fmt.Errorf("%w: anchor %v is not a valid coordinate", ErrInvalidCommand, cmd.Point)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Criteria.Anchor = cmd.Point
	c.mapSync.SetRadius(c.state.Criteria.Anchor, c.state.Criteria.RadiusKm)
	if c.state.Mode == ModeFilter {
		c.redrawLocked()
	}
	return nil
}

func (c *Controller) search(cmd SearchText) error {
	query := strings.TrimSpace(cmd.Query)
	if query == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Mode = ModeSearch
	c.state.Query = query
	c.redrawLocked()
	if len(c.state.Visible) > 0 {
		first := c.state.Visible[0].ID
		c.mapSync.Focus(first)
		c.state.DetailID = first
	}
	return nil
}

func (c *Controller) showDetails(cmd ShowDetails) error {
	if _, ok := c.store.Lookup(cmd.ProviderID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, cmd.ProviderID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.DetailID = cmd.ProviderID
	if cmd.Center {
		c.mapSync.Focus(cmd.ProviderID)
	}
	return nil
}

func (c *Controller) signIn(session Session) error {
	if c.sessions != nil {
		if err := c.sessions.Save(session); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.state.Session = &session
	c.mu.Unlock()
	logrus.WithFields(logrus.Fields{"username": session.Username, "role": session.Role}).Info("signed in")
	return nil
}

func (c *Controller) currentSession() (Session, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Session == nil {
		return Session{}, c.state.DetailID, false
	}
	return *c.state.Session, c.state.DetailID, true
}

func (c *Controller) submitReview(ctx context.Context, cmd SubmitReview) error {
	session, detailID, ok := c.currentSession()
	if !ok {
		return ErrNotSignedIn
	}
	if detailID == "" {
		return ErrNoProviderOpen
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return fmt.Errorf("%w: select a rating", ErrInvalidCommand)
	}
	text := strings.TrimSpace(cmd.Text)
	if text == "" {
		text = models.DefaultReviewText
	}

	rating, err := c.backend.SubmitReview(ctx, ReviewRequest{
		ProviderID: detailID,
		User:       session.Username,
		Rating:     cmd.Rating,
		Text:       text,
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"provider_id": detailID, "rating": rating}).Info("review submitted")

	c.mu.Lock()
	if c.state.DetailID == detailID {
		c.state.DetailID = ""
	}
	c.mu.Unlock()
	c.refreshAfterMutation(ctx, "review")
	return nil
}

func (c *Controller) saveProvider(ctx context.Context, cmd SaveProvider) error {
	session, _, ok := c.currentSession()
	if !ok {
		return ErrNotSignedIn
	}
	draft := cmd.Draft
	if draft.Lat == nil || draft.Lng == nil {
		return fmt.Errorf("%w: location is required", ErrInvalidCommand)
	}

	if draft.ID == "" {
		if !session.CanList() {
			return ErrForbidden
		}
		if draft.OwnerID == nil && session.Role != models.RoleAdmin {
			owner := session.ID
			draft.OwnerID = &owner
		}
		id, err := c.backend.CreateProvider(ctx, draft)
		if err != nil {
			return err
		}
		logrus.WithField("provider_id", id).Info("provider listed")
	} else {
		existing, ok := c.store.Lookup(draft.ID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownProvider, draft.ID)
		}
		if !session.CanManage(existing) {
			return ErrForbidden
		}
		if err := c.backend.UpdateProvider(ctx, draft); err != nil {
			return err
		}
	}
	c.refreshAfterMutation(ctx, "save provider")
	return nil
}

func (c *Controller) deleteProvider(ctx context.Context, cmd DeleteProvider) error {
	session, detailID, ok := c.currentSession()
	if !ok {
		return ErrNotSignedIn
	}
	id := cmd.ID
	if id == "" {
		id = detailID
	}
	if id == "" {
		return ErrNoProviderOpen
	}
	existing, known := c.store.Lookup(id)
	if !known && session.Role != models.RoleAdmin {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, id)
	}
	if known && !session.CanManage(existing) {
		return ErrForbidden
	}

	if err := c.backend.DeleteProvider(ctx, id); err != nil {
		return err
	}
	c.mu.Lock()
	if c.state.DetailID == id {
		c.state.DetailID = ""
	}
	c.mu.Unlock()
	c.refreshAfterMutation(ctx, "delete provider")
	return nil
}
