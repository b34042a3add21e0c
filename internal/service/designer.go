package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jask/eventdesk/internal/designer"
)

// RegionMemory remembers the last region whose script loaded.
type RegionMemory interface {
	LastRegion() (string, error)
	SaveLastRegion(region string) error
}

// Selector feeds object selection from the browser shim into the widget.
type Selector interface {
	Select(ctx context.Context, container, label string) error
	Deselect(ctx context.Context, container, label string) error
}

// OpenDesignerInput is the open request. Empty Container allocates a new one;
// empty Region starts from StartRegion.
type OpenDesignerInput struct {
	Container   string `json:"container"`
	Region      string `json:"region"`
	Mode        string `json:"mode"`
	MaxSelected int    `json:"maxSelected"`
}

// DesignerService binds designer containers to events and their owners.
type DesignerService struct {
	Events      *EventService
	Hub         *designer.Hub
	SecretKey   string
	StartRegion func(remembered string) designer.Region
	Prefs       RegionMemory
	Relay       Selector
	OpenTimeout time.Duration
	Log         zerolog.Logger

	mu     sync.Mutex
	owners map[string]designerOwner
}

type designerOwner struct {
	owner   string
	eventID string
}

// Open embeds the designer for eventID. When OpenTimeout passes first the
// status is returned without error and the load continues in the background.
func (s *DesignerService) Open(ctx context.Context, owner, eventID string, in OpenDesignerInput) (designer.Status, error) {
	ev, err := s.Events.Get(ctx, owner, eventID)
	if err != nil {
		return designer.Status{}, err
	}
	mode := designer.Mode(strings.ToLower(strings.TrimSpace(in.Mode)))
	switch mode {
	case "", designer.ModeDesigner, designer.ModeSelect, designer.ModeStatic:
	default:
		return designer.Status{}, &ValidationError{Fields: map[string]string{"mode": "must be designer, select or static"}}
	}
	if in.MaxSelected < 0 {
		return designer.Status{}, &ValidationError{Fields: map[string]string{"maxSelected": "must not be negative"}}
	}

	container := strings.TrimSpace(in.Container)
	if container == "" {
		container = designer.NewContainerID()
	}
	fresh, err := s.claim(container, owner, eventID)
	if err != nil {
		return designer.Status{}, err
	}

	region := designer.Region(strings.TrimSpace(in.Region))
	if region == "" {
		region = s.startRegion()
	}

	openCtx := ctx
	if s.OpenTimeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, s.OpenTimeout)
		defer cancel()
	}
	st, err := s.Hub.Open(openCtx, container, designer.OpenParams{
		ChartKey:    ev.ChartKey,
		SecretKey:   s.SecretKey,
		Region:      region,
		Mode:        mode,
		MaxSelected: in.MaxSelected,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			s.Log.Info().Str("container", container).Msg("designer still loading")
			return st, nil
		}
		if _, known := s.Hub.Status(container); fresh && !known {
			s.release(container)
		}
		return st, err
	}
	if s.Prefs != nil {
		if err := s.Prefs.SaveLastRegion(string(st.Region)); err != nil {
			s.Log.Warn().Err(err).Msg("remember designer region")
		}
	}
	return st, nil
}

// Close tears down container. Closing an unknown container is not an error.
func (s *DesignerService) Close(ctx context.Context, owner, eventID, container string) error {
	if _, err := s.Events.Get(ctx, owner, eventID); err != nil {
		return err
	}
	if err := s.check(container, owner); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	s.mu.Lock()
	cur := s.owners[container]
	s.mu.Unlock()
	if cur.eventID != eventID {
		return fmt.Errorf("designer %s for event %s: %w", container, eventID, ErrNotFound)
	}
	s.Hub.Close(container)
	s.release(container)
	return nil
}

func (s *DesignerService) Status(owner, container string) (designer.Status, error) {
	if err := s.check(container, owner); err != nil {
		return designer.Status{}, err
	}
	st, ok := s.Hub.Status(container)
	if !ok {
		return designer.Status{}, fmt.Errorf("designer %s: %w", container, ErrNotFound)
	}
	return st, nil
}

func (s *DesignerService) Select(ctx context.Context, owner, container, label string) error {
	if err := s.check(container, owner); err != nil {
		return err
	}
	if s.Relay == nil {
		return fmt.Errorf("%w: selection relay not configured", designer.ErrConfiguration)
	}
	return s.Relay.Select(ctx, container, label)
}

func (s *DesignerService) Deselect(ctx context.Context, owner, container, label string) error {
	if err := s.check(container, owner); err != nil {
		return err
	}
	if s.Relay == nil {
		return fmt.Errorf("%w: selection relay not configured", designer.ErrConfiguration)
	}
	return s.Relay.Deselect(ctx, container, label)
}

// CloseAll tears down every container; used on shutdown.
func (s *DesignerService) CloseAll() {
	s.Hub.CloseAll()
	s.mu.Lock()
	s.owners = nil
	s.mu.Unlock()
}

// claim binds container to owner. fresh reports whether the container was
// unclaimed before this call.
func (s *DesignerService) claim(container, owner, eventID string) (fresh bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.owners[container]
	if ok && cur.owner != owner {
		return false, fmt.Errorf("designer %s: %w", container, ErrForbidden)
	}
	if s.owners == nil {
		s.owners = map[string]designerOwner{}
	}
	s.owners[container] = designerOwner{owner: owner, eventID: eventID}
	return !ok, nil
}

func (s *DesignerService) release(container string) {
	s.mu.Lock()
	delete(s.owners, container)
	s.mu.Unlock()
}

func (s *DesignerService) check(container, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.owners[container]
	if !ok {
		return fmt.Errorf("designer %s: %w", container, ErrNotFound)
	}
	if cur.owner != owner {
		return fmt.Errorf("designer %s: %w", container, ErrForbidden)
	}
	return nil
}

func (s *DesignerService) startRegion() designer.Region {
	var remembered string
	if s.Prefs != nil {
		r, err := s.Prefs.LastRegion()
		if err != nil {
			s.Log.Debug().Err(err).Msg("no remembered designer region")
		}
		remembered = r
	}
	if s.StartRegion != nil {
		return s.StartRegion(remembered)
	}
	return designer.Region(remembered)
}
