package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jask/eventdesk/internal/designer"
)

var (
	ErrNotRendered = errors.New("relay: no designer rendered in container")
	ErrReadOnly    = errors.New("relay: chart is read-only")
	ErrLimit       = errors.New("relay: selection limit reached")
	ErrEmptyLabel  = errors.New("relay: object label is empty")
)

// Factory is the designer.Factory installed once the vendor script loads.
// Every rendered widget is registered by container so that object clicks
// coming back from the browser can be applied to the right selection.
type Factory struct {
	store Store
	log   zerolog.Logger

	mu       sync.Mutex
	rendered map[string]*handle
}

func NewFactory(store Store, log zerolog.Logger) *Factory {
	return &Factory{store: store, log: log, rendered: map[string]*handle{}}
}

func (f *Factory) NewWidget(cfg designer.WidgetConfig) (designer.Widget, error) {
	if strings.TrimSpace(cfg.ChartKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("chart key and secret key are required")
	}
	return &widget{factory: f, cfg: cfg}, nil
}

// Select adds label to container's selection and announces the change.
func (f *Factory) Select(ctx context.Context, container, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}
	f.mu.Lock()
	h, ok := f.rendered[container]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRendered, container)
	}
	if h.cfg.Mode == designer.ModeStatic {
		f.mu.Unlock()
		return ErrReadOnly
	}
	if limit := h.cfg.MaxSelected; limit > 0 {
		n, err := f.store.Count(ctx, container)
		if err != nil {
			f.mu.Unlock()
			return err
		}
		if n >= limit {
			members, err := f.store.Members(ctx, container)
			if err != nil {
				f.mu.Unlock()
				return err
			}
			if !contains(members, label) {
				f.mu.Unlock()
				return fmt.Errorf("%w (%d)", ErrLimit, limit)
			}
		}
	}
	added, err := f.store.Add(ctx, container, label)
	f.mu.Unlock()
	if err != nil || !added {
		return err
	}
	return f.store.Publish(ctx, container)
}

// Deselect removes label from container's selection and announces the change.
func (f *Factory) Deselect(ctx context.Context, container, label string) error {
	f.mu.Lock()
	h, ok := f.rendered[container]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRendered, container)
	}
	if h.cfg.Mode == designer.ModeStatic {
		return ErrReadOnly
	}
	removed, err := f.store.Remove(ctx, container, strings.TrimSpace(label))
	if err != nil || !removed {
		return err
	}
	return f.store.Publish(ctx, container)
}

func (f *Factory) register(h *handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.rendered[h.cfg.Container]; taken {
		return fmt.Errorf("container %s already holds a designer", h.cfg.Container)
	}
	f.rendered[h.cfg.Container] = h
	return nil
}

func (f *Factory) unregister(h *handle) {
	f.mu.Lock()
	if f.rendered[h.cfg.Container] == h {
		delete(f.rendered, h.cfg.Container)
	}
	f.mu.Unlock()
}

type widget struct {
	factory  *Factory
	cfg      designer.WidgetConfig
	onChange func()
}

func (w *widget) OnSelectionChanged(fn func()) { w.onChange = fn }

func (w *widget) Render(container string) (designer.Handle, error) {
	if container != w.cfg.Container {
		return nil, fmt.Errorf("render into %s: widget was built for %s", container, w.cfg.Container)
	}
	h := &handle{factory: w.factory, cfg: w.cfg}
	if err := w.factory.register(h); err != nil {
		return nil, err
	}
	ctx := context.Background()
	if err := w.factory.store.Clear(ctx, container); err != nil {
		w.factory.log.Warn().Err(err).Str("container", container).Msg("clear stale selection")
	}
	notify := w.onChange
	if notify == nil {
		notify = func() {}
	}
	unsub, err := w.factory.store.Subscribe(ctx, container, notify)
	if err != nil {
		w.factory.unregister(h)
		return nil, err
	}
	h.unsubscribe = unsub
	w.factory.log.Debug().Str("container", container).Str("mode", string(w.cfg.Mode)).Msg("widget rendered")
	return h, nil
}

type handle struct {
	factory     *Factory
	cfg         designer.WidgetConfig
	unsubscribe func() error

	once sync.Once
}

func (h *handle) Destroy() error {
	var err error
	h.once.Do(func() {
		h.factory.unregister(h)
		err = errors.Join(h.unsubscribe(), h.factory.store.Clear(context.Background(), h.cfg.Container))
	})
	return err
}

func (h *handle) ListSelected(ctx context.Context) ([]string, error) {
	return h.factory.store.Members(ctx, h.cfg.Container)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
