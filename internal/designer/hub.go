package designer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Hub keeps one Controller per container identity, so two sessions can never
// share a container.
type Hub struct {
	loader Loader
	opts   []Option

	mu          sync.Mutex
	controllers map[string]*Controller
}

func NewHub(loader Loader, opts ...Option) *Hub {
	return &Hub{loader: loader, opts: opts, controllers: map[string]*Controller{}}
}

// NewContainerID returns a fresh opaque container identity.
func NewContainerID() string {
	return "chart-designer-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Open opens the designer in container, creating its controller on first use.
// A container is only registered once its params are valid, so a rejected
// first open leaves nothing behind.
func (h *Hub) Open(ctx context.Context, container string, p OpenParams) (Status, error) {
	container = strings.TrimSpace(container)
	if container == "" {
		return Status{}, fmt.Errorf("%w: container is empty", ErrConfiguration)
	}
	h.mu.Lock()
	c, ok := h.controllers[container]
	h.mu.Unlock()
	if !ok {
		nc := NewController(container, h.loader, h.opts...)
		if _, err := nc.normalize(p); err != nil {
			return nc.reject(p, err)
		}
		h.mu.Lock()
		if c, ok = h.controllers[container]; !ok {
			c = nc
			h.controllers[container] = c
		}
		h.mu.Unlock()
	}
	return c.Open(ctx, p)
}

// Close tears down container's session. It reports whether the container was known.
func (h *Hub) Close(container string) bool {
	h.mu.Lock()
	c, ok := h.controllers[container]
	delete(h.controllers, container)
	h.mu.Unlock()
	if ok {
		c.retire()
	}
	return ok
}

func (h *Hub) Status(container string) (Status, bool) {
	h.mu.Lock()
	c, ok := h.controllers[container]
	h.mu.Unlock()
	if !ok {
		return Status{}, false
	}
	return c.Status(), true
}

// Containers lists open containers, sorted.
func (h *Hub) Containers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.controllers))
	for k := range h.controllers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CloseAll tears down every container; used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	cs := h.controllers
	h.controllers = map[string]*Controller{}
	h.mu.Unlock()
	for _, c := range cs {
		c.retire()
	}
}
