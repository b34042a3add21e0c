package designer

import (
	"context"
	"sync"
)

// Mode mirrors the vendor widget modes.
type Mode string

const (
	ModeDesigner Mode = "designer"
	ModeSelect   Mode = "select"
	ModeStatic   Mode = "static"
)

// DefaultFeatures are the drawing tools enabled in the designer.
var DefaultFeatures = []string{"ROWS", "TABLES", "BOOTHS", "GENERAL_ADMISSION", "FOCAL_POINT"}

// WidgetConfig is what the factory receives for one construction.
type WidgetConfig struct {
	Container   string
	ChartKey    string
	SecretKey   string
	Region      Region
	Language    string
	Features    []string
	Mode        Mode
	MaxSelected int
}

// Factory is the capability the vendor script installs once loaded.
type Factory interface {
	NewWidget(cfg WidgetConfig) (Widget, error)
}

// Widget is a constructed but not yet rendered designer.
type Widget interface {
	// OnSelectionChanged registers fn for both select and deselect events.
	// The widget does not say what changed.
	OnSelectionChanged(fn func())
	Render(container string) (Handle, error)
}

// Handle is a rendered widget owned by exactly one session.
type Handle interface {
	Destroy() error
	ListSelected(ctx context.Context) ([]string, error)
}

// Globals is the process-wide slot the vendor library installs its factory
// into. It starts empty, is set at most once and is never reset.
type Globals struct {
	mu      sync.RWMutex
	factory Factory
}

var processGlobals = &Globals{}

// ProcessGlobals returns the slot shared by every loader in this process.
func ProcessGlobals() *Globals { return processGlobals }

func (g *Globals) Factory() (Factory, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.factory, g.factory != nil
}

// Install stores f unless a factory is already present; it reports whether f was stored.
func (g *Globals) Install(f Factory) bool {
	if f == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.factory != nil {
		return false
	}
	g.factory = f
	return true
}
