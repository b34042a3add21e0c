package designer

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// eventLog records widget lifecycle calls in order across handles.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.events...)
}

type fakeFactory struct {
	log            *eventLog
	newErr         error
	renderErr      error
	destroyErr     error
	panicOnDestroy bool

	mu       sync.Mutex
	newCalls int
	configs  []WidgetConfig
	handles  []*fakeHandle
	widgets  []*fakeWidget
}

func newFakeFactory() *fakeFactory { return &fakeFactory{log: &eventLog{}} }

func (f *fakeFactory) NewWidget(cfg WidgetConfig) (Widget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.newCalls++
	f.configs = append(f.configs, cfg)
	if f.newErr != nil {
		return nil, f.newErr
	}
	w := &fakeWidget{factory: f, cfg: cfg}
	f.widgets = append(f.widgets, w)
	return w, nil
}

func (f *fakeFactory) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newCalls
}

func (f *fakeFactory) builtHandles() []*fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeHandle{}, f.handles...)
}

func (f *fakeFactory) lastWidget() *fakeWidget {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.widgets) == 0 {
		return nil
	}
	return f.widgets[len(f.widgets)-1]
}

type fakeWidget struct {
	factory  *fakeFactory
	cfg      WidgetConfig
	onChange func()
}

func (w *fakeWidget) OnSelectionChanged(fn func()) { w.onChange = fn }

func (w *fakeWidget) Render(container string) (Handle, error) {
	f := w.factory
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	f.mu.Lock()
	h := &fakeHandle{id: len(f.handles) + 1, log: f.log, destroyErr: f.destroyErr, panicOnDestroy: f.panicOnDestroy}
	f.handles = append(f.handles, h)
	f.mu.Unlock()
	f.log.add("render:%d", h.id)
	return h, nil
}

// changeSelection simulates a user clicking seats in the embedded widget.
func (w *fakeWidget) changeSelection(h *fakeHandle, labels ...string) {
	h.setSelected(labels...)
	if w.onChange != nil {
		w.onChange()
	}
}

type fakeHandle struct {
	id             int
	log            *eventLog
	destroyErr     error
	panicOnDestroy bool

	mu       sync.Mutex
	destroys int
	selected []string
	listErrs []error
}

func (h *fakeHandle) Destroy() error {
	h.mu.Lock()
	h.destroys++
	h.mu.Unlock()
	h.log.add("destroy:%d", h.id)
	if h.panicOnDestroy {
		panic("widget already detached")
	}
	return h.destroyErr
}

func (h *fakeHandle) ListSelected(ctx context.Context) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.listErrs) > 0 {
		err := h.listErrs[0]
		h.listErrs = h.listErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return append([]string{}, h.selected...), nil
}

func (h *fakeHandle) setSelected(labels ...string) {
	h.mu.Lock()
	h.selected = labels
	h.mu.Unlock()
}

func (h *fakeHandle) destroyCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroys
}

var errCDNDown = errors.New("cdn unreachable")

// scriptedLoader fails for the regions in failing and installs factory on success.
type scriptedLoader struct {
	globals *Globals
	factory Factory
	failing map[Region]bool
	gate    chan struct{}
	entered chan Region

	mu    sync.Mutex
	calls []Region
}

func newScriptedLoader(g *Globals, f Factory, failing ...Region) *scriptedLoader {
	l := &scriptedLoader{globals: g, factory: f, failing: map[Region]bool{}}
	for _, r := range failing {
		l.failing[r] = true
	}
	return l
}

func (l *scriptedLoader) Load(ctx context.Context, region Region) error {
	l.mu.Lock()
	l.calls = append(l.calls, region)
	l.mu.Unlock()
	if l.entered != nil {
		l.entered <- region
	}
	if l.gate != nil {
		<-l.gate
	}
	if l.failing[region] {
		return fmt.Errorf("%w: %s: %w", ErrLoad, region, errCDNDown)
	}
	l.globals.Install(l.factory)
	return nil
}

func (l *scriptedLoader) attempted() []Region {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Region{}, l.calls...)
}
