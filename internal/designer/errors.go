package designer

import "errors"

// Error kinds. Callers match with errors.Is; the concrete errors wrap one of these.
var (
	// ErrConfiguration: missing credential or chart key, or the library loaded without
	// installing its factory. Fatal to the open attempt.
	ErrConfiguration = errors.New("designer: configuration error")
	// ErrLoad: the script failed for one region.
	ErrLoad = errors.New("designer: script load failed")
	// ErrRegionsExhausted: every region in the fallback sequence failed.
	ErrRegionsExhausted = errors.New("designer: all regions failed")
	// ErrConstruction: the factory failed while building or rendering the widget.
	ErrConstruction = errors.New("designer: construction failed")
	// ErrTeardown and ErrQuerySync are only ever logged.
	ErrTeardown  = errors.New("designer: teardown failed")
	ErrQuerySync = errors.New("designer: selection query failed")

	ErrSessionClosed = errors.New("designer: session closed")
	ErrUnknownRegion = errors.New("designer: unknown region")
)
