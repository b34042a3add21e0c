package designer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fetches the vendor script for one region. A nil error means the
// library executed and, for a well-behaved vendor, installed its factory.
type Loader interface {
	Load(ctx context.Context, region Region) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, region Region) error

func (f LoaderFunc) Load(ctx context.Context, region Region) error { return f(ctx, region) }

// HTTPLoader fetches the region's script over HTTP and, on a 2xx response,
// installs Factory into Globals. Concurrent loads of one region share a
// single request.
type HTTPLoader struct {
	Client      *http.Client
	URLTemplate string
	Timeout     time.Duration
	Globals     *Globals
	Factory     Factory

	group singleflight.Group
}

func (l *HTTPLoader) Load(ctx context.Context, region Region) error {
	_, err, _ := l.group.Do(string(region), func() (any, error) {
		return nil, l.fetch(ctx, region)
	})
	return err
}

func (l *HTTPLoader) fetch(ctx context.Context, region Region) error {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := ScriptURL(l.URLTemplate, region)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoad, region, err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoad, region, err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, 8<<20)); err != nil {
		return fmt.Errorf("%w: %s: read body: %w", ErrLoad, region, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: http %d", ErrLoad, region, resp.StatusCode)
	}

	globals := l.Globals
	if globals == nil {
		globals = ProcessGlobals()
	}
	globals.Install(l.Factory)
	return nil
}
