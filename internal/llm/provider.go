package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LayoutProvider generates seating layout suggestions.
type LayoutProvider interface {
	SuggestLayout(ctx context.Context, req LayoutRequest) (LayoutResponse, error)
}

// SeatingTypes are the accepted LayoutRequest.SeatingType values.
var SeatingTypes = []string{"conference", "theater", "classroom", "banquet"}

type LayoutRequest struct {
	VenueData          string `json:"venueData"`
	AudienceData       string `json:"audienceData"`
	SeatingType        string `json:"seatingType"`
	SeatConstraints    string `json:"seatConstraints"`
	SafetyRequirements string `json:"safetyRequirements"`
}

// LayoutResponse carries a textual layout, a diagram as a data URI and the
// reasoning behind it.
type LayoutResponse struct {
	LayoutDescription     string `json:"layoutDescription"`
	LayoutDiagram         string `json:"layoutDiagram"`
	OptimizationRationale string `json:"optimizationRationale"`
}

var ErrNoAPIKey = errors.New("llm: api key not configured")

// Options selects and configures a provider.
type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the provider named by opts.Provider.
func New(ctx context.Context, opts Options) (LayoutProvider, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "heuristic":
		return NewHeuristicProvider(), nil
	case "openai":
		return NewOpenAIProvider(opts.APIKey, opts.Model, opts.BaseURL, opts.Timeout), nil
	case "eino":
		return NewEinoOpenAIProvider(ctx, opts)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
	}
}
