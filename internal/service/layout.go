package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jask/eventdesk/internal/llm"
)

const minLayoutField = 10

// LayoutService validates seating layout requests and the provider's answer.
type LayoutService struct {
	Provider llm.LayoutProvider
	Log      zerolog.Logger
}

func (s *LayoutService) Suggest(ctx context.Context, req llm.LayoutRequest) (llm.LayoutResponse, error) {
	if s.Provider == nil {
		return llm.LayoutResponse{}, fmt.Errorf("layout: provider not configured")
	}
	req.SeatingType = strings.ToLower(strings.TrimSpace(req.SeatingType))

	var v validator
	for _, f := range []struct {
		name, value string
	}{
		{"venueData", req.VenueData},
		{"audienceData", req.AudienceData},
		{"seatConstraints", req.SeatConstraints},
		{"safetyRequirements", req.SafetyRequirements},
	} {
		v.check(len([]rune(strings.TrimSpace(f.value))) >= minLayoutField, f.name,
			fmt.Sprintf("must be at least %d characters", minLayoutField))
	}
	v.check(containsFold(llm.SeatingTypes, req.SeatingType), "seatingType",
		"must be one of "+strings.Join(llm.SeatingTypes, ", "))
	if err := v.err(); err != nil {
		return llm.LayoutResponse{}, err
	}

	resp, err := s.Provider.SuggestLayout(ctx, req)
	if err != nil {
		return llm.LayoutResponse{}, fmt.Errorf("suggest layout: %w", err)
	}
	resp.LayoutDescription = strings.TrimSpace(resp.LayoutDescription)
	resp.OptimizationRationale = strings.TrimSpace(resp.OptimizationRationale)
	if resp.LayoutDescription == "" || resp.OptimizationRationale == "" {
		return llm.LayoutResponse{}, fmt.Errorf("suggest layout: provider returned an incomplete layout")
	}
	if resp.LayoutDiagram != "" && !llm.ValidDataURI(resp.LayoutDiagram) {
		s.Log.Warn().Int("len", len(resp.LayoutDiagram)).Msg("dropping invalid layout diagram")
		resp.LayoutDiagram = ""
	}
	return resp, nil
}
