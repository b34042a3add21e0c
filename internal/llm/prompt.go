package llm

const layoutSystemPrompt = `You are an event planning assistant specializing in seating layouts for venues and event types.
Generate an optimized seating layout that maximizes audience flow, keeps clear sightlines to the stage and follows every safety requirement.
Consider seat allocation for the seating type and constraints, adequate aisle width, sightlines, emergency exits and evacuation routes.
Return ONLY valid JSON with keys: layoutDescription (string, detailed description of the layout), layoutDiagram (string, a data URI of the form data:<mimetype>;base64,<encoded_data>, or empty if you cannot draw one), optimizationRationale (string, why the layout is optimal).`

// layoutUserTemplate is an eino FString template; keys match LayoutRequest's JSON names.
const layoutUserTemplate = `Venue Data: {venueData}
Audience Data: {audienceData}
Seating Type: {seatingType}
Seat Constraints: {seatConstraints}
Safety Requirements: {safetyRequirements}`

func (r LayoutRequest) templateVars() map[string]any {
	return map[string]any{
		"venueData":          r.VenueData,
		"audienceData":       r.AudienceData,
		"seatingType":        r.SeatingType,
		"seatConstraints":    r.SeatConstraints,
		"safetyRequirements": r.SafetyRequirements,
	}
}
