package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// HeuristicProvider is an offline, deterministic layout generator. It reads
// the attendee count and row limits out of the free text and draws a simple
// SVG plan, so the dashboard works without an API key.
type HeuristicProvider struct{}

func NewHeuristicProvider() *HeuristicProvider { return &HeuristicProvider{} }

var (
	numberRe     = regexp.MustCompile(`\d[\d,]*`)
	perRowRe     = regexp.MustCompile(`(\d+)\s*(?:seats?\s*)?(?:per|a|each)\s*row`)
	rowMaxRe     = regexp.MustCompile(`(?:row[s]?\s*(?:of|length|max(?:imum)?)?\s*(?:of\s*)?(?:up to\s*)?)(\d+)`)
	defaultCount = 100
)

type plan struct {
	seatingType string
	attendees   int
	perRow      int
	rows        int
	aisles      int
	tables      int
}

func (h *HeuristicProvider) SuggestLayout(ctx context.Context, req LayoutRequest) (LayoutResponse, error) {
	if err := ctx.Err(); err != nil {
		return LayoutResponse{}, err
	}
	p := planFor(req)
	return LayoutResponse{
		LayoutDescription:     p.describe(),
		LayoutDiagram:         EncodeDataURI("image/svg+xml", []byte(p.svg())),
		OptimizationRationale: p.rationale(req),
	}, nil
}

func planFor(req LayoutRequest) plan {
	p := plan{seatingType: strings.ToLower(strings.TrimSpace(req.SeatingType))}
	p.attendees = firstNumber(req.AudienceData)
	if p.attendees <= 0 {
		p.attendees = defaultCount
	}
	p.perRow = rowLimit(strings.ToLower(req.SeatConstraints))
	switch p.seatingType {
	case "banquet":
		p.perRow = 10
		p.tables = ceilDiv(p.attendees, p.perRow)
		p.rows = ceilDiv(p.tables, 5)
		p.aisles = 1
		return p
	case "classroom":
		if p.perRow <= 0 || p.perRow > 12 {
			p.perRow = 8
		}
	case "conference":
		if p.perRow <= 0 {
			p.perRow = 12
		}
	default:
		if p.perRow <= 0 {
			p.perRow = 20
		}
	}
	p.rows = ceilDiv(p.attendees, p.perRow)
	p.aisles = 1
	if p.perRow > 14 {
		p.aisles = 2
	}
	return p
}

func (p plan) describe() string {
	if p.seatingType == "banquet" {
		return fmt.Sprintf("Banquet layout for %d guests: %d round tables of %d arranged in %d rows, with a central service aisle and clear access to every table.",
			p.attendees, p.tables, p.perRow, p.rows)
	}
	kind := p.seatingType
	if kind == "" {
		kind = "theater"
	}
	return fmt.Sprintf("%s layout for %d attendees: %d rows of up to %d seats facing the stage, split by %d aisle(s), with cross aisles every 10 rows.",
		capitalize(kind), p.attendees, p.rows, p.perRow, p.aisles)
}

func (p plan) rationale(req LayoutRequest) string {
	var b strings.Builder
	b.WriteString("Rows are sized to respect the stated seat constraints while keeping every seat within easy reach of an aisle, ")
	b.WriteString("which shortens evacuation paths and keeps sightlines to the stage unobstructed.")
	if s := strings.TrimSpace(req.SafetyRequirements); s != "" {
		b.WriteString(" Safety requirements considered: ")
		b.WriteString(s)
		if !strings.HasSuffix(s, ".") {
			b.WriteString(".")
		}
	}
	return b.String()
}

// svg draws at most 20 rows; larger plans are summarised in the caption.
func (p plan) svg() string {
	const seat, gap, margin = 10, 4, 20
	rows := min(p.rows, 20)
	cols := p.perRow
	rowHeight := seat + gap
	if p.seatingType == "banquet" {
		cols = 5
		rowHeight *= 3
	}
	width := margin*2 + cols*(seat+gap) + p.aisles*seat*2
	height := margin*3 + 30 + rows*rowHeight

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="20" fill="#444"/>`, margin, margin, width-2*margin)
	fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="10" fill="#fff" text-anchor="middle">STAGE</text>`, width/2, margin+14)

	top := margin*2 + 20
	if p.seatingType == "banquet" {
		n := 0
		for r := 0; r < rows && n < p.tables; r++ {
			for c := 0; c < cols && n < p.tables; c++ {
				cx := margin + c*(seat+gap)*3/2 + seat*2
				cy := top + r*rowHeight + seat
				fmt.Fprintf(&b, `<circle cx="%d" cy="%d" r="%d" fill="#8a6"/>`, cx, cy, seat)
				n++
			}
		}
	} else {
		block := ceilDiv(cols, p.aisles+1)
		for r := 0; r < rows; r++ {
			x := margin
			for c := 0; c < cols; c++ {
				if c > 0 && c%block == 0 {
					x += seat * 2
				}
				fmt.Fprintf(&b, `<rect x="%d" y="%d" width="%d" height="%d" fill="#68a"/>`, x, top+r*(seat+gap), seat, seat)
				x += seat + gap
			}
		}
	}
	fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="9" fill="#333">%d seats, %d rows</text>`, margin, height-6, p.attendees, p.rows)
	b.WriteString(`</svg>`)
	return b.String()
}

func firstNumber(s string) int {
	m := numberRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

func rowLimit(s string) int {
	for _, re := range []*regexp.Regexp{perRowRe, rowMaxRe} {
		if m := re.FindStringSubmatch(s); len(m) == 2 {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n
			}
		}
	}
	return 0
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
