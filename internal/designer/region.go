package designer

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Region selects one of the vendor's geographic CDN endpoints.
type Region string

const (
	RegionNA Region = "na"
	RegionEU Region = "eu"
	RegionSA Region = "sa"
	RegionOC Region = "oc"
)

// DefaultScriptURLTemplate is the vendor designer script; {region} is the only variable segment.
const DefaultScriptURLTemplate = "https://cdn-{region}.seatsio.net/designer.js"

// RegionSet is an ordered fallback sequence.
type RegionSet []Region

// DefaultRegions is the vendor's supported endpoints in fallback order.
var DefaultRegions = RegionSet{RegionNA, RegionEU, RegionSA, RegionOC}

func (s RegionSet) Index(r Region) int {
	for i, candidate := range s {
		if candidate == r {
			return i
		}
	}
	return -1
}

func (s RegionSet) Contains(r Region) bool { return s.Index(r) >= 0 }

// Successor returns the region after r, if any.
func (s RegionSet) Successor(r Region) (Region, bool) {
	i := s.Index(r)
	if i < 0 || i+1 >= len(s) {
		return "", false
	}
	return s[i+1], true
}

// Nearest returns the member of s closest to name by edit distance.
func (s RegionSet) Nearest(name string) Region {
	name = strings.ToLower(strings.TrimSpace(name))
	var best Region
	bestDist := -1
	for _, r := range s {
		d := levenshtein.ComputeDistance(name, string(r))
		if bestDist < 0 || d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

// Parse normalises name and checks membership. Unknown names report the nearest valid region.
func (s RegionSet) Parse(name string) (Region, error) {
	r := Region(strings.ToLower(strings.TrimSpace(name)))
	if s.Contains(r) {
		return r, nil
	}
	if len(s) == 0 {
		return "", fmt.Errorf("%w: %q (no regions configured)", ErrUnknownRegion, name)
	}
	return "", fmt.Errorf("%w: %q (did you mean %q?)", ErrUnknownRegion, name, s.Nearest(name))
}

// ParseRegions parses an ordered list, rejecting duplicates.
func ParseRegions(names []string) (RegionSet, error) {
	out := make(RegionSet, 0, len(names))
	for _, n := range names {
		r, err := DefaultRegions.Parse(n)
		if err != nil {
			return nil, err
		}
		if out.Contains(r) {
			return nil, fmt.Errorf("duplicate region %q", r)
		}
		out = append(out, r)
	}
	return out, nil
}

// ScriptURL expands the {region} placeholder of template.
func ScriptURL(template string, r Region) string {
	if template == "" {
		template = DefaultScriptURLTemplate
	}
	return strings.ReplaceAll(template, "{region}", string(r))
}
