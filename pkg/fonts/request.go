package fonts

import (
	"fmt"
	"strconv"
)

// Family names as referenced by markup.
const (
	FamilyUI      = "Satoshi"
	FamilyDisplay = "Saint"
)

// Font styles.
const (
	StyleNormal = "normal"
	StyleItalic = "italic"
)

// Request describes one usage site: a face at an exact size. Some render
// surfaces only materialize a face once a matching size is requested, so
// every distinct size is loaded separately.
type Request struct {
	Family string  `json:"family"`
	Weight int     `json:"weight"`
	Style  string  `json:"style"`
	Size   float64 `json:"size"`
}

// Key identifies the request for deduplication.
func (r Request) Key() string {
	return fmt.Sprintf("%s/%d/%s/%s", r.Family, r.Weight, r.style(), strconv.FormatFloat(r.Size, 'f', -1, 64))
}

// CSS returns the font shorthand, e.g. `italic 700 100px "Satoshi"`.
func (r Request) CSS() string {
	return fmt.Sprintf(`%s %d %spx "%s"`, r.style(), r.weight(), strconv.FormatFloat(r.Size, 'f', -1, 64), r.Family)
}

func (r Request) style() string {
	if r.Style == "" {
		return StyleNormal
	}
	return r.Style
}

func (r Request) weight() int {
	if r.Weight == 0 {
		return 400
	}
	return r.Weight
}

// Dedupe returns reqs without repeated keys, keeping first occurrences.
func Dedupe(reqs []Request) []Request {
	seen := make(map[string]bool, len(reqs))
	out := make([]Request, 0, len(reqs))
	for _, r := range reqs {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, r)
	}
	return out
}
