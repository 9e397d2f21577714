// Package search finds lesson subsections whose title or body contains a
// query, case-insensitively.
//
// There is no ranking: results follow catalog order, sections first and
// subsections within each section. A body match carries a short preview of
// the text around the first occurrence of the query.
package search

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/conneroisu/luatutor/internal/catalog"
)

const (
	// DefaultPreviewRadius is how many characters of context surround a match.
	DefaultPreviewRadius = 30
	// fallbackPreviewLen is used when a content match cannot be located.
	fallbackPreviewLen = 100
	ellipsis           = "..."
)

// MatchKind says where a query matched.
type MatchKind string

const (
	MatchTitle   MatchKind = "title"
	MatchContent MatchKind = "content"
)

// Match is one hit inside a subsection.
type Match struct {
	Kind MatchKind `json:"type"`
	Text string    `json:"text"`
}

// Result is a subsection with at least one match.
type Result struct {
	Section    *catalog.Section
	Subsection *catalog.Subsection
	Matches    []Match
}

// MarshalJSON renders a result with ids and titles only, not the full lesson text.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SectionID       string  `json:"section_id"`
		SectionTitle    string  `json:"section_title"`
		SubsectionID    string  `json:"subsection_id"`
		SubsectionTitle string  `json:"subsection_title"`
		Matches         []Match `json:"matches"`
	}{
		SectionID:       r.Section.ID,
		SectionTitle:    r.Section.Title,
		SubsectionID:    r.Subsection.ID,
		SubsectionTitle: r.Subsection.Title,
		Matches:         r.Matches,
	})
}

// Response is the outcome of one query. IsSearching is false only for an
// empty or whitespace-only query, which tells the idle state apart from a
// search that found nothing.
type Response struct {
	Query       string   `json:"query"`
	IsSearching bool     `json:"is_searching"`
	Results     []Result `json:"results"`
}

// Index holds case-folded copies of every subsection title and body. The
// catalog is immutable, so an Index never goes stale.
type Index struct {
	entries []entry
	radius  int
}

type entry struct {
	section    *catalog.Section
	subsection *catalog.Subsection
	title      string
	content    []rune
	lowerTitle string
	lowerBody  string
}

// Option configures an Index.
type Option func(*Index)

// WithPreviewRadius sets the number of characters kept on each side of a
// content match.
func WithPreviewRadius(n int) Option {
	return func(ix *Index) {
		if n >= 0 {
			ix.radius = n
		}
	}
}

// NewIndex builds an Index over tree.
func NewIndex(tree *catalog.Tree, opts ...Option) *Index {
	ix := &Index{radius: DefaultPreviewRadius}
	for _, opt := range opts {
		opt(ix)
	}
	tree.Walk(func(sec *catalog.Section, sub *catalog.Subsection) bool {
		ix.entries = append(ix.entries, entry{
			section:    sec,
			subsection: sub,
			title:      sub.Title,
			content:    []rune(sub.Content),
			lowerTitle: fold(sub.Title),
			lowerBody:  fold(sub.Content),
		})
		return true
	})
	return ix
}

// Search runs a one-off query over tree.
func Search(tree *catalog.Tree, query string) Response {
	return NewIndex(tree).Search(query)
}

// Len returns the number of indexed subsections.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Search returns every subsection whose title or body contains query.
func (ix *Index) Search(query string) Response {
	if strings.TrimSpace(query) == "" {
		return Response{Query: query}
	}

	q := fold(norm.NFC.String(query))
	resp := Response{Query: query, IsSearching: true, Results: []Result{}}
	for i := range ix.entries {
		e := &ix.entries[i]

		var matches []Match
		if strings.Contains(e.lowerTitle, q) {
			matches = append(matches, Match{Kind: MatchTitle, Text: e.title})
		}
		if strings.Contains(e.lowerBody, q) {
			matches = append(matches, Match{Kind: MatchContent, Text: ix.preview(e, q)})
		}
		if len(matches) > 0 {
			resp.Results = append(resp.Results, Result{
				Section:    e.section,
				Subsection: e.subsection,
				Matches:    matches,
			})
		}
	}
	return resp
}

// preview cuts a window of ix.radius characters either side of the first
// occurrence of q in the body. q must already be folded.
func (ix *Index) preview(e *entry, q string) string {
	byteIdx := strings.Index(e.lowerBody, q)
	if byteIdx < 0 {
		return fallback(e.content)
	}
	idx := utf8.RuneCountInString(e.lowerBody[:byteIdx])
	qLen := utf8.RuneCountInString(q)
	return Preview(e.content, idx, qLen, ix.radius)
}

// Preview extracts the text around content[idx:idx+n] with radius characters
// of context on each side, adding an ellipsis on each clipped side.
func Preview(content []rune, idx, n, radius int) string {
	start := max(0, idx-radius)
	end := min(len(content), idx+n+radius)

	var b strings.Builder
	if start > 0 {
		b.WriteString(ellipsis)
	}
	b.WriteString(string(content[start:end]))
	if end < len(content) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

func fallback(content []rune) string {
	if len(content) > fallbackPreviewLen {
		content = content[:fallbackPreviewLen]
	}
	return string(content) + ellipsis
}

// fold lower-cases s one rune at a time so that rune offsets in the folded
// string line up with the original.
func fold(s string) string {
	return strings.Map(unicode.ToLower, s)
}
