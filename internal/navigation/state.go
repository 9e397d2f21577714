// Package navigation tracks sidebar state: which sections are expanded and
// which subsection is active.
//
// State is request scoped. The server round-trips the expanded set through
// the "open" query parameter so that a page link preserves the sidebar.
package navigation

import (
	"net/url"
	"strings"

	"github.com/conneroisu/luatutor/internal/catalog"
)

// OpenParam is the query parameter holding the comma separated expanded set.
const OpenParam = "open"

// State is the sidebar state for one page view.
type State struct {
	tree     *catalog.Tree
	expanded map[string]bool

	ActiveSection    string
	ActiveSubsection string
}

// New returns the initial state: the first section expanded and its first
// subsection active.
func New(tree *catalog.Tree) *State {
	s := &State{tree: tree, expanded: make(map[string]bool)}
	if len(tree.Sections) > 0 {
		s.expanded[tree.Sections[0].ID] = true
	}
	if sec, sub, ok := tree.First(); ok {
		s.ActiveSection = sec.ID
		s.ActiveSubsection = sub.ID
	}
	return s
}

// FromQuery rebuilds state from request query values. A missing "open"
// parameter yields the default expanded set; a present but empty one means
// every section is collapsed. Unknown section ids are ignored.
func FromQuery(tree *catalog.Tree, q url.Values) *State {
	s := New(tree)
	if _, ok := q[OpenParam]; !ok {
		return s
	}
	s.expanded = make(map[string]bool)
	for _, id := range strings.Split(q.Get(OpenParam), ",") {
		id = strings.TrimSpace(id)
		if _, err := tree.Section(id); err == nil {
			s.expanded[id] = true
		}
	}
	return s
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	c := *s
	c.expanded = make(map[string]bool, len(s.expanded))
	for id := range s.expanded {
		c.expanded[id] = true
	}
	return &c
}

// Expanded reports whether the section is expanded.
func (s *State) Expanded(sectionID string) bool {
	return s.expanded[sectionID]
}

// ExpandedIDs returns the expanded section ids in catalog order.
func (s *State) ExpandedIDs() []string {
	ids := make([]string, 0, len(s.expanded))
	for _, sec := range s.tree.Sections {
		if s.expanded[sec.ID] {
			ids = append(ids, sec.ID)
		}
	}
	return ids
}

// Toggle flips the expansion of a section. Toggling twice restores the
// previous state.
func (s *State) Toggle(sectionID string) {
	if s.expanded[sectionID] {
		delete(s.expanded, sectionID)
		return
	}
	s.expanded[sectionID] = true
}

// Select makes a subsection active. The expanded set is left alone, so the
// active entry may sit inside a collapsed section.
func (s *State) Select(sectionID, subsectionID string) error {
	if _, _, err := s.tree.Subsection(sectionID, subsectionID); err != nil {
		return err
	}
	s.ActiveSection = sectionID
	s.ActiveSubsection = subsectionID
	return nil
}

// IsActive reports whether the given subsection is the active one.
func (s *State) IsActive(sectionID, subsectionID string) bool {
	return s.ActiveSection == sectionID && s.ActiveSubsection == subsectionID
}

// Query encodes the expanded set as query values.
func (s *State) Query() url.Values {
	return url.Values{OpenParam: []string{strings.Join(s.ExpandedIDs(), ",")}}
}

// ToggleQuery returns the query for the state reached by toggling sectionID,
// leaving s unchanged.
func (s *State) ToggleQuery(sectionID string) url.Values {
	c := s.Clone()
	c.Toggle(sectionID)
	return c.Query()
}

// Link builds the page path for a subsection carrying the current expanded set.
func (s *State) Link(sectionID, subsectionID string) string {
	return PagePath(sectionID, subsectionID) + "?" + s.Query().Encode()
}

// ToggleLink builds a link to the active page with sectionID toggled.
func (s *State) ToggleLink(sectionID string) string {
	return PagePath(s.ActiveSection, s.ActiveSubsection) + "?" + s.ToggleQuery(sectionID).Encode()
}

// PagePath is the documentation route for a subsection.
func PagePath(sectionID, subsectionID string) string {
	return "/docs/" + url.PathEscape(sectionID) + "/" + url.PathEscape(subsectionID)
}
