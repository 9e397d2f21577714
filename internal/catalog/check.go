package catalog

import (
	"strconv"
	"strings"

	apperrors "github.com/conneroisu/luatutor/internal/errors"
)

// Check verifies the structural invariants of a tree: every section id is
// unique, every subsection id is unique within its section, and ids and
// titles are non-empty. All violations are reported together.
func Check(t *Tree) error {
	var vec apperrors.ValidationErrorCollection

	if len(t.Sections) == 0 {
		vec.AddField("sections", "catalog has no sections")
	}

	sectionIDs := make(map[string]int, len(t.Sections))
	for i := range t.Sections {
		sec := &t.Sections[i]
		field := fieldName("sections", i, sec.ID)

		if strings.TrimSpace(sec.ID) == "" {
			vec.AddField(field+".id", "must not be empty")
		} else if prev, dup := sectionIDs[sec.ID]; dup {
			vec.AddField(field+".id", "duplicate section id %q (first used by sections[%d])", sec.ID, prev)
		} else {
			sectionIDs[sec.ID] = i
		}
		if strings.TrimSpace(sec.Title) == "" {
			vec.AddField(field+".title", "must not be empty")
		}

		subIDs := make(map[string]int, len(sec.Subsections))
		for j := range sec.Subsections {
			sub := &sec.Subsections[j]
			subField := fieldName(field+".subsections", j, sub.ID)

			if strings.TrimSpace(sub.ID) == "" {
				vec.AddField(subField+".id", "must not be empty")
			} else if prev, dup := subIDs[sub.ID]; dup {
				vec.AddField(subField+".id", "duplicate subsection id %q (first used by subsections[%d])", sub.ID, prev)
			} else {
				subIDs[sub.ID] = j
			}
			if strings.TrimSpace(sub.Title) == "" {
				vec.AddField(subField+".title", "must not be empty")
			}
			if sub.FillInBlank != nil && strings.TrimSpace(sub.FillInBlank.Template) == "" {
				vec.AddField(subField+".fill_in_blank.template", "must not be empty")
			}
			for k, ex := range sub.CodeExamples {
				if strings.TrimSpace(ex.Code) == "" {
					vec.AddField(fieldName(subField+".code_examples", k, "")+".code", "must not be empty")
				}
			}
		}
	}

	return vec.ErrOrNil()
}

func fieldName(prefix string, idx int, id string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('[')
	b.WriteString(strconv.Itoa(idx))
	if id != "" {
		b.WriteString(" ")
		b.WriteString(id)
	}
	b.WriteByte(']')
	return b.String()
}
