package view

import (
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// htmlWriter remembers the first write error so components can emit markup
// without checking every call.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (hw *htmlWriter) raw(s string) {
	if hw.err != nil {
		return
	}
	_, hw.err = io.WriteString(hw.w, s)
}

func (hw *htmlWriter) rawf(format string, args ...interface{}) {
	if hw.err != nil {
		return
	}
	_, hw.err = fmt.Fprintf(hw.w, format, args...)
}

// text writes s with HTML escaping.
func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

// elem writes <tag attrs>escaped text</tag>.
func (hw *htmlWriter) elem(tag, attrs, s string) {
	if attrs != "" {
		hw.rawf("<%s %s>", tag, attrs)
	} else {
		hw.rawf("<%s>", tag)
	}
	hw.text(s)
	hw.rawf("</%s>", tag)
}

func attr(name, value string) string {
	return name + `="` + templ.EscapeString(value) + `"`
}
