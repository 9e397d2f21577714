// Package view renders the lesson pages as templ components.
//
// Components are written as templ.ComponentFunc values, so they compose with
// generated templ code and are served with templ.Handler.
package view

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/conneroisu/luatutor/internal/catalog"
	"github.com/conneroisu/luatutor/internal/exercise"
	"github.com/conneroisu/luatutor/internal/navigation"
	"github.com/conneroisu/luatutor/internal/search"
)

// PageData is everything needed to render one lesson page.
type PageData struct {
	Tree       *catalog.Tree
	Nav        *navigation.State
	Section    *catalog.Section
	Subsection *catalog.Subsection
	// Session identifies the editor on this page for /api/run.
	Session string
}

// Page renders a complete lesson page.
func Page(data PageData) templ.Component {
	title := data.Subsection.Title + " | " + data.Section.Title
	return Layout(title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<div class="docs">`)
		if err := Sidebar(data.Tree, data.Nav).Render(ctx, w); err != nil {
			return err
		}
		if err := Content(data.Section, data.Subsection, data.Session).Render(ctx, w); err != nil {
			return err
		}
		hw.raw(`</div>`)
		return hw.err
	}))
}

// Layout wraps body in the document shell with the navbar and search box.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<!DOCTYPE html><html lang="zh"><head><meta charset="UTF-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1.0">`)
		hw.elem("title", "", title)
		hw.raw(`<link rel="stylesheet" href="/static/style.css"></head><body>`)
		hw.raw(`<header class="navbar"><a class="brand" href="/">Roblox Lua Tutorial</a>`)
		hw.raw(`<form class="search" action="/search" method="get" role="search">`)
		hw.raw(`<input id="search-input" type="search" name="q" placeholder="Search lessons" autocomplete="off">`)
		hw.raw(`</form><div id="search-results" hidden></div></header><main>`)
		if hw.err != nil {
			return hw.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		hw.raw(`</main><footer class="footer">Roblox Lua Tutorial</footer>`)
		hw.rawf(`<script src="%s" defer></script></body></html>`, ScriptPath)
		return hw.err
	})
}

// Sidebar renders the table of contents. Only expanded sections list their
// subsections; section headers link to the same page with that section toggled.
func Sidebar(tree *catalog.Tree, nav *navigation.State) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<aside class="sidebar"><h2>Contents</h2><nav>`)
		for i := range tree.Sections {
			sec := &tree.Sections[i]
			expanded := nav.Expanded(sec.ID)
			hw.rawf(`<div class="section" %s>`, attr("data-section", sec.ID))
			hw.rawf(`<a class="toggle" %s %s>`,
				attr("href", nav.ToggleLink(sec.ID)),
				attr("aria-expanded", strconv.FormatBool(expanded)))
			hw.text(sec.Title)
			if expanded {
				hw.raw(` <span class="chevron">&#9662;</span>`)
			} else {
				hw.raw(` <span class="chevron">&#9656;</span>`)
			}
			hw.raw(`</a>`)
			if expanded && len(sec.Subsections) > 0 {
				hw.raw(`<ul>`)
				for j := range sec.Subsections {
					sub := &sec.Subsections[j]
					class := "entry"
					if nav.IsActive(sec.ID, sub.ID) {
						class = "entry active"
					}
					hw.rawf(`<li><a %s %s>`, attr("class", class), attr("href", nav.Link(sec.ID, sub.ID)))
					hw.text(sub.Title)
					hw.raw(`</a></li>`)
				}
				hw.raw(`</ul>`)
			}
			hw.raw(`</div>`)
		}
		hw.raw(`</nav></aside>`)
		return hw.err
	})
}

// Content renders a subsection body followed by its presentation extras,
// code examples, and the exercise or free editor.
func Content(sec *catalog.Section, sub *catalog.Subsection, session string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<article class="content">`)
		hw.elem("p", `class="breadcrumb"`, sec.Title)
		hw.elem("h1", "", sub.Title)
		hw.elem("p", `class="body"`, sub.Content)

		for _, d := range sub.Diagrams {
			hw.rawf(`<figure class="diagram" %s>`, attr("data-prompt", d.Prompt))
			hw.elem("figcaption", "", d.Title)
			hw.elem("p", "", d.Description)
			hw.raw(`</figure>`)
		}
		if sub.Note != "" {
			hw.raw(`<aside class="note"><strong>Note</strong>`)
			hw.elem("p", "", sub.Note)
			hw.raw(`</aside>`)
		}
		if len(sub.Steps) > 0 {
			hw.raw(`<section class="steps"><h2>Step by step</h2><ol>`)
			for _, st := range sub.Steps {
				hw.raw(`<li>`)
				hw.elem("p", `class="instruction"`, st.Instruction)
				if st.HighlightArea != "" {
					hw.elem("p", `class="highlight"`, "Tip: focus on the "+st.HighlightArea+" area")
				}
				hw.raw(`</li>`)
			}
			hw.raw(`</ol></section>`)
		}
		if len(sub.CommonErrors) > 0 {
			hw.raw(`<section class="common-errors"><h2>Common errors</h2>`)
			for _, ce := range sub.CommonErrors {
				hw.raw(`<div class="common-error">`)
				hw.elem("h3", "", ce.Error)
				hw.elem("p", `class="cause"`, "Cause: "+ce.Cause)
				hw.elem("p", `class="solution"`, "Fix: "+ce.Solution)
				hw.raw(`</div>`)
			}
			hw.raw(`</section>`)
		}
		if hw.err != nil {
			return hw.err
		}
		if err := CodeExamples(sub.CodeExamples).Render(ctx, w); err != nil {
			return err
		}

		switch {
		case sub.FillInBlank != nil:
			if err := Exercise(sec.ID, sub.ID, sub.FillInBlank, session).Render(ctx, w); err != nil {
				return err
			}
		case sub.HasEditor:
			hw.raw(`<section class="playground"><h2>Try it</h2>`)
			hw.elem("p", "", `Write code in the editor below and press "Run" to see the result.`)
			if hw.err != nil {
				return hw.err
			}
			if err := Editor(sec.ID, sub.ID, sub.StarterCode(), session).Render(ctx, w); err != nil {
				return err
			}
			hw.raw(`</section>`)
		}
		hw.raw(`</article>`)
		return hw.err
	})
}

// CodeExamples renders example snippets with optional titles and explanations.
func CodeExamples(examples []catalog.CodeExample) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(examples) == 0 {
			return nil
		}
		hw := &htmlWriter{w: w}
		hw.raw(`<section class="examples"><h2>Code examples</h2>`)
		for _, ex := range examples {
			hw.raw(`<div class="example">`)
			if ex.Title != "" {
				hw.elem("div", `class="example-title"`, ex.Title)
			}
			hw.raw(`<pre><code class="language-lua">`)
			hw.text(ex.Code)
			hw.raw(`</code></pre>`)
			if ex.Explanation != "" {
				hw.elem("div", `class="explanation"`, ex.Explanation)
			}
			hw.raw(`</div>`)
		}
		hw.raw(`</section>`)
		return hw.err
	})
}

// Exercise renders a fill-in-the-blank task: hints for every placeholder
// followed by an editor seeded with the template.
func Exercise(sectionID, subsectionID string, fib *catalog.FillInBlank, session string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<section class="exercise"><h2>Exercise</h2>`)
		hw.elem("p", "", "Complete the code below by filling in the missing parts:")
		hw.raw(`<dl class="hints">`)
		for _, h := range exercise.Hints(fib) {
			hw.elem("dt", `class="placeholder"`, "{{"+h.Name+"}}")
			hw.elem("dd", "", h.Text)
		}
		hw.raw(`</dl>`)
		if hw.err != nil {
			return hw.err
		}
		if err := Editor(sectionID, subsectionID, fib.Template, session).Render(ctx, w); err != nil {
			return err
		}
		hw.raw(`</section>`)
		return hw.err
	})
}

// Editor renders the code editor form. The script posts it to /api/run and
// disables the run button while a run is pending.
func Editor(sectionID, subsectionID, code, session string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.rawf(`<form class="editor" %s %s %s>`,
			attr("data-section", sectionID),
			attr("data-subsection", subsectionID),
			attr("data-session", session))
		hw.raw(`<textarea name="code" rows="12" spellcheck="false">`)
		hw.text(code)
		hw.raw(`</textarea>`)
		hw.raw(`<div class="controls"><button type="submit" class="run">Run</button>`)
		hw.raw(`<button type="reset" class="reset">Reset</button></div>`)
		hw.raw(`<pre class="output" aria-live="polite"></pre><ul class="errors"></ul></form>`)
		return hw.err
	})
}

// SearchResults renders a search response. The idle state renders nothing;
// a search without hits says so.
func SearchResults(tree *catalog.Tree, resp search.Response) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if !resp.IsSearching {
			return nil
		}
		hw := &htmlWriter{w: w}
		hw.raw(`<section class="search-results">`)
		hw.elem("h2", "", "Results for "+strconv.Quote(resp.Query))
		if len(resp.Results) == 0 {
			hw.elem("p", `class="empty"`, "No matching lessons.")
			hw.raw(`</section>`)
			return hw.err
		}
		nav := navigation.New(tree)
		hw.raw(`<ul>`)
		for _, r := range resp.Results {
			hw.rawf(`<li><a %s>`, attr("href", nav.Link(r.Section.ID, r.Subsection.ID)))
			hw.elem("span", `class="section-title"`, r.Section.Title)
			hw.raw(` / `)
			hw.elem("span", `class="subsection-title"`, r.Subsection.Title)
			hw.raw(`</a>`)
			for _, m := range r.Matches {
				if m.Kind == search.MatchContent {
					hw.elem("p", `class="preview"`, m.Text)
				}
			}
			hw.raw(`</li>`)
		}
		hw.raw(`</ul></section>`)
		return hw.err
	})
}

// SearchPage renders search results as a standalone page.
func SearchPage(tree *catalog.Tree, resp search.Response) templ.Component {
	return Layout("Search", SearchResults(tree, resp))
}

// NotFound renders an error page body.
func NotFound(message string) templ.Component {
	return Layout("Not found", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<article class="content not-found">`)
		hw.elem("h1", "", "Page not found")
		hw.elem("p", "", message)
		hw.raw(`<p><a href="/">Back to the first lesson</a></p></article>`)
		return hw.err
	}))
}
