package view

import (
	"embed"
	"io/fs"
	"net/http"
)

// ScriptPath is where the page script is served.
const ScriptPath = "/static/app.js"

//go:embed static
var staticFiles embed.FS

// Static serves the embedded stylesheet and script under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
