package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// FS returns an http.FileSystem for the embedded dashboard.
func FS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// static is compiled in, so Sub cannot fail on a valid tree.
		return http.FS(staticFS)
	}
	return http.FS(sub)
}
