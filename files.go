package authui

import (
	"embed"
	"io/fs"
)

//go:embed views
var viewsFS embed.FS

// GetViewsFS returns the auth page templates rooted at the views
// directory, ready for a template engine file system.
func GetViewsFS() (fs.FS, error) {
	return fs.Sub(viewsFS, "views")
}
