// Package resources serves the dashboard stylesheet. Production builds embed
// the files; building with -tags dev serves them from disk for live editing.
package resources

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// StaticPath returns the URL path for a static asset.
func StaticPath(path string) string {
	return "/static/" + path
}
