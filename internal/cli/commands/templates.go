package commands

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
)

//go:embed all:templates
var templateFS embed.FS

// templateNames lists the embedded project templates.
var templateNames = []string{"local", "postgres"}

// copyTemplate copies an embedded template directory to targetDir and returns
// the files it wrote. Existing files are kept unless force is set.
func copyTemplate(templateName, targetDir string, force bool) ([]string, error) {
	root := path.Join("templates", templateName)
	var written []string

	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel := p[len(root):]
		if rel == "" {
			return nil
		}
		rel = renameSpecialFiles(rel[1:])
		target := filepath.Join(targetDir, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(target, 0750)
		}
		if !force {
			if _, err := os.Stat(target); err == nil {
				return nil
			}
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, content, 0600); err != nil {
			return err
		}
		written = append(written, rel)
		return nil
	})
	return written, err
}

// renameSpecialFiles handles files that need renaming (e.g., dotfiles).
func renameSpecialFiles(p string) string {
	dir, base := path.Split(p)
	if base == "gitignore" {
		return dir + ".gitignore"
	}
	return p
}

func validTemplate(name string) bool {
	return slices.Contains(templateNames, name)
}
