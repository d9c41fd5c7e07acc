package filewalker

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultExtensions lists the save file types picked up by default.
var DefaultExtensions = []string{".txt", ".sav"}

// Walker discovers save files under a directory.
type Walker struct {
	exts map[string]bool
}

// NewWalker creates a Walker for the given extensions, or the defaults.
func NewWalker(exts ...string) *Walker {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	w := &Walker{exts: make(map[string]bool, len(exts))}
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.exts[ext] = true
	}
	return w
}

// SaveEntry is a discovered save file.
type SaveEntry struct {
	Path string
	// Rel is Path relative to the walked root, with forward slashes.
	Rel  string
	Size int64
}

// Walk returns the save files under root sorted by relative path.
func (w *Walker) Walk(root string) ([]SaveEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []SaveEntry

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !w.exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Cannot stat save file")
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path: %w", err)
		}
		entries = append(entries, SaveEntry{
			Path: path,
			Rel:  filepath.ToSlash(rel),
			Size: fi.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Rel < entries[j].Rel })

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered save files")
	return entries, nil
}
