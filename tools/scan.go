package tools

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// skipDirNames are directories excluded from workdir scans and searches.
var skipDirNames = map[string]bool{
	"node_modules": true, "vendor": true, "target": true, "build": true,
	"dist": true, "out": true, "__pycache__": true, ".git": true,
	".idea": true, ".vscode": true, "bin": true, "obj": true,
}

type FileMeta struct {
	Size    int64
	ModTime time.Time
}

// Listing walks root and records size+mtime per file, keyed by absolute
// path. Hidden and generated directories are skipped; walk errors skip the
// entry rather than failing the scan.
func Listing(root string) map[string]FileMeta {
	files := make(map[string]FileMeta)

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skipDirNames[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files[path] = FileMeta{Size: info.Size(), ModTime: info.ModTime()}
		return nil
	})

	return files
}

// DiffListings compares two scans and reports added, modified (size or
// mtime changed) and deleted paths, each sorted.
func DiffListings(before, after map[string]FileMeta) (added, modified, deleted []string) {
	for path, meta := range after {
		prev, ok := before[path]
		if !ok {
			added = append(added, path)
			continue
		}
		if prev.Size != meta.Size || !prev.ModTime.Equal(meta.ModTime) {
			modified = append(modified, path)
		}
	}
	for path := range before {
		if _, ok := after[path]; !ok {
			deleted = append(deleted, path)
		}
	}

	sort.Strings(added)
	sort.Strings(modified)
	sort.Strings(deleted)
	return added, modified, deleted
}
