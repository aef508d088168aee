package search

import (
	"io/fs"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/pkg/filesystem"
)

const defaultCacheSize = 16

var excludedDirs = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"out":          {},
	"target":       {},
	".next":        {},
	".venv":        {},
	"venv":         {},
	"__pycache__":  {},
	"coverage":     {},
	".idea":        {},
	".vscode":      {},
	".shai":        {},
}

type fileEntry struct {
	Path string
	Rel  string
}

type cacheKey struct {
	root  string
	epoch uint64
}

// fileLister enumerates candidate files, cached per (root, epoch).
type fileLister struct {
	cache        *lru.Cache[cacheKey, []fileEntry]
	maxFileBytes int64
}

func newFileLister(size int, maxFileBytes int64) *fileLister {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[cacheKey, []fileEntry](size)
	if err != nil {
		panic(err)
	}
	return &fileLister{cache: cache, maxFileBytes: maxFileBytes}
}

func (l *fileLister) list(project domain.ProjectContext) ([]fileEntry, error) {
	key := cacheKey{root: project.Root, epoch: project.Epoch}
	if files, ok := l.cache.Get(key); ok {
		return files, nil
	}

	var files []fileEntry
	err := filepath.WalkDir(project.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != project.Root {
				return filepath.SkipDir
			}
			if path == project.Root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if _, skip := excludedDirs[d.Name()]; skip && path != project.Root {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > l.maxFileBytes {
			return nil
		}
		files = append(files, fileEntry{Path: path, Rel: filesystem.Rel(project.Root, path)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.cache.Add(key, files)
	return files, nil
}

// invalidate drops every cached listing of root regardless of epoch.
func (l *fileLister) invalidate(root string) {
	for _, key := range l.cache.Keys() {
		if key.root == root {
			l.cache.Remove(key)
		}
	}
}
