// Package search ranks project locations against an edit target.
package search

import (
	"bytes"
	"context"
	"os"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/doeshing/shai-agent/internal/domain"
	"github.com/doeshing/shai-agent/internal/ports"
)

const (
	readConcurrency = 32
	binarySniffLen  = 8000
)

// Engine implements ports.Searcher.
type Engine struct {
	files      *fileLister
	floor      int
	maxResults int
	logger     ports.Logger
}

// Option customises an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	floor        int
	maxResults   int
	maxFileBytes int64
	cacheSize    int
}

// WithConfidenceFloor sets the minimum best score accepted before a new file is suggested.
func WithConfidenceFloor(floor int) Option {
	return func(c *engineConfig) { c.floor = floor }
}

// WithMaxResults caps the number of returned matches.
func WithMaxResults(n int) Option {
	return func(c *engineConfig) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

// WithMaxFileBytes skips files larger than n bytes.
func WithMaxFileBytes(n int64) Option {
	return func(c *engineConfig) {
		if n > 0 {
			c.maxFileBytes = n
		}
	}
}

// WithCacheSize sets how many (root, epoch) listings are kept.
func WithCacheSize(n int) Option {
	return func(c *engineConfig) { c.cacheSize = n }
}

// NewEngine builds a search engine.
func NewEngine(logger ports.Logger, opts ...Option) *Engine {
	cfg := engineConfig{
		floor:        domain.DefaultConfidenceFloor,
		maxResults:   domain.DefaultMaxSearchResults,
		maxFileBytes: domain.DefaultMaxFileBytes,
		cacheSize:    defaultCacheSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{
		files:      newFileLister(cfg.cacheSize, cfg.maxFileBytes),
		floor:      cfg.floor,
		maxResults: cfg.maxResults,
		logger:     logger,
	}
}

// Search scores every non-blank line of every candidate file and returns the
// ranked matches. When nothing reaches the confidence floor a single
// synthetic new-file match is returned instead.
func (e *Engine) Search(ctx context.Context, project domain.ProjectContext, keyword string, query ports.SearchQuery) ([]domain.SearchMatch, error) {
	files, err := e.files.list(project)
	if err != nil {
		return nil, err
	}
	tokens := tokenize(query.Target, query.Description)
	keyword = strings.TrimSpace(keyword)

	perFile := make([][]domain.SearchMatch, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for idx, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perFile[idx] = scoreFile(file, keyword, query.Target, tokens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var matches []domain.SearchMatch
	for _, fileMatches := range perFile {
		matches = append(matches, fileMatches...)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].RelevanceScore > matches[j].RelevanceScore
	})
	if len(matches) > e.maxResults {
		matches = matches[:e.maxResults]
	}

	if len(matches) == 0 || matches[0].RelevanceScore < e.floor {
		suggestion := e.newFileSuggestion(files, query.Target)
		e.logger.Debug("search below confidence floor", map[string]interface{}{
			"target":    query.Target,
			"matches":   len(matches),
			"suggested": suggestion.File,
		})
		return []domain.SearchMatch{suggestion}, nil
	}

	e.logger.Debug("search ranked", map[string]interface{}{
		"target":  query.Target,
		"files":   len(files),
		"matches": len(matches),
		"best":    matches[0].File,
		"score":   matches[0].RelevanceScore,
	})
	return matches, nil
}

// Invalidate implements ports.Searcher.
func (e *Engine) Invalidate(root string) {
	e.files.invalidate(root)
}

func scoreFile(file fileEntry, keyword, target string, tokens []string) []domain.SearchMatch {
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return nil
	}
	sniff := data
	if len(sniff) > binarySniffLen {
		sniff = sniff[:binarySniffLen]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return nil
	}

	base := pathScore(file.Rel, target, tokens)
	kind := fileType(file.Rel)

	var out []domain.SearchMatch
	for idx, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		score := base + lineScore(line, keyword, tokens)
		if score <= 0 {
			continue
		}
		out = append(out, domain.SearchMatch{
			File:           file.Rel,
			Line:           line,
			LineNumber:     idx + 1,
			FileType:       kind,
			RelevanceScore: score,
		})
	}
	return out
}

func (e *Engine) newFileSuggestion(files []fileEntry, target string) domain.SearchMatch {
	var file string
	if looksLikePath(target) {
		file = path.Clean(strings.TrimPrefix(strings.TrimSpace(target), "./"))
	} else {
		ext := dominantExtension(files)
		file = slug(target, ext) + ext
	}
	return domain.SearchMatch{
		File:     file,
		FileType: fileType(file),
		NewFile:  true,
	}
}

var _ ports.Searcher = (*Engine)(nil)
