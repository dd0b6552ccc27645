// Package filesystem serves text files under a directory as tool items.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/custodia-labs/quarry/internal/core/domain"
	"github.com/custodia-labs/quarry/internal/normalisers"
)

// SourceName is the worker name announced on readiness.
const SourceName = "files"

// DefaultMaxFileSize skips files larger than 1 MiB.
const DefaultMaxFileSize = 1 << 20

// textExtensions lists the file types read as plain text.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".rst": true, ".adoc": true,
	".csv": true, ".log": true, ".json": true, ".yaml": true, ".yml": true,
	".toml": true, ".ini": true, ".html": true, ".htm": true, ".xml": true,
	".go": true, ".py": true, ".js": true, ".ts": true, ".java": true,
	".rs": true, ".rb": true, ".sh": true, ".sql": true, ".c": true, ".h": true,
}

// IsText reports whether path has an extension read as text.
func IsText(path string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(path))]
}

// isHidden reports whether a path element is hidden (.git, .env, ...).
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Source lists text files below a root directory.
type Source struct {
	root    string
	maxSize int64
}

// Option configures a Source.
type Option func(*Source)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// New creates a source over root.
func New(root string, opts ...Option) *Source {
	s := &Source{root: root, maxSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the worker name.
func (s *Source) Name() string {
	return SourceName
}

// Root returns the watched directory.
func (s *Source) Root() string {
	return s.root
}

type file struct {
	path    string
	modTime time.Time
}

// files walks root and returns candidate files, newest first.
func (s *Source) files(ctx context.Context) ([]file, error) {
	info, err := os.Stat(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: root %s does not exist", domain.ErrConfig, s.root)
		}
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %s is not a directory", domain.ErrConfig, s.root)
	}

	var out []file
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path != s.root && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsText(path) {
			return nil
		}
		fi, err := d.Info()
		if err != nil || fi.Size() > s.maxSize {
			return nil
		}
		out = append(out, file{path: path, modTime: fi.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].modTime.Equal(out[j].modTime) {
			return out[i].modTime.After(out[j].modTime)
		}
		return out[i].path < out[j].path
	})
	return out, nil
}

// Fetch returns the limit most recently modified files.
func (s *Source) Fetch(ctx context.Context, limit int) ([]domain.ToolItem, error) {
	files, err := s.files(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]domain.ToolItem, 0, min(limit, len(files)))
	for _, f := range files {
		if len(items) >= limit {
			break
		}
		item, err := s.Read(f.path)
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Search returns the files with the most query term occurrences.
// Files with no occurrence are not returned.
func (s *Source) Search(ctx context.Context, query string, limit int) ([]domain.ToolItem, error) {
	terms := queryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	files, err := s.files(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		item  domain.ToolItem
		score int
	}
	var hits []scored
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item, err := s.Read(f.path)
		if err != nil {
			continue
		}
		if n := score(item, terms); n > 0 {
			hits = append(hits, scored{item: item, score: n})
		}
	}

	// Stable keeps newest-first order among equal scores.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	items := make([]domain.ToolItem, 0, min(limit, len(hits)))
	for i := 0; i < len(hits) && i < limit; i++ {
		items = append(items, hits[i].item)
	}
	return items, nil
}

// Read converts one file into an item. The ID is the slash-separated path
// relative to root, so it stays stable across machines. Markdown and HTML
// bodies are reduced to plain text.
func (s *Source) Read(path string) (domain.ToolItem, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return domain.ToolItem{}, err
	}
	if fi.Size() > s.maxSize {
		return domain.ToolItem{}, fmt.Errorf("%s: file larger than %d bytes", path, s.maxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ToolItem{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	doc := normalisers.Normalise(path, string(data))
	title := doc.Title
	if title == "" {
		title = filepath.Base(path)
	}
	return domain.ToolItem{
		ID:          s.ItemID(path),
		Title:       title,
		Body:        doc.Text,
		URL:         "file://" + filepath.ToSlash(abs),
		PublishedAt: fi.ModTime().UTC(),
	}, nil
}

// ItemID returns the item ID Read assigns to path. The file need not exist.
func (s *Source) ItemID(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

func score(item domain.ToolItem, terms []string) int {
	body := strings.ToLower(item.Body)
	head := strings.ToLower(item.Title)
	n := 0
	for _, t := range terms {
		n += strings.Count(body, t) + 2*strings.Count(head, t)
	}
	return n
}
