package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/net/html"
)

// ContentDir is the bundle subdirectory holding markdown sources.
const ContentDir = "content"

const (
	defaultCacheSize = 256
	defaultMountID   = "app"
)

// MarkdownRenderer renders markdown sources from a content bundle into the
// bundle's application shell.
type MarkdownRenderer struct {
	contentDir string
	shell      []byte
	mountID    string
	md         goldmark.Markdown
	cache      *lru.Cache[string, string]
}

func newMarkdownRenderer(distPath string, cacheSize int, mountID string) (*MarkdownRenderer, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	if mountID == "" {
		mountID = defaultMountID
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create page cache: %w", err)
	}
	shell, err := os.ReadFile(filepath.Join(distPath, ShellFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read application shell: %w", err)
	}
	return &MarkdownRenderer{
		contentDir: filepath.Join(distPath, ContentDir),
		shell:      shell,
		mountID:    mountID,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
		cache: cache,
	}, nil
}

// sourceCandidates lists the markdown files that may back route, in lookup order.
func (m *MarkdownRenderer) sourceCandidates(route string) []string {
	trimmed := strings.Trim(route, "/")
	if trimmed == "" {
		return []string{filepath.Join(m.contentDir, "index.md")}
	}
	rel := filepath.FromSlash(trimmed)
	if IsIndexRoute(route) {
		return []string{filepath.Join(m.contentDir, rel, "index.md")}
	}
	return []string{
		filepath.Join(m.contentDir, rel+".md"),
		filepath.Join(m.contentDir, rel, "index.md"),
	}
}

// IsIndexRoute reports whether route ends with a separator.
func IsIndexRoute(route string) bool {
	return strings.HasSuffix(route, "/")
}

func (m *MarkdownRenderer) Render(ctx context.Context, route string, _ RequestContext) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", engineFailure(EngineMarkdown, route, err)
	}
	var source string
	var info fs.FileInfo
	for _, candidate := range m.sourceCandidates(route) {
		fi, err := os.Stat(candidate)
		if err == nil && !fi.IsDir() {
			source, info = candidate, fi
			break
		}
	}
	if source == "" {
		return "", routeNotFound(route, fmt.Errorf("no markdown source below %s", m.contentDir))
	}

	key := fmt.Sprintf("%s|%d|%d", source, info.ModTime().UnixNano(), info.Size())
	body, ok := m.cache.Get(key)
	if !ok {
		src, err := os.ReadFile(source)
		if err != nil {
			return "", engineFailure(EngineMarkdown, route, err)
		}
		var buf bytes.Buffer
		if err := m.md.Convert(src, &buf); err != nil {
			return "", engineFailure(EngineMarkdown, route, err)
		}
		body = buf.String()
		m.cache.Add(key, body)
	}

	if len(m.shell) == 0 {
		return fmt.Sprintf("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>%s</body></html>\n",
			html.EscapeString(route), body), nil
	}
	out, err := injectContent(m.shell, body, m.mountID)
	if err != nil {
		return "", engineFailure(EngineMarkdown, route, err)
	}
	return out, nil
}
