package render

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
)

// Engine names a rendering backend.
type Engine string

const (
	EngineHTTP     Engine = "http"
	EngineBrowser  Engine = "browser"
	EngineMarkdown Engine = "markdown"
)

// ShellFile is the bundle's application shell, used by the markdown engine and
// as the resilient fallback.
const ShellFile = "index.html"

// BrowserOptions configures the headless browser engine.
type BrowserOptions struct {
	Bin        string        // Chrome/Chromium binary; empty lets go-rod download or find one
	Headless   bool          // run without a window
	WaitStable time.Duration // wait for the DOM to settle after load; 0 skips
}

// Options selects and tunes the engine returned by Configure.
type Options struct {
	Engine    Engine
	BaseURL   string       // http engine
	Client    *http.Client // http engine; nil uses a client without timeout (the caller's context bounds calls)
	Browser   BrowserOptions
	CacheSize int    // markdown engine page cache entries; <=0 uses 256
	MountID   string // markdown engine mount element id; empty uses "app"
}

// Configure binds an engine to the bundle in distPath. When resilient is true
// the engine is wrapped so that failures fall back to the bundle shell.
func Configure(distPath string, resilient bool, opts Options) (Renderer, error) {
	info, err := os.Stat(distPath)
	if err != nil {
		return nil, ferrors.ConfigError("input artifact directory not accessible").
			WithCause(err).
			WithContext("dist_path", distPath).
			Build()
	}
	if !info.IsDir() {
		return nil, ferrors.ConfigError("input artifact path is not a directory").
			WithContext("dist_path", distPath).
			Build()
	}

	var r Renderer
	switch opts.Engine {
	case EngineHTTP, "":
		r, err = newHTTPRenderer(opts.BaseURL, opts.Client)
	case EngineBrowser:
		r, err = newBrowserRenderer(distPath, opts.Browser)
	case EngineMarkdown:
		r, err = newMarkdownRenderer(distPath, opts.CacheSize, opts.MountID)
	default:
		return nil, ferrors.ConfigError("unknown rendering engine").
			WithContext("engine", string(opts.Engine)).
			Build()
	}
	if err != nil {
		return nil, err
	}
	if resilient {
		r = &resilientRenderer{next: r, shellPath: filepath.Join(distPath, ShellFile)}
	}
	return r, nil
}
