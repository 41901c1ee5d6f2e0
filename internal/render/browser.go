package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
)

// BrowserRenderer pre-renders a client-side application: the bundle is served
// from a loopback HTTP server and every route is loaded in its own incognito
// context of one shared headless browser.
type BrowserRenderer struct {
	opts     BrowserOptions
	server   *http.Server
	baseURL  string
	launcher *launcher.Launcher
	browser  *rod.Browser

	closeOnce sync.Once
	closeErr  error
}

func newBrowserRenderer(distPath string, opts BrowserOptions) (*BrowserRenderer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, ferrors.RuntimeError("listen for bundle server").WithCause(err).Build()
	}
	srv := &http.Server{
		Handler:           spaHandler(distPath),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Bundle server stopped", "error", err)
		}
	}()

	l := launcher.New().Headless(opts.Headless)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		_ = srv.Close()
		return nil, ferrors.RuntimeError("launch headless browser").WithCause(err).Build()
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		_ = srv.Close()
		return nil, ferrors.RuntimeError("connect to headless browser").WithCause(err).Build()
	}

	return &BrowserRenderer{
		opts:     opts,
		server:   srv,
		baseURL:  "http://" + ln.Addr().String(),
		launcher: l,
		browser:  browser,
	}, nil
}

func (b *BrowserRenderer) Render(ctx context.Context, route string, rc RequestContext) (string, error) {
	incognito, err := b.browser.Incognito()
	if err != nil {
		return "", engineFailure(EngineBrowser, route, err)
	}
	defer func() { _ = incognito.Close() }()

	target, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", engineFailure(EngineBrowser, route, err)
	}
	defer func() { _ = target.Close() }()
	page := target.Context(ctx)

	if len(rc.Request.Headers) > 0 {
		dict := make([]string, 0, 2*len(rc.Request.Headers))
		for k, v := range rc.Request.Headers {
			dict = append(dict, k, v)
		}
		cleanup, err := page.SetExtraHeaders(dict)
		if err != nil {
			return "", engineFailure(EngineBrowser, route, err)
		}
		defer cleanup()
	}

	if err := page.Navigate(b.baseURL + "/" + strings.TrimPrefix(route, "/")); err != nil {
		return "", engineFailure(EngineBrowser, route, err)
	}
	if err := page.WaitLoad(); err != nil {
		return "", engineFailure(EngineBrowser, route, err)
	}
	if b.opts.WaitStable > 0 {
		if err := page.WaitStable(b.opts.WaitStable); err != nil {
			return "", engineFailure(EngineBrowser, route, err)
		}
	}
	doc, err := page.HTML()
	if err != nil {
		return "", engineFailure(EngineBrowser, route, err)
	}
	if err := checkDocument(doc); err != nil {
		return "", engineFailure(EngineBrowser, route, err)
	}
	if rc.Response != nil {
		rc.Response.Status = http.StatusOK
	}
	return "<!DOCTYPE html>\n" + doc, nil
}

// Close shuts down the browser and the bundle server.
func (b *BrowserRenderer) Close() error {
	b.closeOnce.Do(func() {
		var errs []error
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		b.launcher.Kill()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := b.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown bundle server: %w", err))
		}
		b.closeErr = errors.Join(errs...)
	})
	return b.closeErr
}

// spaHandler serves files from dir and answers every other path with the
// application shell so client-side routing can resolve it.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if clean != "/" {
			if fi, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean))); err == nil && !fi.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}
		http.ServeFile(w, r, filepath.Join(dir, ShellFile))
	})
}
