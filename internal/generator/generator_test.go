package generator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
	"git.home.luguber.info/inful/staticboot/internal/metrics"
	"git.home.luguber.info/inful/staticboot/internal/render"
	"git.home.luguber.info/inful/staticboot/internal/routes"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// echo renders "<html>"+route.
func echo(prefix string) render.Renderer {
	return render.Func(func(_ context.Context, route string, _ render.RequestContext) (string, error) {
		return prefix + route, nil
	})
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestGenerateExampleScenario(t *testing.T) {
	out := t.TempDir()
	list := []routes.Route{"/", "/about", "/users/1/"}

	outcome, err := New(echo("<html>"), out, list).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, outcome.Pages, 3)

	assert.Equal(t, "<html>/about", readFile(t, filepath.Join(out, "about", "index.html")))
	// "/" and "/users/1/" collapse onto the root index; either writer may win.
	assert.Contains(t, []string{"<html>/", "<html>/users/1/"}, readFile(t, filepath.Join(out, "index.html")))
	assert.NoDirExists(t, filepath.Join(out, "users"))

	for i, p := range outcome.Pages {
		assert.Equal(t, list[i], p.Route, "pages keep input order")
		assert.True(t, p.OK())
		assert.Equal(t, routes.OutputPathForRoute(p.Route, out), p.Path)
	}
	assert.Equal(t, metrics.BatchSuccess, outcome.Label())
	assert.NoError(t, outcome.Err())
}

func TestGenerateManyRoutesConcurrently(t *testing.T) {
	out := t.TempDir()
	var list []routes.Route
	for i := range 50 {
		list = append(list, fmt.Sprintf("/page/%d", i))
	}
	r := render.Func(func(ctx context.Context, route string, _ render.RequestContext) (string, error) {
		select {
		case <-time.After(time.Duration(rand.IntN(5)) * time.Millisecond):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return "<p>" + route + "</p>", nil
	})

	outcome, err := New(r, out, list).Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, outcome.Pages, 50)
	for _, route := range list {
		assert.Equal(t, "<p>"+route+"</p>", readFile(t, routes.OutputPathForRoute(route, out)))
	}
}

func TestGenerateBoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	r := render.Func(func(_ context.Context, route string, _ render.RequestContext) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		return route, nil
	})
	var list []routes.Route
	for i := range 20 {
		list = append(list, fmt.Sprintf("/r%d", i))
	}

	_, err := New(r, t.TempDir(), list, WithConcurrency(3)).Generate(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}

func TestGeneratePartialFailureIsolation(t *testing.T) {
	out := t.TempDir()
	boom := errors.New("component threw")
	r := render.Func(func(_ context.Context, route string, _ render.RequestContext) (string, error) {
		if route == "/bad" {
			return "", boom
		}
		return "ok " + route, nil
	})

	outcome, err := New(r, out, []routes.Route{"/a", "/bad", "/b"}).Generate(context.Background())
	require.Error(t, err)

	assert.Equal(t, "ok /a", readFile(t, filepath.Join(out, "a", "index.html")))
	assert.Equal(t, "ok /b", readFile(t, filepath.Join(out, "b", "index.html")))
	assert.NoFileExists(t, filepath.Join(out, "bad", "index.html"))

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	require.Len(t, batchErr.Failures, 1)
	assert.Equal(t, 3, batchErr.Total)
	assert.Equal(t, "/bad", batchErr.Failures[0].Route)
	assert.Equal(t, KindRender, batchErr.Failures[0].Kind)
	assert.ErrorIs(t, err, boom)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRender))
	assert.Equal(t, metrics.BatchPartial, outcome.Label())
	assert.Contains(t, err.Error(), "1 of 3 routes failed")
}

func TestGenerateDirectoryFailure(t *testing.T) {
	out := t.TempDir()
	// A regular file where a directory is needed.
	require.NoError(t, os.WriteFile(filepath.Join(out, "users"), []byte("x"), 0o644))

	outcome, err := New(echo(""), out, []routes.Route{"/users/1", "/about"}).Generate(context.Background())
	require.Error(t, err)

	failures := outcome.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, KindDirectory, failures[0].Kind)
	assert.Equal(t, filepath.Join(out, "users", "1", "index.html"), failures[0].Path)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
	assert.FileExists(t, filepath.Join(out, "about", "index.html"))
}

func TestGenerateWriteFailure(t *testing.T) {
	out := t.TempDir()
	// The output file path is occupied by a directory.
	require.NoError(t, os.MkdirAll(filepath.Join(out, "blocked", "index.html", "child"), 0o755))

	outcome, err := New(echo(""), out, []routes.Route{"/blocked", "/free"}).Generate(context.Background())
	require.Error(t, err)

	failures := outcome.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, KindWrite, failures[0].Kind)
	assert.Equal(t, ferrors.CategoryFileSystem, failures[0].Category())

	entries, err := os.ReadDir(filepath.Join(out, "blocked"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}

func TestGenerateTimeout(t *testing.T) {
	r := render.Func(func(ctx context.Context, route string, _ render.RequestContext) (string, error) {
		if route == "/fast" {
			return "fast", nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	})

	outcome, err := New(r, t.TempDir(), []routes.Route{"/slow", "/fast"}, WithTimeout(20*time.Millisecond)).
		Generate(context.Background())
	require.Error(t, err)
	failures := outcome.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "/slow", failures[0].Route)
	assert.Equal(t, KindRender, failures[0].Kind)
	assert.ErrorIs(t, failures[0], context.DeadlineExceeded)
}

func TestGenerateIdempotentOverwrite(t *testing.T) {
	out := t.TempDir()
	list := []routes.Route{"/", "/docs/intro"}

	_, err := New(echo("v1 "), out, list).Generate(context.Background())
	require.NoError(t, err)
	_, err = New(echo("v1 "), out, list).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v1 /docs/intro", readFile(t, filepath.Join(out, "docs", "intro", "index.html")))

	_, err = New(echo("v2 "), out, list).Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "v2 /docs/intro", readFile(t, filepath.Join(out, "docs", "intro", "index.html")))
	assert.Equal(t, "v2 /", readFile(t, filepath.Join(out, "index.html")))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".staticboot-"), "temp file left behind: %s", e.Name())
	}
}

func TestGenerateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := New(echo(""), t.TempDir(), []routes.Route{"/a", "/b"}).Generate(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, outcome.Canceled)
	assert.Equal(t, metrics.BatchCanceled, outcome.Label())
	for _, f := range outcome.Failures() {
		assert.Equal(t, KindRender, f.Kind)
	}
	assert.Len(t, outcome.Failures(), 2)
}

func TestGenerateEmptyRouteList(t *testing.T) {
	outcome, err := New(echo(""), t.TempDir(), nil).Generate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, outcome.Pages)
	assert.Equal(t, metrics.BatchSuccess, outcome.Label())
}

type recordingObserver struct {
	mu        sync.Mutex
	started   []string
	written   []string
	failed    []string
	completed []*Outcome
}

func (o *recordingObserver) BatchStarted(_ context.Context, id string, _ []routes.Route) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, id)
}

func (o *recordingObserver) PageWritten(_ context.Context, _ string, p PageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written = append(o.written, p.Route)
}

func (o *recordingObserver) PageFailed(_ context.Context, _ string, p PageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, p.Route)
}

func (o *recordingObserver) BatchCompleted(ctx context.Context, out *Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if ctx.Err() == nil {
		o.completed = append(o.completed, out)
	}
}

type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	results  map[metrics.ResultLabel]int
	outcomes map[metrics.BatchOutcomeLabel]int
	inFlight int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		results:  map[metrics.ResultLabel]int{},
		outcomes: map[metrics.BatchOutcomeLabel]int{},
	}
}

func (r *countingRecorder) IncPageResult(l metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[l]++
}

func (r *countingRecorder) IncBatchOutcome(l metrics.BatchOutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[l]++
}

func (r *countingRecorder) AddInFlight(d int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inFlight += d
}

func TestGenerateNotifiesObserversAndRecorder(t *testing.T) {
	r := render.Func(func(_ context.Context, route string, _ render.RequestContext) (string, error) {
		if route == "/x" {
			return "", errors.New("nope")
		}
		return route, nil
	})
	obs1, obs2 := &recordingObserver{}, &recordingObserver{}
	rec := newCountingRecorder()

	g := New(r, t.TempDir(), []routes.Route{"/a", "/x", "/b"},
		WithObserver(obs1), WithObserver(obs2), WithRecorder(rec), WithBatchID("batch-1"))
	assert.Equal(t, "batch-1", g.BatchID())
	outcome, err := g.Generate(context.Background())
	require.Error(t, err)

	for _, obs := range []*recordingObserver{obs1, obs2} {
		assert.Equal(t, []string{"batch-1"}, obs.started)
		assert.ElementsMatch(t, []string{"/a", "/b"}, obs.written)
		assert.Equal(t, []string{"/x"}, obs.failed)
		require.Len(t, obs.completed, 1)
		assert.Same(t, outcome, obs.completed[0])
	}
	assert.Equal(t, 2, rec.results[metrics.ResultWritten])
	assert.Equal(t, 1, rec.results[metrics.ResultRenderFailed])
	assert.Equal(t, 1, rec.outcomes[metrics.BatchPartial])
	assert.Zero(t, rec.inFlight)
}

func TestNewGeneratesBatchID(t *testing.T) {
	a := New(echo(""), t.TempDir(), nil)
	b := New(echo(""), t.TempDir(), nil)
	assert.NotEmpty(t, a.BatchID())
	assert.NotEqual(t, a.BatchID(), b.BatchID())
}
