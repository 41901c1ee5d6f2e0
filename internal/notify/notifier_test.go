package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/staticboot/internal/generator"
	"git.home.luguber.info/inful/staticboot/internal/render"
	"git.home.luguber.info/inful/staticboot/internal/routes"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, message{subject: subject, data: data})
	return nil
}

func runBatch(t *testing.T, n *Notifier) *generator.Outcome {
	t.Helper()
	r := render.Func(func(_ context.Context, route string, _ render.RequestContext) (string, error) {
		if route == "/bad" {
			return "", errors.New("boom")
		}
		return "ok", nil
	})
	out, _ := generator.New(r, t.TempDir(), []routes.Route{"/", "/bad"},
		generator.WithObserver(n), generator.WithBatchID("b-7")).Generate(context.Background())
	return out
}

func TestNotifierPublishesFailuresAndCompletion(t *testing.T) {
	pub := &fakePublisher{}
	out := runBatch(t, NewNotifier(pub, "staticboot", nil))
	require.NotNil(t, out)

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "staticboot.page.failed", pub.msgs[0].subject)
	assert.Equal(t, "staticboot.batch.completed", pub.msgs[1].subject)

	var failed PageFailedEvent
	require.NoError(t, json.Unmarshal(pub.msgs[0].data, &failed))
	assert.Equal(t, "b-7", failed.BatchID)
	assert.Equal(t, "/bad", failed.Route)
	assert.Equal(t, "render", failed.Kind)
	assert.Equal(t, "boom", failed.Error)

	var done BatchCompletedEvent
	require.NoError(t, json.Unmarshal(pub.msgs[1].data, &done))
	assert.Equal(t, "partial", done.Outcome)
	assert.Equal(t, 2, done.Routes)
	assert.Equal(t, 1, done.Written)
	assert.Equal(t, 1, done.Failed)
}

func TestNotifierSwallowsPublishErrors(t *testing.T) {
	pub := &fakePublisher{err: errors.New("no responders")}
	out := runBatch(t, NewNotifier(pub, "staticboot", nil))
	assert.Len(t, out.Pages, 2)
	assert.Empty(t, pub.msgs)
}

func TestNotifierSubject(t *testing.T) {
	assert.Equal(t, "sb.batch.completed", NewNotifier(nil, "sb", nil).Subject(SubjectBatchCompleted))
	assert.Equal(t, "page.failed", NewNotifier(nil, "", nil).Subject(SubjectPageFailed))
}
