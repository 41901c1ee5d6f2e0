package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckDocument(t *testing.T) {
	assert.NoError(t, checkDocument("<html><body><p>x</p></body></html>"))
	assert.NoError(t, checkDocument("plain text is content"))
	assert.NoError(t, checkDocument("<!DOCTYPE html><html><head><title>t</title></head></html>"))
	assert.ErrorIs(t, checkDocument(""), ErrEmptyDocument)
	assert.ErrorIs(t, checkDocument("<!DOCTYPE html><html><head></head><body>  \n</body></html>"), ErrEmptyDocument)
}

func TestInjectContent(t *testing.T) {
	out, err := injectContent([]byte(shellHTML), "<p>hi</p>", "app")
	require.NoError(t, err)
	assert.Contains(t, out, `<div id="app"><p>hi</p></div>`)

	out, err = injectContent([]byte("<html><body><nav>n</nav></body></html>"), "<p>hi</p>", "app")
	require.NoError(t, err)
	assert.Contains(t, out, "<body><p>hi</p></body>", "falls back to body and replaces its children")
}
