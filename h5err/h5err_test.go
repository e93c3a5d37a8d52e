package h5err

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := New(BufferTooSmall, "buffer holds %d bytes", 8)
	err = WithSizes(WithPath(err, "/data"), 8, 16)
	wrapped := fmt.Errorf("writing dataset: %w", err)

	require.True(t, Is(wrapped, BufferTooSmall))
	assert.Equal(t, BufferTooSmall, KindOf(wrapped))
	assert.Equal(t, "/data", Path(wrapped))

	given, required, ok := Sizes(wrapped)
	require.True(t, ok)
	assert.Equal(t, uint64(8), given)
	assert.Equal(t, uint64(16), required)
}

func TestFirstPathWins(t *testing.T) {
	err := WithPath(New(NotFound, "missing"), "/inner")
	err = WithPath(err, "/outer")
	assert.Equal(t, "/inner", Path(err))
}

func TestPlainErrorsHaveNoKind(t *testing.T) {
	err := errors.New("plain")
	assert.Equal(t, Unknown, KindOf(err))
	assert.False(t, Is(err, NotReady))
	assert.False(t, Is(nil, NotReady))
	assert.Equal(t, -1, Axis(err))
}

func TestWrapAttachesKind(t *testing.T) {
	assert.Nil(t, Wrap(nil, Unsupported))

	err := Wrap(errors.New("zstd: corrupt input"), Unsupported)
	assert.True(t, Is(err, Unsupported))
	assert.Contains(t, err.Error(), "corrupt input")
}

func TestDetails(t *testing.T) {
	err := WithAxis(New(BoundsExceeded, "axis too large"), 1)
	err = WithPath(err, "/x")
	d := Details(err)
	assert.Contains(t, d, "[BoundsExceeded]")
	assert.Contains(t, d, "path=/x")
	assert.Contains(t, d, "axis=1")
	assert.Equal(t, "", Details(nil))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "NotReady", NotReady.String())
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestPathInMessage(t *testing.T) {
	err := WithPath(New(SizeMismatch, "element size mismatch"), "/grid")
	assert.Equal(t, "/grid: element size mismatch", err.Error())
	assert.True(t, Is(err, SizeMismatch))

	err = WithPath(New(NotFound, "no dataset at /grid"), "/grid")
	assert.Equal(t, "no dataset at /grid", err.Error())
	assert.Equal(t, "/grid", Path(err))
}
