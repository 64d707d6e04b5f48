package serrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	require.Equal(t, Kind(""), KindOf(nil))
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
	require.Equal(t, KindConflict, KindOf(Conflict("X", "x")))

	wrapped := fmt.Errorf("outer: %w", NotFound("TASK_NOT_FOUND", "task not found"))
	require.Equal(t, KindNotFound, KindOf(wrapped))
	require.True(t, IsKind(wrapped, KindNotFound))
	require.False(t, IsKind(wrapped, KindForbidden))
}

func TestError_UnwrapAndMeta(t *testing.T) {
	cause := errors.New("db down")
	err := New(KindInternal, "INTERNAL", "query failed", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "query failed: db down", err.Error())

	field := NewFieldRequiredError("title")
	require.Equal(t, "title", field.Meta["field"])
	require.Equal(t, KindInvalidInput, field.Kind)

	withMeta := field.WithMeta("hint", "x")
	require.Len(t, field.Meta, 1)
	require.Len(t, withMeta.Meta, 2)
}
