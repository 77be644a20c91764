package interfaces

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{name: "typed not found", err: NotFoundError("gone"), kind: KindNotFound},
		{name: "typed forbidden", err: ForbiddenError("no"), kind: KindForbidden},
		{name: "typed bad request", err: BadRequestError("bad"), kind: KindBadRequest},
		{name: "typed conflict", err: ConflictError(nil, "raced"), kind: KindConflict},
		{name: "typed unauthorized", err: UnauthorizedError("who"), kind: KindUnauthorized},
		{name: "typed unavailable", err: UnavailableError(nil, "down"), kind: KindUnavailable},
		{name: "document sentinel", err: ErrDocumentNotFound, kind: KindNotFound},
		{name: "wrapped document sentinel", err: fmt.Errorf("read: %w", ErrDocumentNotFound), kind: KindNotFound},
		{name: "revision sentinel", err: ErrRevisionConflict, kind: KindConflict},
		{name: "unknown error", err: errors.New("mystery"), kind: KindUnavailable},
		{name: "wrapped typed error", err: fmt.Errorf("outer: %w", ForbiddenError("no")), kind: KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := UnavailableError(cause, "upstream failed")

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upstream failed")
	assert.Contains(t, err.Error(), "root cause")
}

func TestErrorIsMatchesKind(t *testing.T) {
	// A kind sentinel with an empty message matches any error of the same
	// kind.
	sentinel := &Error{Kind: KindConflict}
	assert.True(t, errors.Is(ConflictError(nil, "any message"), sentinel))
	assert.False(t, errors.Is(NotFoundError("x"), sentinel))
}

func TestErrorIsMatchesKindAndMessage(t *testing.T) {
	// A sentinel with a message requires both kind and message to match.
	sentinel := &Error{Kind: KindConflict, Message: "specific condition"}

	assert.True(t, errors.Is(&Error{Kind: KindConflict, Message: "specific condition"}, sentinel))
	assert.False(t, errors.Is(&Error{Kind: KindConflict, Message: "other condition"}, sentinel))
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
}
