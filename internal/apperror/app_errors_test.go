package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	t.Run("Maps wrapped request errors to their code", func(t *testing.T) {
		// Given: a request error wrapped twice
		err := fmt.Errorf("failed to play: %w", fmt.Errorf("invalid turn: %w", ErrNotYourTurn))

		// When: resolving the code
		code := Code(err)

		// Then: the taxonomy name should be returned
		assert.Equal(t, CodeNotYourTurn, code)
		assert.Equal(t, ErrNotYourTurn.Error(), Message(err))
	})

	t.Run("Unknown errors are internal", func(t *testing.T) {
		// Given: an error outside the taxonomy
		err := errors.New("redis down")

		// When: resolving the code and message
		code := Code(err)
		msg := Message(err)

		// Then: the internal code should be returned without leaking details
		assert.Equal(t, CodeInternal, code)
		assert.Equal(t, "internal server error", msg)
	})
}
