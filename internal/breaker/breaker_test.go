package breaker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/eventbot/dashboard/internal/serviceerr"
)

var errUpstream = errors.New("upstream failed")
var errClient = errors.New("caller mistake")

func TestNew_OpensAfterThreshold(t *testing.T) {
	cb := New[string](Settings{Name: "test", FailureThreshold: 2})

	for range 2 {
		_, err := cb.Execute(func() (string, error) { return "", errUpstream })
		require.ErrorIs(t, err, errUpstream)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())

	called := false
	_, err := cb.Execute(func() (string, error) {
		called = true
		return "ok", nil
	})
	assert.False(t, called, "Breaker should reject calls while open")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestNew_IsSuccessful(t *testing.T) {
	cb := New[string](Settings{
		Name:             "test",
		FailureThreshold: 1,
		IsSuccessful:     func(err error) bool { return errors.Is(err, errClient) },
	})

	for range 3 {
		_, err := cb.Execute(func() (string, error) { return "", errClient })
		require.ErrorIs(t, err, errClient)
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{name: "Open state", err: gobreaker.ErrOpenState, unavailable: true},
		{name: "Too many requests", err: gobreaker.ErrTooManyRequests, unavailable: true},
		{name: "Other error", err: errUpstream, unavailable: false},
		{name: "Nil", err: nil, unavailable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.err)

			var serviceErr *serviceerr.Error
			assert.Equal(t, tt.unavailable, errors.As(got, &serviceErr))
			if tt.unavailable {
				assert.Equal(t, serviceerr.CodeTemporarilyUnavailable, serviceErr.Err)
				assert.ErrorIs(t, got, tt.err)
			} else {
				assert.Equal(t, tt.err, got)
			}
		})
	}
}
