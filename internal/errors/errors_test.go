package errors_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	apperrors "github.com/jrsteele09/go-assistant-gateway/internal/errors"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestError_HTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  *apperrors.Error
		want int
	}{
		{"not authenticated", apperrors.NotAuthenticated("No autenticado"), http.StatusUnauthorized},
		{"validation", apperrors.Validation("missing title"), http.StatusBadRequest},
		{"configuration", apperrors.Configuration("missing key"), http.StatusInternalServerError},
		{"downstream keeps status", apperrors.Downstream("rejected", http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests},
		{"downstream without status", apperrors.Downstream("rejected", 0, ""), http.StatusBadGateway},
		{"timeout", apperrors.Timeout("too slow", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"unexpected", apperrors.Unexpected("boom", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.err.HTTPStatus())
		})
	}
}

func TestIsTimeout(t *testing.T) {
	require.True(t, apperrors.IsTimeout(context.DeadlineExceeded))
	require.True(t, apperrors.IsTimeout(fmt.Errorf("calling: %w", context.DeadlineExceeded)))
	require.True(t, apperrors.IsTimeout(&url.Error{Op: "Post", URL: "http://x", Err: timeoutErr{}}))
	require.False(t, apperrors.IsTimeout(fmt.Errorf("connection refused")))
	require.False(t, apperrors.IsTimeout(nil))
}

func TestClassify(t *testing.T) {
	t.Run("typed errors pass through", func(t *testing.T) {
		in := apperrors.Validation("bad")
		require.Same(t, in, apperrors.Classify(fmt.Errorf("wrapped: %w", in), "ignored"))
	})

	t.Run("timeouts", func(t *testing.T) {
		got := apperrors.Classify(&url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, "slow")
		require.Equal(t, apperrors.KindTimeout, got.Kind)
	})

	t.Run("not authenticated sentinel", func(t *testing.T) {
		got := apperrors.Classify(apperrors.Wrapf(apperrors.ErrNotAuthenticated, "reconstruct"), "No autenticado")
		require.Equal(t, apperrors.KindNotAuthenticated, got.Kind)
	})

	t.Run("anything else", func(t *testing.T) {
		got := apperrors.Classify(fmt.Errorf("boom"), "failed")
		require.Equal(t, apperrors.KindUnexpected, got.Kind)
		require.Equal(t, apperrors.KindUnexpected, apperrors.KindOf(fmt.Errorf("plain")))
	})

	require.Nil(t, apperrors.Classify(nil, "nothing"))
}
