package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(0, 0, 45)
	require.Equal(t, Pagination{Page: 1, PerPage: DefaultPerPage, Total: 45, TotalPages: 3}, p)
	require.Equal(t, 0, p.Offset())

	p = NewPagination(3, 500, 250)
	require.Equal(t, MaxPerPage, p.PerPage)
	require.Equal(t, 200, p.Offset())
}

func TestActorMiddleware(t *testing.T) {
	var got string
	h := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, " rina ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "rina", got)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, AnonymousActor, got)

	require.Equal(t, AnonymousActor, ActorFromContext(context.Background()))
}
