package shelves

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shelfboard/internal/layout"
	"github.com/odyssey-erp/shelfboard/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *memRepo, *auditStub) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepo()
	audit := &auditStub{}
	svc := NewService(repo, audit, nil, nil)
	handler := NewHandler(nil, svc, NewSessions(client, svc, time.Minute, nil, nil))

	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	handler.MountRoutes(r)
	return r, repo, audit
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.ActorHeader, "ana")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerShelfLifecycle(t *testing.T) {
	h, repo, audit := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/shelves", `{"code":"s1","name":"Front","rows":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/shelves/S1/slots", `{"product_code":"A","row_number":1}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, h, http.MethodPost, "/shelves/S1/slots", `{"product_code":"B","row_number":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/shelves/S1/slots", `{"product_code":"B","row_number":2}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	rec = do(t, h, http.MethodPost, "/shelves/S1/slots", `{"product_code":"Z","row_number":9}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/shelves/S1/layout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var view LayoutView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Rows, 2)
	require.Len(t, view.Rows[0].Slots, 2)
	require.Equal(t, 1, view.Rows[1].NextPosition)

	rec = do(t, h, http.MethodDelete, "/shelves/S1/slots/A", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, layout.Layout{slot("B", 1, 2)}, repo.layoutOf("S1"))

	rec = do(t, h, http.MethodGet, "/shelves/NOPE", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	require.Equal(t, "ana", audit.entries[0].Actor)
}

func TestHandlerCreateValidation(t *testing.T) {
	h, _, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/shelves", `{"code":"","name":"Front","rows":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"code"`)
	require.Contains(t, rec.Body.String(), `"field":"rows"`)

	rec = do(t, h, http.MethodPost, "/shelves", `{"code":"S1","unknown":true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerEditSession(t *testing.T) {
	h, repo, _ := newTestRouter(t)
	repo.seed(Shelf{Code: "S1", Name: "Shelf", Rows: 2}, layout.Layout{slot("A", 1, 1), slot("B", 1, 2), slot("C", 2, 1)})

	rec := do(t, h, http.MethodPost, "/shelves/S1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess EditSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.Equal(t, "ana", sess.Actor)

	rec = do(t, h, http.MethodPost, "/shelves/S1/sessions", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/moves", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/moves", `{"active_id":"A","over_id":"A"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res MoveResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.False(t, res.Changed)

	rec = do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/moves", `{"product_code":"A","direction":"down"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.True(t, res.Changed)

	rec = do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/save", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, layout.Layout{slot("B", 1, 1), slot("A", 1, 2), slot("C", 2, 1)}, repo.layoutOf("S1"))

	rec = do(t, h, http.MethodGet, "/sessions/"+sess.ID, "")
	require.Equal(t, http.StatusGone, rec.Code)
}

func TestHandlerCancelSession(t *testing.T) {
	h, repo, _ := newTestRouter(t)
	repo.seed(Shelf{Code: "S1", Name: "Shelf", Rows: 1}, layout.Layout{slot("A", 1, 1), slot("B", 1, 2)})

	rec := do(t, h, http.MethodPost, "/shelves/S1/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var sess EditSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))

	rec = do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/moves", `{"active_id":"B","over_id":"A"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/sessions/"+sess.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body cancelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, layout.Layout{slot("A", 1, 1), slot("B", 1, 2)}, body.Original)
	require.Equal(t, layout.Layout{slot("A", 1, 1), slot("B", 1, 2)}, repo.layoutOf("S1"))
}
