package shelves

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/shelfboard/internal/layout"
	"github.com/odyssey-erp/shelfboard/internal/platform/httpx"
	"github.com/odyssey-erp/shelfboard/internal/shared"
)

type recorderStub struct {
	mu       sync.Mutex
	moves    []bool
	outcomes []string
}

func (r *recorderStub) ObserveMove(changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves = append(r.moves, changed)
}

func (r *recorderStub) ObserveSession(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

type sessionFixture struct {
	sessions *Sessions
	repo     *memRepo
	mr       *miniredis.Miniredis
	recorder *recorderStub
}

func newSessionFixture(t *testing.T) sessionFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemRepo()
	repo.seed(Shelf{Code: "S1", Name: "Shelf", Rows: 2}, layout.Layout{slot("A", 1, 1), slot("B", 1, 2), slot("C", 2, 1)})
	recorder := &recorderStub{}
	svc := NewService(repo, nil, nil, nil)
	sessions := NewSessions(client, svc, 10*time.Minute, recorder, nil)
	sessions.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	return sessionFixture{sessions: sessions, repo: repo, mr: mr, recorder: recorder}
}

func TestSessionMoveAndSave(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	sess, err := fx.sessions.OpenSession(ctx, "s1", "ana")
	require.NoError(t, err)
	require.Equal(t, "S1", sess.ShelfCode)
	require.True(t, fx.mr.Exists(shared.EditSessionKey(sess.ID)))
	require.True(t, fx.mr.Exists(shared.ShelfEditLockKey("S1")))

	res, err := fx.sessions.Move(ctx, sess.ID, layout.PointerDrop{ActiveID: "A", OverID: "C"})
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, 1, res.Session.Moves)
	require.Equal(t, layout.Layout{slot("B", 1, 1), slot("A", 2, 1), slot("C", 2, 2)}, res.Session.Working)

	stored, err := fx.sessions.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, res.Session.Working, stored.Working)
	require.Equal(t, layout.Layout{slot("A", 1, 1), slot("B", 1, 2), slot("C", 2, 1)}, fx.repo.layoutOf("S1"))

	view, err := fx.sessions.SaveSession(ctx, sess.ID, shared.AnonymousActor)
	require.NoError(t, err)
	require.Equal(t, res.Session.Working, view.Slots)
	require.Equal(t, res.Session.Working, fx.repo.layoutOf("S1"))
	require.False(t, fx.mr.Exists(shared.EditSessionKey(sess.ID)))
	require.False(t, fx.mr.Exists(shared.ShelfEditLockKey("S1")))

	_, err = fx.sessions.GetSession(ctx, sess.ID)
	require.ErrorIs(t, err, httpx.ErrGone)
	require.Equal(t, []string{"opened", "saved"}, fx.recorder.outcomes)
}

func TestSessionNoopMoveIsReported(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	sess, err := fx.sessions.OpenSession(ctx, "S1", "ana")
	require.NoError(t, err)

	res, err := fx.sessions.Move(ctx, sess.ID, layout.PointerDrop{ActiveID: "A", OverID: "A"})
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Zero(t, res.Session.Moves)

	res, err = fx.sessions.Move(ctx, sess.ID, layout.PointerDrop{ActiveID: "A", OverID: "missing"})
	require.NoError(t, err)
	require.False(t, res.Changed)

	res, err = fx.sessions.Move(ctx, sess.ID, layout.KeyboardStep{ProductCode: "B", Direction: layout.DirectionUp})
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, []bool{false, false, true}, fx.recorder.moves)
}

func TestSessionCancelRestoresOriginal(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	sess, err := fx.sessions.OpenSession(ctx, "S1", "ana")
	require.NoError(t, err)

	_, err = fx.sessions.Move(ctx, sess.ID, layout.PointerDrop{ActiveID: "C", OverID: "A"})
	require.NoError(t, err)

	original, err := fx.sessions.CancelSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.Original, original)
	require.Equal(t, layout.Layout{slot("A", 1, 1), slot("B", 1, 2), slot("C", 2, 1)}, fx.repo.layoutOf("S1"))
	require.False(t, fx.mr.Exists(shared.ShelfEditLockKey("S1")))

	_, err = fx.sessions.CancelSession(ctx, sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionLockAllowsOneEditorPerShelf(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	first, err := fx.sessions.OpenSession(ctx, "S1", "ana")
	require.NoError(t, err)

	_, err = fx.sessions.OpenSession(ctx, "S1", "ben")
	require.ErrorIs(t, err, ErrShelfLocked)
	require.ErrorIs(t, err, httpx.ErrConflict)

	_, err = fx.sessions.CancelSession(ctx, first.ID)
	require.NoError(t, err)

	_, err = fx.sessions.OpenSession(ctx, "S1", "ben")
	require.NoError(t, err)
}

func TestSessionExpires(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	sess, err := fx.sessions.OpenSession(ctx, "S1", "ana")
	require.NoError(t, err)

	fx.mr.FastForward(11 * time.Minute)

	_, err = fx.sessions.Move(ctx, sess.ID, layout.PointerDrop{ActiveID: "A", OverID: "B"})
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = fx.sessions.OpenSession(ctx, "S1", "ben")
	require.NoError(t, err)
}

func TestSessionSaveConflictKeepsSession(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	sess, err := fx.sessions.OpenSession(ctx, "S1", "ana")
	require.NoError(t, err)

	fx.repo.seed(Shelf{Code: "S1", Name: "Shelf", Rows: 2}, layout.Layout{slot("A", 1, 1)})

	_, err = fx.sessions.SaveSession(ctx, sess.ID, "ana")
	require.ErrorIs(t, err, ErrLayoutMismatch)
	_, err = fx.sessions.GetSession(ctx, sess.ID)
	require.NoError(t, err)
}

func TestSessionUnknownShelfOrID(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	_, err := fx.sessions.OpenSession(ctx, "NOPE", "ana")
	require.ErrorIs(t, err, ErrShelfNotFound)

	_, err = fx.sessions.GetSession(ctx, "not-a-uuid")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionSavesShelfWithRemovalGap(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()
	fx.repo.seed(Shelf{Code: "S1", Name: "Shelf", Rows: 2}, layout.Layout{
		slot("A", 1, 1), slot("B", 1, 2), slot("C", 1, 3),
		slot("X", 2, 1), slot("Y", 2, 2),
	})
	require.NoError(t, fx.sessions.service.RemoveProduct(ctx, "S1", "B", "ana"))
	gapped := layout.Layout{slot("A", 1, 1), slot("C", 1, 3), slot("X", 2, 1), slot("Y", 2, 2)}

	untouched, err := fx.sessions.OpenSession(ctx, "S1", "ana")
	require.NoError(t, err)
	_, err = fx.sessions.SaveSession(ctx, untouched.ID, "ana")
	require.NoError(t, err)
	require.Equal(t, gapped, fx.repo.layoutOf("S1"))

	sess, err := fx.sessions.OpenSession(ctx, "S1", "ana")
	require.NoError(t, err)
	res, err := fx.sessions.Move(ctx, sess.ID, layout.PointerDrop{ActiveID: "X", OverID: "Y"})
	require.NoError(t, err)
	require.True(t, res.Changed)

	view, err := fx.sessions.SaveSession(ctx, sess.ID, "ana")
	require.NoError(t, err)
	want := layout.Layout{slot("A", 1, 1), slot("C", 1, 3), slot("Y", 2, 1), slot("X", 2, 2)}
	require.Equal(t, want, view.Slots)
	require.Equal(t, want, fx.repo.layoutOf("S1"))

	placed, err := fx.sessions.service.AssignProduct(ctx, AssignInput{ShelfCode: "S1", ProductCode: "D", RowNumber: 1, Actor: "ana"})
	require.NoError(t, err)
	require.Equal(t, 2, placed.Position)
}

func TestRetryWatchGivesUpWithSessionBusy(t *testing.T) {
	calls := 0
	err := retryWatch(func() error {
		calls++
		return redis.TxFailedErr
	})
	require.ErrorIs(t, err, ErrSessionBusy)
	require.ErrorIs(t, err, httpx.ErrConflict)
	require.NotErrorIs(t, err, ErrShelfLocked)
	require.Equal(t, maxWatchRetries, calls)

	calls = 0
	err = retryWatch(func() error {
		calls++
		if calls < 3 {
			return redis.TxFailedErr
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)

	boom := errors.New("boom")
	require.ErrorIs(t, retryWatch(func() error { return boom }), boom)
}
