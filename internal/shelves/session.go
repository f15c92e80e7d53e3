package shelves

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/shelfboard/internal/layout"
	"github.com/odyssey-erp/shelfboard/internal/shared"
)

const maxWatchRetries = 5

// EditSession is one operator's in-progress rearrangement of a shelf.
type EditSession struct {
	ID        string        `json:"id"`
	ShelfCode string        `json:"shelf_code"`
	Actor     string        `json:"actor"`
	Original  layout.Layout `json:"original"`
	Working   layout.Layout `json:"working"`
	Moves     int           `json:"moves"`
	OpenedAt  time.Time     `json:"opened_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// MoveResult reports the session after a move and whether the move changed it.
type MoveResult struct {
	Session EditSession `json:"session"`
	Changed bool        `json:"changed"`
}

// SessionRecorder receives edit session events, typically Prometheus counters.
type SessionRecorder interface {
	ObserveMove(changed bool)
	ObserveSession(outcome string)
}

// Sessions keeps edit sessions in Redis.
type Sessions struct {
	client   *redis.Client
	service  *Service
	ttl      time.Duration
	recorder SessionRecorder
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewSessions constructs the session store. recorder may be nil.
func NewSessions(client *redis.Client, service *Service, ttl time.Duration, recorder SessionRecorder, logger *slog.Logger) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sessions{
		client:   client,
		service:  service,
		ttl:      ttl,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// OpenSession snapshots the stored layout of a shelf and locks the shelf for editing.
func (s *Sessions) OpenSession(ctx context.Context, shelfCode, actor string) (EditSession, error) {
	shelf, err := s.service.GetShelf(ctx, shelfCode)
	if err != nil {
		return EditSession{}, err
	}
	id := s.newID()
	lockKey := shared.ShelfEditLockKey(shelf.Code)
	ok, err := s.client.SetNX(ctx, lockKey, id, s.ttl).Result()
	if err != nil {
		return EditSession{}, fmt.Errorf("shelves: acquire edit lock: %w", err)
	}
	if !ok {
		return EditSession{}, ErrShelfLocked
	}

	current, err := s.service.LoadLayout(ctx, shelf.Code)
	if err != nil {
		s.releaseLock(ctx, shelf.Code, id)
		return EditSession{}, err
	}
	now := s.now().UTC()
	sess := EditSession{
		ID:        id,
		ShelfCode: shelf.Code,
		Actor:     actor,
		Original:  current,
		Working:   layout.Clone(current),
		OpenedAt:  now,
		UpdatedAt: now,
	}
	if err := s.store(ctx, s.client, sess); err != nil {
		s.releaseLock(ctx, shelf.Code, id)
		return EditSession{}, err
	}
	s.observeSession("opened")
	s.logger.Info("edit session opened", slog.String("session", id), slog.String("shelf", shelf.Code), slog.String("actor", actor))
	return sess, nil
}

// GetSession loads an open session.
func (s *Sessions) GetSession(ctx context.Context, id string) (EditSession, error) {
	return s.load(ctx, s.client, id)
}

// Move applies a drag gesture to the working layout. Gestures that resolve to
// nothing leave the session untouched and report Changed=false.
func (s *Sessions) Move(ctx context.Context, id string, resolver layout.DragResolver) (MoveResult, error) {
	key := shared.EditSessionKey(id)
	var result MoveResult
	txf := func(tx *redis.Tx) error {
		sess, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		next, changed := layout.ApplyDrag(sess.Working, resolver)
		result = MoveResult{Session: sess, Changed: changed}
		if !changed {
			return nil
		}
		sess.Working = next
		sess.Moves++
		sess.UpdatedAt = s.now().UTC()
		payload, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, s.ttl)
			pipe.Expire(ctx, shared.ShelfEditLockKey(sess.ShelfCode), s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result.Session = sess
		return nil
	}

	err := retryWatch(func() error { return s.client.Watch(ctx, txf, key) })
	if err != nil {
		return MoveResult{}, err
	}
	if s.recorder != nil {
		s.recorder.ObserveMove(result.Changed)
	}
	return result, nil
}

// retryWatch reruns an optimistic transaction while its watched key keeps
// changing underneath it.
func retryWatch(run func() error) error {
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := run()
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrSessionBusy
}

// CancelSession discards the session and returns the original snapshot. The
// stored layout is not touched.
func (s *Sessions) CancelSession(ctx context.Context, id string) (layout.Layout, error) {
	sess, err := s.load(ctx, s.client, id)
	if err != nil {
		return nil, err
	}
	if err := s.client.Del(ctx, shared.EditSessionKey(id)).Err(); err != nil {
		return nil, err
	}
	s.releaseLock(ctx, sess.ShelfCode, id)
	s.observeSession("cancelled")
	s.logger.Info("edit session cancelled", slog.String("session", id), slog.String("shelf", sess.ShelfCode))
	return sess.Original, nil
}

// SaveSession persists the working layout and closes the session. A failed save
// keeps the session open so the operator can cancel or retry.
func (s *Sessions) SaveSession(ctx context.Context, id, actor string) (LayoutView, error) {
	sess, err := s.load(ctx, s.client, id)
	if err != nil {
		return LayoutView{}, err
	}
	if actor == "" || actor == shared.AnonymousActor {
		actor = sess.Actor
	}
	view, err := s.service.SaveLayout(ctx, sess.ShelfCode, sess.Working, actor)
	if err != nil {
		return LayoutView{}, err
	}
	if err := s.client.Del(ctx, shared.EditSessionKey(id)).Err(); err != nil {
		s.logger.Warn("edit session cleanup", slog.String("session", id), slog.Any("error", err))
	}
	s.releaseLock(ctx, sess.ShelfCode, id)
	s.observeSession("saved")
	s.logger.Info("edit session saved", slog.String("session", id), slog.String("shelf", sess.ShelfCode), slog.Int("moves", sess.Moves))
	return view, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Sessions) load(ctx context.Context, c getter, id string) (EditSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return EditSession{}, ErrSessionNotFound
	}
	payload, err := c.Get(ctx, shared.EditSessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return EditSession{}, ErrSessionNotFound
	}
	if err != nil {
		return EditSession{}, err
	}
	var sess EditSession
	if err := json.Unmarshal(payload, &sess); err != nil {
		return EditSession{}, fmt.Errorf("shelves: decode session: %w", err)
	}
	return sess, nil
}

func (s *Sessions) store(ctx context.Context, c redis.Cmdable, sess EditSession) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return c.Set(ctx, shared.EditSessionKey(sess.ID), payload, s.ttl).Err()
}

// releaseLock drops the shelf lock only while it still belongs to sessionID.
func (s *Sessions) releaseLock(ctx context.Context, shelfCode, sessionID string) {
	key := shared.ShelfEditLockKey(shelfCode)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		owner, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) || (err == nil && owner != sessionID) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if err != nil {
		s.logger.Warn("release edit lock", slog.String("shelf", shelfCode), slog.Any("error", err))
	}
}

func (s *Sessions) observeSession(outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveSession(outcome)
	}
}
