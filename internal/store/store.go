// Package store holds the authoritative in-memory exercise log for one user
// and owns the optimistic-mutation-with-remote-sync policy: every mutation is
// applied locally exactly once, remote persistence is attempted exactly once,
// and a failed remote call degrades the outcome instead of surfacing an error.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/fitlog/internal/analytics"
	"example.com/fitlog/internal/dateutil"
	"example.com/fitlog/internal/domain"
	"example.com/fitlog/internal/observability"
)

// Remote captures the persistence operations of the backing row store. All
// calls are scoped to one user and attempted a single time with no retry.
type Remote interface {
	ListRecords(ctx context.Context, userID string) ([]domain.Record, error)
	InsertRecord(ctx context.Context, userID string, draft domain.RecordDraft) (domain.Record, error)
	UpdateRecord(ctx context.Context, userID, id string, patch domain.RecordPatch) error
	DeleteRecord(ctx context.Context, userID, id string) error
	ListTypes(ctx context.Context, userID string) ([]domain.ExerciseType, error)
	InsertType(ctx context.Context, userID string, draft domain.TypeDraft) (domain.ExerciseType, error)
}

// Identity resolves the ambient authenticated user. Operations silently no-op
// when it reports absence.
type Identity interface {
	CurrentUserID(ctx context.Context) (string, bool)
}

// SnapshotCache persists the restart-surviving slice of store state.
type SnapshotCache interface {
	Load(ctx context.Context, userID string) (*domain.Snapshot, error)
	Save(ctx context.Context, userID string, snap domain.Snapshot) error
}

// EventSink receives best-effort record lifecycle notifications. Failures are
// logged by the store and never affect local state.
type EventSink interface {
	RecordLogged(ctx context.Context, userID string, rec domain.Record) error
	RecordUpdated(ctx context.Context, userID string, rec domain.Record) error
	RecordDeleted(ctx context.Context, userID, id string) error
}

// Options carries the store's collaborators.
type Options struct {
	Remote   Remote
	Identity Identity
	Cache    SnapshotCache
	Events   EventSink // optional
	Logger   *zap.SugaredLogger
	Now      func() time.Time // defaults to time.Now
}

// Store is the per-user reactive state holder. Derived queries are recomputed
// from scratch on every call; there is no memoization to invalidate.
type Store struct {
	remote   Remote
	identity Identity
	cache    SnapshotCache
	events   EventSink
	log      *zap.SugaredLogger
	now      func() time.Time

	mu        sync.Mutex
	records   []domain.Record
	types     []domain.ExerciseType
	view      domain.ViewWindow
	displayed string // YYYY-MM-DD, never persisted
	loading   bool

	listeners    map[int]func()
	nextListener int
}

// New constructs a Store. The displayed date always opens on today.
func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		remote:    opts.Remote,
		identity:  opts.Identity,
		cache:     opts.Cache,
		events:    opts.Events,
		log:       opts.Logger,
		now:       opts.Now,
		types:     domain.BuiltinTypes(),
		view:      domain.ViewWeekly,
		displayed: dateutil.Today(opts.Now()),
		listeners: make(map[int]func()),
	}
}

// Subscribe registers a change listener and returns its cancel func.
func (s *Store) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// persist writes the durable snapshot after a successful state transition.
// The displayed date is excluded so a new session opens on today.
func (s *Store) persist(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	snap := domain.Snapshot{
		Records:    append([]domain.Record(nil), s.records...),
		Types:      append([]domain.ExerciseType(nil), s.types...),
		ViewWindow: s.view,
	}
	s.mu.Unlock()

	if err := s.cache.Save(ctx, userID, snap); err != nil {
		observability.RecordSnapshotFailure()
		s.log.Warnw("snapshot write failed", "user", userID, "error", err)
	}
}

// Rehydrate loads the cached snapshot, if any, into the store. Called once
// when a session's store is constructed, before any remote refresh.
func (s *Store) Rehydrate(ctx context.Context) {
	userID, ok := s.identity.CurrentUserID(ctx)
	if !ok || s.cache == nil {
		return
	}

	snap, err := s.cache.Load(ctx, userID)
	if err != nil {
		s.log.Warnw("snapshot read failed", "user", userID, "error", err)
		return
	}
	if snap == nil {
		return
	}

	s.mu.Lock()
	s.records = snap.Records
	if len(snap.Types) > 0 {
		s.types = snap.Types
	}
	if snap.ViewWindow.Valid() {
		s.view = snap.ViewWindow
	}
	s.mu.Unlock()
	s.notify()
}

// Load fetches the full record and type sets for the current user, replacing
// local state entirely. Without an authenticated user this is a no-op. A
// failed fetch leaves local state unchanged and is logged only.
func (s *Store) Load(ctx context.Context) {
	userID, ok := s.identity.CurrentUserID(ctx)
	if !ok {
		return
	}

	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	s.notify()

	records, err := s.remote.ListRecords(ctx, userID)
	if err != nil {
		observability.RecordSyncFailure("list_records")
		s.log.Errorw("loading records failed", "user", userID, "error", err)
	} else {
		s.mu.Lock()
		s.records = records
		s.mu.Unlock()
	}

	types, err := s.remote.ListTypes(ctx, userID)
	if err != nil {
		observability.RecordSyncFailure("list_types")
		s.log.Errorw("loading exercise types failed", "user", userID, "error", err)
	} else {
		s.mu.Lock()
		s.types = append(domain.BuiltinTypes(), types...)
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()

	s.persist(ctx, userID)
	s.notify()
}

// Add logs a new record. Remote persistence is attempted first; on success the
// remote-assigned row is appended, on any failure a locally-constructed record
// is appended instead. The operation never fails outwardly.
func (s *Store) Add(ctx context.Context, draft domain.RecordDraft) (domain.Record, bool) {
	userID, ok := s.identity.CurrentUserID(ctx)
	if !ok {
		return domain.Record{}, false
	}

	rec, err := s.remote.InsertRecord(ctx, userID, draft)
	if err != nil {
		observability.RecordSyncFailure("insert_record")
		observability.RecordLocalFallback()
		s.log.Errorw("adding record remotely failed, keeping local copy",
			"user", userID, "date", draft.Date, "error", err)
		rec = domain.Record{
			ID:        localID(),
			Date:      draft.Date,
			Type:      draft.Type,
			Minutes:   draft.Minutes,
			Intensity: draft.Intensity,
			Memo:      draft.Memo,
			CreatedAt: s.now().UTC(),
		}
	} else {
		observability.RecordPersisted(rec.CreatedAt)
		s.emit(func() error { return s.events.RecordLogged(ctx, userID, rec) })
	}

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()

	s.persist(ctx, userID)
	s.notify()
	return rec, true
}

// Update merges the patch into the record with the given id, but only when
// the remote update succeeds. On failure the local record is left unchanged.
func (s *Store) Update(ctx context.Context, id string, patch domain.RecordPatch) {
	userID, ok := s.identity.CurrentUserID(ctx)
	if !ok {
		return
	}

	if err := s.remote.UpdateRecord(ctx, userID, id, patch); err != nil {
		observability.RecordSyncFailure("update_record")
		s.log.Errorw("updating record remotely failed, dropping update",
			"user", userID, "id", id, "error", err)
		return
	}

	var updated domain.Record
	s.mu.Lock()
	for i, rec := range s.records {
		if rec.ID == id {
			s.records[i] = patch.Apply(rec)
			updated = s.records[i]
			break
		}
	}
	s.mu.Unlock()

	if updated.ID != "" {
		s.emit(func() error { return s.events.RecordUpdated(ctx, userID, updated) })
	}
	s.persist(ctx, userID)
	s.notify()
}

// Delete removes the record with the given id, but only when the remote
// delete succeeds. On failure the local record remains.
func (s *Store) Delete(ctx context.Context, id string) {
	userID, ok := s.identity.CurrentUserID(ctx)
	if !ok {
		return
	}

	if err := s.remote.DeleteRecord(ctx, userID, id); err != nil {
		observability.RecordSyncFailure("delete_record")
		s.log.Errorw("deleting record remotely failed, keeping local copy",
			"user", userID, "id", id, "error", err)
		return
	}

	s.mu.Lock()
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	s.mu.Unlock()

	s.emit(func() error { return s.events.RecordDeleted(ctx, userID, id) })
	s.persist(ctx, userID)
	s.notify()
}

// AddType appends a user-defined exercise type, with the same remote-first,
// local-fallback policy as Add.
func (s *Store) AddType(ctx context.Context, draft domain.TypeDraft) (domain.ExerciseType, bool) {
	userID, ok := s.identity.CurrentUserID(ctx)
	if !ok {
		return domain.ExerciseType{}, false
	}

	typ, err := s.remote.InsertType(ctx, userID, draft)
	if err != nil {
		observability.RecordSyncFailure("insert_type")
		observability.RecordLocalFallback()
		s.log.Errorw("adding exercise type remotely failed, keeping local copy",
			"user", userID, "name", draft.Name, "error", err)
		typ = domain.ExerciseType{
			ID:               localID(),
			Name:             draft.Name,
			DefaultIntensity: draft.DefaultIntensity,
		}
	}

	s.mu.Lock()
	s.types = append(s.types, typ)
	s.mu.Unlock()

	s.persist(ctx, userID)
	s.notify()
	return typ, true
}

// SetViewWindow switches the aggregation granularity. Invalid values are
// ignored.
func (s *Store) SetViewWindow(ctx context.Context, view domain.ViewWindow) {
	if !view.Valid() {
		return
	}
	s.mu.Lock()
	s.view = view
	s.mu.Unlock()

	if userID, ok := s.identity.CurrentUserID(ctx); ok {
		s.persist(ctx, userID)
	}
	s.notify()
}

// SetDisplayedDate moves the displayed calendar date. This field is session
// state only and is never persisted.
func (s *Store) SetDisplayedDate(day string) {
	if _, err := dateutil.ParseDay(day); err != nil {
		return
	}
	s.mu.Lock()
	s.displayed = day
	s.mu.Unlock()
	s.notify()
}

// Records returns a copy of the current record list.
func (s *Store) Records() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Record(nil), s.records...)
}

// Types returns a copy of the current exercise type list.
func (s *Store) Types() []domain.ExerciseType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ExerciseType(nil), s.types...)
}

// ViewWindow returns the active aggregation granularity.
func (s *Store) ViewWindow() domain.ViewWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// DisplayedDate returns the currently displayed calendar date.
func (s *Store) DisplayedDate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayed
}

// Loading reports whether a full refresh is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// WeeklyStats aggregates the week starting at weekStart. Pure read, no
// remote I/O.
func (s *Store) WeeklyStats(weekStart time.Time) domain.WeeklyStats {
	return analytics.Weekly(s.Records(), weekStart)
}

// MonthlyStats aggregates one calendar month.
func (s *Store) MonthlyStats(year, month int) domain.MonthlyStats {
	return analytics.Monthly(s.Records(), year, month)
}

// StreakInfo computes the consecutive-day streaks using a single clock
// reading as today.
func (s *Store) StreakInfo() domain.StreakInfo {
	return analytics.Streak(s.Records(), s.now())
}

// RecordsForDate returns the records logged against one day.
func (s *Store) RecordsForDate(day string) []domain.Record {
	return analytics.ForDate(s.Records(), day)
}

// RecordsForWeek returns the records in the week starting at weekStart.
func (s *Store) RecordsForWeek(weekStart time.Time) []domain.Record {
	return analytics.ForWeek(s.Records(), weekStart)
}

// emit publishes a lifecycle event when a sink is configured. Publish
// failures are logged and otherwise ignored.
func (s *Store) emit(publish func() error) {
	if s.events == nil {
		return
	}
	if err := publish(); err != nil {
		s.log.Warnw("event publish failed", "error", err)
	}
}

// localID generates the id for records kept local-only. The prefix keeps
// locally assigned ids distinguishable from remote-assigned ones.
func localID() string {
	return "local-" + uuid.NewString()
}
