package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/fitlog/internal/domain"
)

type stubIdentity struct {
	userID string
	absent bool
}

func (s stubIdentity) CurrentUserID(ctx context.Context) (string, bool) {
	if s.absent {
		return "", false
	}
	return s.userID, true
}

type stubRemote struct {
	fail bool

	records []domain.Record
	types   []domain.ExerciseType

	inserted []domain.RecordDraft
	updated  []string
	deleted  []string
}

var errRemoteDown = errors.New("remote unreachable")

func (r *stubRemote) ListRecords(ctx context.Context, userID string) ([]domain.Record, error) {
	if r.fail {
		return nil, errRemoteDown
	}
	return append([]domain.Record(nil), r.records...), nil
}

func (r *stubRemote) InsertRecord(ctx context.Context, userID string, draft domain.RecordDraft) (domain.Record, error) {
	if r.fail {
		return domain.Record{}, errRemoteDown
	}
	r.inserted = append(r.inserted, draft)
	return domain.Record{
		ID:        "remote-1",
		Date:      draft.Date,
		Type:      draft.Type,
		Minutes:   draft.Minutes,
		Intensity: draft.Intensity,
		Memo:      draft.Memo,
		CreatedAt: time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC),
	}, nil
}

func (r *stubRemote) UpdateRecord(ctx context.Context, userID, id string, patch domain.RecordPatch) error {
	if r.fail {
		return errRemoteDown
	}
	r.updated = append(r.updated, id)
	return nil
}

func (r *stubRemote) DeleteRecord(ctx context.Context, userID, id string) error {
	if r.fail {
		return errRemoteDown
	}
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubRemote) ListTypes(ctx context.Context, userID string) ([]domain.ExerciseType, error) {
	if r.fail {
		return nil, errRemoteDown
	}
	return append([]domain.ExerciseType(nil), r.types...), nil
}

func (r *stubRemote) InsertType(ctx context.Context, userID string, draft domain.TypeDraft) (domain.ExerciseType, error) {
	if r.fail {
		return domain.ExerciseType{}, errRemoteDown
	}
	return domain.ExerciseType{ID: "remote-type-1", Name: draft.Name, DefaultIntensity: draft.DefaultIntensity}, nil
}

type stubCache struct {
	snapshots map[string]domain.Snapshot
	saves     int
}

func newStubCache() *stubCache {
	return &stubCache{snapshots: make(map[string]domain.Snapshot)}
}

func (c *stubCache) Load(ctx context.Context, userID string) (*domain.Snapshot, error) {
	snap, ok := c.snapshots[userID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (c *stubCache) Save(ctx context.Context, userID string, snap domain.Snapshot) error {
	c.snapshots[userID] = snap
	c.saves++
	return nil
}

func fixedNow() time.Time {
	return time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)
}

func newStore(remote *stubRemote, cache *stubCache, identity Identity) *Store {
	return New(Options{
		Remote:   remote,
		Identity: identity,
		Cache:    cache,
		Now:      fixedNow,
	})
}

func draft() domain.RecordDraft {
	return domain.RecordDraft{
		Date:      "2024-03-10",
		Type:      "Running",
		Minutes:   30,
		Intensity: domain.IntensityMedium,
	}
}

func TestAddUsesRemoteAssignedRecord(t *testing.T) {
	remote := &stubRemote{}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})

	rec, ok := st.Add(context.Background(), draft())
	require.True(t, ok)
	require.Equal(t, "remote-1", rec.ID)

	records := st.Records()
	require.Len(t, records, 1)
	require.Equal(t, "remote-1", records[0].ID)
}

func TestAddFallsBackToLocalRecordOnRemoteFailure(t *testing.T) {
	remote := &stubRemote{fail: true}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})

	rec, ok := st.Add(context.Background(), draft())
	require.True(t, ok)
	require.True(t, strings.HasPrefix(rec.ID, "local-"))
	require.Equal(t, fixedNow(), rec.CreatedAt)

	records := st.Records()
	require.Len(t, records, 1)
	require.Equal(t, rec.ID, records[0].ID)
}

func TestAddWithoutIdentityIsNoop(t *testing.T) {
	remote := &stubRemote{}
	st := newStore(remote, newStubCache(), stubIdentity{absent: true})

	_, ok := st.Add(context.Background(), draft())
	require.False(t, ok)
	require.Empty(t, st.Records())
	require.Empty(t, remote.inserted)
}

func TestUpdateMergesFieldsOnRemoteSuccess(t *testing.T) {
	remote := &stubRemote{}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})
	st.Add(context.Background(), draft())

	minutes := 45
	st.Update(context.Background(), "remote-1", domain.RecordPatch{Minutes: &minutes})

	records := st.Records()
	require.Equal(t, 45, records[0].Minutes)
	require.Equal(t, "Running", records[0].Type) // untouched field survives
	require.Equal(t, []string{"remote-1"}, remote.updated)
}

func TestUpdateDroppedOnRemoteFailure(t *testing.T) {
	remote := &stubRemote{}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})
	st.Add(context.Background(), draft())

	remote.fail = true
	minutes := 45
	st.Update(context.Background(), "remote-1", domain.RecordPatch{Minutes: &minutes})

	records := st.Records()
	require.Equal(t, 30, records[0].Minutes)
}

func TestDeleteRemovesOnRemoteSuccess(t *testing.T) {
	remote := &stubRemote{}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})
	st.Add(context.Background(), draft())

	st.Delete(context.Background(), "remote-1")
	require.Empty(t, st.Records())
}

func TestDeleteKeepsRecordOnRemoteFailure(t *testing.T) {
	remote := &stubRemote{}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})
	st.Add(context.Background(), draft())

	remote.fail = true
	st.Delete(context.Background(), "remote-1")

	require.Len(t, st.Records(), 1)
}

func TestLoadReplacesLocalState(t *testing.T) {
	remote := &stubRemote{
		records: []domain.Record{
			{ID: "r1", Date: "2024-03-09", Type: "Yoga", Minutes: 20, Intensity: domain.IntensityLow},
		},
		types: []domain.ExerciseType{
			{ID: "t1", Name: "Climbing", DefaultIntensity: domain.IntensityHigh},
		},
	}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})

	st.Load(context.Background())

	records := st.Records()
	require.Len(t, records, 1)
	require.Equal(t, "r1", records[0].ID)

	types := st.Types()
	require.Len(t, types, len(domain.BuiltinTypes())+1)
	require.Equal(t, "Climbing", types[len(types)-1].Name)
	require.False(t, st.Loading())
}

func TestLoadWithoutIdentityLeavesStateUnchanged(t *testing.T) {
	remote := &stubRemote{
		records: []domain.Record{{ID: "r1", Date: "2024-03-09"}},
	}
	st := newStore(remote, newStubCache(), stubIdentity{absent: true})

	st.Load(context.Background())
	require.Empty(t, st.Records())
}

func TestLoadFailureLeavesStateUnchanged(t *testing.T) {
	remote := &stubRemote{}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})
	st.Add(context.Background(), draft())

	remote.fail = true
	st.Load(context.Background())

	require.Len(t, st.Records(), 1)
	require.False(t, st.Loading())
}

func TestSnapshotExcludesDisplayedDate(t *testing.T) {
	remote := &stubRemote{}
	cache := newStubCache()
	st := newStore(remote, cache, stubIdentity{userID: "user-1"})

	st.SetDisplayedDate("2024-01-01")
	st.SetViewWindow(context.Background(), domain.ViewMonthly)
	st.Add(context.Background(), draft())

	snap := cache.snapshots["user-1"]
	require.Equal(t, domain.ViewMonthly, snap.ViewWindow)
	require.Len(t, snap.Records, 1)

	// A fresh store rehydrated from the snapshot opens on today, not on the
	// previously displayed date.
	st2 := newStore(remote, cache, stubIdentity{userID: "user-1"})
	st2.Rehydrate(context.Background())
	require.Equal(t, "2024-03-10", st2.DisplayedDate())
	require.Equal(t, domain.ViewMonthly, st2.ViewWindow())
	require.Len(t, st2.Records(), 1)
}

func TestAddTypeFallsBackLocallyOnRemoteFailure(t *testing.T) {
	remote := &stubRemote{fail: true}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})

	typ, ok := st.AddType(context.Background(), domain.TypeDraft{Name: "Rowing", DefaultIntensity: domain.IntensityHigh})
	require.True(t, ok)
	require.True(t, strings.HasPrefix(typ.ID, "local-"))

	types := st.Types()
	require.Equal(t, "Rowing", types[len(types)-1].Name)
}

func TestSubscribeNotifiesOnMutation(t *testing.T) {
	remote := &stubRemote{}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})

	calls := 0
	cancel := st.Subscribe(func() { calls++ })
	st.Add(context.Background(), draft())
	require.Positive(t, calls)

	before := calls
	cancel()
	st.SetDisplayedDate("2024-03-01")
	require.Equal(t, before, calls)
}

func TestDerivedQueriesUseOneCanonicalToday(t *testing.T) {
	remote := &stubRemote{}
	st := newStore(remote, newStubCache(), stubIdentity{userID: "user-1"})
	st.Add(context.Background(), draft()) // 2024-03-10, which is fixedNow's day

	info := st.StreakInfo()
	require.Equal(t, 1, info.Current)
	require.Equal(t, "2024-03-10", info.LastUpdated)
}

func TestManagerForUserSharesStorePerUser(t *testing.T) {
	remote := &stubRemote{}
	mgr := NewManager(Options{
		Remote:   remote,
		Identity: stubIdentity{userID: "user-1"},
		Cache:    newStubCache(),
		Now:      fixedNow,
	}, nil)

	st1, ok := mgr.ForUser(context.Background())
	require.True(t, ok)
	st2, ok := mgr.ForUser(context.Background())
	require.True(t, ok)
	require.Same(t, st1, st2)
}

func TestManagerForUserWithoutIdentity(t *testing.T) {
	mgr := NewManager(Options{
		Remote:   &stubRemote{},
		Identity: stubIdentity{absent: true},
		Cache:    newStubCache(),
	}, nil)

	_, ok := mgr.ForUser(context.Background())
	require.False(t, ok)
}
