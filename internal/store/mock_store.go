package store

import (
	"context"
	"database/sql"
	"slices"
	"sort"
	"sync"
)

// MockStore provides an in-memory implementation of Storage for tests. All
// data is stored in maps and protected by a mutex.
type MockStore struct {
	mu sync.RWMutex

	reviews    map[int64]Review
	changes    map[int64]map[int64]struct{} // [changeID][reviewID]
	activities []Activity

	nextReviewID   int64
	nextActivityID int64
}

// NewMockStore creates a new in-memory mock store.
func NewMockStore() *MockStore {
	return &MockStore{
		reviews:        make(map[int64]Review),
		changes:        make(map[int64]map[int64]struct{}),
		nextReviewID:   1,
		nextActivityID: 1,
	}
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}

// WithTx just runs the function for the mock.
func (m *MockStore) WithTx(ctx context.Context,
	fn func(ctx context.Context, s Storage) error) error {

	return fn(ctx, m)
}

// IsConsistent reports whether the change index only references stored
// reviews. Used by property tests.
func (m *MockStore) IsConsistent() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ids := range m.changes {
		for id := range ids {
			if _, ok := m.reviews[id]; !ok {
				return false
			}
		}
	}

	return true
}

// ReviewStore implementation.

func (m *MockStore) CreateReview(_ context.Context, r Review) (int64,
	error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = m.nextReviewID
	m.nextReviewID++

	m.reviews[r.ID] = r
	m.reindex(r.ID, r.ChangeIDs)

	return r.ID, nil
}

func (m *MockStore) UpdateReview(_ context.Context, r Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.reviews[r.ID]
	if !ok {
		return sql.ErrNoRows
	}

	r.CreatedAt = existing.CreatedAt
	m.reviews[r.ID] = r
	m.reindex(r.ID, r.ChangeIDs)

	return nil
}

func (m *MockStore) reindex(id int64, changes []int64) {
	for change, ids := range m.changes {
		delete(ids, id)
		if len(ids) == 0 {
			delete(m.changes, change)
		}
	}

	for _, change := range changes {
		if m.changes[change] == nil {
			m.changes[change] = make(map[int64]struct{})
		}
		m.changes[change][id] = struct{}{}
	}
}

func (m *MockStore) GetReview(_ context.Context, id int64) (Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reviews[id]
	if !ok {
		return Review{}, sql.ErrNoRows
	}

	r.ChangeIDs = nil

	return r, nil
}

func (m *MockStore) ListReviews(_ context.Context, limit,
	offset int) ([]Review, error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sortedReviews(func(Review) bool { return true })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	return all, nil
}

func (m *MockStore) ListReviewsByState(_ context.Context, state string,
	limit int) ([]Review, error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.sortedReviews(func(r Review) bool { return r.State == state })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	return all, nil
}

// sortedReviews returns matching reviews newest first. Caller holds mu.
func (m *MockStore) sortedReviews(keep func(Review) bool) []Review {
	out := make([]Review, 0, len(m.reviews))
	for _, r := range m.reviews {
		if keep(r) {
			r.ChangeIDs = nil
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })

	return out
}

func (m *MockStore) ReviewIDsByChange(_ context.Context,
	change int64) ([]int64, error) {

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.changes[change]))
	for id := range m.changes[change] {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids, nil
}

// ActivityStore implementation.

func (m *MockStore) CreateActivity(_ context.Context, a Activity) (int64,
	error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	a.ID = m.nextActivityID
	m.nextActivityID++
	a.Streams = slices.Clone(a.Streams)
	slices.Sort(a.Streams)
	a.Streams = slices.Compact(a.Streams)

	m.activities = append(m.activities, a)

	return a.ID, nil
}

func (m *MockStore) ListRecentActivities(_ context.Context,
	limit int) ([]Activity, error) {

	return m.listActivities(func(Activity) bool { return true }, limit), nil
}

func (m *MockStore) ListActivitiesByStream(_ context.Context, stream string,
	limit int) ([]Activity, error) {

	return m.listActivities(func(a Activity) bool {
		return slices.Contains(a.Streams, stream)
	}, limit), nil
}

func (m *MockStore) listActivities(keep func(Activity) bool,
	limit int) []Activity {

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Activity
	for i := len(m.activities) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if keep(m.activities[i]) {
			out = append(out, m.activities[i])
		}
	}

	return out
}

// Compile-time check.
var _ Storage = (*MockStore)(nil)
