package service

import (
	"context"
	"sort"
	"sync"

	"github.com/cloo-solutions/rerankd/internal/domain"
	"github.com/cloo-solutions/rerankd/internal/pagination"
	"github.com/stretchr/testify/mock"
)

// memState is an in-memory canonical store with the same uniqueness rules as
// the SQL schema.
type memState struct {
	nextID     int64
	searches   []domain.Search
	results    map[int64]domain.Result
	resultKeys map[string]int64
	tags       map[string]int64
	tagNames   map[int64]string
	tagLinks   map[int64][]int64
	groups     map[string]int64
	groupRefs  map[int64]domain.GroupRef
	groupLinks map[int64][]int64
	feedback   []domain.ResultFeedback
	targets    []domain.SearchTargetFeedback
}

func newMemState() *memState {
	return &memState{
		results:    map[int64]domain.Result{},
		resultKeys: map[string]int64{},
		tags:       map[string]int64{},
		tagNames:   map[int64]string{},
		tagLinks:   map[int64][]int64{},
		groups:     map[string]int64{},
		groupRefs:  map[int64]domain.GroupRef{},
		groupLinks: map[int64][]int64{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	c.searches = append([]domain.Search(nil), s.searches...)
	c.feedback = append([]domain.ResultFeedback(nil), s.feedback...)
	c.targets = append([]domain.SearchTargetFeedback(nil), s.targets...)
	for k, v := range s.results {
		c.results[k] = v
	}
	for k, v := range s.resultKeys {
		c.resultKeys[k] = v
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k, v := range s.tagNames {
		c.tagNames[k] = v
	}
	for k, v := range s.tagLinks {
		c.tagLinks[k] = append([]int64(nil), v...)
	}
	for k, v := range s.groups {
		c.groups[k] = v
	}
	for k, v := range s.groupRefs {
		c.groupRefs[k] = v
	}
	for k, v := range s.groupLinks {
		c.groupLinks[k] = append([]int64(nil), v...)
	}
	return c
}

func (s *memState) tagID(name, portal string) (int64, bool, error) {
	return memTags{s}.GetByName(context.Background(), name, portal)
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// memStore runs transactions one at a time and restores the pre-transaction
// state when fn fails.
type memStore struct {
	mu    sync.Mutex
	state *memState
	calls int
}

func newMemStore() *memStore {
	return &memStore{state: newMemState()}
}

func (m *memStore) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	snapshot := m.state.clone()
	if err := fn(&memRepos{s: m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *memStore) resultCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.results)
}

func (m *memStore) feedbackRows() []domain.ResultFeedback {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ResultFeedback(nil), m.state.feedback...)
}

func (m *memStore) targetRows() []domain.SearchTargetFeedback {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SearchTargetFeedback(nil), m.state.targets...)
}

type memRepos struct {
	s *memState
}

func (r *memRepos) Searches() SearchRepositoryInterface { return memSearches{r.s} }
func (r *memRepos) Results() ResultRepositoryInterface { return memResults{r.s} }
func (r *memRepos) Tags() TagRepositoryInterface { return memTags{r.s} }
func (r *memRepos) Groups() GroupRepositoryInterface { return memGroups{r.s} }
func (r *memRepos) Feedback() FeedbackRepositoryInterface { return memFeedback{r.s} }

type memSearches struct{ s *memState }

func (m memSearches) Create(ctx context.Context, search *domain.Search) error {
	search.ID = m.s.id()
	m.s.searches = append(m.s.searches, *search)
	return nil
}

func (m memSearches) GetByID(ctx context.Context, id int64) (*domain.Search, error) {
	for _, s := range m.s.searches {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, domain.ErrSearchNotFound
}

func (m memSearches) LatestID(ctx context.Context, conversationID, queryText string) (int64, bool, error) {
	for i := len(m.s.searches) - 1; i >= 0; i-- {
		s := m.s.searches[i]
		if s.ConversationID == conversationID && s.QueryText == queryText {
			return s.ID, true, nil
		}
	}
	return 0, false, nil
}

func (m memSearches) IDsByQuery(ctx context.Context, queryText, portal string) ([]int64, error) {
	var ids []int64
	for i := len(m.s.searches) - 1; i >= 0; i-- {
		s := m.s.searches[i]
		if s.QueryText == queryText && (portal == "" || s.Portal == portal) {
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (m memSearches) ListWithCursor(ctx context.Context, cursor *pagination.Cursor, limit int) (*SearchPageResult, error) {
	sorted := append([]domain.Search(nil), m.s.searches...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var items []*domain.Search
	for _, s := range sorted {
		if !cursor.After(s.ID, s.Timestamp) {
			continue
		}
		s := s
		items = append(items, &s)
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	var next string
	if hasMore {
		last := items[len(items)-1]
		next = pagination.EncodeCursor(last.ID, last.Timestamp)
	}
	return &SearchPageResult{Items: items, NextCursor: next, HasMore: hasMore}, nil
}

type memResults struct{ s *memState }

func (m memResults) InsertIfAbsent(ctx context.Context, r *domain.Result) (int64, bool, error) {
	key := r.Portal + "|" + r.IdentityKey
	if id, ok := m.s.resultKeys[key]; ok {
		r.ID = id
		return id, false, nil
	}
	r.ID = m.s.id()
	stored := *r
	stored.Tags = nil
	stored.Groups = nil
	m.s.results[r.ID] = stored
	m.s.resultKeys[key] = r.ID
	return r.ID, true, nil
}

func (m memResults) FindIDByIdentity(ctx context.Context, portal, identityKey string) (int64, bool, error) {
	id, ok := m.s.resultKeys[portal+"|"+identityKey]
	return id, ok, nil
}

func (m memResults) GetByID(ctx context.Context, id int64) (*domain.Result, error) {
	r, ok := m.s.results[id]
	if !ok {
		return nil, domain.ErrResultNotFound
	}
	for _, tagID := range m.s.tagLinks[id] {
		r.Tags = append(r.Tags, m.s.tagNames[tagID])
	}
	for _, groupID := range m.s.groupLinks[id] {
		r.Groups = append(r.Groups, m.s.groupRefs[groupID])
	}
	r.Tags = domain.CanonicalTags(r.Tags)
	r.Groups = domain.CanonicalGroups(r.Groups)
	return &r, nil
}

type memTags struct{ s *memState }

func (m memTags) GetOrCreate(ctx context.Context, name, portal string) (int64, error) {
	key := name + "|" + portal
	if id, ok := m.s.tags[key]; ok {
		return id, nil
	}
	id := m.s.id()
	m.s.tags[key] = id
	m.s.tagNames[id] = name
	return id, nil
}

func (m memTags) GetByName(ctx context.Context, name, portal string) (int64, bool, error) {
	id, ok := m.s.tags[name+"|"+portal]
	return id, ok, nil
}

func (m memTags) Link(ctx context.Context, resultID, tagID int64) error {
	for _, id := range m.s.tagLinks[resultID] {
		if id == tagID {
			return nil
		}
	}
	m.s.tagLinks[resultID] = append(m.s.tagLinks[resultID], tagID)
	return nil
}

func (m memTags) Unlink(ctx context.Context, resultID, tagID int64) (bool, error) {
	links := m.s.tagLinks[resultID]
	for i, id := range links {
		if id == tagID {
			m.s.tagLinks[resultID] = append(links[:i:i], links[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m memTags) ListByResult(ctx context.Context, resultID int64) ([]domain.Tag, error) {
	var tags []domain.Tag
	for _, id := range m.s.tagLinks[resultID] {
		tags = append(tags, domain.Tag{ID: id, Name: m.s.tagNames[id]})
	}
	return tags, nil
}

type memGroups struct{ s *memState }

func groupKey(ref domain.GroupRef, portal string) string {
	desc := "\x00nil"
	if ref.Description != nil {
		desc = *ref.Description
	}
	return ref.Name + "|" + desc + "|" + portal
}

func (m memGroups) GetOrCreate(ctx context.Context, ref domain.GroupRef, portal string) (int64, error) {
	key := groupKey(ref, portal)
	if id, ok := m.s.groups[key]; ok {
		return id, nil
	}
	id := m.s.id()
	m.s.groups[key] = id
	m.s.groupRefs[id] = ref
	return id, nil
}

func (m memGroups) Get(ctx context.Context, ref domain.GroupRef, portal string) (int64, bool, error) {
	id, ok := m.s.groups[groupKey(ref, portal)]
	return id, ok, nil
}

func (m memGroups) Link(ctx context.Context, resultID, groupID int64) error {
	for _, id := range m.s.groupLinks[resultID] {
		if id == groupID {
			return nil
		}
	}
	m.s.groupLinks[resultID] = append(m.s.groupLinks[resultID], groupID)
	return nil
}

func (m memGroups) Unlink(ctx context.Context, resultID, groupID int64) (bool, error) {
	links := m.s.groupLinks[resultID]
	for i, id := range links {
		if id == groupID {
			m.s.groupLinks[resultID] = append(links[:i:i], links[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m memGroups) ListByResult(ctx context.Context, resultID int64) ([]domain.Group, error) {
	var groups []domain.Group
	for _, id := range m.s.groupLinks[resultID] {
		ref := m.s.groupRefs[id]
		groups = append(groups, domain.Group{ID: id, Name: ref.Name, Description: ref.Description})
	}
	return groups, nil
}

type memFeedback struct{ s *memState }

func (m memFeedback) InsertIfAbsent(ctx context.Context, fb *domain.ResultFeedback) (bool, error) {
	for _, row := range m.s.feedback {
		if row.SearchID == fb.SearchID && row.ResultID == fb.ResultID {
			return false, nil
		}
	}
	fb.ID = m.s.id()
	m.s.feedback = append(m.s.feedback, *fb)
	return true, nil
}

func (m memFeedback) UpdateFeedback(ctx context.Context, searchID, resultID int64, value domain.FeedbackValue) (bool, error) {
	for i, row := range m.s.feedback {
		if row.SearchID == searchID && row.ResultID == resultID {
			m.s.feedback[i].Feedback = value
			return true, nil
		}
	}
	return false, nil
}

func (m memFeedback) ListValues(ctx context.Context, searchIDs []int64, resultID int64) ([]domain.FeedbackValue, error) {
	wanted := map[int64]bool{}
	for _, id := range searchIDs {
		wanted[id] = true
	}
	var values []domain.FeedbackValue
	for _, row := range m.s.feedback {
		if wanted[row.SearchID] && row.ResultID == resultID {
			values = append(values, row.Feedback)
		}
	}
	return values, nil
}

func (m memFeedback) ListBySearch(ctx context.Context, searchID int64) ([]*domain.ResultFeedback, error) {
	var rows []*domain.ResultFeedback
	for _, row := range m.s.feedback {
		if row.SearchID == searchID {
			row := row
			rows = append(rows, &row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].NewRank < rows[j].NewRank })
	return rows, nil
}

func (m memFeedback) CreateSearchTarget(ctx context.Context, t *domain.SearchTargetFeedback) error {
	t.ID = m.s.id()
	m.s.targets = append(m.s.targets, *t)
	return nil
}

func (m memFeedback) ListSearchTargets(ctx context.Context, searchID int64) ([]string, error) {
	var out []string
	for _, t := range m.s.targets {
		if t.SearchID == searchID {
			out = append(out, t.SearchTarget)
		}
	}
	return out, nil
}

// MockTxRunner is a mock implementation of TxRunner
type MockTxRunner struct {
	mock.Mock
}

func (m *MockTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}
