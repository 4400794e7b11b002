package harvest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ignite/leadharvest/internal/domain"
	"github.com/ignite/leadharvest/internal/vk"
)

var testNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

// fakeSource serves scripted pages and records every call.
type fakeSource struct {
	mu sync.Mutex

	members     map[string][][]domain.Candidate // pages per group
	memberErrs  []error                          // consumed before pages
	memberCalls []int                            // offsets requested
	walls       map[string][]domain.Post
	wallErr     map[string]error
	comments    map[int64][]domain.Comment
	search      map[string][]domain.Group
	searchErr   map[string]error
	searches    []string
}

func (f *fakeSource) GroupMembers(_ context.Context, ref string, offset, count int) (*vk.MembersPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memberCalls = append(f.memberCalls, offset)
	if len(f.memberErrs) > 0 {
		err := f.memberErrs[0]
		f.memberErrs = f.memberErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	pages := f.members[ref]
	i := offset / count
	if i >= len(pages) {
		return &vk.MembersPage{}, nil
	}
	return &vk.MembersPage{Items: append([]domain.Candidate(nil), pages[i]...)}, nil
}

func (f *fakeSource) Group(_ context.Context, ref string) (*domain.Group, error) {
	return &domain.Group{ScreenName: ref}, nil
}

func (f *fakeSource) SearchGroups(_ context.Context, q string, _ int) ([]domain.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, q)
	if err := f.searchErr[q]; err != nil {
		return nil, err
	}
	return f.search[q], nil
}

func (f *fakeSource) WallPosts(_ context.Context, ref string, offset, count int) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.wallErr[ref]; err != nil {
		return nil, err
	}
	posts := f.walls[ref]
	if offset >= len(posts) {
		return nil, nil
	}
	end := offset + count
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end], nil
}

func (f *fakeSource) PostComments(_ context.Context, _ int64, postID int64, _ int) ([]domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.comments[postID], nil
}

type countingWaiter struct {
	mu    sync.Mutex
	calls int
}

func (w *countingWaiter) Wait(context.Context) (time.Duration, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return 0, nil
}

type recordingSleep struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sleeps = append(r.sleeps, d)
	return nil
}

func activeMember(id int64) domain.Candidate {
	return domain.Candidate{ID: id, FirstName: fmt.Sprint("user", id), Online: true, CanMessage: true}
}

func membersRange(from, to int64) []domain.Candidate {
	var out []domain.Candidate
	for id := from; id <= to; id++ {
		out = append(out, activeMember(id))
	}
	return out
}

func newTestService(src *fakeSource, opts Options) (*Service, *countingWaiter, *recordingSleep) {
	w := &countingWaiter{}
	sl := &recordingSleep{}
	svc := NewService(src, w, opts).WithSleep(sl.sleep)
	svc.now = func() time.Time { return testNow }
	return svc, w, sl
}

func TestFetchMembers_StopsOnEmptyPage(t *testing.T) {
	src := &fakeSource{members: map[string][][]domain.Candidate{
		"club": {membersRange(1, 2), membersRange(3, 4)},
	}}
	svc, waiter, _ := newTestService(src, Options{PageSize: 2})

	got, err := svc.FetchMembers(context.Background(), "club", 0, domain.Criteria{}, nil)
	if err != nil {
		t.Fatalf("FetchMembers: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("accepted %d, want 4", len(got))
	}
	if want := []int{0, 2, 4}; !reflect.DeepEqual(src.memberCalls, want) {
		t.Errorf("offsets = %v, want %v", src.memberCalls, want)
	}
	if waiter.calls != 3 {
		t.Errorf("pacer calls = %d, want 3", waiter.calls)
	}
}

func TestFetchMembers_StopsOnShortPage(t *testing.T) {
	src := &fakeSource{members: map[string][][]domain.Candidate{
		"club": {membersRange(1, 3), membersRange(4, 5)},
	}}
	svc, _, _ := newTestService(src, Options{PageSize: 3})

	got, _ := svc.FetchMembers(context.Background(), "club", 0, domain.Criteria{}, nil)
	if len(got) != 5 || len(src.memberCalls) != 2 {
		t.Errorf("accepted %d in %d calls, want 5 in 2", len(got), len(src.memberCalls))
	}
}

func TestFetchMembers_TargetReachedMidPage(t *testing.T) {
	src := &fakeSource{members: map[string][][]domain.Candidate{
		"club": {membersRange(1, 10), membersRange(11, 20)},
	}}
	svc, _, _ := newTestService(src, Options{PageSize: 10})

	got, err := svc.FetchMembers(context.Background(), "club", 4, domain.Criteria{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 || got[3].ID != 4 {
		t.Errorf("got %d candidates ending at %d", len(got), got[len(got)-1].ID)
	}
	if len(src.memberCalls) != 1 {
		t.Errorf("calls = %d, want 1", len(src.memberCalls))
	}
}

func TestFetchMembers_AppliesFilter(t *testing.T) {
	page := membersRange(1, 4)
	page[1].Deactivated = "deleted"
	page[2].CanMessage = false
	src := &fakeSource{members: map[string][][]domain.Candidate{"club": {page}}}
	svc, _, _ := newTestService(src, Options{PageSize: 10})

	got, _ := svc.FetchMembers(context.Background(), "club", 0, domain.Criteria{OnlyCanMessage: true, OnlyActive: true}, nil)
	var ids []int64
	for _, c := range got {
		ids = append(ids, c.ID)
	}
	if want := []int64{1, 4}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}

func TestFetchMembers_AccessDeniedEndsQuietly(t *testing.T) {
	src := &fakeSource{memberErrs: []error{&vk.APIError{Code: vk.CodeAccessDenied, Message: "Access denied"}}}
	svc, _, sl := newTestService(src, Options{})

	got, err := svc.FetchMembers(context.Background(), "closed", 0, domain.Criteria{}, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("got %v, %v; want empty, nil", got, err)
	}
	if len(sl.sleeps) != 0 {
		t.Error("access denied should not retry")
	}
}

func TestFetchMembers_RetriesTransientErrors(t *testing.T) {
	transient := &vk.APIError{Code: 10, Message: "Internal server error"}
	src := &fakeSource{
		memberErrs: []error{transient, transient},
		members:    map[string][][]domain.Candidate{"club": {membersRange(1, 2)}},
	}
	svc, _, sl := newTestService(src, Options{PageSize: 5})

	got, err := svc.FetchMembers(context.Background(), "club", 0, domain.Criteria{}, nil)
	if err != nil {
		t.Fatalf("FetchMembers: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("accepted %d, want 2", len(got))
	}
	if want := []time.Duration{5 * time.Second, 5 * time.Second}; !reflect.DeepEqual(sl.sleeps, want) {
		t.Errorf("sleeps = %v, want %v", sl.sleeps, want)
	}
	if want := []int{0, 0, 0}; !reflect.DeepEqual(src.memberCalls, want) {
		t.Errorf("offsets = %v, want same offset retried", src.memberCalls)
	}
}

func TestFetchMembers_GivesUpAfterConsecutiveFailures(t *testing.T) {
	boom := errors.New("connection reset")
	src := &fakeSource{
		memberErrs: []error{nil, boom, boom, boom},
		members:    map[string][][]domain.Candidate{"club": {membersRange(1, 2), membersRange(3, 4)}},
	}
	svc, _, sl := newTestService(src, Options{PageSize: 2, MaxConsecutiveErrors: 3})

	got, err := svc.FetchMembers(context.Background(), "club", 0, domain.Criteria{}, nil)
	if !errors.Is(err, ErrTooManyFailures) || !errors.Is(err, boom) {
		t.Fatalf("err = %v, want ErrTooManyFailures wrapping cause", err)
	}
	if len(got) != 2 {
		t.Errorf("partial result = %d, want 2", len(got))
	}
	if len(sl.sleeps) != 2 {
		t.Errorf("retry sleeps = %d, want 2", len(sl.sleeps))
	}
}

func TestFetchMembers_SkipToken(t *testing.T) {
	src := &fakeSource{members: map[string][][]domain.Candidate{"club": {membersRange(1, 2)}}}
	svc, _, _ := newTestService(src, Options{PageSize: 2})
	skip := &SkipToken{}
	skip.Set()

	got, err := svc.FetchMembers(context.Background(), "club", 0, domain.Criteria{}, skip)
	if err != nil || len(got) != 0 || len(src.memberCalls) != 0 {
		t.Errorf("skip: got %d, err %v, calls %d", len(got), err, len(src.memberCalls))
	}
	if skip.Take() {
		t.Error("token should be reset after the skip")
	}

	got, _ = svc.FetchMembers(context.Background(), "club", 0, domain.Criteria{}, skip)
	if len(got) != 2 {
		t.Errorf("next fetch got %d, want 2", len(got))
	}
}

func TestFetchMembers_Cancelled(t *testing.T) {
	src := &fakeSource{members: map[string][][]domain.Candidate{"club": {membersRange(1, 2)}}}
	svc, _, _ := newTestService(src, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.FetchMembers(ctx, "club", 0, domain.Criteria{}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFetchMembers_CommentScreen(t *testing.T) {
	src := &fakeSource{
		members: map[string][][]domain.Candidate{"club": {membersRange(1, 4)}},
		walls: map[string][]domain.Post{"club": {
			{ID: 100, OwnerID: -5, Date: testNow},
		}},
		comments: map[int64][]domain.Comment{100: {
			{ID: 1, FromID: 1, Date: testNow.Add(-24 * time.Hour), Text: "Где лучший ФИТНЕС зал?"},
			{ID: 2, FromID: 2, Date: testNow.Add(-24 * time.Hour), Text: "nice photo"},
			{ID: 3, FromID: 3, Date: testNow.AddDate(0, -6, 0), Text: "фитнес"},
		}},
	}
	svc, _, _ := newTestService(src, Options{PageSize: 10, CommentKeywords: []string{"фитнес"}, CommentMonths: 2})

	got, err := svc.FetchMembers(context.Background(), "club", 0, domain.Criteria{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("screened = %v, want only user 1", got)
	}
}

func TestIsGroupActive(t *testing.T) {
	src := &fakeSource{
		walls: map[string][]domain.Post{
			"fresh": {{ID: 1, Date: testNow.AddDate(-2, 0, 0)}, {ID: 2, Date: testNow.AddDate(0, -5, 0)}},
			"stale": {{ID: 1, Date: testNow.AddDate(0, -7, 0)}},
			"empty": nil,
		},
		wallErr: map[string]error{"broken": errors.New("timeout")},
	}
	svc, _, _ := newTestService(src, Options{})

	for ref, want := range map[string]bool{"fresh": true, "stale": false, "empty": false, "broken": false} {
		if got := svc.IsGroupActive(context.Background(), ref); got != want {
			t.Errorf("IsGroupActive(%s) = %v, want %v", ref, got, want)
		}
	}
}

func TestExpandNiche(t *testing.T) {
	tests := []struct {
		niche string
		want  []string
	}{
		{"Фитнес", []string{"фитнес", "fitness", "спортзал", "тренажерный зал", "бодибилдинг", "кроссфит"}},
		{"fitness", []string{"fitness", "gym", "workout", "тренажерный зал", "бодибилдинг"}},
		{"fitnes", []string{"fitnes", "gym", "workout", "тренажерный зал", "бодибилдинг"}},
		{"стартап", []string{"стартап", "стартап*"}},
		{"knitting", []string{"knitting", "knitting*"}},
		{"  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.niche, func(t *testing.T) {
			if got := ExpandNiche(tt.niche); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandNiche(%q) = %v, want %v", tt.niche, got, tt.want)
			}
		})
	}
}

func TestFindGroupsByNiche_UnionAndErrors(t *testing.T) {
	src := &fakeSource{
		search: map[string][]domain.Group{
			"yoga":  {{ID: 1}, {ID: 2}},
			"yoga*": {{ID: 2}, {ID: 3}},
		},
	}
	svc, _, _ := newTestService(src, Options{})

	got, err := svc.FindGroupsByNiche(context.Background(), "yoga", 10)
	if err != nil {
		t.Fatal(err)
	}
	var ids []int64
	for _, g := range got {
		ids = append(ids, g.ID)
	}
	if want := []int64{1, 2, 3}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}

	src.searchErr = map[string]error{"yoga": errors.New("rate limited")}
	got, err = svc.FindGroupsByNiche(context.Background(), "yoga", 10)
	if err != nil || len(got) != 2 {
		t.Errorf("with one failed query: %d groups, err %v", len(got), err)
	}
}

func TestKeywordCombinations(t *testing.T) {
	got := KeywordCombinations([]string{"a", "b", "c", "a", " "}, 1, 2)
	want := []string{"a", "b", "c", "a b", "a c", "b c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := KeywordCombinations([]string{"a", "b"}, 2, 5); !reflect.DeepEqual(got, []string{"a b"}) {
		t.Errorf("clamped max: %v", got)
	}
}

type memStore struct {
	mu        sync.Mutex
	persisted [][]domain.Candidate
	ledger    map[string]bool
	exports   []string
}

func newMemStore() *memStore { return &memStore{ledger: map[string]bool{}} }

func key(id int64, niche string) string { return fmt.Sprintf("%d/%s", id, niche) }

func (m *memStore) Persist(_ context.Context, cs []domain.Candidate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persisted = append(m.persisted, cs)
	return len(cs), nil
}

func (m *memStore) RecordGroup(_ context.Context, id int64, niche string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger[key(id, niche)] = true
	return nil
}

func (m *memStore) IsGroupParsed(_ context.Context, id int64, niche string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger[key(id, niche)], nil
}

func (m *memStore) ExportGroup(niche string, id int64, _ []domain.Candidate) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := fmt.Sprintf("leads_%s_%d.xlsx", niche, id)
	m.exports = append(m.exports, p)
	return p, nil
}

func (m *memStore) ExportOverall(cs []domain.Candidate) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports = append(m.exports, fmt.Sprintf("user_ids.xlsx(%d)", len(cs)))
	return "user_ids.xlsx", nil
}

func TestHarvestNiche(t *testing.T) {
	recent := []domain.Post{{ID: 1, Date: testNow.Add(-time.Hour)}}
	src := &fakeSource{
		search: map[string][]domain.Group{
			"yoga":  {{ID: 10}, {ID: 20}, {ID: 30}, {ID: 40}},
			"yoga*": nil,
		},
		walls: map[string][]domain.Post{
			"10": recent,
			"20": {{ID: 1, Date: testNow.AddDate(-1, 0, 0)}},
			"30": recent,
			"40": recent,
		},
		members: map[string][][]domain.Candidate{
			"10": {membersRange(1, 3)},
			"30": {append(membersRange(3, 4), membersRange(5, 9)...)},
			"40": {membersRange(50, 51)},
		},
	}
	store := newMemStore()
	store.ledger[key(40, "yoga")] = true
	svc, _, sl := newTestService(src, Options{PageSize: 100, GroupPauseMin: 10 * time.Second, GroupPauseMax: 20 * time.Second})
	svc.WithStore(store, store, store)

	res, err := svc.HarvestNiche(context.Background(), "yoga", 5, domain.Criteria{}, nil)
	if err != nil {
		t.Fatalf("HarvestNiche: %v", err)
	}
	if res.RunID == "" || res.GroupsFound != 4 || res.GroupsActive != 2 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Groups) != 2 || res.Groups[0].Fetched != 3 || res.Groups[1].Fetched != 2 {
		t.Errorf("groups = %+v", res.Groups)
	}
	// user 3 appears in both groups; the union is deduped.
	if len(res.Candidates) != 4 {
		t.Errorf("unique candidates = %d, want 4", len(res.Candidates))
	}
	if !store.ledger[key(10, "yoga")] || !store.ledger[key(30, "yoga")] || store.ledger[key(20, "yoga")] {
		t.Errorf("ledger = %v", store.ledger)
	}
	want := []string{"leads_yoga_10.xlsx", "leads_yoga_30.xlsx", "user_ids.xlsx(4)"}
	if !reflect.DeepEqual(store.exports, want) {
		t.Errorf("exports = %v, want %v", store.exports, want)
	}
	if len(sl.sleeps) != 2 {
		t.Errorf("inter-group pauses = %d, want 2", len(sl.sleeps))
	}
	for _, d := range sl.sleeps {
		if d < 10*time.Second || d > 20*time.Second {
			t.Errorf("pause %s out of range", d)
		}
	}
}

func TestHarvestNiche_NoGroups(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(&fakeSource{}, Options{})
	svc.WithStore(store, store, store)

	if _, err := svc.HarvestNiche(context.Background(), "nothing", 5, domain.Criteria{}, nil); !errors.Is(err, ErrNoGroups) {
		t.Errorf("err = %v, want ErrNoGroups", err)
	}
}

type memSink struct{ got []domain.Comment }

func (m *memSink) AppendComments(cs []domain.Comment) (int, error) {
	m.got = append(m.got, cs...)
	return len(cs), nil
}

func TestHarvestComments(t *testing.T) {
	src := &fakeSource{
		walls: map[string][]domain.Post{"club": {{ID: 1, OwnerID: -7}, {ID: 2, OwnerID: -7}}},
		comments: map[int64][]domain.Comment{
			1: {{ID: 11, PostID: 1, Text: "line one\nline two"}, {ID: 12, PostID: 1, Text: "   "}},
			2: {{ID: 21, PostID: 2, Text: "ok\r\n"}},
		},
	}
	svc, _, _ := newTestService(src, Options{})
	sink := &memSink{}

	res, err := svc.HarvestComments(context.Background(), "club", 3, sink)
	if err != nil {
		t.Fatal(err)
	}
	if res.Posts != 2 || res.Written != 2 {
		t.Errorf("result = %+v", res)
	}
	if sink.got[0].Text != "line one line two" || sink.got[1].Text != "ok" {
		t.Errorf("texts = %q, %q", sink.got[0].Text, sink.got[1].Text)
	}
}

func TestHarvestComments_ClosedWall(t *testing.T) {
	src := &fakeSource{wallErr: map[string]error{"closed": &vk.APIError{Code: vk.CodeAccessDenied, Message: "Access denied: wall is disabled"}}}
	svc, _, _ := newTestService(src, Options{})

	res, err := svc.HarvestComments(context.Background(), "closed", 1, &memSink{})
	if err != nil || res.Posts != 0 {
		t.Errorf("got %+v, %v", res, err)
	}
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "current_niche.txt")
	r := NewRotation(path, []string{"fitness", "yoga"})

	niche, idx, err := r.Next()
	if err != nil || niche != "fitness" || idx != 0 {
		t.Fatalf("first = %q %d %v", niche, idx, err)
	}
	if err := r.Advance(idx); err != nil {
		t.Fatal(err)
	}
	niche, idx, _ = r.Next()
	if niche != "yoga" || idx != 1 {
		t.Errorf("second = %q %d", niche, idx)
	}
	r.Advance(idx)
	if _, _, err := r.Next(); !errors.Is(err, ErrRotationDone) {
		t.Errorf("err = %v, want ErrRotationDone", err)
	}

	os.WriteFile(path, []byte("oops"), 0o644)
	if _, _, err := r.Next(); err == nil {
		t.Error("expected error for corrupt state")
	}
	if _, _, err := NewRotation(path, nil).Next(); !errors.Is(err, ErrNoNiches) {
		t.Errorf("err = %v, want ErrNoNiches", err)
	}
}
