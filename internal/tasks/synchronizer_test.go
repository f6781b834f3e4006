package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
)

// fakeBackend meniru store remote yang memfilter owner/assignee.
type fakeBackend struct {
	mu     sync.Mutex
	tasks  []models.Task
	seq    int
	fail   map[string]error
	calls  map[string]int
	lists  [][]models.Task
	before func(op, id string, p models.TaskPatch)
	viewer string
}

func newFakeBackend(viewer string) *fakeBackend {
	return &fakeBackend{fail: map[string]error{}, calls: map[string]int{}, viewer: viewer}
}

func (f *fakeBackend) hook(op, id string, p models.TaskPatch) {
	f.mu.Lock()
	before := f.before
	f.calls[op]++
	f.mu.Unlock()
	if before != nil {
		before(op, id, p)
	}
}

func (f *fakeBackend) failure(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fail[op]
}

func (f *fakeBackend) ListTasks(context.Context) ([]models.Task, error) {
	// respons antrean ditentukan saat request masuk, bukan saat selesai
	f.mu.Lock()
	var queued []models.Task
	if len(f.lists) > 0 {
		queued = f.lists[0]
		f.lists = f.lists[1:]
	}
	f.mu.Unlock()

	f.hook("list", "", models.TaskPatch{})
	if err := f.failure("list"); err != nil {
		return nil, err
	}
	if queued != nil {
		return queued, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Task
	for _, t := range f.tasks {
		if t.VisibleTo(f.viewer) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (f *fakeBackend) CreateTask(_ context.Context, t models.Task) (models.Task, error) {
	f.hook("create", "", models.TaskPatch{})
	if err := f.failure("create"); err != nil {
		return models.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t.ID = fmt.Sprintf("srv-%d", f.seq)
	t.CreatedAt = time.Date(2024, 1, 1, 0, 0, f.seq, 0, time.UTC)
	t.UpdatedAt = t.CreatedAt
	f.tasks = append(f.tasks, t.Clone())
	return t, nil
}

func (f *fakeBackend) UpdateTask(_ context.Context, id string, p models.TaskPatch) (models.Task, error) {
	f.hook("update", id, p)
	if err := f.failure("update"); err != nil {
		return models.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks[i] = p.Apply(f.tasks[i])
			return f.tasks[i].Clone(), nil
		}
	}
	return models.Task{}, apperr.Application("update", "Todo not found")
}

func (f *fakeBackend) DeleteTask(_ context.Context, id string) error {
	f.hook("delete", id, models.TaskPatch{})
	if err := f.failure("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return apperr.Application("delete", "Todo not found")
}

func (f *fakeBackend) setFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

func (f *fakeBackend) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

type fakeUploader struct {
	mu   sync.Mutex
	n    int
	refs []string
	err  error
}

func (u *fakeUploader) Upload(_ context.Context, ref string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.refs = append(u.refs, ref)
	if u.err != nil {
		return "", u.err
	}
	u.n++
	return fmt.Sprintf("https://cdn.example.com/%d.jpg", u.n), nil
}

type fakeSession struct {
	user  models.User
	ok    bool
	hooks []func()
}

func (s *fakeSession) User() (models.User, bool) { return s.user, s.ok }
func (s *fakeSession) OnLogout(fn func())        { s.hooks = append(s.hooks, fn) }

func (s *fakeSession) logout() {
	s.ok = false
	for _, h := range s.hooks {
		h()
	}
}

var (
	owner = models.User{ID: "c1", Email: "c@example.com", Role: models.RoleCollaborator}
	admin = models.User{ID: "a1", Email: "a@example.com", Role: models.RoleAdmin}
)

func setup(t *testing.T, user models.User) (*Synchronizer, *fakeBackend, *fakeUploader, *fakeSession) {
	t.Helper()
	b := newFakeBackend(user.ID)
	up := &fakeUploader{}
	sess := &fakeSession{user: user, ok: true}
	return New(b, up, sess, nil), b, up, sess
}

func mustCreate(t *testing.T, s *Synchronizer, title string) models.Task {
	t.Helper()
	res, err := s.Create(context.Background(), Draft{Title: title, Location: &models.Location{Name: "Kantor"}})
	require.NoError(t, err)
	require.NoError(t, res.UploadErr)
	return res.Task
}

func TestMutationsMatchServerAfterList(t *testing.T) {
	s, _, _, _ := setup(t, owner)
	ctx := context.Background()

	a := mustCreate(t, s, "a")
	b := mustCreate(t, s, "b")
	mustCreate(t, s, "c")

	_, err := s.Update(ctx, a.ID, models.TaskPatch{Title: models.String("a2"), Note: models.String("done soon")})
	require.NoError(t, err)
	require.NoError(t, s.ToggleCompletion(ctx, a.ID))
	require.NoError(t, s.Delete(ctx, b.ID))

	before := s.Snapshot()
	require.NoError(t, s.List(ctx))
	assert.Equal(t, before, s.Snapshot())
	assert.Len(t, before, 2)
}

func TestCreateKeepsServerAssignedFields(t *testing.T) {
	s, _, _, _ := setup(t, owner)

	res, err := s.Create(context.Background(), Draft{Title: "  beli kopi  ", Description: "dua"})
	require.NoError(t, err)

	assert.Equal(t, "srv-1", res.Task.ID)
	assert.False(t, res.Task.CreatedAt.IsZero())
	assert.Equal(t, "beli kopi", res.Task.Title)
	assert.Equal(t, owner.ID, res.Task.OwnerID)
	assert.Equal(t, models.StatusPending, res.Task.Status)

	got, ok := s.Get("srv-1")
	require.True(t, ok)
	assert.Equal(t, res.Task, got)
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	s, b, _, _ := setup(t, owner)

	_, err := s.Create(context.Background(), Draft{Title: "   "})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = s.Create(context.Background(), Draft{Title: "x", AssignedTo: "a1"})
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))
	assert.Zero(t, b.count("create"))
}

func TestCreateUploadsLocalImageFirst(t *testing.T) {
	s, b, up, _ := setup(t, owner)

	res, err := s.Create(context.Background(), Draft{Title: "foto", ImageRef: "file:///tmp/a.jpg"})
	require.NoError(t, err)
	require.NoError(t, res.UploadErr)

	assert.Equal(t, []string{"file:///tmp/a.jpg"}, up.refs)
	assert.Equal(t, "https://cdn.example.com/1.jpg", res.Task.ImageURI)
	assert.Equal(t, "https://cdn.example.com/1.jpg", b.tasks[0].ImageURI)
}

func TestCreateWithoutImageWhenUploadFails(t *testing.T) {
	s, b, up, _ := setup(t, owner)
	up.err = apperr.Upload("upload", errors.New("offline"))

	res, err := s.Create(context.Background(), Draft{Title: "foto", ImageRef: "/tmp/a.jpg"})
	require.NoError(t, err)

	assert.Equal(t, apperr.KindUpload, apperr.KindOf(res.UploadErr))
	assert.Empty(t, res.Task.ImageURI)
	assert.Equal(t, 1, b.count("create"))
	assert.Len(t, s.Snapshot(), 1)
}

func TestCreateFailureHasNoLocalEffect(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	b.setFail("create", apperr.Application("create", "Title is required"))

	_, err := s.Create(context.Background(), Draft{Title: "x"})
	assert.Equal(t, "Title is required", apperr.Message(err))
	assert.Empty(t, s.Snapshot())
}

func TestUpdateRollbackRestoresExactPreImage(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	ctx := context.Background()
	task := mustCreate(t, s, "asli")
	_, err := s.Update(ctx, task.ID, models.TaskPatch{Note: models.String("catatan")})
	require.NoError(t, err)
	pre, _ := s.Get(task.ID)

	b.setFail("update", apperr.Transport("update", context.DeadlineExceeded))
	_, err = s.Update(ctx, task.ID, models.TaskPatch{Title: models.String("X")})

	require.Error(t, err)
	assert.Equal(t, apperr.NetworkMessage, apperr.Message(err))
	got, _ := s.Get(task.ID)
	assert.Equal(t, pre, got)
	assert.Equal(t, pre.Location, got.Location)
}

func TestUpdateAppliesOptimistically(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	task := mustCreate(t, s, "asli")

	seen := make(chan string, 1)
	release := make(chan struct{})
	b.before = func(op, id string, _ models.TaskPatch) {
		if op != "update" {
			return
		}
		got, _ := s.Get(id)
		seen <- got.Title
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Update(context.Background(), task.ID, models.TaskPatch{Title: models.String("baru")})
		done <- err
	}()

	assert.Equal(t, "baru", <-seen)
	close(release)
	require.NoError(t, <-done)
}

func TestUpdateApplicationFailureRollsBack(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	task := mustCreate(t, s, "asli")
	b.setFail("update", apperr.Application("update", ""))

	_, err := s.Update(context.Background(), task.ID, models.TaskPatch{Title: models.String("X")})
	assert.Equal(t, apperr.RequestFailed, apperr.Message(err))
	got, _ := s.Get(task.ID)
	assert.Equal(t, "asli", got.Title)
}

func TestUpdateUploadsLocalImagesBeforeRemoteCall(t *testing.T) {
	s, b, up, _ := setup(t, owner)
	task := mustCreate(t, s, "asli")

	var sent models.TaskPatch
	b.before = func(op, _ string, p models.TaskPatch) {
		if op == "update" {
			sent = p
		}
	}
	got, err := s.Update(context.Background(), task.ID, models.TaskPatch{
		ImageURI:           models.String("/tmp/a.jpg"),
		CompletionImageURI: models.String("https://cdn.example.com/keep.jpg"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"/tmp/a.jpg"}, up.refs)
	assert.Equal(t, "https://cdn.example.com/1.jpg", *sent.ImageURI)
	assert.Equal(t, "https://cdn.example.com/1.jpg", got.ImageURI)
	assert.Equal(t, "https://cdn.example.com/keep.jpg", got.CompletionImageURI)
}

func TestUpdateUploadFailureAbortsWithoutEffect(t *testing.T) {
	s, b, up, _ := setup(t, owner)
	task := mustCreate(t, s, "asli")
	up.err = apperr.Upload("upload", errors.New("offline"))

	_, err := s.Update(context.Background(), task.ID, models.TaskPatch{
		Title:    models.String("baru"),
		ImageURI: models.String("/tmp/a.jpg"),
	})
	assert.Equal(t, apperr.KindUpload, apperr.KindOf(err))
	got, _ := s.Get(task.ID)
	assert.Equal(t, task, got)
	assert.Zero(t, b.count("update"))
}

func TestUpdateDeniedFieldsHaveNoEffect(t *testing.T) {
	s, b, _, _ := setup(t, admin)
	b.tasks = []models.Task{{ID: "t1", OwnerID: "s1", OwnerRole: models.RoleSuperadmin, AssignedTo: admin.ID, Title: "audit"}}
	require.NoError(t, s.List(context.Background()))

	_, err := s.Update(context.Background(), "t1", models.TaskPatch{Title: models.String("X"), Note: models.String("ok")})
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))
	got, _ := s.Get("t1")
	assert.Equal(t, "audit", got.Title)
	assert.Empty(t, got.Note)
	assert.Zero(t, b.count("update"))

	got, err = s.Update(context.Background(), "t1", models.TaskPatch{Note: models.String("ok")})
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Note)
	assert.Equal(t, models.RoleSuperadmin, got.OwnerRole)
}

func TestUpdateMissingTask(t *testing.T) {
	s, _, _, _ := setup(t, owner)
	_, err := s.Update(context.Background(), "nope", models.TaskPatch{Title: models.String("X")})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestToggleCompletion(t *testing.T) {
	s, _, _, _ := setup(t, owner)
	ctx := context.Background()
	task := mustCreate(t, s, "a")

	require.NoError(t, s.ToggleCompletion(ctx, task.ID))
	got, _ := s.Get(task.ID)
	assert.Equal(t, models.StatusCompleted, got.Status)

	require.NoError(t, s.ToggleCompletion(ctx, task.ID))
	got, _ = s.Get(task.ID)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestToggleCompletionOnMissingIDIsNoop(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	mustCreate(t, s, "a")
	before := s.Snapshot()

	assert.NotPanics(t, func() {
		assert.NoError(t, s.ToggleCompletion(context.Background(), "missing"))
	})
	assert.Equal(t, before, s.Snapshot())
	assert.Zero(t, b.count("update"))
}

func TestDeleteRollbackReinsertsAtOriginalPosition(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	mustCreate(t, s, "a")
	mid := mustCreate(t, s, "b")
	mustCreate(t, s, "c")
	before := s.Snapshot()

	b.setFail("delete", apperr.Protocol("delete", errors.New("bad json")))
	err := s.Delete(context.Background(), mid.ID)

	assert.Equal(t, apperr.NetworkMessage, apperr.Message(err))
	assert.Equal(t, before, s.Snapshot())
}

func TestDeleteRequiresOwnership(t *testing.T) {
	s, b, _, _ := setup(t, admin)
	b.tasks = []models.Task{{ID: "t1", OwnerID: owner.ID, AssignedTo: admin.ID, Title: "x"}}
	require.NoError(t, s.List(context.Background()))

	err := s.Delete(context.Background(), "t1")
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))
	assert.Len(t, s.Snapshot(), 1)
	assert.Zero(t, b.count("delete"))
}

func TestListFailureKeepsLastKnownGoodSet(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	ctx := context.Background()
	mustCreate(t, s, "a")
	require.NoError(t, s.List(ctx))
	good := s.Snapshot()

	b.setFail("list", apperr.Transport("list", errors.New("dial tcp: refused")))
	err := s.List(ctx)

	require.Error(t, err)
	assert.Equal(t, good, s.Snapshot())
	assert.Equal(t, apperr.NetworkMessage, apperr.Message(s.Err()))
	assert.False(t, s.Loading())

	b.setFail("list", nil)
	require.NoError(t, s.Refresh(ctx))
	assert.NoError(t, s.Err())
}

func TestListFiltersToOwnerOrAssignee(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	b.lists = [][]models.Task{{
		{ID: "1", OwnerID: owner.ID},
		{ID: "2", OwnerID: "x", AssignedTo: owner.ID},
		{ID: "3", OwnerID: "x"},
	}}
	require.NoError(t, s.List(context.Background()))

	var ids []string
	for _, task := range s.Snapshot() {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestListRequiresSession(t *testing.T) {
	s, b, _, sess := setup(t, owner)
	sess.ok = false

	err := s.List(context.Background())
	assert.Equal(t, apperr.KindPermission, apperr.KindOf(err))
	assert.Zero(t, b.count("list"))
}

func TestConcurrentRefreshLaterResponseWins(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	first := []models.Task{{ID: "first", OwnerID: owner.ID}}
	second := []models.Task{{ID: "second", OwnerID: owner.ID}}
	b.lists = [][]models.Task{first, second}

	entered := make(chan struct{}, 2)
	release := map[int]chan struct{}{1: make(chan struct{}), 2: make(chan struct{})}
	var n int
	var mu sync.Mutex
	b.before = func(op, _ string, _ models.TaskPatch) {
		if op != "list" {
			return
		}
		mu.Lock()
		n++
		me := n
		mu.Unlock()
		entered <- struct{}{}
		<-release[me]
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Refresh(context.Background()))
	}()
	<-entered
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.Refresh(context.Background()))
	}()
	<-entered
	assert.True(t, s.Loading())

	// call kedua selesai lebih dulu, lalu call pertama
	close(release[2])
	require.Eventually(t, func() bool {
		_, ok := s.Get("second")
		return ok
	}, time.Second, 5*time.Millisecond)
	close(release[1])
	wg.Wait()

	assert.False(t, s.Loading())
	assert.Equal(t, first, s.Snapshot())
}

func TestSameRecordRaceLastResponseWins(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	task := mustCreate(t, s, "asli")

	slowEntered := make(chan struct{})
	releaseSlow := make(chan struct{})
	b.before = func(op, _ string, p models.TaskPatch) {
		if op == "update" && p.Title != nil && *p.Title == "lambat" {
			close(slowEntered)
			<-releaseSlow
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Update(context.Background(), task.ID, models.TaskPatch{Title: models.String("lambat")})
		done <- err
	}()
	<-slowEntered

	_, err := s.Update(context.Background(), task.ID, models.TaskPatch{Title: models.String("cepat")})
	require.NoError(t, err)
	got, _ := s.Get(task.ID)
	assert.Equal(t, "cepat", got.Title)

	close(releaseSlow)
	require.NoError(t, <-done)

	got, _ = s.Get(task.ID)
	assert.Equal(t, "lambat", got.Title)
	assert.Equal(t, "lambat", b.tasks[0].Title)
}

func TestFailedUpdateDoesNotResurrectDeletedRecord(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	ctx := context.Background()
	task := mustCreate(t, s, "a")

	entered := make(chan struct{})
	release := make(chan struct{})
	b.before = func(op, _ string, _ models.TaskPatch) {
		if op == "update" {
			close(entered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Update(ctx, task.ID, models.TaskPatch{Title: models.String("a2")})
		done <- err
	}()
	<-entered

	require.NoError(t, s.Delete(ctx, task.ID))
	close(release)

	err := <-done
	assert.Equal(t, "Todo not found", apperr.Message(err))

	_, ok := s.Get(task.ID)
	assert.False(t, ok)
	assert.Empty(t, s.Snapshot())
	assert.Empty(t, b.tasks)
}

func TestRollbackLeavesOtherRecordsIntact(t *testing.T) {
	s, b, _, _ := setup(t, owner)
	ctx := context.Background()
	a := mustCreate(t, s, "a")
	other := mustCreate(t, s, "b")

	failing := errors.New("boom")
	entered := make(chan struct{})
	release := make(chan struct{})
	b.before = func(op, id string, _ models.TaskPatch) {
		if op == "update" && id == a.ID {
			close(entered)
			<-release
			b.setFail("update", apperr.Transport("update", failing))
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Update(ctx, a.ID, models.TaskPatch{Title: models.String("gagal")})
		done <- err
	}()
	<-entered

	_, err := s.Update(ctx, other.ID, models.TaskPatch{Title: models.String("berhasil")})
	require.NoError(t, err)

	close(release)
	assert.ErrorIs(t, <-done, failing)

	gotA, _ := s.Get(a.ID)
	gotB, _ := s.Get(other.ID)
	assert.Equal(t, "a", gotA.Title)
	assert.Equal(t, "berhasil", gotB.Title)
}

func TestLogoutClearsTasksAndDropsLateResponses(t *testing.T) {
	s, b, _, sess := setup(t, owner)
	task := mustCreate(t, s, "a")
	require.NoError(t, s.List(context.Background()))

	entered := make(chan struct{})
	release := make(chan struct{})
	b.before = func(op, _ string, _ models.TaskPatch) {
		if op == "update" {
			close(entered)
			<-release
		}
	}
	b.setFail("update", apperr.Transport("update", errors.New("timeout")))

	done := make(chan error, 1)
	go func() {
		_, err := s.Update(context.Background(), task.ID, models.TaskPatch{Title: models.String("x")})
		done <- err
	}()
	<-entered

	sess.logout()
	assert.Empty(t, s.Snapshot())

	close(release)
	assert.Error(t, <-done)
	assert.Empty(t, s.Snapshot())
}

func TestPermissions(t *testing.T) {
	s, _, _, _ := setup(t, owner)
	task := mustCreate(t, s, "a")

	d, err := s.Permissions(task.ID)
	require.NoError(t, err)
	assert.True(t, d.CanWrite(models.FieldTitle))
	assert.False(t, d.CanWrite(models.FieldAssignee))

	_, err = s.Permissions("missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
