// Package tasks memegang koleksi task milik client dan menyelaraskannya
// dengan store remote. Semua mutasi bersifat optimistik dan di-rollback
// per record bila store remote menolak.
package tasks

import (
	"context"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
	"tasksync/internal/policy"
	"tasksync/internal/upload"
	"tasksync/pkg/logger"
)

// Backend adalah store remote (client HTTP atau localstore).
type Backend interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, id string, p models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Uploader mengubah referensi gambar lokal menjadi URL durable.
type Uploader interface {
	Upload(ctx context.Context, ref string) (string, error)
}

// Session menyediakan user yang sedang bertindak.
type Session interface {
	User() (models.User, bool)
}

type logoutNotifier interface {
	OnLogout(fn func())
}

// Evaluator menurunkan hak tulis user terhadap task.
type Evaluator func(user models.User, task models.Task) policy.Decision

// Draft adalah masukan Create.
type Draft struct {
	Title       string `validate:"required"`
	Description string
	Location    *models.Location
	// ImageRef boleh path lokal, file:// atau URL durable.
	ImageRef   string
	AssignedTo string
}

// CreateResult membawa task yang dikonfirmasi server. UploadErr terisi bila
// gambar gagal diupload; task tetap dibuat tanpa gambar.
type CreateResult struct {
	Task      models.Task
	UploadErr error
}

type Synchronizer struct {
	backend  Backend
	uploader Uploader
	session  Session
	evaluate Evaluator
	validate *validator.Validate

	mu      sync.RWMutex
	tasks   []models.Task
	loading int
	err     error
	// gen naik setiap Clear; respons yang datang sesudahnya dibuang.
	gen uint64
}

// New membuat Synchronizer. evaluate nil berarti policy.EvaluateFor. Bila
// session mendukung OnLogout, koleksi dikosongkan setiap logout.
func New(backend Backend, uploader Uploader, session Session, evaluate Evaluator) *Synchronizer {
	if evaluate == nil {
		evaluate = policy.EvaluateFor
	}
	s := &Synchronizer{
		backend:  backend,
		uploader: uploader,
		session:  session,
		evaluate: evaluate,
		validate: validator.New(),
	}
	if n, ok := session.(logoutNotifier); ok {
		n.OnLogout(s.Clear)
	}
	return s
}

func (s *Synchronizer) actor(op string) (models.User, error) {
	user, ok := s.session.User()
	if !ok {
		return models.User{}, apperr.Unauthenticated(op)
	}
	return user, nil
}

// indexOf harus dipanggil dengan s.mu dipegang.
func (s *Synchronizer) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// List mengambil seluruh task user dari store remote dan mengganti koleksi
// di memori. Bila gagal, koleksi terakhir yang valid dipertahankan dan
// error dicatat di Err().
func (s *Synchronizer) List(ctx context.Context) error {
	user, err := s.actor("list")
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.loading++
	gen := s.gen
	s.mu.Unlock()

	remote, err := s.backend.ListTasks(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading--
	if gen != s.gen {
		return nil
	}
	if err != nil {
		s.err = err
		logger.ErrorLogger.Error("Failed to load tasks", zap.String("user_id", user.ID), zap.Error(err))
		return err
	}

	visible := make([]models.Task, 0, len(remote))
	for _, t := range remote {
		if t.VisibleTo(user.ID) {
			visible = append(visible, t)
		}
	}
	s.tasks = visible
	s.err = nil
	return nil
}

// Refresh adalah List untuk aksi tarik-untuk-muat-ulang. Aman dipanggil
// bersamaan: respons yang datang terakhir yang berlaku.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	return s.List(ctx)
}

// Create membuat task baru. Gambar lokal diupload lebih dulu; kegagalan
// upload tidak membatalkan pembuatan task.
func (s *Synchronizer) Create(ctx context.Context, d Draft) (CreateResult, error) {
	user, err := s.actor("create")
	if err != nil {
		return CreateResult{}, err
	}
	d.Title = strings.TrimSpace(d.Title)
	if err := s.validate.Struct(d); err != nil {
		return CreateResult{}, apperr.Validation("create", err)
	}
	if d.AssignedTo != "" && !policy.CanAssign(user.Role) {
		return CreateResult{}, apperr.Permission("create", &policy.DeniedError{Mode: policy.ModeFull, Fields: []models.Field{models.FieldAssignee}})
	}

	var res CreateResult
	image := d.ImageRef
	if image != "" {
		image, res.UploadErr = s.uploader.Upload(ctx, image)
		if res.UploadErr != nil {
			image = ""
		}
	}

	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	created, err := s.backend.CreateTask(ctx, models.Task{
		OwnerID:     user.ID,
		OwnerRole:   user.Role,
		AssignedTo:  d.AssignedTo,
		Title:       d.Title,
		Description: d.Description,
		Location:    d.Location.Clone(),
		ImageURI:    image,
		Status:      models.StatusPending,
	})
	if err != nil {
		logger.ErrorLogger.Error("Failed to create task", zap.String("user_id", user.ID), zap.Error(err))
		return res, err
	}
	if created.OwnerRole == "" {
		created.OwnerRole = user.Role
	}

	s.mu.Lock()
	if gen == s.gen {
		// list yang berjalan bersamaan bisa sudah memuat record ini
		if i := s.indexOf(created.ID); i >= 0 {
			s.tasks[i] = created
		} else {
			s.tasks = append(s.tasks, created)
		}
	}
	s.mu.Unlock()

	logger.AuditLogger.Info("Task created", zap.String("task_id", created.ID), zap.String("user_id", user.ID))
	res.Task = created.Clone()
	return res, nil
}

// Update menerapkan patch secara optimistik. Semua field di patch harus
// boleh ditulis oleh user. Gambar lokal di patch diupload lebih dulu; bila
// upload gagal, update dibatalkan tanpa efek apa pun.
func (s *Synchronizer) Update(ctx context.Context, id string, p models.TaskPatch) (models.Task, error) {
	user, err := s.actor("update")
	if err != nil {
		return models.Task{}, err
	}
	current, ok := s.Get(id)
	if !ok {
		return models.Task{}, apperr.NotFound("update", apperr.TaskNotFound)
	}
	if p.Empty() {
		return current, nil
	}
	if err := s.evaluate(user, current).Check(p.Fields()); err != nil {
		logger.SecurityLogger.Warn("Task update denied", zap.String("task_id", id), zap.String("user_id", user.ID), zap.Error(err))
		return models.Task{}, apperr.Permission("update", err)
	}

	p, err = s.resolveImages(ctx, p)
	if err != nil {
		return models.Task{}, err
	}

	tx, ok := s.begin("update", id)
	if !ok {
		return models.Task{}, apperr.NotFound("update", apperr.TaskNotFound)
	}
	tx.apply(p)

	confirmed, err := s.backend.UpdateTask(ctx, id, p)
	if err != nil {
		tx.rollback(err)
		return models.Task{}, err
	}
	tx.commit(confirmed)

	if t, ok := s.Get(id); ok {
		return t, nil
	}
	return confirmed, nil
}

// resolveImages mengganti referensi gambar lokal di patch dengan URL durable.
func (s *Synchronizer) resolveImages(ctx context.Context, p models.TaskPatch) (models.TaskPatch, error) {
	for _, ref := range []**string{&p.ImageURI, &p.CompletionImageURI} {
		if *ref == nil || **ref == "" || upload.IsDurable(**ref) {
			continue
		}
		url, err := s.uploader.Upload(ctx, **ref)
		if err != nil {
			return p, err
		}
		*ref = &url
	}
	return p, nil
}

// Delete menghapus task secara optimistik. Hanya pemilik yang boleh.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	user, err := s.actor("delete")
	if err != nil {
		return err
	}
	current, ok := s.Get(id)
	if !ok {
		return apperr.NotFound("delete", apperr.TaskNotFound)
	}
	if !policy.CanDelete(user, current) {
		logger.SecurityLogger.Warn("Task delete denied", zap.String("task_id", id), zap.String("user_id", user.ID))
		return apperr.Permission("delete", nil)
	}

	tx, ok := s.begin("delete", id)
	if !ok {
		return apperr.NotFound("delete", apperr.TaskNotFound)
	}
	tx.remove()

	if err := s.backend.DeleteTask(ctx, id); err != nil {
		tx.rollback(err)
		return err
	}
	logger.AuditLogger.Info("Task deleted", zap.String("task_id", id), zap.String("user_id", user.ID))
	return nil
}

// ToggleCompletion membalik status task. Id yang tidak ada adalah no-op.
func (s *Synchronizer) ToggleCompletion(ctx context.Context, id string) error {
	current, ok := s.Get(id)
	if !ok {
		return nil
	}
	_, err := s.Update(ctx, id, models.TaskPatch{Status: models.StatusPtr(current.Status.Toggle())})
	return err
}

// Permissions mengembalikan keputusan policy user saat ini untuk task id.
func (s *Synchronizer) Permissions(id string) (policy.Decision, error) {
	user, err := s.actor("permissions")
	if err != nil {
		return policy.Decision{}, err
	}
	current, ok := s.Get(id)
	if !ok {
		return policy.Decision{}, apperr.NotFound("permissions", apperr.TaskNotFound)
	}
	return s.evaluate(user, current), nil
}

// Snapshot mengembalikan salinan koleksi.
func (s *Synchronizer) Snapshot() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (s *Synchronizer) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return models.Task{}, false
}

// Loading melaporkan apakah ada List yang sedang berjalan.
func (s *Synchronizer) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Err mengembalikan kegagalan List terakhir, nil setelah List berhasil.
func (s *Synchronizer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Clear mengosongkan koleksi (dipanggil saat logout).
func (s *Synchronizer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = nil
	s.err = nil
	s.gen++
}
