package tasks

import (
	"go.uber.org/zap"

	"tasksync/internal/models"
	"tasksync/pkg/logger"
)

// txn adalah perubahan optimistik pada satu record. Pre-image diambil saat
// begin; rollback hanya mengembalikan record itu sehingga edit lain yang
// sedang berjalan pada record berbeda tidak ikut terhapus.
type txn struct {
	s     *Synchronizer
	op    string
	id    string
	pre   models.Task
	index int
	gen   uint64
}

// begin mengambil pre-image record id. ok false bila record tidak ada.
func (s *Synchronizer) begin(op, id string) (*txn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return &txn{s: s, op: op, id: id, pre: s.tasks[i].Clone(), index: i, gen: s.gen}, true
}

// apply menerapkan patch ke record di memori.
func (t *txn) apply(p models.TaskPatch) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.gen != t.s.gen {
		return
	}
	if i := t.s.indexOf(t.id); i >= 0 {
		t.s.tasks[i] = p.Apply(t.s.tasks[i])
	}
}

// remove menghapus record dari memori.
func (t *txn) remove() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.gen != t.s.gen {
		return
	}
	if i := t.s.indexOf(t.id); i >= 0 {
		t.s.tasks = append(t.s.tasks[:i], t.s.tasks[i+1:]...)
	}
}

// commit mengganti record optimistik dengan versi yang dikonfirmasi server.
// Record yang sudah hilang (mis. list baru tidak memuatnya) tidak dihidupkan
// kembali.
func (t *txn) commit(confirmed models.Task) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.gen != t.s.gen {
		return
	}
	if confirmed.OwnerRole == "" {
		confirmed.OwnerRole = t.pre.OwnerRole
	}
	if i := t.s.indexOf(t.id); i >= 0 {
		t.s.tasks[i] = confirmed
	}
	logger.AuditLogger.Info("Task change confirmed", zap.String("op", t.op), zap.String("task_id", t.id))
}

// rollback memulihkan pre-image. Hanya delete yang menyisipkan kembali
// record yang hilang, pada posisi semula (dibatasi panjang slice). Update
// yang gagal atas record yang sudah dihapus tidak menghidupkannya lagi.
func (t *txn) rollback(cause error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.gen != t.s.gen {
		return
	}
	if i := t.s.indexOf(t.id); i >= 0 {
		t.s.tasks[i] = t.pre.Clone()
	} else if t.op == "delete" {
		at := t.index
		if at > len(t.s.tasks) {
			at = len(t.s.tasks)
		}
		t.s.tasks = append(t.s.tasks, models.Task{})
		copy(t.s.tasks[at+1:], t.s.tasks[at:])
		t.s.tasks[at] = t.pre.Clone()
	}
	logger.ErrorLogger.Error("Task change rolled back",
		zap.String("op", t.op),
		zap.String("task_id", t.id),
		zap.Error(cause),
	)
}
