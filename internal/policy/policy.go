// Package policy menentukan field task mana yang boleh diubah oleh seorang
// user, berdasarkan role dan hubungannya dengan task. UI hanya merender
// keluaran Evaluate dan tidak menurunkan izin sendiri.
package policy

import (
	"fmt"
	"sort"

	"tasksync/internal/models"
)

// Relation adalah hubungan user yang bertindak dengan sebuah task.
type Relation int

const (
	RelationNone Relation = iota
	RelationOwner
	RelationAssignee
)

// RelationOf menghitung hubungan user dengan task.
func RelationOf(userID string, task models.Task) Relation {
	switch {
	case userID == "":
		return RelationNone
	case task.OwnerID == userID:
		return RelationOwner
	case task.AssignedTo == userID:
		return RelationAssignee
	default:
		return RelationNone
	}
}

// Mode menamai aturan yang menghasilkan keputusan.
type Mode string

const (
	ModeFull            Mode = "full"
	ModeRestrictedAdmin Mode = "restricted_admin"
	ModeReadOnly        Mode = "read_only"
)

// Subject adalah masukan evaluator.
type Subject struct {
	Role      models.Role
	Relation  Relation
	OwnerRole models.Role
	// ReadOnly memaksa tampilan baca-saja walaupun user adalah pemilik.
	ReadOnly bool
}

// SubjectFor membangun Subject untuk user terhadap task.
func SubjectFor(user models.User, task models.Task) Subject {
	ownerRole := task.OwnerRole
	if ownerRole == "" {
		ownerRole = models.RoleCollaborator
	}
	return Subject{
		Role:      user.Role,
		Relation:  RelationOf(user.ID, task),
		OwnerRole: ownerRole,
	}
}

// FieldSet adalah himpunan field.
type FieldSet map[models.Field]bool

func NewFieldSet(fields ...models.Field) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = true
	}
	return s
}

func (s FieldSet) Has(f models.Field) bool { return s[f] }

// Sorted mengembalikan isi himpunan dalam urutan alfabet.
func (s FieldSet) Sorted() []models.Field {
	out := make([]models.Field, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Decision adalah hasil evaluasi.
type Decision struct {
	Mode     Mode
	Readable FieldSet
	Writable FieldSet
}

func (d Decision) CanWrite(f models.Field) bool { return d.Writable.Has(f) }

// DeniedError mencatat field yang ditolak.
type DeniedError struct {
	Mode   Mode
	Fields []models.Field
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("fields %v not writable in %s mode", e.Fields, e.Mode)
}

// Check memastikan semua field boleh ditulis.
func (d Decision) Check(fields []models.Field) error {
	var denied []models.Field
	for _, f := range fields {
		if !d.Writable.Has(f) {
			denied = append(denied, f)
		}
	}
	if len(denied) > 0 {
		return &DeniedError{Mode: d.Mode, Fields: denied}
	}
	return nil
}

var (
	serverAssigned   = NewFieldSet(models.FieldID, models.FieldCreatedAt)
	completionFields = []models.Field{models.FieldNote, models.FieldCompletionImage}
)

// Evaluate menerapkan tabel aturan; aturan paling spesifik menang.
func Evaluate(s Subject) Decision {
	readable := NewFieldSet(models.AllFields...)

	// Admin yang menjadi assignee task milik superadmin hanya boleh
	// mengisi catatan dan foto penyelesaian.
	if s.Role == models.RoleAdmin && s.OwnerRole == models.RoleSuperadmin && s.Relation == RelationAssignee {
		return Decision{Mode: ModeRestrictedAdmin, Readable: readable, Writable: NewFieldSet(completionFields...)}
	}

	if s.Relation == RelationOwner && !s.ReadOnly {
		writable := make(FieldSet)
		for _, f := range models.AllFields {
			if serverAssigned.Has(f) {
				continue
			}
			if f == models.FieldAssignee && !CanAssign(s.Role) {
				continue
			}
			writable[f] = true
		}
		return Decision{Mode: ModeFull, Readable: readable, Writable: writable}
	}

	return Decision{Mode: ModeReadOnly, Readable: readable, Writable: NewFieldSet(completionFields...)}
}

// EvaluateFor adalah Evaluate(SubjectFor(user, task)).
func EvaluateFor(user models.User, task models.Task) Decision {
	return Evaluate(SubjectFor(user, task))
}

// CanAssign melaporkan apakah role boleh mengisi field assignedTo.
func CanAssign(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleSuperadmin
}

// CanDelete: hanya pemilik yang boleh menghapus task.
func CanDelete(user models.User, task models.Task) bool {
	return RelationOf(user.ID, task) == RelationOwner
}
