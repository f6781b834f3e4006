package models

// Field adalah nama field task yang dapat dibatasi oleh policy.
type Field string

const (
	FieldID              Field = "id"
	FieldCreatedAt       Field = "createdAt"
	FieldTitle           Field = "title"
	FieldDescription     Field = "description"
	FieldLocation        Field = "location"
	FieldImage           Field = "image"
	FieldAssignee        Field = "assignedTo"
	FieldStatus          Field = "status"
	FieldNote            Field = "note"
	FieldCompletionImage Field = "completionImage"
)

// AllFields adalah seluruh field task dalam urutan tetap.
var AllFields = []Field{
	FieldID,
	FieldCreatedAt,
	FieldTitle,
	FieldDescription,
	FieldLocation,
	FieldImage,
	FieldAssignee,
	FieldStatus,
	FieldNote,
	FieldCompletionImage,
}

// TaskPatch adalah update parsial. Field nil berarti tidak diubah.
type TaskPatch struct {
	Title              *string   `json:"title,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Location           *Location `json:"location,omitempty"`
	ImageURI           *string   `json:"image_uri,omitempty"`
	AssignedTo         *string   `json:"assigned_to,omitempty"`
	Status             *Status   `json:"status,omitempty"`
	Note               *string   `json:"note,omitempty"`
	CompletionImageURI *string   `json:"completion_image_uri,omitempty"`
}

// Fields mengembalikan field yang disentuh patch.
func (p TaskPatch) Fields() []Field {
	var fields []Field
	if p.Title != nil {
		fields = append(fields, FieldTitle)
	}
	if p.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if p.Location != nil {
		fields = append(fields, FieldLocation)
	}
	if p.ImageURI != nil {
		fields = append(fields, FieldImage)
	}
	if p.AssignedTo != nil {
		fields = append(fields, FieldAssignee)
	}
	if p.Status != nil {
		fields = append(fields, FieldStatus)
	}
	if p.Note != nil {
		fields = append(fields, FieldNote)
	}
	if p.CompletionImageURI != nil {
		fields = append(fields, FieldCompletionImage)
	}
	return fields
}

func (p TaskPatch) Empty() bool { return len(p.Fields()) == 0 }

// Apply mengembalikan salinan task dengan patch diterapkan.
func (p TaskPatch) Apply(t Task) Task {
	out := t.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Location != nil {
		out.Location = p.Location.Clone()
	}
	if p.ImageURI != nil {
		out.ImageURI = *p.ImageURI
	}
	if p.AssignedTo != nil {
		out.AssignedTo = *p.AssignedTo
	}
	if p.Status != nil {
		out.Status = *p.Status
	}
	if p.Note != nil {
		out.Note = *p.Note
	}
	if p.CompletionImageURI != nil {
		out.CompletionImageURI = *p.CompletionImageURI
	}
	return out
}

// String adalah helper untuk membuat pointer string di patch.
func String(s string) *string { return &s }

// StatusPtr adalah helper untuk membuat pointer Status di patch.
func StatusPtr(s Status) *Status { return &s }
