package client

import (
	"bytes"
	"encoding/json"
	"time"

	"tasksync/internal/models"
)

// flexString menerima id berupa string maupun angka JSON.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// wireLocation adalah lokasi di kontrak remote: string nama tempat atau
// object {latitude, longitude, name?}.
type wireLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

func encodeLocation(l *models.Location) any {
	if l == nil {
		return nil
	}
	if l.Coords != nil {
		return wireLocation{Latitude: l.Coords.Latitude, Longitude: l.Coords.Longitude, Name: l.Name}
	}
	return l.Name
}

func decodeLocation(raw json.RawMessage) *models.Location {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if name == "" {
			return nil
		}
		return &models.Location{Name: name}
	}
	var wl wireLocation
	if err := json.Unmarshal(raw, &wl); err != nil {
		return nil
	}
	return &models.Location{
		Name:   wl.Name,
		Coords: &models.Coordinates{Latitude: wl.Latitude, Longitude: wl.Longitude},
	}
}

// wireTask adalah task seperti yang dikirim remote store. Field kaya
// (description, assignedTo, note, completionImageUri) opsional.
type wireTask struct {
	ID                 flexString      `json:"id"`
	UserID             flexString      `json:"userId"`
	OwnerRole          models.Role     `json:"ownerRole,omitempty"`
	AssignedTo         flexString      `json:"assignedTo,omitempty"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	Completed          *bool           `json:"completed,omitempty"`
	Status             models.Status   `json:"status,omitempty"`
	Location           json.RawMessage `json:"location,omitempty"`
	PhotoURI           string          `json:"photoUri,omitempty"`
	Note               string          `json:"note,omitempty"`
	CompletionImageURI string          `json:"completionImageUri,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

func (w wireTask) toModel() models.Task {
	status := w.Status
	if w.Completed != nil {
		status = models.StatusFromBool(*w.Completed)
	}
	if status == "" {
		status = models.StatusPending
	}
	return models.Task{
		ID:                 string(w.ID),
		OwnerID:            string(w.UserID),
		OwnerRole:          w.OwnerRole,
		AssignedTo:         string(w.AssignedTo),
		Title:              w.Title,
		Description:        w.Description,
		Location:           decodeLocation(w.Location),
		ImageURI:           w.PhotoURI,
		Note:               w.Note,
		CompletionImageURI: w.CompletionImageURI,
		Status:             status,
		CreatedAt:          w.CreatedAt,
		UpdatedAt:          w.UpdatedAt,
	}
}

// createPayload adalah body POST /todos.
type createPayload struct {
	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	Location           any    `json:"location"`
	PhotoURI           string `json:"photoUri,omitempty"`
	AssignedTo         string `json:"assignedTo,omitempty"`
	Note               string `json:"note,omitempty"`
	CompletionImageURI string `json:"completionImageUri,omitempty"`
	Completed          bool   `json:"completed,omitempty"`
}

func newCreatePayload(t models.Task) createPayload {
	return createPayload{
		Title:              t.Title,
		Description:        t.Description,
		Location:           encodeLocation(t.Location),
		PhotoURI:           t.ImageURI,
		AssignedTo:         t.AssignedTo,
		Note:               t.Note,
		CompletionImageURI: t.CompletionImageURI,
		Completed:          t.Status.Completed(),
	}
}

// patchPayload menerjemahkan TaskPatch ke body PATCH /todos/:id. Hanya
// field yang disentuh yang dikirim.
func patchPayload(p models.TaskPatch) map[string]any {
	body := make(map[string]any)
	if p.Title != nil {
		body["title"] = *p.Title
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Location != nil {
		body["location"] = encodeLocation(p.Location)
	}
	if p.ImageURI != nil {
		body["photoUri"] = *p.ImageURI
	}
	if p.AssignedTo != nil {
		body["assignedTo"] = *p.AssignedTo
	}
	if p.Status != nil {
		body["completed"] = p.Status.Completed()
	}
	if p.Note != nil {
		body["note"] = *p.Note
	}
	if p.CompletionImageURI != nil {
		body["completionImageUri"] = *p.CompletionImageURI
	}
	return body
}
