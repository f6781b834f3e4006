package models

import (
	"time"
)

// Role adalah peran user di dalam sistem.
type Role string

const (
	RoleSuperadmin   Role = "superadmin"
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "collaborator"
)

// Valid melaporkan apakah role dikenal.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleCollaborator:
		return true
	default:
		return false
	}
}

// Status adalah status penyelesaian task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// StatusFromBool memetakan bentuk boolean `completed` ke Status.
func StatusFromBool(completed bool) Status {
	if completed {
		return StatusCompleted
	}
	return StatusPending
}

func (s Status) Completed() bool { return s == StatusCompleted }

// Toggle mengembalikan status kebalikannya.
func (s Status) Toggle() Status {
	if s.Completed() {
		return StatusPending
	}
	return StatusCompleted
}

type User struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Password       string `json:"password,omitempty"`
	Role           Role   `json:"role"`
	PendingRequest bool   `json:"pending_request"`
	ProfileImage   string `json:"profile_image,omitempty"`
}

// Coordinates adalah pasangan latitude/longitude.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location adalah lokasi task: nama tempat bebas, koordinat, atau keduanya.
type Location struct {
	Name   string       `json:"name,omitempty"`
	Coords *Coordinates `json:"coords,omitempty"`
}

func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}
	c := *l
	if l.Coords != nil {
		coords := *l.Coords
		c.Coords = &coords
	}
	return &c
}

// Task adalah bentuk kanonik task di sisi client.
type Task struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"owner_id"`
	OwnerRole          Role      `json:"owner_role,omitempty"`
	AssignedTo         string    `json:"assigned_to,omitempty"`
	Title              string    `json:"title"`
	Description        string    `json:"description,omitempty"`
	Location           *Location `json:"location,omitempty"`
	ImageURI           string    `json:"image_uri,omitempty"`
	Note               string    `json:"note,omitempty"`
	CompletionImageURI string    `json:"completion_image_uri,omitempty"`
	Status             Status    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Clone membuat salinan dalam (deep copy) dari task.
func (t Task) Clone() Task {
	t.Location = t.Location.Clone()
	return t
}

// VisibleTo melaporkan apakah task terlihat oleh user: pemilik atau assignee.
func (t Task) VisibleTo(userID string) bool {
	return userID != "" && (t.OwnerID == userID || t.AssignedTo == userID)
}

// NamedPlace adalah lokasi bernama yang dikelola superadmin.
type NamedPlace struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	MapsURL string `json:"maps_url,omitempty"`
}
