package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"tasksync/internal/models"
)

// fail mengirim envelope gagal. Field error diisi pesan yang sama agar
// client yang hanya membaca error tetap mendapat pesan.
func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   message,
		"success": false,
		"status":  status,
	})
}

// numericID: id user dan todo di database adalah SERIAL.
func numericID(id string) bool {
	_, err := strconv.ParseInt(id, 10, 64)
	return err == nil
}

// currentUser membaca identitas dari locals yang diisi middleware.UseToken.
func currentUser(c *fiber.Ctx) models.User {
	id, _ := c.Locals("userID").(string)
	email, _ := c.Locals("email").(string)
	role, _ := c.Locals("role").(string)
	r := models.Role(role)
	if !r.Valid() {
		r = models.RoleCollaborator
	}
	return models.User{ID: id, Email: email, Role: r}
}

type userResponse struct {
	ID             string      `json:"id"`
	Email          string      `json:"email"`
	Role           models.Role `json:"role"`
	PendingRequest bool        `json:"pendingRequest"`
	ProfileImage   string      `json:"profileImage,omitempty"`
}

func newUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Role: u.Role, PendingRequest: u.PendingRequest, ProfileImage: u.ProfileImage}
}

type locationResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

// todoResponse adalah bentuk todo di kontrak REST. Status dikirim dalam dua
// bentuk (completed dan status) untuk client lama maupun baru.
type todoResponse struct {
	ID                 string        `json:"id"`
	UserID             string        `json:"userId"`
	OwnerRole          models.Role   `json:"ownerRole"`
	AssignedTo         string        `json:"assignedTo,omitempty"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	Completed          bool          `json:"completed"`
	Status             models.Status `json:"status"`
	Location           any           `json:"location"`
	PhotoURI           string        `json:"photoUri,omitempty"`
	Note               string        `json:"note,omitempty"`
	CompletionImageURI string        `json:"completionImageUri,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

func newTodoResponse(t models.Task) todoResponse {
	var loc any
	if t.Location != nil {
		if t.Location.Coords != nil {
			loc = locationResponse{Latitude: t.Location.Coords.Latitude, Longitude: t.Location.Coords.Longitude, Name: t.Location.Name}
		} else {
			loc = t.Location.Name
		}
	}
	return todoResponse{
		ID:                 t.ID,
		UserID:             t.OwnerID,
		OwnerRole:          t.OwnerRole,
		AssignedTo:         t.AssignedTo,
		Title:              t.Title,
		Description:        t.Description,
		Completed:          t.Status.Completed(),
		Status:             t.Status,
		Location:           loc,
		PhotoURI:           t.ImageURI,
		Note:               t.Note,
		CompletionImageURI: t.CompletionImageURI,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

var errInvalidLocation = errors.New("location must be a place name or {latitude, longitude}")

// parseLocation menerima lokasi sebagai string nama tempat atau object
// koordinat. null atau string kosong berarti tanpa lokasi.
func parseLocation(raw json.RawMessage) (*models.Location, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if name == "" {
			return nil, nil
		}
		return &models.Location{Name: name}, nil
	}
	var obj struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Name      string   `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil || obj.Latitude == nil || obj.Longitude == nil {
		return nil, errInvalidLocation
	}
	return &models.Location{
		Name:   obj.Name,
		Coords: &models.Coordinates{Latitude: *obj.Latitude, Longitude: *obj.Longitude},
	}, nil
}
