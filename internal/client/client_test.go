package client

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync/internal/apperr"
	"tasksync/internal/models"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// startServer menjalankan app fiber pada port acak dan mengembalikan base URL.
func startServer(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func newApp() *fiber.App {
	return fiber.New(fiber.Config{DisableStartupMessage: true})
}

func TestLoginDefaultsRole(t *testing.T) {
	app := newApp()
	app.Post("/auth/login", func(c *fiber.Ctx) error {
		var req credentials
		if err := c.BodyParser(&req); err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"token": "tok-" + req.Email,
				"user":  fiber.Map{"id": "u1", "email": req.Email},
			},
		})
	})
	cl := New(startServer(t, app), time.Second)

	user, tok, err := cl.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-a@example.com", tok)
	assert.Equal(t, models.User{ID: "u1", Email: "a@example.com", Role: models.RoleCollaborator}, user)
}

func TestRegisterNumericIDAndRole(t *testing.T) {
	app := newApp()
	app.Post("/auth/register", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"token": "tok",
				"user":  fiber.Map{"id": 7, "email": "s@example.com", "role": "superadmin"},
			},
		})
	})
	cl := New(startServer(t, app), time.Second)

	user, _, err := cl.Register(context.Background(), "s@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "7", user.ID)
	assert.Equal(t, models.RoleSuperadmin, user.Role)
}

func TestApplicationFailureCarriesServerMessage(t *testing.T) {
	app := newApp()
	app.Post("/auth/login", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Invalid credentials"})
	})
	app.Get("/todos", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": fiber.Map{"message": "db down"}})
	})
	app.Delete("/todos/:id", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": false})
	})
	cl := New(startServer(t, app), time.Second)

	_, _, err := cl.Login(context.Background(), "a@example.com", "bad")
	assert.Equal(t, apperr.KindApplication, apperr.KindOf(err))
	assert.Equal(t, "Invalid credentials", apperr.Message(err))

	_, err = cl.ListTasks(context.Background())
	assert.Equal(t, "db down", apperr.Message(err))

	err = cl.DeleteTask(context.Background(), "1")
	assert.Equal(t, apperr.RequestFailed, apperr.Message(err))
}

func TestProtocolFailure(t *testing.T) {
	app := newApp()
	app.Get("/todos", func(c *fiber.Ctx) error {
		return c.SendString("<html>bad gateway</html>")
	})
	cl := New(startServer(t, app), time.Second)

	_, err := cl.ListTasks(context.Background())
	assert.Equal(t, apperr.KindProtocol, apperr.KindOf(err))
	assert.Equal(t, apperr.NetworkMessage, apperr.Message(err))
}

func TestTimeoutIsTransportFailure(t *testing.T) {
	app := newApp()
	app.Get("/todos", func(c *fiber.Ctx) error {
		time.Sleep(300 * time.Millisecond)
		return c.JSON(fiber.Map{"success": true, "data": []any{}})
	})
	cl := New(startServer(t, app), 50*time.Millisecond)

	_, err := cl.ListTasks(context.Background())
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
	assert.Equal(t, apperr.NetworkMessage, apperr.Message(err))
}

func TestContextDeadlineShortensTimeout(t *testing.T) {
	app := newApp()
	app.Get("/todos", func(c *fiber.Ctx) error {
		time.Sleep(2 * time.Second)
		return c.JSON(fiber.Map{"success": true, "data": []any{}})
	})
	cl := New(startServer(t, app), 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := cl.ListTasks(ctx)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestUnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cl := New("http://"+addr, 200*time.Millisecond)
	_, err = cl.ListTasks(context.Background())
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
}

func TestCancelledContextSkipsCall(t *testing.T) {
	cl := New("http://127.0.0.1:1", time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cl.ListTasks(ctx)
	assert.Equal(t, apperr.KindTransport, apperr.KindOf(err))
}

func TestBearerHeader(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	app := newApp()
	app.Get("/todos", func(c *fiber.Ctx) error {
		mu.Lock()
		got = append(got, c.Get(fiber.HeaderAuthorization))
		mu.Unlock()
		return c.JSON(fiber.Map{"success": true, "data": []any{}, "count": 0})
	})
	cl := New(startServer(t, app), time.Second)

	_, err := cl.ListTasks(context.Background())
	require.NoError(t, err)
	cl.SetTokenSource(staticToken("abc"))
	_, err = cl.ListTasks(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "Bearer abc"}, got)
}

func TestListDecodesBothTaskShapes(t *testing.T) {
	app := newApp()
	app.Get("/todos", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(`{"success":true,"count":2,"data":[
			{"id":"1","userId":"u1","title":"api shape","completed":true,
			 "location":{"latitude":-33.45,"longitude":-70.66},"photoUri":"https://cdn/x.jpg",
			 "createdAt":"2024-05-01T10:00:00Z","updatedAt":"2024-05-01T11:00:00Z"},
			{"id":2,"userId":3,"assignedTo":"u1","ownerRole":"superadmin","title":"rich shape",
			 "status":"pending","location":"Condominio Norte","note":"n","completionImageUri":"https://cdn/y.jpg",
			 "description":"d","createdAt":"2024-05-02T10:00:00Z","updatedAt":"2024-05-02T10:00:00Z"}]}`)
	})
	cl := New(startServer(t, app), time.Second)

	tasks, err := cl.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, models.StatusCompleted, tasks[0].Status)
	require.NotNil(t, tasks[0].Location)
	assert.Equal(t, &models.Coordinates{Latitude: -33.45, Longitude: -70.66}, tasks[0].Location.Coords)
	assert.Equal(t, "https://cdn/x.jpg", tasks[0].ImageURI)
	assert.Equal(t, "u1", tasks[0].OwnerID)

	assert.Equal(t, "2", tasks[1].ID)
	assert.Equal(t, "3", tasks[1].OwnerID)
	assert.Equal(t, models.RoleSuperadmin, tasks[1].OwnerRole)
	assert.Equal(t, models.StatusPending, tasks[1].Status)
	assert.Equal(t, &models.Location{Name: "Condominio Norte"}, tasks[1].Location)
	assert.Equal(t, "n", tasks[1].Note)
}

func TestUpdateSendsOnlyTouchedFields(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	app := newApp()
	app.Patch("/todos/:id", func(c *fiber.Ctx) error {
		var body map[string]any
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		bodies <- body
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{
			"id": c.Params("id"), "userId": "u1", "title": body["title"], "completed": body["completed"],
		}})
	})
	cl := New(startServer(t, app), time.Second)

	task, err := cl.UpdateTask(context.Background(), "9", models.TaskPatch{
		Title:  models.String("new"),
		Status: models.StatusPtr(models.StatusCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "new", "completed": true}, <-bodies)
	assert.Equal(t, "9", task.ID)
	assert.Equal(t, models.StatusCompleted, task.Status)
}

func TestUploadImageMultipart(t *testing.T) {
	received := make(chan []byte, 1)
	app := newApp()
	app.Post("/images", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "no file"})
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		received <- data
		return c.JSON(fiber.Map{"success": true, "data": "https://cdn.example.com/uploads/" + fh.Filename})
	})
	cl := New(startServer(t, app), time.Second)

	path := filepath.Join(t.TempDir(), "photo.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4E, 0x47}, 0644))

	url, err := cl.UploadImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/uploads/photo.png", url)
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, <-received)
}

func TestUploadMissingFile(t *testing.T) {
	app := newApp()
	app.Post("/images", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "data": "https://cdn/x"})
	})
	cl := New(startServer(t, app), time.Second)

	_, err := cl.UploadImage(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

// echoStore menyimpan body create apa adanya, menggabungkan body patch, dan
// mengembalikannya lewat GET /todos seperti remote store.
func echoStore(t *testing.T) string {
	t.Helper()
	var (
		mu     sync.Mutex
		stored map[string]any
	)
	app := newApp()
	app.Post("/todos", func(c *fiber.Ctx) error {
		var body map[string]any
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		body["id"] = 1
		body["userId"] = "u1"
		body["ownerRole"] = "admin"
		body["createdAt"] = "2024-05-01T10:00:00Z"
		body["updatedAt"] = "2024-05-01T10:00:00Z"
		mu.Lock()
		stored = body
		mu.Unlock()
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": body})
	})
	app.Patch("/todos/:id", func(c *fiber.Ctx) error {
		var body map[string]any
		if err := c.BodyParser(&body); err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		for k, v := range body {
			stored[k] = v
		}
		stored["updatedAt"] = "2024-05-01T11:00:00Z"
		return c.JSON(fiber.Map{"success": true, "data": stored})
	})
	app.Get("/todos", func(c *fiber.Ctx) error {
		mu.Lock()
		defer mu.Unlock()
		data := []any{}
		if stored != nil {
			data = append(data, stored)
		}
		return c.JSON(fiber.Map{"success": true, "data": data, "count": len(data)})
	})
	return startServer(t, app)
}

func withoutServerFields(task models.Task) models.Task {
	task.ID = ""
	task.CreatedAt = time.Time{}
	task.UpdatedAt = time.Time{}
	return task
}

func TestTaskSurvivesCreateAndListRoundTrip(t *testing.T) {
	cl := New(echoStore(t), time.Second)
	ctx := context.Background()

	task := models.Task{
		OwnerID:     "u1",
		OwnerRole:   models.RoleAdmin,
		AssignedTo:  "u2",
		Title:       "Cek pompa",
		Description: "Lantai dua",
		Location: &models.Location{
			Name:   "Condominio Norte",
			Coords: &models.Coordinates{Latitude: -33.45, Longitude: -70.66},
		},
		ImageURI:           "https://cdn/x.jpg",
		Note:               "sudah diganti",
		CompletionImageURI: "https://cdn/y.jpg",
		Status:             models.StatusCompleted,
	}

	created, err := cl.CreateTask(ctx, task)
	require.NoError(t, err)
	assert.Equal(t, "1", created.ID)
	assert.Equal(t, task, withoutServerFields(created))

	listed, err := cl.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, task, withoutServerFields(listed[0]))
	assert.False(t, listed[0].CreatedAt.IsZero())

	patch := models.TaskPatch{
		Title:    models.String("Cek pompa air"),
		Location: &models.Location{Name: "Gudang"},
		Status:   models.StatusPtr(models.StatusPending),
		Note:     models.String(""),
	}
	_, err = cl.UpdateTask(ctx, created.ID, patch)
	require.NoError(t, err)

	listed, err = cl.ListTasks(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, patch.Apply(task), withoutServerFields(listed[0]))
}
