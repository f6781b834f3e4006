package client

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"tasksync/internal/apperr"
)

// UploadImage mengirim file lokal sebagai multipart (field "file") ke
// POST /images dan mengembalikan URL durable dari server.
func (c *Client) UploadImage(ctx context.Context, path string) (string, error) {
	a := c.prepare(fiber.MethodPost, "/images")
	a.SendFile(path, "file")
	a.MultipartForm(nil)

	env, err := c.send(ctx, "upload", a)
	if err != nil {
		return "", err
	}

	var url string
	if err := json.Unmarshal(env.Data, &url); err == nil && url != "" {
		return url, nil
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &obj); err != nil || obj.URL == "" {
		return "", apperr.Protocol("upload", err)
	}
	return obj.URL, nil
}
