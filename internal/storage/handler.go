package storage

import (
	"strings"

	"irrigation-backend/internal/apierr"

	"github.com/gofiber/fiber/v2"
)

const MaxUploadSize = 10 << 20

var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
	"image/gif":       true,
	"application/pdf": true,
}

// POST /api/admin/uploads (multipart, field "file")
func UploadHandler(store Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return apierr.Fields("file", "is required")
		}
		if fh.Size == 0 {
			return apierr.Fields("file", "is empty")
		}
		if fh.Size > MaxUploadSize {
			return apierr.Fields("file", "must be at most 10 MB")
		}

		contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(fh.Header.Get("Content-Type"), ";", 2)[0]))
		if !allowedUploadTypes[contentType] {
			return apierr.Fields("file", "must be a JPEG, PNG, WebP, GIF or PDF file")
		}

		src, err := fh.Open()
		if err != nil {
			return apierr.Internal("Could not read upload", err)
		}
		defer src.Close()

		prefix := strings.Trim(c.FormValue("folder", "images"), "/ ")
		if prefix == "" || strings.Contains(prefix, "..") {
			prefix = "images"
		}

		objectName := ObjectName(prefix, fh.Filename)
		url, err := store.Put(c.UserContext(), objectName, contentType, src, fh.Size)
		if err != nil {
			return apierr.Internal("Could not store upload", err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"url":          url,
			"object_name":  objectName,
			"content_type": contentType,
			"size":         fh.Size,
		})
	}
}
