package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const maxUploadSize = 10 << 20

var (
	unsafeFileChars   = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	unsafeFolderChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// ObjectStorage stores uploaded files and returns their public URL
type ObjectStorage interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

func isImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}

func isImageOrPDF(contentType string) bool {
	return isImage(contentType) || contentType == "application/pdf"
}

// storeUpload checks file against the size limit and accepted types, then
// writes it to <dir>/<uuid>_<name>. It returns the public URL and object path.
func storeUpload(ctx context.Context, storage ObjectStorage, file *multipart.FileHeader, dir string, accept func(string) bool) (string, string, error) {
	if file.Size > maxUploadSize {
		return "", "", echo.NewHTTPError(http.StatusBadRequest, "File too large")
	}
	contentType := file.Header.Get("Content-Type")
	if !accept(contentType) {
		return "", "", echo.NewHTTPError(http.StatusBadRequest, "Unsupported file type")
	}

	src, err := file.Open()
	if err != nil {
		return "", "", err
	}
	defer src.Close()

	objectPath := fmt.Sprintf("%s/%s_%s", dir, uuid.NewString(), safeFileName(file.Filename))
	url, err := storage.Upload(ctx, objectPath, contentType, src)
	if err != nil {
		return "", "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	return url, objectPath, nil
}

func safeFileName(name string) string {
	name = unsafeFileChars.ReplaceAllString(path.Base(strings.ReplaceAll(name, "\\", "/")), "_")
	if name == "" || name == "." || name == ".." {
		return "proof"
	}
	return name
}
