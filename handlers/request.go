package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"

	"site-cms/models"
	"site-cms/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var uploadFields = []models.FileRole{models.FileMainImage, models.FileAuthorImage, models.FileResourceFile}

func clientInfo(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func paramID(c *gin.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

// formUploads opens the named multipart files present in the request. The
// returned closer must be called once the uploads are consumed.
func formUploads(c *gin.Context, fields ...models.FileRole) ([]storage.Upload, func(), error) {
	var uploads []storage.Upload
	var files []multipart.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	for _, field := range fields {
		header, err := c.FormFile(string(field))
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			continue
		}
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		f, err := header.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		uploads = append(uploads, storage.Upload{
			Field:        field,
			OriginalName: header.Filename,
			ContentType:  header.Header.Get("Content-Type"),
			Size:         header.Size,
			Reader:       f,
		})
	}
	return uploads, closeAll, nil
}

// linkToken reads the link token of the public routes, which share the
// :id path segment with the staff routes.
func linkToken(c *gin.Context) string {
	return c.Param("id")
}
