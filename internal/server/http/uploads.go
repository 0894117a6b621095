package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/vidhub/internal/common"
	"github.com/dmitrijs2005/vidhub/internal/filex"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Spool stores incoming multipart files on local disk until the media
// uploader consumes them.
type Spool struct {
	dir string
}

// NewSpool creates dir if needed.
func NewSpool(dir string) (*Spool, error) {
	abs, err := filex.EnsureSubdDir(dir)
	if err != nil {
		return nil, err
	}
	return &Spool{dir: abs}, nil
}

// Collect saves at most one file per field and returns field -> local path.
// Fields without a file are absent from the result. A request that is not
// multipart carries no files.
func (s *Spool) Collect(c *gin.Context, fields ...string) (map[string]string, error) {
	paths := make(map[string]string, len(fields))

	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return paths, nil
	}
	if err != nil {
		return nil, bodyError(err, "invalid multipart form")
	}

	for _, field := range fields {
		files := form.File[field]
		if len(files) == 0 {
			continue
		}
		if len(files) > 1 {
			s.Discard(paths)
			return nil, common.NewUserError(common.ErrValidation, fmt.Sprintf("only one %s file is allowed", field))
		}

		dst := filepath.Join(s.dir, uuid.NewString()+strings.ToLower(filepath.Ext(filepath.Base(files[0].Filename))))
		if err := c.SaveUploadedFile(files[0], dst); err != nil {
			s.Discard(paths)
			return nil, fmt.Errorf("spool %s: %w", field, err)
		}
		paths[field] = dst
	}
	return paths, nil
}

// bodyError reports an oversized body with its limit and anything else
// as fallback.
func bodyError(err error, fallback string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return common.NewUserError(common.ErrValidation, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
	}
	return common.NewUserError(common.ErrValidation, fallback)
}

// Discard removes spooled files.
func (s *Spool) Discard(paths map[string]string) {
	for _, p := range paths {
		_ = filex.RemoveQuietly(p)
	}
}
