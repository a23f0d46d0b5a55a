// internal/storage/uploads.go
package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"blogging-web/internal/utils"

	"github.com/lithammer/shortuuid/v4"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// URLPrefix is the public path uploaded files are served from.
const URLPrefix = "/uploads/"

var formatExtensions = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"gif":  ".gif",
	"webp": ".webp",
}

// ImageStore validates uploaded cover images and writes them to a local directory.
type ImageStore struct {
	dir      string
	maxBytes int64
}

func NewImageStore(dir string, maxBytes int64) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", dir, err)
	}
	return &ImageStore{dir: dir, maxBytes: maxBytes}, nil
}

func (s *ImageStore) Dir() string { return s.dir }

// MaxBytes is the largest accepted image.
func (s *ImageStore) MaxBytes() int64 { return s.maxBytes }

// Save stores the file under a fresh short id and returns its public URL.
func (s *ImageStore) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil {
		return "", utils.NewValidationError("Image required")
	}
	if fh.Size > s.maxBytes {
		return "", s.tooLarge()
	}

	f, err := fh.Open()
	if err != nil {
		return "", utils.NewAppError(utils.ErrStorage, "Failed to read upload", err)
	}
	defer f.Close()

	return s.SaveBytes(f)
}

// SaveBytes is Save for a raw reader.
func (s *ImageStore) SaveBytes(r io.Reader) (string, error) {
	content, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", utils.NewAppError(utils.ErrStorage, "Failed to read upload", err)
	}
	if len(content) == 0 {
		return "", utils.NewValidationError("Image required")
	}
	if int64(len(content)) > s.maxBytes {
		return "", s.tooLarge()
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return "", utils.NewValidationError("Invalid image file")
	}
	ext, ok := formatExtensions[format]
	if !ok {
		return "", utils.NewValidationError("Unsupported image format")
	}

	name := shortuuid.New() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0o644); err != nil {
		return "", utils.NewAppError(utils.ErrStorage, "Failed to store image", err)
	}
	return URLPrefix + name, nil
}

// Remove deletes a previously stored file given its public URL. Unknown files are ignored.
func (s *ImageStore) Remove(url string) error {
	name := path.Base(strings.TrimPrefix(url, URLPrefix))
	if name == "." || name == "/" || name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return utils.NewAppError(utils.ErrStorage, "Failed to remove image", err)
	}
	return nil
}

// Handler serves stored files under URLPrefix. Directories are reported as
// missing so the upload folder is never listed.
func (s *ImageStore) Handler() http.Handler {
	return http.StripPrefix(URLPrefix, http.FileServer(filesOnly{http.Dir(s.dir)}))
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

func (s *ImageStore) tooLarge() error {
	return utils.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxBytes/(1024*1024)))
}
