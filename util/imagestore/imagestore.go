package imagestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	maxWidth  = 600
	maxHeight = 900
	maxBytes  = 5 << 20
)

var ErrTooLarge = errors.New("image exceeds 5MB")

// Store persists uploaded images and returns their public path.
type Store interface {
	Save(r io.Reader, folder string) (string, error)
	Remove(publicPath string) error
}

// Local writes normalized JPEGs under Dir and serves them from URLPrefix.
type Local struct {
	Dir       string
	URLPrefix string
}

func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Local{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save decodes r (jpeg/png/gif/bmp/tiff), downscales it to fit the cover box
// keeping aspect ratio, and stores it as JPEG.
func (l *Local) Save(r io.Reader, folder string) (string, error) {
	lr := &io.LimitedReader{R: r, N: maxBytes + 1}
	img, err := imaging.Decode(lr, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if lr.N <= 0 {
		return "", ErrTooLarge
	}
	b := img.Bounds()
	if b.Dx() > maxWidth || b.Dy() > maxHeight {
		img = imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)
	}

	dir := filepath.Join(l.Dir, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ".jpg"
	if err := imaging.Save(img, filepath.Join(dir, name), imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return l.URLPrefix + "/" + folder + "/" + name, nil
}

// Remove deletes a file previously returned by Save; unknown paths are ignored.
func (l *Local) Remove(publicPath string) error {
	if publicPath == "" || !strings.HasPrefix(publicPath, l.URLPrefix+"/") {
		return nil
	}
	rel := strings.TrimPrefix(publicPath, l.URLPrefix+"/")
	if strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(l.Dir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
