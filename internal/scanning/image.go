package scanning

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Image is a receipt image handle: the raw bytes plus where they came from
type Image struct {
	Data        []byte
	ContentType string
	Ref         string
}

// NewImage wraps uploaded bytes, sniffing the content type when none is given
func NewImage(data []byte, contentType, ref string) Image {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniffContentType(data)
	}
	return Image{Data: data, ContentType: contentType, Ref: ref}
}

// ErrOutsideImageDir is returned when a reference points outside the allowed directory
var ErrOutsideImageDir = errors.New("image reference outside image directory")

// LoadImage reads an image from a local path or a file:// URI
func LoadImage(ref string) (Image, error) {
	path, err := refPath(ref)
	if err != nil {
		return Image{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("reading image: %w", err)
	}
	return imageFromFile(data, path, ref)
}

// LoadImageIn reads an image like LoadImage but only from within dir. Relative
// references are resolved against dir; absolute ones must lie under it. Symlinks
// leaving dir are refused as well.
func LoadImageIn(dir, ref string) (Image, error) {
	path, err := refPath(ref)
	if err != nil {
		return Image{}, err
	}

	base, err := filepath.Abs(dir)
	if err != nil {
		return Image{}, fmt.Errorf("resolving image directory: %w", err)
	}
	rel := filepath.Clean(path)
	if filepath.IsAbs(rel) {
		if rel, err = filepath.Rel(base, rel); err != nil {
			return Image{}, fmt.Errorf("%s: %w", ref, ErrOutsideImageDir)
		}
	}
	if !filepath.IsLocal(rel) {
		return Image{}, fmt.Errorf("%s: %w", ref, ErrOutsideImageDir)
	}

	root, err := os.OpenRoot(base)
	if err != nil {
		return Image{}, fmt.Errorf("opening image directory: %w", err)
	}
	defer root.Close()

	f, err := root.Open(rel)
	if err != nil {
		return Image{}, fmt.Errorf("reading image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Image{}, fmt.Errorf("reading image: %w", err)
	}
	return imageFromFile(data, rel, ref)
}

// refPath turns a path or file:// URI into a filesystem path
func refPath(ref string) (string, error) {
	if strings.HasPrefix(ref, "file:") {
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("parsing image uri: %w", err)
		}
		return u.Path, nil
	}
	if strings.Contains(ref, "://") {
		return "", fmt.Errorf("unsupported image reference: %s", ref)
	}
	return ref, nil
}

func imageFromFile(data []byte, path, ref string) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("reading image: %s is empty", path)
	}
	return NewImage(data, "", ref), nil
}

// Hash returns the hex SHA-256 of the image bytes
func (i Image) Hash() string {
	sum := sha256.Sum256(i.Data)
	return hex.EncodeToString(sum[:])
}

func sniffContentType(data []byte) string {
	if isHEICFormat(data) {
		return "image/heic"
	}
	ct := http.DetectContentType(data)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return ct
}
