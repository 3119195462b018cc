package layout

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrImageUnavailable indicates an image that cannot be loaded or decoded.
// The engine renders the alt text instead.
var ErrImageUnavailable = errors.New("image unavailable")

// Image is a decoded image ready for the PDF emitter.
type Image struct {
	Src    string // resolved location, also used as the registration name
	Data   []byte // encoded bytes in Format
	Format string // "PNG", "JPG" or "GIF"
	Width  int    // natural size in px
	Height int
}

// imageCache loads each source once per engine.
type imageCache struct {
	mu     sync.Mutex
	images map[string]*Image
	errs   map[string]error
}

func newImageCache() *imageCache {
	return &imageCache{images: map[string]*Image{}, errs: map[string]error{}}
}

// load resolves src against baseURL and decodes it.
func (c *imageCache) load(src, baseURL string) (*Image, error) {
	loc := resolveImageSource(src, baseURL)

	c.mu.Lock()
	defer c.mu.Unlock()
	if img, ok := c.images[loc]; ok {
		return img, nil
	}
	if err, ok := c.errs[loc]; ok {
		return nil, err
	}

	img, err := readImage(loc)
	if err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrImageUnavailable, src, err)
		c.errs[loc] = err
		return nil, err
	}
	c.images[loc] = img
	return img, nil
}

// resolveImageSource turns src into a data URI or an absolute file path.
func resolveImageSource(src, baseURL string) string {
	if strings.HasPrefix(src, "data:") {
		return src
	}
	if strings.HasPrefix(src, "file://") {
		if u, err := url.Parse(src); err == nil {
			return u.Path
		}
	}
	if filepath.IsAbs(src) || strings.Contains(src, "://") {
		return src
	}
	base := baseURL
	if strings.HasPrefix(base, "file://") {
		if u, err := url.Parse(base); err == nil {
			base = u.Path
		}
	}
	if base == "" {
		base = "."
	}
	return filepath.Join(base, filepath.FromSlash(src))
}

func readImage(loc string) (*Image, error) {
	var data []byte
	switch {
	case strings.HasPrefix(loc, "data:"):
		meta, payload, ok := strings.Cut(loc[len("data:"):], ",")
		if !ok {
			return nil, errors.New("malformed data URI")
		}
		if !strings.HasSuffix(meta, ";base64") {
			return nil, errors.New("only base64 data URIs are supported")
		}
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, err
		}
		data = decoded
	case strings.Contains(loc, "://"):
		return nil, errors.New("remote images are not fetched")
	default:
		b, err := os.ReadFile(loc)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return decodeImage(loc, data)
}

// decodeImage keeps PNG, JPEG and GIF bytes as is and re-encodes any other
// registered format as PNG.
func decodeImage(loc string, data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	img := &Image{Src: loc, Width: cfg.Width, Height: cfg.Height}
	switch format {
	case "png":
		img.Data, img.Format = data, "PNG"
	case "jpeg":
		img.Data, img.Format = data, "JPG"
	case "gif":
		img.Data, img.Format = data, "GIF"
	default:
		decoded, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, decoded); err != nil {
			return nil, err
		}
		img.Data, img.Format = buf.Bytes(), "PNG"
	}
	return img, nil
}
