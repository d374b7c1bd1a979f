// Package imgio decodes image files into imagery buffers and encodes
// composites back out. It is the codec collaborator the core
// explicitly does not contain: nothing under internal/imagery performs
// file I/O.
package imgio

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/banshee-data/stitchwork/internal/imagery"
)

// Load decodes one PNG or JPEG file. The image's opaque identifier is
// its base filename.
func Load(path string) (*imagery.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	nrgba, ok := decoded.(*image.NRGBA)
	if !ok {
		b := decoded.Bounds()
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), decoded, b.Min, draw.Src)
	}
	return imagery.FromNRGBA(filepath.Base(path), nrgba), nil
}

// LoadDir loads every PNG/JPEG directly under dir, sorted by filename
// so batch order is stable.
func LoadDir(dir string) ([]*imagery.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	images := make([]*imagery.Image, 0, len(paths))
	for _, p := range paths {
		im, err := Load(p)
		if err != nil {
			return nil, err
		}
		images = append(images, im)
	}
	return images, nil
}

// SavePNG encodes a composite to path.
func SavePNG(path string, im *imagery.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, im.ToNRGBA()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
