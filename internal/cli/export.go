package cli

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/gogpu/tilebuf/buffer"
	"github.com/gogpu/tilebuf/pixel"
	"github.com/gogpu/tilebuf/tile"
)

const (
	formatPNG  = "png"
	formatTIFF = "tiff"
)

// exportFormat returns the image format selected by the extension of path.
func exportFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return formatPNG, nil
	case ".tif", ".tiff":
		return formatTIFF, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want .png, .tif or .tiff)", filepath.Ext(path))
	}
}

// snapshot reads r of b into an image. Pixels outside the abyss are
// transparent black.
func snapshot(b *buffer.Buffer, r tile.Rect) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	if err := b.Read(r, 0, pixel.RGBA8, img.Pix, img.Stride, buffer.AbyssNone); err != nil {
		return nil, err
	}
	return img, nil
}

// resample scales img by factor with Catmull-Rom filtering. Factors of 1
// or below zero return img unchanged.
func resample(img *image.NRGBA, factor float64) *image.NRGBA {
	if factor <= 0 || factor == 1 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor+0.5))
	h := max(1, int(float64(b.Dy())*factor+0.5))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// export writes r of b to path, scaled by factor.
func export(b *buffer.Buffer, r tile.Rect, path string, factor float64) error {
	format, err := exportFormat(path)
	if err != nil {
		return err
	}
	img, err := snapshot(b, r)
	if err != nil {
		return err
	}
	img = resample(img, factor)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	switch format {
	case formatTIFF:
		err = tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		err = png.Encode(f, img)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}
