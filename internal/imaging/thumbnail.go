package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/kilupskalvis/mosgal/internal/slug"
	"github.com/nfnt/resize"
)

// Thumbnail modes
const (
	ModeScale        = "scale"
	ModeScaleAndCrop = "scale_and_crop"
)

// Crop anchors for ModeScaleAndCrop
const (
	AnchorCenter = "center"
	AnchorTop    = "top"
	AnchorBottom = "bottom"
	AnchorLeft   = "left"
	AnchorRight  = "right"
)

// Modes lists the supported thumbnail modes
func Modes() []string { return []string{ModeScale, ModeScaleAndCrop} }

// Anchors lists the supported crop anchors
func Anchors() []string {
	return []string{AnchorCenter, AnchorTop, AnchorBottom, AnchorLeft, AnchorRight}
}

// ThumbnailAttribute returns the attribute holding the path of a named
// thumbnail
func ThumbnailAttribute(name string) string { return "thumbnail_" + name }

// ThumbnailSpec describes one thumbnail size
type ThumbnailSpec struct {
	Name    string
	Mode    string
	Width   int // 0 leaves the width unbounded in ModeScale
	Height  int // 0 leaves the height unbounded in ModeScale
	Anchor  string
	Quality int // JPEG quality, default 85
}

// Thumbnail renders a JPEG thumbnail into Dir, corrects the EXIF
// orientation and stores the output path in thumbnail_<name>. An output
// newer than the source is reused.
type Thumbnail struct {
	Spec   ThumbnailSpec
	Dir    string
	Logger *slog.Logger
}

// OutputPath returns where the thumbnail of a source is written
func (t *Thumbnail) OutputPath(source string) string {
	return filepath.Join(t.Dir, slug.Key(source)+"."+t.Spec.Name+".jpg")
}

func (t *Thumbnail) TransformWith(f *models.FileRecord, im *Image) error {
	out := t.OutputPath(f.Source)
	attr := ThumbnailAttribute(t.Spec.Name)

	if fresh(out, f.Path) {
		f.Attributes.Set(attr, models.String(out))
		return nil
	}

	img, err := im.Decode()
	if err != nil {
		return err
	}
	img = Orient(img, im.Orientation())

	switch t.Spec.Mode {
	case ModeScale, "":
		img = Scale(img, t.Spec.Width, t.Spec.Height)
	case ModeScaleAndCrop:
		img = ScaleAndCrop(img, t.Spec.Width, t.Spec.Height, t.Spec.Anchor)
	default:
		return fmt.Errorf("unknown thumbnail mode %q", t.Spec.Mode)
	}

	if err := writeJPEG(out, img, t.Spec.Quality); err != nil {
		return err
	}
	if t.Logger != nil {
		t.Logger.Debug("wrote thumbnail", "source", f.Source, "thumbnail", t.Spec.Name, "path", out)
	}
	f.Attributes.Set(attr, models.String(out))
	return nil
}

func (t *Thumbnail) Name() string { return "thumbnail " + t.Spec.Name }

func fresh(out, source string) bool {
	o, err := os.Stat(out)
	if err != nil {
		return false
	}
	s, err := os.Stat(source)
	if err != nil {
		return false
	}
	return !o.ModTime().Before(s.ModTime())
}

func writeJPEG(path string, img image.Image, quality int) error {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create thumbnail directory: %w", err)
	}

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: quality}); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// fitSize scales (w, h) to fit within (maxW, maxH) keeping the ratio.
// A zero bound is unbounded. Pictures are never enlarged.
func fitSize(w, h, maxW, maxH int) (int, int) {
	scale := 1.0
	if maxW > 0 && w > maxW {
		scale = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		if s := float64(maxH) / float64(h); s < scale {
			scale = s
		}
	}
	nw, nh := int(float64(w)*scale+0.5), int(float64(h)*scale+0.5)
	return max(nw, 1), max(nh, 1)
}

// Scale shrinks img to fit within width x height
func Scale(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	nw, nh := fitSize(b.Dx(), b.Dy(), width, height)
	if nw == b.Dx() && nh == b.Dy() {
		return img
	}
	return resize.Resize(uint(nw), uint(nh), img, resize.Lanczos3)
}

// ScaleAndCrop scales img to cover width x height, then crops it to exactly
// that size around the anchor
func ScaleAndCrop(img image.Image, width, height int, anchor string) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 || w == 0 || h == 0 {
		return img
	}

	var nw, nh int
	if float64(w)/float64(h) > float64(width)/float64(height) {
		nh = height
		nw = max(int(float64(w)*float64(height)/float64(h)+0.5), width)
	} else {
		nw = width
		nh = max(int(float64(h)*float64(width)/float64(w)+0.5), height)
	}
	scaled := resize.Resize(uint(nw), uint(nh), img, resize.Lanczos3)

	x0, y0 := (nw-width)/2, (nh-height)/2
	switch anchor {
	case AnchorTop:
		y0 = 0
	case AnchorBottom:
		y0 = nh - height
	case AnchorLeft:
		x0 = 0
	case AnchorRight:
		x0 = nw - width
	}

	sb := scaled.Bounds()
	rect := image.Rect(sb.Min.X+x0, sb.Min.Y+y0, sb.Min.X+x0+width, sb.Min.Y+y0+height)
	return crop(scaled, rect)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func crop(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			dst.Set(x, y, img.At(r.Min.X+x, r.Min.Y+y))
		}
	}
	return dst
}

// Orient returns img as it should be displayed given an EXIF orientation
func Orient(img image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	dw, dh := w, h
	if swapsAxes(orientation) {
		dw, dh = h, w
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			var sx, sy int
			switch orientation {
			case 2:
				sx, sy = w-1-x, y
			case 3:
				sx, sy = w-1-x, h-1-y
			case 4:
				sx, sy = x, h-1-y
			case 5:
				sx, sy = y, x
			case 6:
				sx, sy = y, h-1-x
			case 7:
				sx, sy = w-1-y, h-1-x
			case 8:
				sx, sy = w-1-y, x
			}
			dst.Set(x, y, img.At(b.Min.X+sx, b.Min.Y+sy))
		}
	}
	return dst
}
