// Package imaging holds the transformers that read picture files: file
// metadata, EXIF tags, dominant colours and thumbnails.
package imaging

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/kilupskalvis/mosgal/internal/pipeline"
	"github.com/rwcarlsen/goexif/exif"
)

// ErrNoExif is returned by Image.Exif when the file carries no EXIF block.
// A block that is present but unreadable is reported as a different error.
var ErrNoExif = errors.New("no exif data")

// Image is an open picture file. Pixels and EXIF data are decoded on first
// use and kept until Close.
type Image struct {
	Path string
	file *os.File

	decoded   image.Image
	format    string
	decodeErr error
	decodeRun bool

	exif    *exif.Exif
	exifErr error
	exifRun bool
}

// Step is a transformer run while the image is open
type Step = pipeline.ScopedStep[*Image]

// StepFunc adapts a function to Step
type StepFunc = pipeline.ScopedStepFunc[*Image]

// Open opens the file behind a record
func Open(f *models.FileRecord) (*Image, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	return &Image{Path: f.Path, file: file}, nil
}

// Close releases the file and the decoded data
func (im *Image) Close() error {
	im.decoded = nil
	im.exif = nil
	if im.file == nil {
		return nil
	}
	err := im.file.Close()
	im.file = nil
	return err
}

func (im *Image) rewind() error {
	if im.file == nil {
		return fmt.Errorf("%s: image is closed", im.Path)
	}
	_, err := im.file.Seek(0, io.SeekStart)
	return err
}

// Decode returns the decoded pixels
func (im *Image) Decode() (image.Image, error) {
	if im.decodeRun {
		return im.decoded, im.decodeErr
	}
	im.decodeRun = true

	if err := im.rewind(); err != nil {
		im.decodeErr = err
		return nil, err
	}
	im.decoded, im.format, im.decodeErr = image.Decode(im.file)
	if im.decodeErr != nil {
		im.decodeErr = fmt.Errorf("decode %s: %w", im.Path, im.decodeErr)
	}
	return im.decoded, im.decodeErr
}

// Config returns the stored dimensions without decoding pixels
func (im *Image) Config() (image.Config, error) {
	if im.decoded != nil {
		b := im.decoded.Bounds()
		return image.Config{Width: b.Dx(), Height: b.Dy(), ColorModel: im.decoded.ColorModel()}, nil
	}
	if err := im.rewind(); err != nil {
		return image.Config{}, err
	}
	cfg, _, err := image.DecodeConfig(im.file)
	if err != nil {
		return image.Config{}, fmt.Errorf("decode config %s: %w", im.Path, err)
	}
	return cfg, nil
}

// Exif returns the parsed EXIF block. Files without one get ErrNoExif.
// When only a sub-directory (exif, gps, interop) fails to parse, the main
// block is returned together with the error.
func (im *Image) Exif() (*exif.Exif, error) {
	if im.exifRun {
		return im.exif, im.exifErr
	}
	im.exifRun = true
	im.exif, im.exifErr = im.readExif()
	return im.exif, im.exifErr
}

func (im *Image) readExif() (*exif.Exif, error) {
	if err := im.rewind(); err != nil {
		return nil, err
	}
	present, err := hasExif(im.file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", im.Path, err)
	}
	if !present {
		return nil, ErrNoExif
	}

	if err := im.rewind(); err != nil {
		return nil, err
	}
	x, err := exif.Decode(im.file)
	switch {
	case err == nil:
		return x, nil
	case x != nil && !exif.IsCriticalError(err):
		return x, fmt.Errorf("exif %s: %w", im.Path, err)
	default:
		return nil, fmt.Errorf("exif %s: %w", im.Path, err)
	}
}

// hasExif reports whether r is a TIFF file or a JPEG carrying an APP1
// "Exif" segment before its image data. Other formats never carry EXIF
// data goexif can read.
func hasExif(r io.Reader) (bool, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch string(head) {
	case "II*\x00", "MM\x00*":
		return true, nil
	}
	if head[0] != 0xFF || head[1] != 0xD8 {
		return false, nil
	}
	br.Discard(2)

	for {
		var m [2]byte
		if _, err := io.ReadFull(br, m[:]); err != nil || m[0] != 0xFF {
			return false, nil
		}
		marker := m[1]
		for marker == 0xFF {
			if marker, err = br.ReadByte(); err != nil {
				return false, nil
			}
		}
		switch {
		case marker == 0xDA || marker == 0xD9: // start of scan, end of image
			return false, nil
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			continue
		}

		var l [2]byte
		if _, err := io.ReadFull(br, l[:]); err != nil {
			return false, nil
		}
		n := int(binary.BigEndian.Uint16(l[:])) - 2
		if n < 0 {
			return false, nil
		}
		if marker == 0xE1 && n >= 6 {
			if sig, err := br.Peek(6); err == nil && string(sig) == "Exif\x00\x00" {
				return true, nil
			}
		}
		if _, err := br.Discard(n); err != nil {
			return false, nil
		}
	}
}

// Orientation returns the EXIF orientation, 1 when unknown
func (im *Image) Orientation() int {
	x, _ := im.Exif()
	if x == nil {
		return 1
	}
	if o, ok := intTag(x, exif.Orientation); ok && o >= 1 && o <= 8 {
		return o
	}
	return 1
}

// WithImage opens the picture once and runs every step against it. The
// file is closed on every exit path.
func WithImage(steps ...Step) *pipeline.Scoped[*Image] {
	return &pipeline.Scoped[*Image]{
		Resource: "image",
		Open:     Open,
		Close:    func(im *Image) error { return im.Close() },
		Steps:    steps,
	}
}
