package imaging

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/rwcarlsen/goexif/exif"
)

// Attribute names set by Exif
const (
	AttrMake            = "make"
	AttrModel           = "model"
	AttrExposureTime    = "exposure_time"
	AttrFNumber         = "f_number"
	AttrISO             = "iso"
	AttrFocalLength     = "focal_length"
	AttrFocalLength35mm = "focal_length_35mm"
	AttrDateTaken       = "date_taken"
	AttrOrientation     = "orientation"
	AttrCharacteristics = "characteristics"
)

// Exif copies camera settings from the EXIF block. Files without EXIF data
// get no attributes and missing tags are skipped. An unreadable block or a
// malformed date is returned as an error.
type Exif struct {
	Logger *slog.Logger
}

func (e *Exif) TransformWith(f *models.FileRecord, im *Image) error {
	x, err := im.Exif()
	switch {
	case errors.Is(err, ErrNoExif):
		e.logger().Debug("no exif data", "source", f.Source)
		return nil
	case err != nil && x == nil:
		return err
	case err != nil:
		e.logger().Warn("partial exif data", "source", f.Source, "error", err)
	}

	set := func(name string, v models.Value, ok bool) {
		if ok {
			f.Attributes.Set(name, v)
		}
	}

	mk, okMake := stringTag(x, exif.Make)
	set(AttrMake, models.String(mk), okMake)
	model, okModel := stringTag(x, exif.Model)
	set(AttrModel, models.String(model), okModel)

	exposure, okExposure := ratTag(x, exif.ExposureTime)
	set(AttrExposureTime, models.Number(exposure), okExposure)
	fnum, okF := ratTag(x, exif.FNumber)
	set(AttrFNumber, models.Number(fnum), okF)
	iso, okISO := intTag(x, exif.ISOSpeedRatings)
	set(AttrISO, models.Int(int64(iso)), okISO)
	focal, okFocal := ratTag(x, exif.FocalLength)
	set(AttrFocalLength, models.Number(focal), okFocal)
	focal35, ok35 := intTag(x, exif.FocalLengthIn35mmFilm)
	set(AttrFocalLength35mm, models.Int(int64(focal35)), ok35 && focal35 > 0)
	orientation, okOrient := intTag(x, exif.Orientation)
	set(AttrOrientation, models.Int(int64(orientation)), okOrient)

	taken, ok, err := dateTaken(x)
	if err != nil {
		return err
	}
	if ok {
		f.Attributes.Set(AttrDateTaken, models.Time(taken))
	}

	var parts []string
	if okModel {
		parts = append(parts, model)
	}
	if okFocal {
		parts = append(parts, fmt.Sprintf("@ %gmm", focal))
	}
	head := strings.Join(parts, " ")

	var settings []string
	if okISO {
		settings = append(settings, fmt.Sprintf("ISO %d", iso))
	}
	if okExposure {
		settings = append(settings, FormatExposure(exposure))
	}
	if okF {
		settings = append(settings, fmt.Sprintf("f/%g", fnum))
	}
	summary := strings.Join(append([]string{head}, settings...), ", ")
	if head == "" {
		summary = strings.Join(settings, ", ")
	}
	if summary != "" {
		f.Attributes.Set(AttrCharacteristics, models.String(summary))
	}
	return nil
}

func (e *Exif) Name() string { return "exif" }

func (e *Exif) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// FormatExposure renders an exposure time the way cameras display it:
// "2s" for long exposures, "1/250s" for short ones
func FormatExposure(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	if seconds >= 1 {
		return fmt.Sprintf("%gs", seconds)
	}
	return fmt.Sprintf("1/%gs", math.Round(1/seconds))
}

// dateTaken reads DateTimeOriginal, falling back to DateTime. Absent and
// blank ("0000:00:00 00:00:00") dates are not errors.
func dateTaken(x *exif.Exif) (time.Time, bool, error) {
	raw, ok := stringTag(x, exif.DateTimeOriginal)
	if !ok {
		raw, ok = stringTag(x, exif.DateTime)
	}
	if !ok || strings.Trim(raw, "0: ") == "" {
		return time.Time{}, false, nil
	}
	taken, err := x.DateTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("date taken %q: %w", raw, err)
	}
	return taken, true, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	s, err := tag.StringVal()
	if err != nil {
		return "", false
	}
	s = strings.TrimSpace(strings.TrimRight(s, "\x00"))
	return s, s != ""
}

func ratTag(x *exif.Exif, name exif.FieldName) (float64, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, false
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}

func intTag(x *exif.Exif, name exif.FieldName) (int, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return 0, false
	}
	v, err := tag.Int(0)
	if err != nil {
		return 0, false
	}
	return v, true
}
