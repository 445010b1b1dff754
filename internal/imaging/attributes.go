package imaging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kilupskalvis/mosgal/internal/models"
)

// Attribute names set by this package
const (
	AttrFileSize        = "file_size"
	AttrModified        = "modified"
	AttrParentDirectory = "parent_directory"
	AttrWidth           = "width"
	AttrHeight          = "height"
	AttrMonthYear       = "month_year"
	AttrFocalClass      = "focal_class"
)

// MonthYearLayout formats the month_year attribute
const MonthYearLayout = "January 2006"

// Stat sets file_size and modified from the file system
type Stat struct{}

func (Stat) Transform(f *models.FileRecord) error {
	info, err := os.Stat(f.Path)
	if err != nil {
		return err
	}
	f.Attributes.Set(AttrFileSize, models.Int(info.Size()))
	f.Attributes.Set(AttrModified, models.Time(info.ModTime().UTC()))
	return nil
}

func (Stat) Name() string { return "stat" }

// ParentDirectory sets parent_directory to the name of the directory
// holding the file
type ParentDirectory struct{}

func (ParentDirectory) Transform(f *models.FileRecord) error {
	dir := filepath.Base(filepath.Dir(f.Path))
	if dir == "." || dir == string(filepath.Separator) {
		return fmt.Errorf("%s has no parent directory", f.Path)
	}
	f.Attributes.Set(AttrParentDirectory, models.String(dir))
	return nil
}

func (ParentDirectory) Name() string { return "parent directory" }

// MonthYear derives month_year ("July 2021") from date_taken. Files
// without a date are left alone.
type MonthYear struct{}

func (MonthYear) Transform(f *models.FileRecord) error {
	v, ok := f.Attr(AttrDateTaken)
	if !ok {
		return nil
	}
	t, ok := v.TimeValue()
	if !ok {
		return fmt.Errorf("%s is %s, not a time", AttrDateTaken, v.Kind())
	}
	f.Attributes.Set(AttrMonthYear, models.String(t.Format(MonthYearLayout)))
	return nil
}

func (MonthYear) Name() string { return "month year" }

// FocalClass casts the 35mm equivalent focal length into "large" (below
// 40mm), "normal" (below 100mm) or "zoom".
type FocalClass struct{}

func (FocalClass) Transform(f *models.FileRecord) error {
	v, ok := f.Attr(AttrFocalLength35mm)
	if !ok {
		return nil
	}
	focal, ok := v.Num()
	if !ok {
		return fmt.Errorf("%s is %s, not a number", AttrFocalLength35mm, v.Kind())
	}
	f.Attributes.Set(AttrFocalClass, models.String(focalClass(focal)))
	return nil
}

func (FocalClass) Name() string { return "focal class" }

func focalClass(mm float64) string {
	switch {
	case mm < 40:
		return "large"
	case mm < 100:
		return "normal"
	}
	return "zoom"
}

// Dimensions sets width and height as displayed, swapping them for
// pictures whose EXIF orientation turns them sideways
type Dimensions struct{}

func (Dimensions) TransformWith(f *models.FileRecord, im *Image) error {
	cfg, err := im.Config()
	if err != nil {
		return err
	}
	w, h := cfg.Width, cfg.Height
	if swapsAxes(im.Orientation()) {
		w, h = h, w
	}
	f.Attributes.Set(AttrWidth, models.Int(int64(w)))
	f.Attributes.Set(AttrHeight, models.Int(int64(h)))
	return nil
}

func (Dimensions) Name() string { return "dimensions" }

func swapsAxes(orientation int) bool {
	return orientation >= 5 && orientation <= 8
}
