package imaging

import (
	"image/color"

	"github.com/cenkalti/dominantcolor"
	"github.com/kilupskalvis/mosgal/internal/models"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
)

// Attribute names set by DominantColors
const (
	AttrDominantColors     = "dominant_colors"
	AttrDominantColorNames = "dominant_color_names"
)

// NamedColor is one entry of a naming palette
type NamedColor struct {
	Name  string
	Color color.RGBA
}

func rgb(name string, r, g, b uint8) NamedColor {
	return NamedColor{Name: name, Color: color.RGBA{R: r, G: g, B: b, A: 0xff}}
}

// DefaultPalette names the colours used for the colour collection
var DefaultPalette = []NamedColor{
	rgb("red", 255, 0, 0),
	rgb("green", 0, 255, 0),
	rgb("blue", 0, 0, 255),
	rgb("black", 0, 0, 0),
	rgb("yellow", 255, 255, 0),
	rgb("cyan", 0, 255, 255),
	rgb("pink", 255, 0, 255),
	rgb("white", 255, 255, 255),
	rgb("maroon", 128, 0, 0),
	rgb("darkgreen", 0, 128, 0),
	rgb("navy", 0, 0, 128),
	rgb("teal", 0, 128, 128),
	rgb("olive", 128, 128, 0),
	rgb("purple", 128, 0, 128),
	rgb("gray", 128, 128, 128),
	rgb("darkgray", 75, 75, 75),
	rgb("lightgray", 192, 192, 192),
	rgb("orange", 255, 128, 0),
	rgb("deeppink", 255, 0, 128),
	rgb("springgreen", 0, 255, 128),
	rgb("turquoise", 64, 224, 208),
	rgb("indigo", 75, 0, 130),
	rgb("brown", 210, 105, 30),
	rgb("deepblue", 70, 100, 180),
}

// ClosestColor returns the palette name nearest to c in CIE Lab space
func ClosestColor(c color.Color, palette []NamedColor) string {
	target, _ := colorful.MakeColor(c)

	best, bestDist := "", -1.0
	for _, p := range palette {
		candidate, _ := colorful.MakeColor(p.Color)
		if d := target.DistanceLab(candidate); bestDist < 0 || d < bestDist {
			best, bestDist = p.Name, d
		}
	}
	return best
}

// DominantColors finds the dominant colours of a reduced copy of the
// picture and names each one after the closest palette entry.
type DominantColors struct {
	Count   int          // default 5
	Size    uint         // longest side of the reduced copy, default 150
	Palette []NamedColor // default DefaultPalette
}

func (d *DominantColors) TransformWith(f *models.FileRecord, im *Image) error {
	img, err := im.Decode()
	if err != nil {
		return err
	}

	count, size, palette := d.Count, d.Size, d.Palette
	if count <= 0 {
		count = 5
	}
	if size == 0 {
		size = 150
	}
	if len(palette) == 0 {
		palette = DefaultPalette
	}

	small := resize.Thumbnail(size, size, img, resize.Bilinear)
	colors := dominantcolor.FindN(small, count)

	hexes := make([]string, 0, len(colors))
	var names []string
	seen := make(map[string]bool)
	for _, c := range colors {
		hexes = append(hexes, dominantcolor.Hex(c))
		name := ClosestColor(c, palette)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	f.Attributes.Set(AttrDominantColors, models.Strings(hexes...))
	f.Attributes.Set(AttrDominantColorNames, models.Strings(names...))
	return nil
}

func (d *DominantColors) Name() string { return "dominant colors" }
