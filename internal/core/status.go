package core

import (
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kilupskalvis/mosgal/internal/catalog"
	"github.com/kilupskalvis/mosgal/internal/config"
	"github.com/kilupskalvis/mosgal/internal/imaging"
)

// StatusReport summarizes the catalog of a gallery.
type StatusReport struct {
	Root      string
	Backend   string
	Pictures  int
	Bytes     int64
	Albums    []AlbumCount
	LastRunID string
	LastRunAt time.Time // zero before the first run
}

// AlbumCount is the number of catalogued pictures in one directory.
type AlbumCount struct {
	Name  string
	Count int
}

// Size returns the catalogued bytes in human form ("12 MB").
func (s *StatusReport) Size() string {
	return humanize.Bytes(uint64(s.Bytes))
}

// LastRun returns the age of the last run ("3 hours ago"), or "never".
func (s *StatusReport) LastRun() string {
	if s.LastRunAt.IsZero() {
		return "never"
	}
	return humanize.Time(s.LastRunAt)
}

// Status reads the catalog without crawling.
func Status(cfg *config.Config) (*StatusReport, error) {
	g, err := Open(cfg, nil)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	report := &StatusReport{
		Root:      cfg.Root(),
		Backend:   g.Backend.Describe(),
		LastRunID: g.Catalog.Meta(catalog.MetaLastRunID),
	}
	if at := g.Catalog.Meta(catalog.MetaLastRunAt); at != "" {
		if t, err := time.Parse(time.RFC3339, at); err == nil {
			report.LastRunAt = t
		}
	}

	albums := make(map[string]int)
	for _, f := range g.Catalog.Records() {
		report.Pictures++
		if v, ok := f.Attr(imaging.AttrFileSize); ok {
			if n, ok := v.Num(); ok {
				report.Bytes += int64(n)
			}
		}
		if dir := f.StringAttr(imaging.AttrParentDirectory); dir != "" {
			albums[dir]++
		}
	}

	for name, count := range albums {
		report.Albums = append(report.Albums, AlbumCount{Name: name, Count: count})
	}
	sort.Slice(report.Albums, func(i, j int) bool { return report.Albums[i].Name < report.Albums[j].Name })

	return report, nil
}
