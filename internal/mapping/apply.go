package mapping

import (
	"context"
	"fmt"
	"slices"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/index"
	"github.com/esxtool/esxtool/internal/logger"
	"github.com/esxtool/esxtool/internal/palette"
	"github.com/esxtool/esxtool/internal/survey"
)

// TagColumn refreshes the tag named Tag from the mapping column Column.
type TagColumn struct {
	Tag    string
	Column string
}

// DefaultTagColumns are used when no tag columns are configured.
var DefaultTagColumns = []TagColumn{
	{Tag: "AP Group", Column: ColumnGroup},
	{Tag: "AP Serial", Column: ColumnSerial},
	{Tag: "Wired MAC", Column: ColumnWiredMAC},
}

// Result summarizes an Apply run.
type Result struct {
	Matched             int // access points with at least one mapped BSSID
	Unmatched           int // access points with measurements but no mapped BSSID
	MeasurementsUpdated int
	Issues              *errors.Issues
}

type boundTag struct {
	keyID  string
	column string
}

// Apply updates every access point whose measured BSSIDs appear in m.
// A matched access point becomes mine and takes name, model, color and
// tags from the row of its last matched BSSID; each matched measurement
// takes the row's SSID. Access points with measurements but no match are
// marked as not mine. Tags whose key is not defined in the project are
// skipped and reported once.
func Apply(ctx context.Context, p *survey.Project, idx *index.Index, m *Mapping, pal *palette.Palette, tagColumns []TagColumn) (*Result, error) {
	log := logger.Global().Module(component)
	res := &Result{Issues: &errors.Issues{}}
	if pal == nil {
		pal = palette.Default()
	}

	var tags []boundTag
	for _, tc := range tagColumns {
		key, ok := idx.TagKeyByName(tc.Tag)
		if !ok {
			res.Issues.Add(errors.Newf("tag %q is not defined in the project, column %s ignored", tc.Tag, tc.Column).
				Component(component).
				Category(errors.CategoryReferentialIntegrity).
				Priority(errors.PriorityLow).
				Context("tag", tc.Tag).
				Build())
			continue
		}
		tags = append(tags, boundTag{keyID: key.ID, column: tc.Column})
	}

	for i := range p.AccessPoints {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return res, errors.New(err).
					Component(component).
					Category(errors.CategoryCancellation).
					Build()
			}
		}

		ap := &p.AccessPoints[i]
		measurements := idx.MeasurementsForAP(ap.ID)
		if len(measurements) == 0 {
			continue
		}

		matched := false
		for _, meas := range measurements {
			row, ok := m.Lookup(meas.MAC)
			if !ok {
				continue
			}
			matched = true
			ssid := row.Get(ColumnESS)
			meas.SSID = &ssid
			res.MeasurementsUpdated++
			applyRow(ap, row, pal, tags, res.Issues)
		}

		ap.SetMine(matched)
		if matched {
			res.Matched++
			log.Debug("access point mapped",
				logger.String("id", ap.ID),
				logger.String("name", ap.Name))
		} else {
			res.Unmatched++
		}
	}

	if res.Matched+res.Unmatched > 0 {
		p.MarkModified(survey.DocAccessPoints)
	}
	if res.MeasurementsUpdated > 0 {
		p.MarkModified(survey.DocMeasurements)
	}

	log.Info("mapping applied",
		logger.Int("rows", m.Len()),
		logger.Int("matched", res.Matched),
		logger.Int("unmatched", res.Unmatched),
		logger.Int("measurements", res.MeasurementsUpdated),
		logger.Int("issues", res.Issues.Len()))
	return res, nil
}

func applyRow(ap *survey.AccessPoint, row Row, pal *palette.Palette, tags []boundTag, issues *errors.Issues) {
	ap.Name = row.Get(ColumnAPName)
	model := row.Get(ColumnModel)
	ap.Model = &model

	ref := row.Get(ColumnColor)
	switch hex, outcome := pal.Resolve(ref); outcome {
	case palette.Set:
		ap.SetColor(hex)
	case palette.Remove:
		ap.SetColor("")
		issues.Add(errors.New(fmt.Errorf("line %d: unknown color scheme in %q, color removed", row.Line, ref)).
			Component(component).
			Category(errors.CategoryPalette).
			Priority(errors.PriorityLow).
			RecordContext(survey.DocAccessPoints, ap.ID).
			Build())
	case palette.Keep:
	}

	refreshed := make([]survey.Tag, 0, len(tags))
	for _, t := range tags {
		refreshed = append(refreshed, survey.Tag{TagKeyID: t.keyID, Value: row.Get(t.column)})
	}
	ap.Tags = refreshed
}

// Columns returns the mapping columns referenced by tagColumns that are
// not part of RequiredColumns.
func Columns(tagColumns []TagColumn) []string {
	var extra []string
	for _, tc := range tagColumns {
		if !slices.Contains(RequiredColumns, tc.Column) && !slices.Contains(extra, tc.Column) {
			extra = append(extra, tc.Column)
		}
	}
	return extra
}
