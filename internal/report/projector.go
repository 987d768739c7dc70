// Package report flattens a survey project into one row per measurement and
// writes the result as CSV, XLSX or SQLite.
package report

import (
	"context"
	"strconv"

	"github.com/esxtool/esxtool/internal/channel"
	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/index"
	"github.com/esxtool/esxtool/internal/survey"
)

const component = "report"

// DefaultHiddenLabel replaces an empty SSID.
const DefaultHiddenLabel = "[Hidden]"

// phyColumns lists the PHY flags in column order with their technology names.
var phyColumns = []struct {
	column string
	tech   string
}{
	{"PHY_A", "A"},
	{"PHY_B", "B"},
	{"PHY_G", "G"},
	{"PHY_N", "N"},
	{"PHY_AC", "AC"},
	{"PHY_AX", "AX"},
}

// BaseColumns returns the fixed report columns that precede the tag columns.
func BaseColumns() []string {
	cols := []string{"ap_name", "bssid", "mine", "vendor", "model", "essid", "encryption", "band"}
	for _, phy := range phyColumns {
		cols = append(cols, phy.column)
	}
	cols = append(cols, "chan_width", "pri_channel", "sec_channel")
	for i := 3; i <= channel.MaxSlots; i++ {
		cols = append(cols, "channel_"+strconv.Itoa(i))
	}
	return append(cols, "building", "floor", "x-coord", "y-coord", "color")
}

// Table is a rectangular report. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Options controls how cells are rendered.
type Options struct {
	HiddenLabel string
}

// Project builds one row per measurement, in measurement document order.
// Rows whose access point cannot be resolved are skipped; they and any
// unrecognized channel widths are returned as issues.
func Project(ctx context.Context, p *survey.Project, idx *index.Index, opts Options) (*Table, *errors.Issues, error) {
	if opts.HiddenLabel == "" {
		opts.HiddenLabel = DefaultHiddenLabel
	}

	tagKeys := idx.TagKeys()
	table := &Table{Columns: BaseColumns()}
	for _, k := range tagKeys {
		table.Columns = append(table.Columns, k.Key)
	}

	issues := &errors.Issues{}
	table.Rows = make([][]string, 0, len(p.Measurements))
	for i := range p.Measurements {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, issues, errors.New(err).
					Component(component).
					Category(errors.CategoryCancellation).
					Build()
			}
		}

		m := &p.Measurements[i]
		ap, err := idx.APForMeasurement(m.ID)
		if err != nil {
			issues.Add(err)
			continue
		}

		decoded := channel.Decode(m.Channel)
		if len(m.Channel) > 0 && !decoded.Recognized() {
			issues.Add(channel.UnrecognizedWidthError(m.ID, m.Channel))
		}

		row := make([]string, 0, len(table.Columns))
		row = append(row,
			ap.Name,
			m.MAC,
			boolCell(ap.Mine),
			stringCell(ap.Vendor),
			stringCell(ap.Model),
			essid(m.SSID, opts.HiddenLabel),
			stringCell(m.Security),
			decoded.Band,
		)
		for _, phy := range phyColumns {
			row = append(row, strconv.FormatBool(m.HasTechnology(phy.tech)))
		}
		row = append(row, decoded.WidthString())
		for slot := range channel.MaxSlots {
			row = append(row, decoded.Slot(slot))
		}
		row = append(row, placement(ap, idx)...)
		row = append(row, stringCell(ap.Color))
		for _, k := range tagKeys {
			value, _ := ap.TagValue(k.ID)
			row = append(row, value)
		}

		table.Rows = append(table.Rows, row)
	}

	return table, issues, nil
}

// placement renders building, floor and coordinates.
func placement(ap *survey.AccessPoint, idx *index.Index) []string {
	if ap.Location == nil {
		return []string{"", "", "", ""}
	}
	building, _ := idx.BuildingForFloor(ap.Location.FloorPlanID)
	floor, _ := idx.FloorName(ap.Location.FloorPlanID)
	return []string{
		building,
		floor,
		strconv.FormatFloat(ap.Location.Coord.X, 'f', -1, 64),
		strconv.FormatFloat(ap.Location.Coord.Y, 'f', -1, 64),
	}
}

func essid(ssid *string, hiddenLabel string) string {
	switch {
	case ssid == nil:
		return ""
	case *ssid == "":
		return hiddenLabel
	default:
		return *ssid
	}
}

func stringCell(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func boolCell(b *bool) string {
	if b == nil {
		return ""
	}
	return strconv.FormatBool(*b)
}
