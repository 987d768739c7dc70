// Package deploy flattens planned (simulated) access points into a
// deployment table: one row per access point with up to three Wi-Fi radios
// and one Bluetooth radio side by side.
package deploy

import (
	"context"
	"strconv"
	"strings"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/index"
	"github.com/esxtool/esxtool/internal/logger"
	"github.com/esxtool/esxtool/internal/report"
	"github.com/esxtool/esxtool/internal/survey"
)

const component = "deploy"

// WiFiSlots is the number of Wi-Fi radio column groups.
const WiFiSlots = 3

// Tags copied into the ap_serial and ap_hwmac columns when defined.
const (
	SerialTag   = "AP Serial"
	WiredMACTag = "Wired MAC"
)

var baseColumns = []string{
	"ap_id", "ap_serial", "ap_hwmac", "ap_name", "vendor", "model",
	"coord.x", "coord.y", "mine", "hidden", "userDefinedPosition", "color",
}

var radioColumns = []string{
	"band", "phy", "chanwidth", "channels", "antenna", "enabled", "gain", "tx_mw",
	"ant-type", "mounting", "azimuth", "tilt", "height", "ss", "sgi", "greenfield",
}

var bleColumns = []string{
	"antenna", "enabled", "gain", "tx_mw", "ant-type", "mounting", "azimuth", "tilt", "height",
}

// TagColumn returns the column name used for a tag key.
func TagColumn(key string) string {
	return "tag_" + strings.ReplaceAll(key, " ", "_")
}

// Columns returns the table header for the given tag keys.
func Columns(tagKeys []*survey.TagKey) []string {
	cols := append([]string(nil), baseColumns...)
	for _, k := range tagKeys {
		cols = append(cols, TagColumn(k.Key))
	}
	for r := range WiFiSlots {
		prefix := "r" + strconv.Itoa(r) + "-"
		for _, c := range radioColumns {
			cols = append(cols, prefix+c)
		}
	}
	for _, c := range bleColumns {
		cols = append(cols, "ble-"+c)
	}
	return cols
}

// Project builds the deployment table. Access points without simulated
// radios are left out. Wi-Fi radios fill the r0..r2 groups by
// accessPointIndex order; extra Wi-Fi radios and extra Bluetooth radios
// are reported as issues and dropped.
func Project(ctx context.Context, p *survey.Project, idx *index.Index) (*report.Table, *errors.Issues, error) {
	if !p.Features.SimulatedRadios {
		return nil, nil, errors.Newf("bundle has no %s", survey.DocSimulatedRadios).
			Component(component).
			Category(errors.CategoryMissingDocument).
			Priority(errors.PriorityHigh).
			Build()
	}

	tagKeys := idx.TagKeys()
	table := &report.Table{Columns: Columns(tagKeys)}
	issues := &errors.Issues{}

	serialKey, _ := idx.TagKeyByName(SerialTag)
	wiredKey, _ := idx.TagKeyByName(WiredMACTag)

	for i := range p.AccessPoints {
		if err := ctx.Err(); err != nil {
			return nil, issues, errors.New(err).
				Component(component).
				Category(errors.CategoryCancellation).
				Build()
		}

		ap := &p.AccessPoints[i]
		radios := idx.SimulatedRadios(ap.ID)
		if len(radios) == 0 {
			continue
		}

		row := make([]string, 0, len(table.Columns))
		row = append(row,
			ap.ID,
			tagCell(ap, serialKey),
			tagCell(ap, wiredKey),
			ap.Name,
			stringCell(ap.Vendor),
			stringCell(ap.Model),
		)
		if ap.Location != nil {
			row = append(row, floatCell(&ap.Location.Coord.X), floatCell(&ap.Location.Coord.Y))
		} else {
			row = append(row, "", "")
		}
		row = append(row,
			boolCell(ap.Mine),
			boolCell(ap.Hidden),
			boolCell(ap.UserDefinedPosition),
			stringCell(ap.Color),
		)
		for _, k := range tagKeys {
			value, _ := ap.TagValue(k.ID)
			row = append(row, value)
		}

		var wifi []*survey.SimulatedRadio
		var ble *survey.SimulatedRadio
		for _, r := range radios {
			switch {
			case r.IsWiFi():
				if len(wifi) == WiFiSlots {
					issues.Add(extraRadio(ap, r, "Wi-Fi"))
					continue
				}
				wifi = append(wifi, r)
			case r.IsBluetooth():
				if ble != nil {
					issues.Add(extraRadio(ap, r, "Bluetooth"))
					continue
				}
				ble = r
			}
		}

		for slot := range WiFiSlots {
			if slot < len(wifi) {
				row = append(row, wifiCells(wifi[slot], idx)...)
			} else {
				row = append(row, make([]string, len(radioColumns))...)
			}
		}
		if ble != nil {
			row = append(row, bleCells(ble, idx)...)
		} else {
			row = append(row, make([]string, len(bleColumns))...)
		}

		table.Rows = append(table.Rows, row)
	}

	logger.Global().Module(component).Debug("deployment table built",
		logger.Int("rows", len(table.Rows)),
		logger.Int("issues", issues.Len()))
	return table, issues, nil
}

func extraRadio(ap *survey.AccessPoint, r *survey.SimulatedRadio, kind string) error {
	return errors.Newf("access point %s has more %s radios than the table holds, radio %s dropped", ap.ID, kind, r.ID).
		Component(component).
		Category(errors.CategoryValidation).
		Priority(errors.PriorityLow).
		RecordContext(survey.DocSimulatedRadios, r.ID).
		Build()
}

func wifiCells(r *survey.SimulatedRadio, idx *index.Index) []string {
	antenna, gain, coupling, band := antennaCells(r, idx)

	width, channels := "", ""
	if len(r.Channels) > 0 {
		width = strconv.Itoa(20 * len(r.Channels))
		parts := make([]string, len(r.Channels))
		for i, ch := range r.Channels {
			parts[i] = strconv.Itoa(ch)
		}
		channels = strings.Join(parts, ",")
	}

	return []string{
		band,
		stringCell(r.Technology),
		width,
		channels,
		antenna,
		boolCell(r.Enabled),
		gain,
		floatCell(r.TransmitPower),
		coupling,
		stringCell(r.AntennaMounting),
		floatCell(r.AntennaDirection),
		floatCell(r.AntennaTilt),
		floatCell(r.AntennaHeight),
		intCell(r.SpatialStreamCount),
		boolCell(r.ShortGuardInterval),
		boolCell(r.Greenfield),
	}
}

func bleCells(r *survey.SimulatedRadio, idx *index.Index) []string {
	antenna, gain, coupling, _ := antennaCells(r, idx)
	return []string{
		antenna,
		boolCell(r.Enabled),
		gain,
		floatCell(r.TransmitPower),
		coupling,
		stringCell(r.AntennaMounting),
		floatCell(r.AntennaDirection),
		floatCell(r.AntennaTilt),
		floatCell(r.AntennaHeight),
	}
}

// antennaCells returns name, max gain, coupling and band of the radio's
// antenna type, all empty when it is not defined.
func antennaCells(r *survey.SimulatedRadio, idx *index.Index) (string, string, string, string) {
	if r.AntennaTypeID == nil {
		return "", "", "", ""
	}
	a, ok := idx.AntennaType(*r.AntennaTypeID)
	if !ok {
		return "", "", "", ""
	}
	return a.Name, floatCell(a.MaxGain), stringCell(a.APCoupling), stringCell(a.FrequencyBand)
}

func tagCell(ap *survey.AccessPoint, key *survey.TagKey) string {
	if key == nil {
		return ""
	}
	value, _ := ap.TagValue(key.ID)
	return value
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

func intCell(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func floatCell(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
