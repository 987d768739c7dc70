package deploy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/index"
	"github.com/esxtool/esxtool/internal/report"
	"github.com/esxtool/esxtool/internal/survey"
	"github.com/esxtool/esxtool/internal/survey/surveytest"
)

func project(t *testing.T, b surveytest.Bundle) (*report.Table, *errors.Issues) {
	t.Helper()
	p, err := survey.Load(b)
	require.NoError(t, err)
	table, issues, err := Project(context.Background(), p, index.Build(p))
	require.NoError(t, err)
	return table, issues
}

func rowMap(t *testing.T, table *report.Table, i int) map[string]string {
	t.Helper()
	require.Greater(t, len(table.Rows), i)
	row := table.Rows[i]
	require.Len(t, row, len(table.Columns))
	out := make(map[string]string, len(row))
	for c, name := range table.Columns {
		out[name] = row[c]
	}
	return out
}

func TestColumns(t *testing.T) {
	t.Parallel()

	cols := Columns([]*survey.TagKey{{Key: "AP Group"}})
	assert.Len(t, cols, len(baseColumns)+1+WiFiSlots*len(radioColumns)+len(bleColumns))
	assert.Equal(t, "ap_id", cols[0])
	assert.Equal(t, "color", cols[11])
	assert.Equal(t, "tag_AP_Group", cols[12])
	assert.Equal(t, "r0-band", cols[13])
	assert.Equal(t, "r2-greenfield", cols[12+WiFiSlots*len(radioColumns)])
	assert.Equal(t, "ble-height", cols[len(cols)-1])
}

func TestProject(t *testing.T) {
	t.Parallel()

	table, issues := project(t, surveytest.Default())
	assert.Zero(t, issues.Len())
	require.Len(t, table.Rows, 1, "only ap1 has simulated radios")

	row := rowMap(t, table, 0)
	assert.Equal(t, map[string]string{
		"ap_id": "ap1", "ap_serial": "CNABCD1234", "ap_hwmac": "aa:bb:cc:00:11:22",
		"ap_name": "AP-01", "vendor": "Cisco", "model": "C9120",
		"coord.x": "10.5", "coord.y": "20", "mine": "true", "hidden": "false",
		"userDefinedPosition": "true", "color": "#FFE600",
	}, pick(row, baseColumns...))

	assert.Equal(t, "Floor3-East", row["tag_AP_Group"])
	assert.Equal(t, "CNABCD1234", row["tag_AP_Serial"])
	assert.Equal(t, "aa:bb:cc:00:11:22", row["tag_Wired_MAC"])

	assert.Equal(t, map[string]string{
		"r0-band": "FIVE", "r0-phy": "AC", "r0-chanwidth": "40", "r0-channels": "36,40",
		"r0-antenna": "Internal Omni", "r0-enabled": "true", "r0-gain": "4.5", "r0-tx_mw": "25.1",
		"r0-ant-type": "INTERNAL_ANTENNA", "r0-mounting": "CEILING", "r0-azimuth": "90",
		"r0-tilt": "0", "r0-height": "2.4", "r0-ss": "2", "r0-sgi": "true", "r0-greenfield": "false",
	}, pick(row, prefixed("r0-", radioColumns)...))

	assert.Equal(t, "TWO", row["r1-band"])
	assert.Equal(t, "20", row["r1-chanwidth"])
	assert.Equal(t, "6", row["r1-channels"])
	assert.Equal(t, "10", row["r1-tx_mw"])
	assert.Empty(t, row["r1-mounting"])

	for _, c := range prefixed("r2-", radioColumns) {
		assert.Empty(t, row[c], c)
	}

	assert.Equal(t, map[string]string{
		"ble-antenna": "Internal Omni", "ble-enabled": "false", "ble-gain": "4.5", "ble-tx_mw": "1",
		"ble-ant-type": "INTERNAL_ANTENNA", "ble-mounting": "", "ble-azimuth": "", "ble-tilt": "", "ble-height": "",
	}, pick(row, prefixed("ble-", bleColumns)...))
}

func TestProjectWithoutAntennas(t *testing.T) {
	t.Parallel()

	table, _ := project(t, surveytest.Default().Without(survey.DocAntennaTypes, survey.DocTagKeys))
	row := rowMap(t, table, 0)
	assert.Empty(t, row["r0-antenna"])
	assert.Empty(t, row["r0-band"])
	assert.Empty(t, row["ap_serial"])
	assert.Equal(t, "AC", row["r0-phy"])
	assert.NotContains(t, table.Columns, "tag_AP_Group")
}

func TestProjectExtraRadios(t *testing.T) {
	t.Parallel()

	b := surveytest.Default().With(survey.DocSimulatedRadios, `{"simulatedRadios":[
		{"id":"s1","accessPointId":"ap2","accessPointIndex":3,"radioTechnology":"IEEE802_11"},
		{"id":"s2","accessPointId":"ap2","accessPointIndex":0,"radioTechnology":"IEEE802_11","technology":"AX"},
		{"id":"s3","accessPointId":"ap2","accessPointIndex":1,"radioTechnology":"IEEE802_11"},
		{"id":"s4","accessPointId":"ap2","accessPointIndex":2,"radioTechnology":"IEEE802_11"},
		{"id":"s5","accessPointId":"ap2","radioTechnology":"BLUETOOTH","enabled":true},
		{"id":"s6","accessPointId":"ap2","accessPointIndex":5,"radioTechnology":"BLUETOOTH"}]}`)

	table, issues := project(t, b)
	require.Len(t, table.Rows, 1)
	row := rowMap(t, table, 0)
	assert.Equal(t, "ap2", row["ap_id"])
	assert.Equal(t, "AX", row["r0-phy"], "radios fill slots by accessPointIndex")
	assert.Equal(t, "true", row["ble-enabled"])
	assert.Empty(t, row["color"])
	assert.Equal(t, 2, issues.Len())
}

func TestProjectRequiresSimulatedRadios(t *testing.T) {
	t.Parallel()

	p, err := survey.Load(surveytest.Default().Without(survey.DocSimulatedRadios))
	require.NoError(t, err)
	_, _, err = Project(context.Background(), p, index.Build(p))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMissingDocument))
}

func TestProjectCancelled(t *testing.T) {
	t.Parallel()

	p, err := survey.Load(surveytest.Default())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Project(ctx, p, index.Build(p))
	assert.ErrorIs(t, err, context.Canceled)
}

func pick(row map[string]string, cols ...string) map[string]string {
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		out[c] = row[c]
	}
	return out
}

func prefixed(prefix string, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return out
}
