package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/index"
	"github.com/esxtool/esxtool/internal/survey"
	"github.com/esxtool/esxtool/internal/survey/surveytest"
)

func project(t *testing.T, bundle surveytest.Bundle, opts Options) (*Table, *errors.Issues) {
	t.Helper()
	p, err := survey.Load(bundle)
	require.NoError(t, err)
	table, issues, err := Project(context.Background(), p, index.Build(p), opts)
	require.NoError(t, err)
	return table, issues
}

// cells maps column name to value for one row.
func cells(t *testing.T, table *Table, row int) map[string]string {
	t.Helper()
	require.Less(t, row, len(table.Rows))
	require.Len(t, table.Rows[row], len(table.Columns))
	out := make(map[string]string, len(table.Columns))
	for i, col := range table.Columns {
		out[col] = table.Rows[row][i]
	}
	return out
}

func TestColumns(t *testing.T) {
	t.Parallel()

	table, _ := project(t, surveytest.Default(), Options{})
	assert.Equal(t, []string{
		"ap_name", "bssid", "mine", "vendor", "model", "essid", "encryption", "band",
		"PHY_A", "PHY_B", "PHY_G", "PHY_N", "PHY_AC", "PHY_AX",
		"chan_width", "pri_channel", "sec_channel",
		"channel_3", "channel_4", "channel_5", "channel_6", "channel_7", "channel_8",
		"building", "floor", "x-coord", "y-coord", "color",
		"AP Group", "AP Serial", "Wired MAC",
	}, table.Columns)
}

func TestProjectRows(t *testing.T) {
	t.Parallel()

	table, issues := project(t, surveytest.Default(), Options{})
	require.Len(t, table.Rows, 4)

	assert.Equal(t, map[string]string{
		"ap_name": "AP-01", "bssid": "AA:BB:CC:DD:EE:01", "mine": "true",
		"vendor": "Cisco", "model": "C9120", "essid": "Corp", "encryption": "WPA2", "band": "5",
		"PHY_A": "true", "PHY_B": "false", "PHY_G": "false", "PHY_N": "true", "PHY_AC": "true", "PHY_AX": "false",
		"chan_width": "80", "pri_channel": "36", "sec_channel": "40",
		"channel_3": "44", "channel_4": "48", "channel_5": "", "channel_6": "", "channel_7": "", "channel_8": "",
		"building": "HQ", "floor": "Level 1", "x-coord": "10.5", "y-coord": "20", "color": "#FFE600",
		"AP Group": "Floor3-East", "AP Serial": "CNABCD1234", "Wired MAC": "aa:bb:cc:00:11:22",
	}, cells(t, table, 0))

	hidden := cells(t, table, 1)
	assert.Equal(t, "[Hidden]", hidden["essid"])
	assert.Equal(t, "2.4", hidden["band"])
	assert.Equal(t, "20", hidden["chan_width"])
	assert.Equal(t, "1", hidden["pri_channel"])
	assert.Empty(t, hidden["sec_channel"])
	assert.Equal(t, "true", hidden["PHY_G"])

	noBuilding := cells(t, table, 2)
	assert.Equal(t, "AP-02", noBuilding["ap_name"])
	assert.Equal(t, "false", noBuilding["mine"])
	assert.Empty(t, noBuilding["model"])
	assert.Empty(t, noBuilding["building"])
	assert.Equal(t, "Level 2", noBuilding["floor"])
	assert.Equal(t, "40", noBuilding["chan_width"])
	assert.Empty(t, noBuilding["AP Group"])

	odd := cells(t, table, 3)
	assert.Equal(t, "Neighbor", odd["ap_name"])
	assert.Empty(t, odd["essid"])
	assert.Equal(t, "5", odd["band"])
	assert.Empty(t, odd["chan_width"])
	assert.Empty(t, odd["pri_channel"])
	assert.Empty(t, odd["channel_3"])
	assert.Empty(t, odd["floor"])
	assert.Empty(t, odd["x-coord"])

	require.Equal(t, 1, issues.Len())
	assert.ErrorIs(t, issues.All()[0], errors.ErrUnrecognizedChannelWidth)
	assert.Equal(t, "m4", issues.All()[0].ContextString("record_id"))
}

func TestProjectHiddenLabel(t *testing.T) {
	t.Parallel()

	table, _ := project(t, surveytest.Default(), Options{HiddenLabel: "<none>"})
	assert.Equal(t, "<none>", cells(t, table, 1)["essid"])
}

func TestProjectSkipsUnresolvedRows(t *testing.T) {
	t.Parallel()

	bundle := surveytest.Default().With(survey.DocMeasuredRadios, `{"measuredRadios":[
		{"id":"r1","accessPointId":"ap1","accessPointMeasurementIds":["m1","m2"]},
		{"id":"r2","accessPointId":"ap2","accessPointMeasurementIds":["m3"]}]}`)
	table, issues := project(t, bundle, Options{})

	require.Len(t, table.Rows, 3)
	assert.Equal(t, 1, issues.Count(errors.CategoryReferentialIntegrity))
	for _, issue := range issues.All() {
		if issue.Category == errors.CategoryReferentialIntegrity {
			assert.Contains(t, issue.Error(), "m4")
		}
	}
}

func TestProjectWithoutOptionalDocuments(t *testing.T) {
	t.Parallel()

	table, _ := project(t, surveytest.Default().Without(survey.OptionalDocuments...), Options{})
	assert.Equal(t, BaseColumns(), table.Columns)
	require.Len(t, table.Rows, 4)

	row := cells(t, table, 0)
	assert.Empty(t, row["building"])
	assert.Empty(t, row["floor"])
	assert.Equal(t, "10.5", row["x-coord"])
}

func TestProjectCancelled(t *testing.T) {
	t.Parallel()

	p, err := survey.Load(surveytest.Default())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Project(ctx, p, index.Build(p), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func sampleTable() *Table {
	return &Table{
		Columns: []string{"ap_name", "essid", "x-coord", "AP Group", "ap group"},
		Rows: [][]string{
			{"AP-01", "Corp, \"main\"", "10.5", "east", "dup"},
			{"AP-02", "", "", "", ""},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, sampleTable().Columns, records[0])
	assert.Equal(t, "Corp, \"main\"", records[1][1])
}

func TestCSVSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "report.csv")
	sink, err := NewSink("CSV", path, SinkOptions{})
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), sampleTable()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("ap_name,essid,x-coord,AP Group,ap group\n")))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestXLSXSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.xlsx")
	sink, err := NewSink(FormatXLSX, path, SinkOptions{SheetName: "Survey"})
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), sampleTable()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{"Survey"}, f.GetSheetList())
	rows, err := f.GetRows("Survey")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, sampleTable().Columns, rows[0])
	assert.Equal(t, "AP-01", rows[1][0])
	assert.Equal(t, "10.5", rows[1][2])
}

func TestSQLiteSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.db")
	sink, err := NewSink(FormatSQLite, path, SinkOptions{TableName: "survey", BatchSize: 1})
	require.NoError(t, err)

	// writing twice replaces the table
	require.NoError(t, sink.Write(context.Background(), sampleTable()))
	require.NoError(t, sink.Write(context.Background(), sampleTable()))

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	var count int64
	require.NoError(t, db.Table("survey").Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var x, group, dup string
	row := db.Raw(`SELECT "x-coord", "AP Group", "ap group_2" FROM survey WHERE ap_name = ?`, "AP-01").Row()
	require.NoError(t, row.Scan(&x, &group, &dup))
	assert.Equal(t, "10.5", x)
	assert.Equal(t, "east", group)
	assert.Equal(t, "dup", dup)
}

func TestSQLiteSinkManyColumns(t *testing.T) {
	t.Parallel()

	const columns, rows = 68, 600
	table := &Table{Columns: make([]string, columns)}
	for j := range columns {
		table.Columns[j] = "tag " + strconv.Itoa(j)
	}
	for i := range rows {
		row := make([]string, columns)
		for j := range row {
			row[j] = strconv.Itoa(i*columns + j)
		}
		table.Rows = append(table.Rows, row)
	}

	path := filepath.Join(t.TempDir(), "wide.db")
	sink, err := NewSink(FormatSQLite, path, SinkOptions{})
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), table))

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	var count int64
	require.NoError(t, db.Table(defaultTableName).Count(&count).Error)
	assert.Equal(t, int64(rows), count)
}

func TestBatchSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		requested, columns, want int
	}{
		{500, 28, 500},
		{500, 68, maxSQLVariables / 68},
		{500, 40000, 1},
		{10, 0, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, batchSize(tt.requested, tt.columns), "%d columns", tt.columns)
	}
}

func TestNewSinkRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := NewSink("parquet", "out.parquet", SinkOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestUniqueColumns(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		[]string{"a", "A_2", "b", "a_3", "a_2_2"},
		uniqueColumns([]string{"a", "A", "b", "a", "a_2"}))
}

func TestExtension(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".csv", Extension(FormatCSV))
	assert.Equal(t, ".xlsx", Extension("XLSX"))
	assert.Equal(t, ".db", Extension(FormatSQLite))
}
