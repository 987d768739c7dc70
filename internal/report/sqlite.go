package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/esxtool/esxtool/internal/logger"
)

const (
	defaultTableName = "measurements"
	defaultBatchSize = 500

	// maxSQLVariables is SQLite's default bound-parameter limit per statement.
	maxSQLVariables = 32766

	slowStatement = 200 * time.Millisecond
)

// SQLiteSink writes the table into a SQLite database, one TEXT column per
// report column. An existing table of the same name is replaced.
type SQLiteSink struct {
	Path      string
	TableName string
	BatchSize int
}

func (s *SQLiteSink) Write(ctx context.Context, t *Table) error {
	table := s.TableName
	if table == "" {
		table = defaultTableName
	}
	batch := s.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	log := logger.Global().Module(component).Module("sqlite")
	db, err := gorm.Open(sqlite.Open(s.Path), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowStatement),
	})
	if err != nil {
		return sinkError(err, FormatSQLite, s.Path)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	columns := uniqueColumns(t.Columns)
	batch = batchSize(batch, len(columns))
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().DropTable(table); err != nil {
			return err
		}
		if err := tx.Exec(createTableSQL(table, columns)).Error; err != nil {
			return err
		}
		if len(t.Rows) == 0 {
			return nil
		}

		records := make([]map[string]any, len(t.Rows))
		for i, row := range t.Rows {
			rec := make(map[string]any, len(columns))
			for j, col := range columns {
				rec[col] = row[j]
			}
			records[i] = rec
		}
		return tx.Table(table).CreateInBatches(records, batch).Error
	})
	if err != nil {
		return sinkError(err, FormatSQLite, s.Path)
	}

	log.Debug("report table written",
		logger.String("table", table),
		logger.Int("rows", len(t.Rows)),
		logger.Int("columns", len(t.Columns)))
	return nil
}

// batchSize clamps the rows per INSERT so one statement never binds more
// than maxSQLVariables parameters.
func batchSize(requested, columns int) int {
	if columns == 0 {
		return requested
	}
	return max(1, min(requested, maxSQLVariables/columns))
}

// uniqueColumns suffixes repeated column names, which SQLite rejects.
// Column names compare case-insensitively.
func uniqueColumns(columns []string) []string {
	seen := make(map[string]bool, len(columns))
	out := make([]string, len(columns))
	for i, col := range columns {
		name := col
		for n := 2; seen[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", col, n)
		}
		seen[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func createTableSQL(table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = quoteIdent(col) + " TEXT"
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
