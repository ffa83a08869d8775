package models

import (
	"fmt"
	"io"
	"log"
	"os"
	"reflect"
	"strings"

	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*
Column Mismatch Report Usage:

Reports database columns that have no matching field in the Go model of
their table. Only relevant when DB_TYPE selects a relational store.

1. Set the environment variable: GENERATE_COLUMN_REPORT=true
2. Run the server: go run .

Example output:
=== COLUMN MISMATCH REPORT ===
--- Table: kv_records ---
All columns are accounted for in the model.

=== SUMMARY ===
Total mismatched columns across all tables: 0
*/

// storeModels maps table names to the models persisted in the relational store
var storeModels = map[string]interface{}{
	"kv_records": KVRecord{},
}

// GenerateModels migrates the store tables and writes typed query helpers to outPath
func GenerateModels(db *gorm.DB, outPath string) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: false,
			Colorful:                  true,
		},
	)
	migrateDB := db.Session(&gorm.Session{
		Logger:                 newLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})

	g := gen.NewGenerator(gen.Config{
		OutPath:           outPath,
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(migrateDB)
	g.ApplyBasic(KVRecord{})

	fmt.Println("Migrating models...")
	if err := migrateDB.AutoMigrate(&KVRecord{}); err != nil {
		return fmt.Errorf("migrate models: %w", err)
	}

	if err := GenerateColumnMismatchReport(db, os.Stdout); err != nil {
		return err
	}

	g.Execute()
	fmt.Println("Model generation complete!")
	return nil
}

// GenerateColumnMismatchReport writes a report of database columns that aren't accounted for in Go models
func GenerateColumnMismatchReport(db *gorm.DB, w io.Writer) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	fmt.Fprintln(w, "=== COLUMN MISMATCH REPORT ===")

	totalMismatches := 0
	for tableName, modelStruct := range storeModels {
		fmt.Fprintf(w, "\n--- Table: %s ---\n", tableName)

		dbColumns, err := getTableColumns(db, tableName)
		if err != nil {
			if strings.Contains(err.Error(), "does not exist") {
				fmt.Fprintln(w, "Table does not exist yet (will be created during migration)")
			} else {
				fmt.Fprintf(w, "Error getting columns for table %s: %v\n", tableName, err)
			}
			continue
		}

		mismatches := findColumnMismatches(dbColumns, getModelFields(modelStruct))
		if len(mismatches) > 0 {
			fmt.Fprintf(w, "Found %d columns not accounted for in model:\n", len(mismatches))
			for _, col := range mismatches {
				fmt.Fprintf(w, "  - %s\n", col)
			}
			totalMismatches += len(mismatches)
		} else {
			fmt.Fprintln(w, "All columns are accounted for in the model.")
		}
	}

	fmt.Fprintf(w, "\n=== SUMMARY ===\n")
	fmt.Fprintf(w, "Total mismatched columns across all tables: %d\n", totalMismatches)
	return nil
}

// getTableColumns retrieves column names from a database table
func getTableColumns(db *gorm.DB, tableName string) ([]string, error) {
	var columns []string
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = ?
		AND table_schema = CURRENT_SCHEMA()
		ORDER BY ordinal_position
	`
	if err := db.Raw(query, tableName).Scan(&columns).Error; err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
	}

	if len(columns) == 0 {
		var tableExists bool
		tableQuery := `
			SELECT EXISTS (
				SELECT FROM information_schema.tables
				WHERE table_schema = CURRENT_SCHEMA()
				AND table_name = ?
			)
		`
		if err := db.Raw(tableQuery, tableName).Scan(&tableExists).Error; err != nil {
			return nil, fmt.Errorf("error checking if table %s exists: %w", tableName, err)
		}
		if !tableExists {
			return nil, fmt.Errorf("table %s does not exist", tableName)
		}
	}

	return columns, nil
}

// getModelFields extracts column names from the gorm tags of a struct
func getModelFields(model interface{}) []string {
	var fields []string
	t := reflect.TypeOf(model)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous {
			continue
		}
		if columnName := extractColumnNameFromGormTag(field.Tag.Get("gorm")); columnName != "" {
			fields = append(fields, columnName)
		}
	}

	return fields
}

// extractColumnNameFromGormTag extracts the column name from a GORM tag
func extractColumnNameFromGormTag(gormTag string) string {
	for _, part := range strings.Split(gormTag, ";") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "column:") {
			return strings.TrimPrefix(part, "column:")
		}
	}
	return ""
}

// findColumnMismatches finds columns that exist in the database but not in the model
func findColumnMismatches(dbColumns, modelFields []string) []string {
	modelFieldSet := make(map[string]bool, len(modelFields))
	for _, field := range modelFields {
		modelFieldSet[field] = true
	}

	var mismatches []string
	for _, col := range dbColumns {
		if !modelFieldSet[col] {
			mismatches = append(mismatches, col)
		}
	}
	return mismatches
}
