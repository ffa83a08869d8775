package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rpupo63/inkwell/config"
	"github.com/rpupo63/inkwell/errs"
)

// PostgresDSN builds the connection string for DB_TYPE postgres (DATABASE_URL)
// or supa (SUPABASE_DB_* parts).
func PostgresDSN(cfg map[string]string, dbType string) (string, error) {
	if dbType == TypeSupabase {
		host := config.GetString(cfg, "SUPABASE_DB_HOST", "")
		if host == "" {
			return "", errs.NewConfigMissingError("SUPABASE_DB_HOST")
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=require",
			host,
			config.GetString(cfg, "SUPABASE_DB_USER", ""),
			config.GetString(cfg, "SUPABASE_DB_PASSWORD", ""),
			config.GetString(cfg, "SUPABASE_DB_NAME", ""),
			config.GetString(cfg, "SUPABASE_DB_PORT", "5432"),
		), nil
	}

	dsn := config.GetString(cfg, "DATABASE_URL", "")
	if dsn == "" {
		return "", errs.NewConfigMissingError("DATABASE_URL")
	}
	return dsn, nil
}

// ConnectPostgres opens a gorm connection and checks it with a trivial query
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		PrepareStmt: false,
		Logger:      newLogger,
	})
	if err != nil {
		return nil, err
	}

	var result int
	if err := db.Raw("SELECT 1").Scan(&result).Error; err != nil {
		return nil, fmt.Errorf("test database connection: %w", err)
	}
	return db, nil
}
