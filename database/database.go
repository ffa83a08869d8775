package database

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/rpupo63/inkwell/config"
	"github.com/rpupo63/inkwell/errs"
)

// Store backends selectable with DB_TYPE
const (
	TypeMemory   = "memory"
	TypeFile     = "file"
	TypePostgres = "postgres"
	TypeSupabase = "supa"
	TypeS3       = "s3"
)

const CredentialStoreSSM = "ssm"

type Database struct {
	postRepo        *PostRepo
	credentialRepo  *CredentialRepo
	imageConfigRepo *ImageConfigRepo
	gormDB          *gorm.DB
}

// New builds the repositories. Posts and image settings share records;
// credentials may live in a separate store.
func New(records Store, credentials Store) Database {
	if credentials == nil {
		credentials = records
	}
	return Database{
		postRepo:        NewPostRepo(records),
		credentialRepo:  NewCredentialRepo(credentials),
		imageConfigRepo: NewImageConfigRepo(records),
	}
}

// Accessor methods for each repository

func (d Database) PostRepo() *PostRepo {
	return d.postRepo
}

func (d Database) CredentialRepo() *CredentialRepo {
	return d.credentialRepo
}

func (d Database) ImageConfigRepo() *ImageConfigRepo {
	return d.imageConfigRepo
}

// GormDB returns the relational connection, or nil when the records live elsewhere
func (d Database) GormDB() *gorm.DB {
	return d.gormDB
}

// Close releases the relational connection if there is one
func (d Database) Close() error {
	if d.gormDB == nil {
		return nil
	}
	sqlDB, err := d.gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Open builds the Database selected by DB_TYPE and CREDENTIAL_STORE
func Open(ctx context.Context, cfg map[string]string) (Database, error) {
	dbType := strings.ToLower(config.GetString(cfg, "DB_TYPE", TypeFile))
	logger := log.With().Str("component", "database").Str("dbType", dbType).Logger()

	var (
		records Store
		gormDB  *gorm.DB
	)
	switch dbType {
	case TypeMemory:
		logger.Warn().Msg("Using in-memory store, data is lost on exit")
		records = NewMemoryStore()
	case TypeFile:
		dir := config.GetString(cfg, "DATA_DIR", "./data")
		fs, err := NewFileStore(filepath.Clean(dir))
		if err != nil {
			return Database{}, errs.NewConfigError("DATA_DIR", err)
		}
		logger.Info().Str("dir", dir).Msg("Using file store")
		records = fs
	case TypePostgres, TypeSupabase:
		dsn, err := PostgresDSN(cfg, dbType)
		if err != nil {
			return Database{}, err
		}
		gormDB, err = ConnectPostgres(dsn)
		if err != nil {
			return Database{}, errs.NewDatabaseError("connect to", "database", err)
		}
		gs := NewGormStore(gormDB)
		if err := gs.Migrate(ctx); err != nil {
			return Database{}, errs.NewDatabaseError("migrate", "kv_records", err)
		}
		logger.Info().Msg("Using postgres store")
		records = gs
	case TypeS3:
		bucket := config.GetString(cfg, "S3_BUCKET", "")
		if bucket == "" {
			return Database{}, errs.NewConfigMissingError("S3_BUCKET")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return Database{}, errs.NewConfigError("AWS", err)
		}
		logger.Info().Str("bucket", bucket).Msg("Using S3 store")
		records = NewS3Store(s3.NewFromConfig(awsCfg), bucket, config.GetString(cfg, "S3_PREFIX", "inkwell"))
	default:
		return Database{}, errs.NewConfigError("DB_TYPE", fmt.Errorf("unsupported value %q", dbType))
	}

	var credentials Store
	switch store := strings.ToLower(config.GetString(cfg, "CREDENTIAL_STORE", "")); store {
	case "":
	case CredentialStoreSSM:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return Database{}, errs.NewConfigError("AWS", err)
		}
		prefix := config.GetString(cfg, "SSM_PARAMETER_PREFIX", DefaultSSMParameterPrefix)
		logger.Info().Str("prefix", prefix).Msg("Keeping credential in SSM Parameter Store")
		credentials = NewSSMStore(ssm.NewFromConfig(awsCfg), prefix)
	default:
		return Database{}, errs.NewConfigError("CREDENTIAL_STORE", fmt.Errorf("unsupported value %q", store))
	}

	db := New(records, credentials)
	db.gormDB = gormDB
	return db, nil
}
