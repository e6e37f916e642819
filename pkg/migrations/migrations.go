package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// MigrateStore brings the postgres schema up to date. With an empty
// migrationFolder the migrations shipped in the binary are used; a folder
// path overrides them, which is how a deployment applies hotfix migrations
// without a rebuild.
func MigrateStore(db *gorm.DB, migrationFolder string) error {
	goose.SetLogger(&logger{})

	var baseFS fs.FS
	if migrationFolder != "" {
		fi, err := os.Stat(migrationFolder)
		if err != nil {
			return err
		}

		if !fi.Mode().IsDir() {
			return fmt.Errorf("failed to open migration folder: %s is not a folder", migrationFolder)
		}

		baseFS = os.DirFS(migrationFolder)
	} else {
		sub, err := fs.Sub(embeddedMigrations, "sql")
		if err != nil {
			return errors.Wrap(err, "failed to open embedded migrations")
		}
		baseFS = sub
	}

	goose.SetBaseFS(baseFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return goose.Up(sqlDB, ".")
}

/*
logger implements goose.Logger interface

	type Logger interface {
		Fatalf(format string, v ...interface{})
		Printf(format string, v ...interface{})
	}
*/
type logger struct{}

func (m *logger) Printf(format string, v ...interface{}) { zap.S().Infof(format, v...) }
func (m *logger) Fatalf(format string, v ...interface{}) { zap.S().Fatalf(format, v...) }
