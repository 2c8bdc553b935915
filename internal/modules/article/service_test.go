package article

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trustnet/core/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	mysqldrv "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// failingPool stands in for a database connection that rejects every
// statement, so write paths can be exercised without a server.
type failingPool struct{ err error }

func (p failingPool) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, p.err
}

func (p failingPool) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, p.err
}

func (p failingPool) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, p.err
}

func (p failingPool) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return &sql.Row{}
}

func openFailingDB(t *testing.T, cause error) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(mysqldrv.New(mysqldrv.Config{
		Conn:                      failingPool{err: cause},
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	return db
}

func TestReadCountBumpFailureIsLogged(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:3306: connection refused")
	core, logs := observer.New(zap.WarnLevel)
	svc := NewService(openFailingDB(t, cause), zap.New(core))

	a := &models.ArticleModel{
		Slug:  "spotting-fake-shops",
		Title: "Spotting fake shops",
	}
	a.ID = "a1"

	svc.bumpReadCount(context.Background(), a)

	entries := logs.TakeAll()
	require.Len(t, entries, 1)
	assert.Equal(t, "read counter bump failed", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "spotting-fake-shops", fields["slug"])
	assert.Contains(t, fields["error"], "connection refused")
}
