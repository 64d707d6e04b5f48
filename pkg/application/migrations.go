package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/sirupsen/logrus"
)

var ErrNoPool = errors.New("migrations: database pool is not configured")

// MigrationStatus is one row of `migrate status` output.
type MigrationStatus struct {
	Source  string
	Version int64
	Path    string
	Applied bool
}

// MigrationManager applies goose migrations registered by modules. Every
// source keeps its own version table so modules can evolve independently.
type MigrationManager interface {
	Register(name string, fsys fs.FS)
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Status(ctx context.Context) ([]MigrationStatus, error)
}

type migrationSource struct {
	name string
	fsys fs.FS
}

type migrationManager struct {
	pool    *pgxpool.Pool
	logger  *logrus.Logger
	sources []migrationSource
}

func NewMigrationManager(pool *pgxpool.Pool, logger *logrus.Logger) MigrationManager {
	return &migrationManager{pool: pool, logger: logger}
}

func (m *migrationManager) Register(name string, fsys fs.FS) {
	m.sources = append(m.sources, migrationSource{name: name, fsys: fsys})
}

func (m *migrationManager) withProviders(fn func(src migrationSource, p *goose.Provider) error) error {
	if m.pool == nil {
		return ErrNoPool
	}
	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	for _, src := range m.sources {
		p, err := newProvider(db, src)
		if err != nil {
			return err
		}
		if err := fn(src, p); err != nil {
			return fmt.Errorf("migrations %s: %w", src.name, err)
		}
	}
	return nil
}

func newProvider(db *sql.DB, src migrationSource) (*goose.Provider, error) {
	store, err := database.NewStore(database.DialectPostgres, "goose_"+src.name+"_version")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider("", db, src.fsys, goose.WithStore(store))
}

func (m *migrationManager) Up(ctx context.Context) error {
	return m.withProviders(func(src migrationSource, p *goose.Provider) error {
		results, err := p.Up(ctx)
		for _, r := range results {
			m.logger.WithFields(logrus.Fields{
				"source":   src.name,
				"version":  r.Source.Version,
				"duration": r.Duration,
			}).Info("migration applied")
		}
		return err
	})
}

// Down rolls back the most recent migration of every source, last registered first.
func (m *migrationManager) Down(ctx context.Context) error {
	if m.pool == nil {
		return ErrNoPool
	}
	db := stdlib.OpenDBFromPool(m.pool)
	defer db.Close()

	for i := len(m.sources) - 1; i >= 0; i-- {
		src := m.sources[i]
		p, err := newProvider(db, src)
		if err != nil {
			return err
		}
		r, err := p.Down(ctx)
		if errors.Is(err, goose.ErrNoNextVersion) {
			continue
		}
		if err != nil {
			return fmt.Errorf("migrations %s: %w", src.name, err)
		}
		if r != nil {
			m.logger.WithFields(logrus.Fields{"source": src.name, "version": r.Source.Version}).Info("migration rolled back")
		}
	}
	return nil
}

func (m *migrationManager) Status(ctx context.Context) ([]MigrationStatus, error) {
	var out []MigrationStatus
	err := m.withProviders(func(src migrationSource, p *goose.Provider) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			out = append(out, MigrationStatus{
				Source:  src.name,
				Version: s.Source.Version,
				Path:    s.Source.Path,
				Applied: s.State == goose.StateApplied,
			})
		}
		return nil
	})
	return out, err
}
