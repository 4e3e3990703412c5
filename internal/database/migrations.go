package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"
)

// schemaTables lists the table each numbered migration creates, in order.
// Migration N creates schemaTables[N-1].
var schemaTables = []string{"analyses", "audit_log"}

// LatestSchemaVersion is the version after every shipped migration is applied
var LatestSchemaVersion = uint(len(schemaTables))

// SchemaStatus describes which tables a migration version provides
type SchemaStatus struct {
	Version uint     `json:"version"`
	Dirty   bool     `json:"dirty"`
	Applied []string `json:"applied"`
	Pending []string `json:"pending"`
}

// StatusFor splits the known tables into applied and pending at version
func StatusFor(version uint, dirty bool) SchemaStatus {
	n := int(version)
	if n > len(schemaTables) {
		n = len(schemaTables)
	}
	return SchemaStatus{
		Version: version,
		Dirty:   dirty,
		Applied: append([]string{}, schemaTables[:n]...),
		Pending: append([]string{}, schemaTables[n:]...),
	}
}

// MigrationRunner applies the analyses and audit_log schema
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner reads migrations from migrationsPath ("migrations" if empty)
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}
	return &MigrationRunner{migrate: m, log: logger}, nil
}

// Up applies pending migrations. A dirty schema is an error.
func (mr *MigrationRunner) Up(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	before, err := mr.Status()
	if err != nil {
		return err
	}
	if before.Dirty {
		return fmt.Errorf("schema version %d is dirty, fix it before migrating", before.Version)
	}
	if len(before.Pending) == 0 {
		mr.log.WithField("version", before.Version).Debug("Schema is up to date")
		return nil
	}

	mr.log.WithField("pending", before.Pending).Info("Applying schema migrations")
	if err := mr.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations up: %w", err)
	}
	return mr.report("Schema migrated")
}

// Down rolls back the most recent migration
func (mr *MigrationRunner) Down(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := mr.migrate.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rolling back migration: %w", err)
	}
	return mr.report("Schema rolled back")
}

// Version returns the current migration version. A fresh database reports
// version 0 rather than an error.
func (mr *MigrationRunner) Version() (uint, bool, error) {
	version, dirty, err := mr.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Status returns the current version with its applied and pending tables
func (mr *MigrationRunner) Status() (SchemaStatus, error) {
	version, dirty, err := mr.Version()
	if err != nil {
		return SchemaStatus{}, fmt.Errorf("reading schema version: %w", err)
	}
	return StatusFor(version, dirty), nil
}

func (mr *MigrationRunner) report(msg string) error {
	status, err := mr.Status()
	if err != nil {
		return err
	}
	mr.log.WithFields(logrus.Fields{
		"version": status.Version,
		"latest":  LatestSchemaVersion,
		"applied": status.Applied,
		"pending": status.Pending,
	}).Info(msg)
	return nil
}

// Close closes the migration runner
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}
