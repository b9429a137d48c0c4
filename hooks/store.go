package hooks

import (
	"database/sql"

	"github.com/golang-migrate/migrate/v4"
	sqlite3migrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"io/fs"
)

// storedHook is the gorm model backing the persistent hook registry
// (spec.md §6 "Persisted state layout" — the Fork graphs are in-memory
// only, but registering a hook against a devnet/testnet process that
// restarts should not lose chainhook registrations or occurrence
// counts). Grounded on the teacher's apiserver/models.Transaction +
// apiserver/controllers/transaction.go gorm query style.
type storedHook struct {
	gorm.Model
	UUID                  string `gorm:"unique_index"`
	Chain                 string
	SpecificationYAML     string
	Network               string
	OccurrenceCount       uint64
	Enabled               bool
	ExpiredAt             *uint64
}

func (storedHook) TableName() string { return "hooks" }

// Store persists ResolvedHook registrations and occurrence counters to a
// sqlite-backed gorm database. The schema is created by gorm's
// AutoMigrate; golang-migrate migrations run on top of it only when
// OpenStore is given a migrations FS.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (creating if absent) the sqlite database at path and
// applies any pending migrations from migrations.
func OpenStore(path string, migrations fs.FS) (*Store, error) {
	db, err := gorm.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening hook registry database")
	}
	if err := db.AutoMigrate(&storedHook{}).Error; err != nil {
		db.Close()
		return nil, errors.Wrap(err, "auto-migrating hook registry schema")
	}

	if migrations != nil {
		if err := applyMigrations(db.DB(), migrations); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db}, nil
}

func applyMigrations(sqlDB *sql.DB, migrations fs.FS) error {
	src, err := iofs.New(migrations, ".")
	if err != nil {
		return errors.Wrap(err, "reading embedded hook registry migrations")
	}
	driver, err := sqlite3migrate.WithInstance(sqlDB, &sqlite3migrate.Config{})
	if err != nil {
		return errors.Wrap(err, "constructing migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return errors.Wrap(err, "constructing migrator")
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "applying hook registry migrations")
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts a hook's current state.
func (s *Store) Save(h *ResolvedHook, specificationYAML string) error {
	row := storedHook{
		UUID:               h.UUID,
		Chain:              string(h.Chain),
		Network:            h.Network,
		SpecificationYAML:  specificationYAML,
		OccurrenceCount:    h.occurrenceCount,
		Enabled:            h.Enabled,
		ExpiredAt:          h.ExpiredAt,
	}
	existing := storedHook{}
	result := s.db.Where(&storedHook{UUID: h.UUID}).First(&existing)
	if result.RecordNotFound() {
		return errors.Wrap(s.db.Create(&row).Error, "inserting hook")
	}
	if result.Error != nil {
		return errors.Wrap(result.Error, "looking up hook")
	}
	row.Model = existing.Model
	return errors.Wrap(s.db.Save(&row).Error, "updating hook")
}

// Delete removes a hook's persisted row.
func (s *Store) Delete(uuid string) error {
	return errors.Wrap(s.db.Where(&storedHook{UUID: uuid}).Delete(&storedHook{}).Error, "deleting hook")
}

// LoadAll returns every persisted hook's raw specification, network, and
// mutable state, for the caller to re-parse via ParseSpecification and
// re-register into a Registry at startup.
func (s *Store) LoadAll() ([]PersistedHook, error) {
	var rows []storedHook
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "loading persisted hooks")
	}
	out := make([]PersistedHook, 0, len(rows))
	for _, row := range rows {
		out = append(out, PersistedHook{
			UUID:               row.UUID,
			Chain:              Chain(row.Chain),
			Network:            row.Network,
			SpecificationYAML:  row.SpecificationYAML,
			OccurrenceCount:    row.OccurrenceCount,
			Enabled:            row.Enabled,
			ExpiredAt:          row.ExpiredAt,
		})
	}
	return out, nil
}

// PersistedHook is the data Store.LoadAll returns for rehydrating a
// Registry at startup.
type PersistedHook struct {
	UUID               string
	Chain              Chain
	Network            string
	SpecificationYAML  string
	OccurrenceCount    uint64
	Enabled            bool
	ExpiredAt          *uint64
}
