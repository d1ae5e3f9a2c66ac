package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Config selects the database backend.
type Config struct {
	// Driver is "postgres" or "sqlite".
	Driver string

	// DSN is the connection string. For sqlite this is a file path
	// (":memory:" works for tests).
	DSN string
}

// Store wraps the gorm handle and provides access to repositories.
type Store struct {
	db *gorm.DB
}

// Open connects to the database, applies migrations, and returns a Store.
func Open(cfg Config) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver: %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(
		&LessonSession{},
		&ConversationMessage{},
		&GeneratedItem{},
		&ItemFingerprint{},
		&Syllabus{},
		&LLMCallLog{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying gorm handle for raw queries.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Sessions returns a SessionRepo backed by this store.
func (s *Store) Sessions() SessionRepo {
	return &sessionRepo{db: s.db}
}

// Messages returns a MessageRepo backed by this store.
func (s *Store) Messages() MessageRepo {
	return &messageRepo{db: s.db}
}

// Items returns an ItemRepo backed by this store.
func (s *Store) Items() ItemRepo {
	return &itemRepo{db: s.db}
}

// Registry returns a RegistryRepo backed by this store.
func (s *Store) Registry() RegistryRepo {
	return &registryRepo{db: s.db}
}

// Syllabi returns a SyllabusRepo backed by this store.
func (s *Store) Syllabi() SyllabusRepo {
	return &syllabusRepo{db: s.db}
}

// CallLog returns a CallLogRepo backed by this store.
func (s *Store) CallLog() CallLogRepo {
	return &callLogRepo{db: s.db}
}
