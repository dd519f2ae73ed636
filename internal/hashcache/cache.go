package hashcache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Cache wraps a GORM connection to the on-disk digest cache database.
type Cache struct {
	db   *gorm.DB
	path string
}

// Config holds cache database configuration.
type Config struct {
	Path  string
	Debug bool
}

// DefaultConfig returns sensible defaults for the given path.
func DefaultConfig(path string) Config {
	return Config{Path: path, Debug: false}
}

// Open creates or opens the digest cache database and runs migrations.
func Open(cfg Config) (*Cache, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create hash cache directory: %w", err)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", cfg.Path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open hash cache database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	c := &Cache{db: db, path: cfg.Path}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate hash cache: %w", err)
	}
	return c, nil
}

// Path returns the cache database file path.
func (c *Cache) Path() string { return c.path }

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Lookup returns the cached digest for path if the cache entry's
// recorded size and mtime still match stat, and whether it was found.
// A stale entry (size or mtime changed) is treated as a miss.
func (c *Cache) Lookup(path string, size, mtimeNs int64) (string, bool, error) {
	var e Entry
	result := c.db.Where("path = ?", path).First(&e)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup hash cache entry: %w", result.Error)
	}
	if e.Size != size || e.MtimeNs != mtimeNs {
		return "", false, nil
	}
	return e.Digest, true, nil
}

// Store upserts a cache entry for path.
func (c *Cache) Store(path string, size, mtimeNs int64, digest string) error {
	e := Entry{Path: path, Size: size, MtimeNs: mtimeNs, Digest: digest}
	result := c.db.Save(&e)
	if result.Error != nil {
		return fmt.Errorf("store hash cache entry: %w", result.Error)
	}
	return nil
}

// DigestFile returns path's content digest, consulting and then
// refreshing the cache as needed (spec.md §4.8's core contract).
func (c *Cache) DigestFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	size := info.Size()
	mtimeNs := info.ModTime().UnixNano()

	if digest, hit, err := c.Lookup(path, size, mtimeNs); err != nil {
		return "", err
	} else if hit {
		return digest, nil
	}

	digest, err := Digest(path)
	if err != nil {
		return "", err
	}
	if err := c.Store(path, size, mtimeNs, digest); err != nil {
		return "", err
	}
	return digest, nil
}
