package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/entities"
)

var defaultRoles = []entities.Role{
	{RoleName: entities.RoleAdmin},
	{RoleName: entities.RoleMember},
}

// Models lists every table managed by AutoMigrate.
var Models = []any{
	&entities.Role{},
	&entities.Author{},
	&entities.Category{},
	&entities.Shelf{},
	&entities.Book{},
	&entities.User{},
	&entities.Borrowing{},
	&entities.Returning{},
	&entities.BorrowRequest{},
	&entities.Image{},
	&entities.AuditEvent{},
}

type Database struct {
	DB *gorm.DB
}

type Options struct {
	// LogLevel is one of silent, error, warn, info.
	LogLevel string
}

func NewDatabase(dbPath string, opts ...Options) (*Database, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}

	db, err := gorm.Open(Dialector(dsn(dbPath)), &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(o.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	database := &Database{DB: db}

	if err := database.seedRoles(); err != nil {
		return nil, fmt.Errorf("failed to seed roles: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedRoles() error {
	for _, role := range defaultRoles {
		var existing entities.Role
		result := d.DB.Where("role_name = ?", role.RoleName).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			if err := d.DB.Create(&role).Error; err != nil {
				return fmt.Errorf("failed to create role %s: %w", role.RoleName, err)
			}
			log.Printf("Created role: %s", role.RoleName)
		} else if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// GetRoleByName returns a seeded role.
func (d *Database) GetRoleByName(name entities.RoleName) (*entities.Role, error) {
	var role entities.Role
	if err := d.DB.Where("role_name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

// dsn adds connection defaults unless the caller passed its own query string.
// Immediate transactions keep read-then-write upserts from deadlocking under contention.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_txlock=immediate"
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
