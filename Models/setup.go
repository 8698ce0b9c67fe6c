package Models

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database for the given driver and migrates every table.
// sqlite is limited to a single connection to avoid "database is locked".
func Connect(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	connection, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	if driver == "sqlite" || driver == "" {
		sqlDB, err := connection.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(connection); err != nil {
		return nil, err
	}

	log.Printf("Connected to %s database", driverName(driver))
	return connection, nil
}

// Migrate creates or updates all tables. Employees go first since every
// other table references them.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Employee{}, &Client{}); err != nil {
		return fmt.Errorf("failed to migrate base tables: %w", err)
	}
	if err := db.AutoMigrate(&Employee{}, &WorkAssignment{}, &DailyWorkItem{}); err != nil {
		return fmt.Errorf("failed to migrate work tables: %w", err)
	}
	return nil
}

// sqliteDSN turns on foreign key enforcement, which sqlite leaves off by default.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "database.db"
	}
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

func driverName(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}
