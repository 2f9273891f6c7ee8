// file: db.go
/*
 * Database Adapter
 *
 * This package is responsible for establishing and configuring the connection
 * to the PostgreSQL database using GORM. It includes connection pooling settings
 * for performance and resilience and handles schema auto-migration.
 */
package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/juan10024/tictactoe-test/internal/core/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DSN holds the connection parameters for Initialize. Populated from
// config (cobra/viper flags or environment), never read directly from
// os.Getenv here, so the db package stays testable without process env.
type DSN struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (d DSN) String() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, sslMode)
}

// Initialize configures and returns a GORM DB instance bound to Postgres,
// with the schema auto-migrated for the durable repository.
func Initialize(dsn DSN, log *logrus.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn.String()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := gdb.AutoMigrate(&domain.RoomSnapshot{}); err != nil {
		return nil, fmt.Errorf("database schema migration failed: %w", err)
	}
	log.Info("database schema migration completed successfully")

	return gdb, nil
}
