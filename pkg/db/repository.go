// pkg/db/repository.go
package db

import (
	"fmt"
	"strconv"

	"github.com/smith3v/tg-study-assistant/pkg/config"
	"github.com/smith3v/tg-study-assistant/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Export DB variable
var DB *gorm.DB

func InitDB(cfg config.StorageConfig) error {
	dialector, err := openDialector(cfg)
	if err != nil {
		logger.Error("unsupported storage driver", "driver", cfg.Driver, "error", err)
		return err
	}
	gormLogger, gormErr := newGormLogger(config.AppConfig.Logging.GormLevel)
	if gormErr != nil {
		logger.Error("invalid gorm log level", "value", config.AppConfig.Logging.GormLevel, "error", gormErr)
	}
	DB, err = gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return err
	}
	if err := Migrate(DB); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		return err
	}
	return nil
}

func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(&StoreSnapshot{})
}

// Close releases the connection pool behind DB.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	DB = nil
	return sqlDB.Close()
}

func openDialector(cfg config.StorageConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.Path), nil
	case "postgres":
		return postgres.Open(postgresDSN(cfg.Database)), nil
	default:
		return nil, fmt.Errorf("storage driver %q has no database dialect", cfg.Driver)
	}
}

func postgresDSN(cfg config.DatabaseConfig) string {
	return "host=" + cfg.Host +
		" user=" + cfg.User +
		" password=" + cfg.Password +
		" dbname=" + cfg.DBName +
		" port=" + strconv.Itoa(cfg.Port) +
		" sslmode=" + cfg.SSLMode
}
