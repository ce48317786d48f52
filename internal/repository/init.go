package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/Jereff77/SPHCFDIs/config"
	"github.com/Jereff77/SPHCFDIs/interfaces"
	"github.com/Jereff77/SPHCFDIs/internal/models"
)

type Repositories struct {
	BankMovementRepository interfaces.BankMovementRepository
	InvoiceRepository      interfaces.InvoiceRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		BankMovementRepository: NewBankMovementRepository(db),
		InvoiceRepository:      NewInvoiceRepository(db),
	}
}

func MigrateDB(dbConfig *config.DatabaseConfig, gormDB *gorm.DB) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)

	err = gormDB.AutoMigrate(
		&models.BankMovement{},
		&models.Invoice{},
	)

	db.SetMaxIdleConns(dbConfig.MaxIdleConn)
	db.SetMaxOpenConns(dbConfig.MaxConn)
	db.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
