package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is one CFDI 4.0 invoice row, keyed by the fiscal UUID from the
// TimbreFiscalDigital complement.
type Invoice struct {
	ID             string          `gorm:"column:idFactura;type:varchar(50);primaryKey"`
	UUID           string          `gorm:"column:uuidCFDI;type:varchar(50);uniqueIndex;not null"`
	Status         bool            `gorm:"column:status;default:true"`
	CreatedAt      time.Time       `gorm:"column:fc;type:timestamp;default:current_timestamp"`
	Applied        bool            `gorm:"column:aplicada;default:false"`
	Manual         bool            `gorm:"column:manual;default:false"`
	Folio          string          `gorm:"column:folioCFDI;type:varchar(50)"`
	IssuedAt       *time.Time      `gorm:"column:fecCFDI;type:timestamp"`
	Total          decimal.Decimal `gorm:"column:totalCFDI;type:numeric(14,2)"`
	Subtotal       decimal.Decimal `gorm:"column:subtotalCFDI;type:numeric(14,2)"`
	Currency       string          `gorm:"column:moneda;type:varchar(3)"`
	IssuerRFC      string          `gorm:"column:rfcEmisor;type:varchar(13)"`
	IssuerName     string          `gorm:"column:nombreEmisor;type:varchar(255)"`
	TaxRegime      int             `gorm:"column:regimenFiscal"`
	SATSeal        string          `gorm:"column:selloSAT;type:text"`
	SATCertificate string          `gorm:"column:noCertificadoSAT;type:varchar(50)"`
	InvoiceMonth   int             `gorm:"column:mesFactura"`
	InvoiceYear    int             `gorm:"column:anioCFDI"`
	Concept        string          `gorm:"column:concepto;type:varchar(500)"`
	Description    string          `gorm:"column:descripcion;type:text"`
	StampedAt      *time.Time      `gorm:"column:fum;type:timestamp"`
	FiscalYear     int             `gorm:"column:anio"`
}

func (Invoice) TableName() string {
	return "catFacturas"
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now().UTC()
	}
	return nil
}
