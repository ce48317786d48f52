package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BankMovement is one SPEI deposit or interbank transfer row extracted from a
// bank notification email. Column names follow the existing Supabase schema,
// including the historical "cancepto" typo.
type BankMovement struct {
	ID            string              `gorm:"column:idmov;type:uuid;primaryKey"`
	CreatedAt     time.Time           `gorm:"column:fc;type:timestamp;default:current_timestamp"`
	Subject       string              `gorm:"column:asunto;type:varchar(1000)"`
	OperationDate string              `gorm:"column:fecOperacion;type:varchar(10)"`
	OperationTime string              `gorm:"column:horaOperacion;type:varchar(8)"`
	Originator    string              `gorm:"column:ordenante;type:varchar(255)"`
	DestAccount   string              `gorm:"column:ctaDestino;type:varchar(100)"`
	DestBank      string              `gorm:"column:bcoDestino;type:varchar(255)"`
	Beneficiary   string              `gorm:"column:beneficiario;type:varchar(255)"`
	Amount        decimal.NullDecimal `gorm:"column:importe;type:numeric(14,2)"`
	Currency      string              `gorm:"column:moneda;type:varchar(3)"`
	Concept       string              `gorm:"column:cancepto;type:text"`
	Reference     string              `gorm:"column:referencia;type:varchar(100)"`
	TrackingKey   string              `gorm:"column:rastreo;type:varchar(100);uniqueIndex;not null"`
	Authorization string              `gorm:"column:autorizacion;type:varchar(100)"`
	IssuingBank   string              `gorm:"column:bancoEmisor;type:varchar(255)"`
	Kind          string              `gorm:"column:tipo;type:varchar(50)"`
	Applied       bool                `gorm:"column:aplicado;default:false"`
	Manual        bool                `gorm:"column:manual;default:false"`
	Operation     string              `gorm:"column:Operacion;type:varchar(100)"`
}

func (BankMovement) TableName() string {
	return "movbancarios"
}

func (m *BankMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	return nil
}
