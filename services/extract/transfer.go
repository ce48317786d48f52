package extract

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/Jereff77/SPHCFDIs/internal/logger"
	"github.com/Jereff77/SPHCFDIs/internal/models"
)

// Interbank transfer notifications carry more labeled fields than deposits
// and a wider set of tracking key formats, including the bank-issued
// BB<digits> keys.
var (
	transferDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Fecha de Operación:\s*(\d{2}-[A-Za-z]{3}-\d{4})`),
		regexp.MustCompile(`(?i)Fecha de Operación[:\s]+(\d{2}-[A-Za-z]{3}-\d{4})`),
		regexp.MustCompile(`(?i)Fecha[:\s]+(\d{2}-[A-Za-z]{3}-\d{4})`),
	}
	transferTimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Hora de Operación:\s*(\d{2}:\d{2}:\d{2})\s*horas`),
		regexp.MustCompile(`(?i)Hora de Operación[:\s]+(\d{2}:\d{2}:\d{2})\s*horas`),
		regexp.MustCompile(`(?i)Hora[:\s]+(\d{2}:\d{2}:\d{2})\s*horas`),
	}
	transferOriginatorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Nombre del Ordenante:\s*([^\n\r]*?)(?:\s+Cuenta|$)`),
		regexp.MustCompile(`(?i)Nombre del Ordenante[:\s]+([^\n\r]*?)(?:\s+Cuenta|$)`),
		regexp.MustCompile(`(?i)Ordenante[:\s]+([^\n\r]+)`),
	}
	transferDestAccountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Cuenta Destino:\s*([^\n\r]*?)(?:\s+Banco|$)`),
		regexp.MustCompile(`(?i)Cuenta Destino[:\s]+([^\n\r]*?)(?:\s+Banco|$)`),
		regexp.MustCompile(`(?i)Cuenta Destino[:\s]+([^\n\r]+)`),
	}
	transferDestBankPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Banco Destino:\s*([^\n\r]*?)(?:\s+Nombre|$)`),
		regexp.MustCompile(`(?i)Banco Destino[:\s]+([^\n\r]*?)(?:\s+Nombre|$)`),
		regexp.MustCompile(`(?i)Banco Destino[:\s]+([^\n\r]+)`),
	}
	transferBeneficiaryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Nombre del Beneficiario:\s*([^\n\r]*?)(?:\s+Aplicar|$)`),
		regexp.MustCompile(`(?i)Nombre del Beneficiario[:\s]+([^\n\r]*?)(?:\s+Aplicar|$)`),
		regexp.MustCompile(`(?i)Beneficiario[:\s]+([^\n\r]+)`),
	}
	transferAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Importe:\s+\$\s*([\d,]+\.\d{2})\s*([A-Z]{3})`),
		regexp.MustCompile(`(?i)Importe:\s*\$\s*([\d,]+\.\d{2})\s*([A-Z]{3})`),
		regexp.MustCompile(`(?i)\$\s*([\d,]+\.\d{2})\s*([A-Z]{3})`),
		regexp.MustCompile(`(?i)Importe:\s+\$\s*([\d,]+\.\d{2})\s*MN`),
		regexp.MustCompile(`(?i)Importe:\s*\$\s*([\d,]+\.\d{2})\s*MN`),
		regexp.MustCompile(`(?i)\$\s*([\d,]+\.\d{2})\s*MN`),
	}
	transferConceptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Concepto de Pago:\t+([^\n\r\t]*?)\s*Referencia`),
		regexp.MustCompile(`(?i)Concepto de Pago:\s+([^\n\r]*?)\s*Referencia`),
		regexp.MustCompile(`(?i)Concepto de Pago:\s*([^\n\r]*?)\s*Referencia`),
		regexp.MustCompile(`(?i)Concepto de Pago:([^\n\r]*?)\s*Referencia`),
	}
	transferReferencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Referencia:\s*([^\n\r]*?)(?:\s+Número|$)`),
		regexp.MustCompile(`(?i)Referencia[:\s]+([^\n\r]*?)(?:\s+Número|$)`),
		regexp.MustCompile(`(?i)Referencia[:\s]+([^\n\r]+)`),
	}
	transferAuthorizationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Número de Autorización:\s*([^\n\r]*?)(?:\s+Clave|$)`),
		regexp.MustCompile(`(?i)Autorizaci(?:ón|on):\s*([^\n\r]*?)(?:\s+Clave|$)`),
		regexp.MustCompile(`(?i)Autorizaci(?:ón|on)[:\s]+([^\n\r]+)`),
	}
	transferTrackingKeyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Clave de Rastreo:\s+([A-Z0-9\-\/\.]+)`),
		regexp.MustCompile(`(?i)Clave de Rastreo[:\s]+([A-Z0-9\-\/\.]+)`),
		regexp.MustCompile(`(?i)Clave de Rastreo:([A-Z0-9\-\/\.]+)`),
		regexp.MustCompile(`(?i)(BNET[A-Z0-9]+)`),
		regexp.MustCompile(`(?i)\b([A-Z]{2}\d{13,})\b`),
		regexp.MustCompile(`(?i)\b([A-Z]{4}\d{20,30})\b`),
		regexp.MustCompile(`(?i)\b(\d{7,})\b`),
	}
)

type TransferExtractor struct {
	log logger.Logger
}

func NewTransferExtractor(log logger.Logger) *TransferExtractor {
	return &TransferExtractor{log: log}
}

// Extract pulls a bank movement out of an interbank SPEI transfer email.
func (e *TransferExtractor) Extract(msg *models.InboundMessage) (*models.BankMovement, error) {
	body := NormalizeBody(SelectBody(msg))

	movement := &models.BankMovement{
		Subject:   msg.Subject,
		Kind:      "Transferencia SPEI",
		Operation: "Transferencia Interbancaria SPEI",
	}

	if raw, ok := firstMatch(body, transferDatePatterns); ok {
		if date, ok := normalizeOperationDate(raw); ok {
			movement.OperationDate = date
		} else {
			e.log.Warnf("Could not parse operation date: %s", raw)
		}
	}
	if value, ok := firstMatch(body, transferTimePatterns); ok {
		movement.OperationTime = value
	}
	if value, ok := firstMatch(body, transferOriginatorPatterns); ok {
		movement.Originator = value
	}
	if value, ok := firstMatch(body, transferDestAccountPatterns); ok {
		movement.DestAccount = value
	}
	if value, ok := firstMatch(body, transferDestBankPatterns); ok {
		movement.DestBank = value
	}
	if value, ok := firstMatch(body, transferBeneficiaryPatterns); ok {
		movement.Beneficiary = value
	}

	if amount, currency, ok := parseAmount(body, transferAmountPatterns); ok {
		movement.Amount = decimal.NewNullDecimal(amount)
		movement.Currency = currency
	} else {
		e.log.Warnf("No amount found in transfer email: %s", msg.Subject)
	}

	// Concepts regularly keep CSS residue after tag stripping, clean again.
	if value, ok := firstMatch(body, transferConceptPatterns); ok {
		movement.Concept = CleanHTMLText(value)
	}
	if value, ok := firstMatch(body, transferReferencePatterns); ok {
		movement.Reference = value
	}
	if value, ok := firstMatch(body, transferAuthorizationPatterns); ok {
		movement.Authorization = value
	}

	movement.TrackingKey = e.findTrackingKey(body)
	if movement.TrackingKey == "" {
		return nil, ErrNoTrackingKey
	}

	return movement, nil
}

func (e *TransferExtractor) findTrackingKey(body string) string {
	for _, re := range transferTrackingKeyPatterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		candidate := m[1]
		if ValidTrackingKey(candidate, true) {
			return candidate
		}
		e.log.Warnf("Discarding malformed tracking key candidate: %s", candidate)
	}
	return ""
}
