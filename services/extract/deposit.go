package extract

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/Jereff77/SPHCFDIs/internal/logger"
	"github.com/Jereff77/SPHCFDIs/internal/models"
)

// Deposit notification layouts vary between tab-delimited plain text and HTML
// tables, so every field runs an ordered fallback chain. Captures are bounded
// by the label of the following field to survive bodies collapsed onto a
// single line.
var (
	depositDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`Fecha de Operación:\s*(\d{2}-[A-Za-z]{3}-\d{4})`),
	}
	depositTimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`Hora de Operación:\s*(\d{2}:\d{2}:\d{2})\s*horas`),
	}
	depositDestAccountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Cuenta Destino:\t+([^\n\r\t]*?)\s*Nombre`),
		regexp.MustCompile(`(?i)Cuenta Destino:\s+([^\n\r]*?)\s*Nombre`),
		regexp.MustCompile(`(?i)Cuenta Destino:\s*([^\n\r]*?)\s*Nombre`),
		regexp.MustCompile(`(?i)Cuenta Destino:([^\n\r]*?)\s*Nombre`),
	}
	depositOriginatorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Nombre del Ordenante:\t+([^\n\r\t]*?)\s*Banco`),
		regexp.MustCompile(`(?i)Nombre del Ordenante:\s+([^\n\r]*?)\s*Banco`),
		regexp.MustCompile(`(?i)Nombre del Ordenante:\s*([^\n\r]*?)\s*Banco`),
		regexp.MustCompile(`(?i)Nombre del Ordenante:([^\n\r]*?)\s*Banco`),
	}
	depositIssuingBankPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Banco Emisor:\t+([^\n\r\t]*?)\s*Importe:`),
		regexp.MustCompile(`(?i)Banco Emisor:\s+([^\n\r]*?)\s*Importe:`),
		regexp.MustCompile(`(?i)Banco Emisor:\s*([^\n\r]*?)\s*Importe:`),
		regexp.MustCompile(`(?i)Banco Emisor:([^\n\r]*?)\s*Importe:`),
	}
	depositAmountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Importe:\t+\$\s*([\d,]+\.\d{2})\s*([A-Z]{3})`),
		regexp.MustCompile(`(?i)Importe:\s+\$\s*([\d,]+\.\d{2})\s*([A-Z]{3})`),
		regexp.MustCompile(`(?i)Importe:\s*\$\s*([\d,]+\.\d{2})\s*([A-Z]{3})`),
		regexp.MustCompile(`(?i)\$\s*([\d,]+\.\d{2})\s*([A-Z]{3})`),
		regexp.MustCompile(`(?i)Importe:\t+\$\s*([\d,]+\.\d{2})\s*MN`),
		regexp.MustCompile(`(?i)Importe:\s+\$\s*([\d,]+\.\d{2})\s*MN`),
		regexp.MustCompile(`(?i)Importe:\s*\$\s*([\d,]+\.\d{2})\s*MN`),
		regexp.MustCompile(`(?i)\$\s*([\d,]+\.\d{2})\s*MN`),
	}
	depositConceptPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Concepto de Pago:\t+([^\n\r\t]*?)\s*Clave`),
		regexp.MustCompile(`(?i)Concepto de Pago:\s+([^\n\r]*?)\s*Clave`),
		regexp.MustCompile(`(?i)Concepto de Pago:\s*([^\n\r]*?)\s*Clave`),
		regexp.MustCompile(`(?i)Concepto de Pago:([^\n\r]*?)\s*Clave`),
	}
	depositTrackingKeyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Clave de Rastreo:\t+([A-Z0-9\-\/\.]+)`),
		regexp.MustCompile(`(?i)Clave de Rastreo:\s+([A-Z0-9\-\/\.]+)`),
		regexp.MustCompile(`(?i)Clave de Rastreo:\s*([A-Z0-9\-\/\.]+)`),
		regexp.MustCompile(`(?i)Clave de Rastreo:([A-Z0-9\-\/\.]+)`),
		regexp.MustCompile(`(?i)(BNET[A-Z0-9]+)`),
		regexp.MustCompile(`(?i)\b([A-Z]{4}\d{20,30})\b`),
		regexp.MustCompile(`(?i)\b(\d{7,})\b`),
	}
	depositReferencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`Referencia:</td>\s*<td[^>]*>([^<]+)`),
		regexp.MustCompile(`Referencia:\s*([^\n\r<]+)`),
	}
	depositAuthorizationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Autorizaci(?:ón|on):</td>\s*<td[^>]*>([^<]+)`),
		regexp.MustCompile(`Autorizaci(?:ón|on):\s*([^\n\r<]+)`),
	}
	depositGreetingPattern = regexp.MustCompile(`Hola\s+([^\n\r]+)`)
)

type DepositExtractor struct {
	log logger.Logger
}

func NewDepositExtractor(log logger.Logger) *DepositExtractor {
	return &DepositExtractor{log: log}
}

// Extract pulls a bank movement out of a deposit instruction email. A valid
// tracking key is mandatory; every other field is best effort.
func (e *DepositExtractor) Extract(msg *models.InboundMessage) (*models.BankMovement, error) {
	body := NormalizeBody(SelectBody(msg))

	movement := &models.BankMovement{
		Subject:   msg.Subject,
		Kind:      "Depósito",
		Operation: "Transferencia Interbancaria SPEI",
	}

	if raw, ok := firstMatch(body, depositDatePatterns); ok {
		if date, ok := normalizeOperationDate(raw); ok {
			movement.OperationDate = date
		} else {
			e.log.Warnf("Could not parse operation date: %s", raw)
		}
	}
	if value, ok := firstMatch(body, depositTimePatterns); ok {
		movement.OperationTime = value
	}
	if value, ok := firstMatch(body, depositDestAccountPatterns); ok {
		movement.DestAccount = value
	}
	if value, ok := firstMatch(body, depositOriginatorPatterns); ok {
		movement.Originator = value
	}
	if value, ok := firstMatch(body, depositIssuingBankPatterns); ok {
		movement.IssuingBank = value
	}

	if amount, currency, ok := parseAmount(body, depositAmountPatterns); ok {
		movement.Amount = decimal.NewNullDecimal(amount)
		movement.Currency = currency
	} else {
		e.log.Warnf("No amount found in deposit email: %s", msg.Subject)
	}

	if value, ok := firstMatch(body, depositConceptPatterns); ok {
		movement.Concept = value
	}

	movement.TrackingKey = e.findTrackingKey(body)
	if movement.TrackingKey == "" {
		return nil, ErrNoTrackingKey
	}

	if value, ok := firstMatch(body, depositReferencePatterns); ok {
		movement.Reference = CleanHTMLText(value)
	}
	if value, ok := firstMatch(body, depositAuthorizationPatterns); ok {
		movement.Authorization = CleanHTMLText(value)
	}

	// Beneficiary is not a labeled field on deposits; fall back to the
	// greeting line.
	if m := depositGreetingPattern.FindStringSubmatch(body); m != nil {
		movement.Beneficiary = CleanHTMLText(m[1])
	}

	return movement, nil
}

func (e *DepositExtractor) findTrackingKey(body string) string {
	for _, re := range depositTrackingKeyPatterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		candidate := m[1]
		if ValidTrackingKey(candidate, false) {
			return candidate
		}
		e.log.Warnf("Discarding malformed tracking key candidate: %s", candidate)
	}
	return ""
}
