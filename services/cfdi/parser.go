package cfdi

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Jereff77/SPHCFDIs/internal/logger"
)

// Document is a parsed CFDI invoice. Field names follow the SAT attribute
// names they come from so the ledger mapping stays traceable.
type Document struct {
	UUID           string
	Folio          string
	IssuedAt       *time.Time
	Total          decimal.Decimal
	Subtotal       decimal.Decimal
	Currency       string
	IssuerRFC      string
	IssuerName     string
	TaxRegime      int
	ReceiverRFC    string
	ReceiverName   string
	SATSeal        string
	SATCertificate string
	StampedAt      *time.Time
	TotalTaxes     decimal.Decimal
	TotalWithheld  decimal.Decimal
	Concepts       []Concept
}

// Concept keeps line item attributes as strings; they are only rendered into
// the invoice description, never computed on.
type Concept struct {
	Description string
	Quantity    string
	UnitValue   string
	Amount      string
}

// Unqualified element names match on local name, so the same structs handle
// cfdi 3.3 and 4.0 namespaces.
type comprobanteNode struct {
	XMLName       xml.Name        `xml:"Comprobante"`
	Folio         string          `xml:"Folio,attr"`
	Fecha         string          `xml:"Fecha,attr"`
	Total         string          `xml:"Total,attr"`
	SubTotal      string          `xml:"SubTotal,attr"`
	Moneda        string          `xml:"Moneda,attr"`
	NoCertificado string          `xml:"NoCertificado,attr"`
	Emisor        emisorNode      `xml:"Emisor"`
	Receptor      receptorNode    `xml:"Receptor"`
	Conceptos     conceptosNode   `xml:"Conceptos"`
	Impuestos     *impuestosNode  `xml:"Impuestos"`
	Complemento   complementoNode `xml:"Complemento"`
}

type emisorNode struct {
	Rfc           string `xml:"Rfc,attr"`
	Nombre        string `xml:"Nombre,attr"`
	RegimenFiscal string `xml:"RegimenFiscal,attr"`
}

type receptorNode struct {
	Rfc    string `xml:"Rfc,attr"`
	Nombre string `xml:"Nombre,attr"`
}

type conceptosNode struct {
	Conceptos []conceptoNode `xml:"Concepto"`
}

type conceptoNode struct {
	Descripcion   string `xml:"Descripcion,attr"`
	Cantidad      string `xml:"Cantidad,attr"`
	ValorUnitario string `xml:"ValorUnitario,attr"`
	Importe       string `xml:"Importe,attr"`
}

type impuestosNode struct {
	TotalTraslados   string `xml:"TotalImpuestosTrasladados,attr"`
	TotalRetenciones string `xml:"TotalImpuestosRetenidos,attr"`
}

type complementoNode struct {
	Timbre *timbreNode `xml:"TimbreFiscalDigital"`
}

type timbreNode struct {
	UUID          string `xml:"UUID,attr"`
	SelloSAT      string `xml:"SelloSAT,attr"`
	FechaTimbrado string `xml:"FechaTimbrado,attr"`
}

var cfdiDateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02",
}

type Parser struct {
	log logger.Logger
}

func NewParser(log logger.Logger) *Parser {
	return &Parser{log: log}
}

// Parse decodes a CFDI attachment into a Document. A fiscal UUID is
// mandatory; without it the invoice can never be deduplicated.
func (p *Parser) Parse(content []byte) (*Document, error) {
	var node comprobanteNode
	if err := xml.Unmarshal(content, &node); err != nil {
		return nil, errors.Wrap(err, "cfdi.Parse")
	}

	if node.Complemento.Timbre == nil || node.Complemento.Timbre.UUID == "" {
		return nil, errors.New("cfdi.Parse: missing TimbreFiscalDigital UUID")
	}

	currency := node.Moneda
	if currency == "" {
		currency = "MXN"
	}

	doc := &Document{
		UUID:           node.Complemento.Timbre.UUID,
		Folio:          node.Folio,
		IssuedAt:       p.parseDate(node.Fecha),
		Total:          parseDecimal(node.Total),
		Subtotal:       parseDecimal(node.SubTotal),
		Currency:       currency,
		IssuerRFC:      node.Emisor.Rfc,
		IssuerName:     node.Emisor.Nombre,
		TaxRegime:      parseInt(node.Emisor.RegimenFiscal),
		ReceiverRFC:    node.Receptor.Rfc,
		ReceiverName:   node.Receptor.Nombre,
		SATSeal:        node.Complemento.Timbre.SelloSAT,
		SATCertificate: node.NoCertificado,
		StampedAt:      p.parseDate(node.Complemento.Timbre.FechaTimbrado),
	}

	if node.Impuestos != nil {
		doc.TotalTaxes = parseDecimal(node.Impuestos.TotalTraslados)
		doc.TotalWithheld = parseDecimal(node.Impuestos.TotalRetenciones)
	}

	for _, c := range node.Conceptos.Conceptos {
		doc.Concepts = append(doc.Concepts, Concept{
			Description: c.Descripcion,
			Quantity:    c.Cantidad,
			UnitValue:   c.ValorUnitario,
			Amount:      c.Importe,
		})
	}

	p.log.Infof("Parsed CFDI document - UUID: %s", doc.UUID)
	return doc, nil
}

func (p *Parser) parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range cfdiDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	p.log.Warnf("Unparseable CFDI date: %s", raw)
	return nil
}

func parseDecimal(raw string) decimal.Decimal {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}

func parseInt(raw string) int {
	value := 0
	for _, r := range strings.TrimSpace(raw) {
		if r < '0' || r > '9' {
			return 0
		}
		value = value*10 + int(r-'0')
	}
	return value
}
