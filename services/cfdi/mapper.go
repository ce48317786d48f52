package cfdi

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Jereff77/SPHCFDIs/internal/models"
)

const (
	maxConceptLen     = 500
	maxDescribedLines = 5
	fallbackConcept   = "Sin descripción"
)

// MapInvoice turns a parsed CFDI document into a ledger row. The fiscal UUID
// doubles as the primary key so re-processed attachments collide instead of
// duplicating.
func MapInvoice(doc *Document) (*models.Invoice, error) {
	if doc == nil || doc.UUID == "" {
		return nil, errors.New("cfdi.MapInvoice: document has no fiscal UUID")
	}

	now := time.Now()
	invoice := &models.Invoice{
		ID:             doc.UUID,
		UUID:           doc.UUID,
		Status:         true,
		Applied:        false,
		Manual:         false,
		Folio:          doc.Folio,
		IssuedAt:       doc.IssuedAt,
		Total:          doc.Total,
		Subtotal:       doc.Subtotal,
		Currency:       doc.Currency,
		IssuerRFC:      strings.TrimSpace(doc.IssuerRFC),
		IssuerName:     strings.TrimSpace(doc.IssuerName),
		TaxRegime:      doc.TaxRegime,
		SATSeal:        doc.SATSeal,
		SATCertificate: doc.SATCertificate,
		Concept:        cleanConcept(firstConceptDescription(doc)),
		Description:    buildDescription(doc),
		StampedAt:      doc.StampedAt,
		InvoiceMonth:   int(now.Month()),
		InvoiceYear:    now.Year(),
		FiscalYear:     now.Year(),
	}

	if doc.IssuedAt != nil {
		invoice.InvoiceMonth = int(doc.IssuedAt.Month())
		invoice.InvoiceYear = doc.IssuedAt.Year()
	}

	return invoice, nil
}

func firstConceptDescription(doc *Document) string {
	if len(doc.Concepts) == 0 {
		return ""
	}
	return doc.Concepts[0].Description
}

// cleanConcept fits a line item description into the concepto column.
func cleanConcept(concept string) string {
	if concept == "" {
		return fallbackConcept
	}

	if len(concept) > maxConceptLen {
		concept = concept[:maxConceptLen-3] + "..."
	}

	concept = strings.ReplaceAll(concept, `"`, "'")
	concept = strings.ReplaceAll(concept, "\n", " ")
	concept = strings.ReplaceAll(concept, "\r", " ")
	for strings.Contains(concept, "  ") {
		concept = strings.ReplaceAll(concept, "  ", " ")
	}

	concept = strings.TrimSpace(concept)
	if concept == "" {
		return fallbackConcept
	}
	return concept
}

// buildDescription renders the markdown summary stored alongside the row so
// reviewers can read the invoice without opening the XML.
func buildDescription(doc *Document) string {
	var b strings.Builder

	b.WriteString("# Datos del CFDI\n")
	b.WriteString("## EMISOR\n")
	fmt.Fprintf(&b, "- **Nombre:** %s\n", orNA(doc.IssuerName))
	fmt.Fprintf(&b, "- **RFC:** %s\n", orNA(doc.IssuerRFC))
	fmt.Fprintf(&b, "- **Régimen Fiscal:** %d\n\n", doc.TaxRegime)

	if doc.ReceiverName != "" {
		b.WriteString("## RECEPTOR\n")
		fmt.Fprintf(&b, "- **Nombre:** %s\n", doc.ReceiverName)
		fmt.Fprintf(&b, "- **RFC:** %s\n\n", orNA(doc.ReceiverRFC))
	}

	b.WriteString("## DATOS GENERALES DEL CFDI\n")
	fmt.Fprintf(&b, "- **Folio:** %s\n", orNA(doc.Folio))
	if doc.IssuedAt != nil {
		fmt.Fprintf(&b, "- **Fecha de Emisión:** %s\n", doc.IssuedAt.Format("2006-01-02 15:04:05"))
	} else {
		b.WriteString("- **Fecha de Emisión:** N/A\n")
	}
	fmt.Fprintf(&b, "- **UUID:** %s\n", doc.UUID)
	fmt.Fprintf(&b, "- **Moneda:** %s\n\n", orNA(doc.Currency))

	if len(doc.Concepts) > 0 {
		b.WriteString("## CONCEPTOS\n")
		b.WriteString("| **Cantidad** | **Descripción** | **Valor Unitario** | **Importe** |\n")
		b.WriteString("|--------------|-----------------|-------------------|-------------|\n")

		shown := doc.Concepts
		if len(shown) > maxDescribedLines {
			shown = shown[:maxDescribedLines]
		}
		for _, c := range shown {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				orNA(c.Quantity), orNA(c.Description), orNA(c.UnitValue), orNA(c.Amount))
		}
		if hidden := len(doc.Concepts) - maxDescribedLines; hidden > 0 {
			fmt.Fprintf(&b, "| ... | ... | ... | ... | (+%d más) |\n", hidden)
		}
		b.WriteString("\n")
	}

	b.WriteString("## TOTALES\n")
	fmt.Fprintf(&b, "- **Subtotal:** %s\n", doc.Subtotal.StringFixed(2))
	if doc.TotalTaxes.IsPositive() {
		fmt.Fprintf(&b, "- **IVA Traslados:** %s\n", doc.TotalTaxes.StringFixed(2))
	}
	if doc.TotalWithheld.IsPositive() {
		fmt.Fprintf(&b, "- **Retenciones:** %s\n", doc.TotalWithheld.StringFixed(2))
	}
	fmt.Fprintf(&b, "- **Total:** %s\n", doc.Total.StringFixed(2))

	return b.String()
}

func orNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return "N/A"
	}
	return value
}
