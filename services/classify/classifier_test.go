package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Jereff77/SPHCFDIs/internal/enum"
	"github.com/Jereff77/SPHCFDIs/internal/models"
)

func newTestClassifier() *Classifier {
	return NewClassifier([]string{"@bb.com.mx", "@bb.com"})
}

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		from     string
		xml      bool
		expected enum.DocumentClass
	}{
		{
			name:     "full SPEI transfer phrase",
			subject:  "Notificación de Transferencia Interbancaria SPEI",
			from:     "notificaciones@bb.com.mx",
			expected: enum.DocumentClassTransfer,
		},
		{
			name:     "transfer without spei keyword",
			subject:  "Comprobante de transferencia interbancaria",
			from:     "notificaciones@bb.com.mx",
			expected: enum.DocumentClassTransfer,
		},
		{
			name:     "spei and transferencia apart",
			subject:  "SPEI: se registró una transferencia a tu favor",
			from:     "avisos@otrobanco.com",
			expected: enum.DocumentClassTransfer,
		},
		{
			name:     "deposit instruction",
			subject:  "Instrucción de depósito a tu cuenta",
			from:     "notificaciones@bb.com.mx",
			expected: enum.DocumentClassDeposit,
		},
		{
			name:     "deposit mentioning spei is still a transfer",
			subject:  "Instrucción de depósito a tu cuenta por transferencia SPEI",
			from:     "notificaciones@bb.com.mx",
			expected: enum.DocumentClassTransfer,
		},
		{
			name:     "bank sender outranks xml attachment",
			subject:  "Estado de cuenta",
			from:     "avisos@bb.com.mx",
			xml:      true,
			expected: enum.DocumentClassBankGeneric,
		},
		{
			name:     "xml attachment from a non-bank sender",
			subject:  "Factura del mes",
			from:     "facturacion@proveedor.mx",
			xml:      true,
			expected: enum.DocumentClassInvoice,
		},
		{
			name:     "bank sender with unknown subject",
			subject:  "Estado de cuenta disponible",
			from:     "avisos@bb.com",
			expected: enum.DocumentClassBankGeneric,
		},
		{
			name:     "bank sender short domain",
			subject:  "Aviso importante",
			from:     "Avisos@BB.com.mx",
			expected: enum.DocumentClassBankGeneric,
		},
		{
			name:     "anything else",
			subject:  "Re: comida del viernes",
			from:     "amigo@example.com",
			expected: enum.DocumentClassUnclassified,
		},
	}

	c := newTestClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &models.InboundMessage{
				Subject:     tt.subject,
				FromAddress: tt.from,
			}
			if tt.xml {
				msg.Attachments = []models.MessageAttachment{
					{Filename: "factura.xml", ContentType: "application/xml", Content: []byte("<x/>")},
				}
			}
			assert.Equal(t, tt.expected, c.ClassifyMessage(msg))
		})
	}
}

func TestClassifyMessageDecodesRawSubject(t *testing.T) {
	c := newTestClassifier()

	// "Transferencia Interbancaria SPEI" in an encoded word
	msg := &models.InboundMessage{
		RawSubject:  "=?UTF-8?B?VHJhbnNmZXJlbmNpYSBJbnRlcmJhbmNhcmlhIFNQRUk=?=",
		FromAddress: "notificaciones@bb.com.mx",
	}
	assert.Equal(t, enum.DocumentClassTransfer, c.ClassifyMessage(msg))
}

func TestDecodeSubject(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "plain ascii passes through",
			raw:      "Instrucción de depósito a tu cuenta",
			expected: "Instrucción de depósito a tu cuenta",
		},
		{
			name:     "utf-8 base64 encoded word",
			raw:      "=?UTF-8?B?SW5zdHJ1Y2Npw7NuIGRlIGRlcMOzc2l0bw==?=",
			expected: "Instrucción de depósito",
		},
		{
			name:     "quoted printable encoded word",
			raw:      "=?utf-8?Q?Notificaci=C3=B3n?=",
			expected: "Notificación",
		},
		{
			name:     "broken encoding falls back to raw",
			raw:      "=?x-nonsense?B?????=",
			expected: "=?x-nonsense?B?????=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DecodeSubject(tt.raw))
		})
	}
}
