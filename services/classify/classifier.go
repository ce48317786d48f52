package classify

import (
	"mime"
	"strings"

	"github.com/Jereff77/SPHCFDIs/internal/enum"
	"github.com/Jereff77/SPHCFDIs/internal/models"
)

const depositSubjectPhrase = "Instrucción de depósito a tu cuenta"

// Classifier decides which pipeline an inbound email belongs to, based on its
// decoded subject, its sender domain and whether it carries CFDI attachments.
type Classifier struct {
	bankDomains []string
}

func NewClassifier(bankDomains []string) *Classifier {
	return &Classifier{bankDomains: bankDomains}
}

// DecodeSubject decodes an RFC 2047 encoded header value. Any decoding error
// leaves the raw header untouched so classification can still run on it.
func DecodeSubject(raw string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ClassifyMessage runs the full priority chain on a fetched message.
// Transfer detection runs before deposit detection; both share the SPEI
// vocabulary and a deposit email also mentions transfers. Bank senders
// outrank the attachment check, so bank mail never enters the CFDI path.
func (c *Classifier) ClassifyMessage(msg *models.InboundMessage) enum.DocumentClass {
	subject := msg.Subject
	if subject == "" {
		subject = DecodeSubject(msg.RawSubject)
	}

	if IsTransferSubject(subject) {
		return enum.DocumentClassTransfer
	}
	if IsDepositSubject(subject) {
		return enum.DocumentClassDeposit
	}
	if c.isBankSender(msg.FromAddress) {
		return enum.DocumentClassBankGeneric
	}
	if msg.HasXMLAttachment() {
		return enum.DocumentClassInvoice
	}
	return enum.DocumentClassUnclassified
}

// IsTransferSubject reports whether a decoded subject announces an interbank
// SPEI transfer.
func IsTransferSubject(subject string) bool {
	s := strings.ToLower(subject)
	return strings.Contains(s, "transferencia interbancaria spei") ||
		strings.Contains(s, "transferencia interbancaria") ||
		(strings.Contains(s, "spei") && strings.Contains(s, "transferencia"))
}

// IsDepositSubject reports whether a decoded subject announces a deposit
// instruction. The bank emits the phrase with fixed casing, so the match is
// case-sensitive on the canonical form.
func IsDepositSubject(subject string) bool {
	return strings.Contains(subject, depositSubjectPhrase)
}

func (c *Classifier) isBankSender(from string) bool {
	addr := strings.ToLower(strings.TrimSpace(from))
	for _, domain := range c.bankDomains {
		if strings.HasSuffix(addr, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}
