package models

import "strings"

// InboundMessage is a transient, fully fetched email. It never touches the
// database; the processor extracts ledger rows from it and discards it.
type InboundMessage struct {
	UID         uint32
	RawSubject  string
	Subject     string
	FromAddress string
	BodyText    string
	BodyHTML    string
	Attachments []MessageAttachment
}

type MessageAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// XMLAttachments returns the attachments that look like CFDI XML files.
func (m *InboundMessage) XMLAttachments() []MessageAttachment {
	var out []MessageAttachment
	for _, a := range m.Attachments {
		name := strings.ToLower(a.Filename)
		if strings.HasSuffix(name, ".xml") || strings.Contains(a.ContentType, "xml") {
			out = append(out, a)
		}
	}
	return out
}

// HasXMLAttachment reports whether the message carries at least one CFDI
// candidate attachment.
func (m *InboundMessage) HasXMLAttachment() bool {
	return len(m.XMLAttachments()) > 0
}
