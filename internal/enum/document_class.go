package enum

// DocumentClass identifies what kind of bank notification an inbound email is.
type DocumentClass string

const (
	DocumentClassInvoice      DocumentClass = "invoice"
	DocumentClassDeposit      DocumentClass = "deposit"
	DocumentClassTransfer     DocumentClass = "transfer"
	DocumentClassBankGeneric  DocumentClass = "bank_generic"
	DocumentClassUnclassified DocumentClass = "unclassified"
)

func (e DocumentClass) String() string {
	return string(e)
}
