package enum

// Outcome is the result of pushing an extracted record into the ledger.
type Outcome string

const (
	OutcomeInserted       Outcome = "inserted"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeRejected       Outcome = "rejected"
	OutcomeTransportError Outcome = "transport_error"
)

func (e Outcome) String() string {
	return string(e)
}
