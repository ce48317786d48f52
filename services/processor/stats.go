package processor

// Stats accumulates one processing run's counters. JSON names match the keys
// the status endpoint consumers already scrape.
type Stats struct {
	EmailsProcessed         int `json:"emails_processed"`
	XMLFilesFound           int `json:"xml_files_found"`
	InvoicesProcessed       int `json:"facturas_processed"`
	InvoicesInserted        int `json:"facturas_inserted"`
	DuplicatesFound         int `json:"duplicates_found"`
	BankEmailsFound         int `json:"bank_emails_found"`
	BankEmailsProcessed     int `json:"bank_emails_processed"`
	DepositEmailsFound      int `json:"deposit_emails_found"`
	DepositEmailsProcessed  int `json:"deposit_emails_processed"`
	DepositsInserted        int `json:"deposit_inserted"`
	DepositDuplicates       int `json:"deposit_duplicates"`
	TransferEmailsFound     int `json:"transfer_emails_found"`
	TransferEmailsProcessed int `json:"transfer_emails_processed"`
	TransfersInserted       int `json:"transfer_inserted"`
	TransferDuplicates      int `json:"transfer_duplicates"`
	OthersMoved             int `json:"otros_moved"`
	Errors                  int `json:"errors"`
}

func (s *Stats) merge(other Stats) {
	s.XMLFilesFound += other.XMLFilesFound
	s.InvoicesProcessed += other.InvoicesProcessed
	s.InvoicesInserted += other.InvoicesInserted
	s.DuplicatesFound += other.DuplicatesFound
	s.BankEmailsFound += other.BankEmailsFound
	s.BankEmailsProcessed += other.BankEmailsProcessed
	s.DepositEmailsFound += other.DepositEmailsFound
	s.DepositEmailsProcessed += other.DepositEmailsProcessed
	s.DepositsInserted += other.DepositsInserted
	s.DepositDuplicates += other.DepositDuplicates
	s.TransferEmailsFound += other.TransferEmailsFound
	s.TransferEmailsProcessed += other.TransferEmailsProcessed
	s.TransfersInserted += other.TransfersInserted
	s.TransferDuplicates += other.TransferDuplicates
	s.OthersMoved += other.OthersMoved
	s.Errors += other.Errors
}

// hadActivity reports whether the run saw any unseen mail, which resets the
// idle backoff.
func (s *Stats) hadActivity() bool {
	return s.EmailsProcessed > 0
}
