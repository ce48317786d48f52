package processor

import (
	"context"
	"sync/atomic"

	"github.com/opentracing/opentracing-go"

	"github.com/Jereff77/SPHCFDIs/config"
	"github.com/Jereff77/SPHCFDIs/interfaces"
	"github.com/Jereff77/SPHCFDIs/internal/enum"
	"github.com/Jereff77/SPHCFDIs/internal/logger"
	"github.com/Jereff77/SPHCFDIs/internal/models"
	"github.com/Jereff77/SPHCFDIs/internal/tracing"
	"github.com/Jereff77/SPHCFDIs/services/cfdi"
	"github.com/Jereff77/SPHCFDIs/services/classify"
	"github.com/Jereff77/SPHCFDIs/services/extract"
	"github.com/Jereff77/SPHCFDIs/services/ledger"
)

// Processor drains the inbox: each unseen message is classified, its payload
// extracted and pushed into the ledger, and the message itself filed into the
// folder that matches its outcome.
type Processor struct {
	cfg     *config.ProcessorConfig
	log     logger.Logger
	mailbox interfaces.MailboxClient

	classifier *classify.Classifier
	deposits   *extract.DepositExtractor
	transfers  *extract.TransferExtractor
	cfdiParser *cfdi.Parser
	ledger     *ledger.Coordinator

	movements interfaces.BankMovementRepository
	invoices  interfaces.InvoiceRepository

	running atomic.Bool
}

func NewProcessor(
	cfg *config.ProcessorConfig,
	log logger.Logger,
	mailbox interfaces.MailboxClient,
	movements interfaces.BankMovementRepository,
	invoices interfaces.InvoiceRepository,
) *Processor {
	return &Processor{
		cfg:        cfg,
		log:        log,
		mailbox:    mailbox,
		classifier: classify.NewClassifier(cfg.BankDomains),
		deposits:   extract.NewDepositExtractor(log),
		transfers:  extract.NewTransferExtractor(log),
		cfdiParser: cfdi.NewParser(log),
		ledger:     ledger.NewCoordinator(log, movements, invoices),
		movements:  movements,
		invoices:   invoices,
	}
}

// EnsureFolders creates the destination folders ahead of processing. A
// failure downgrades to a warning; affected messages just stay in the inbox.
func (p *Processor) EnsureFolders(ctx context.Context) {
	for _, folder := range []string{p.cfg.ProcessedFolder, p.cfg.BankFolder, p.cfg.OtherFolder} {
		if err := p.mailbox.EnsureFolder(ctx, folder); err != nil {
			p.log.Warnf("Could not ensure folder %s, affected messages will stay in INBOX: %v", folder, err)
		}
	}
}

// TestConnections verifies both the IMAP account and the ledger database
// answer before the polling loop starts.
func (p *Processor) TestConnections(ctx context.Context) error {
	if err := p.mailbox.TestConnection(ctx); err != nil {
		return err
	}
	if _, err := p.movements.Count(ctx); err != nil {
		return err
	}
	p.log.Infof("All connections verified")
	return nil
}

// ProcessBatch fetches and processes every unseen message once.
func (p *Processor) ProcessBatch(ctx context.Context) (*Stats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processor.ProcessBatch")
	defer span.Finish()
	tracing.TagComponentService(span)

	stats := &Stats{}

	messages, err := p.mailbox.FetchUnseen(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		stats.Errors++
		return stats, err
	}
	stats.EmailsProcessed = len(messages)

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.merge(p.processMessage(ctx, msg))
	}

	p.logSummary(stats)
	return stats, nil
}

func (p *Processor) processMessage(ctx context.Context, msg *models.InboundMessage) Stats {
	span, ctx := opentracing.StartSpanFromContext(ctx, "processor.processMessage")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag(tracing.SpanTagMessageUID, msg.UID)

	var stats Stats

	class := p.classifier.ClassifyMessage(msg)
	span.SetTag("document.class", class.String())
	p.log.Infof("Analyzing message: %s from %s (%s)", msg.Subject, msg.FromAddress, class)

	switch class {
	case enum.DocumentClassTransfer:
		p.processTransfer(ctx, msg, &stats)
	case enum.DocumentClassDeposit:
		p.processDeposit(ctx, msg, &stats)
	case enum.DocumentClassInvoice:
		p.processInvoice(ctx, msg, &stats)
	case enum.DocumentClassBankGeneric:
		p.processBankGeneric(ctx, msg, &stats)
	default:
		p.processUnclassified(ctx, msg, &stats)
	}

	return stats
}

func (p *Processor) processTransfer(ctx context.Context, msg *models.InboundMessage, stats *Stats) {
	stats.TransferEmailsFound = 1

	movement, err := p.transfers.Extract(msg)
	if err != nil {
		// Rejected; the message stays unseen in the inbox for review.
		p.log.Errorf("Error processing transfer email %q: %v", msg.Subject, err)
		stats.Errors++
		return
	}
	stats.TransferEmailsProcessed = 1

	outcome, err := p.ledger.UpsertMovement(ctx, movement)
	switch outcome {
	case enum.OutcomeInserted:
		stats.TransfersInserted = 1
		stats.Errors += p.fileMovement(ctx, msg, false)
	case enum.OutcomeDuplicate:
		stats.TransferDuplicates = 1
		stats.Errors += p.fileMovement(ctx, msg, true)
	default:
		p.log.Errorf("Error inserting transfer %s: %v", movement.TrackingKey, err)
		stats.Errors++
	}
}

func (p *Processor) processDeposit(ctx context.Context, msg *models.InboundMessage, stats *Stats) {
	stats.DepositEmailsFound = 1

	movement, err := p.deposits.Extract(msg)
	if err != nil {
		p.log.Errorf("Error processing deposit email %q: %v", msg.Subject, err)
		stats.Errors++
		return
	}
	stats.DepositEmailsProcessed = 1

	outcome, err := p.ledger.UpsertMovement(ctx, movement)
	switch outcome {
	case enum.OutcomeInserted:
		stats.DepositsInserted = 1
		stats.Errors += p.fileMovement(ctx, msg, false)
	case enum.OutcomeDuplicate:
		stats.DepositDuplicates = 1
		stats.Errors += p.fileMovement(ctx, msg, true)
	default:
		p.log.Errorf("Error inserting deposit %s: %v", movement.TrackingKey, err)
		stats.Errors++
	}
}

// fileMovement marks a stored movement's email as read and moves it to the
// bank folder. A failed move is only a warning; a duplicate that cannot be
// marked read would reprocess forever, so that counts as an error.
func (p *Processor) fileMovement(ctx context.Context, msg *models.InboundMessage, duplicate bool) int {
	if err := p.mailbox.MarkSeen(ctx, msg.UID); err != nil {
		p.log.Warnf("Could not mark message as read: %q: %v", msg.Subject, err)
		if duplicate {
			return 1
		}
		return 0
	}

	if err := p.mailbox.Move(ctx, msg.UID, p.cfg.BankFolder); err != nil {
		p.log.Warnf("Could not move message to %s: %q: %v", p.cfg.BankFolder, msg.Subject, err)
	}
	return 0
}

func (p *Processor) processInvoice(ctx context.Context, msg *models.InboundMessage, stats *Stats) {
	attachments := msg.XMLAttachments()
	stats.XMLFilesFound = len(attachments)

	for _, attachment := range attachments {
		doc, err := p.cfdiParser.Parse(attachment.Content)
		if err != nil {
			p.log.Errorf("Error parsing CFDI attachment %s: %v", attachment.Filename, err)
			stats.Errors++
			continue
		}
		stats.InvoicesProcessed++

		invoice, err := cfdi.MapInvoice(doc)
		if err != nil {
			p.log.Errorf("Error mapping CFDI %s: %v", doc.UUID, err)
			stats.Errors++
			continue
		}

		outcome, err := p.ledger.UpsertInvoice(ctx, invoice)
		switch outcome {
		case enum.OutcomeInserted:
			stats.InvoicesInserted++
		case enum.OutcomeDuplicate:
			stats.DuplicatesFound++
		default:
			p.log.Errorf("Error inserting invoice %s: %v", invoice.UUID, err)
			stats.Errors++
		}
	}

	// Duplicates are not errors; only a clean run files the message away.
	if stats.Errors > 0 {
		p.log.Warnf("Message not marked as read due to %d errors: %q", stats.Errors, msg.Subject)
		return
	}

	if err := p.mailbox.MarkSeen(ctx, msg.UID); err != nil {
		p.log.Warnf("Could not mark invoice message as read: %q: %v", msg.Subject, err)
		return
	}
	if err := p.mailbox.Move(ctx, msg.UID, p.cfg.ProcessedFolder); err != nil {
		p.log.Errorf("Could not move invoice message to %s: %q: %v", p.cfg.ProcessedFolder, msg.Subject, err)
	}
}

// Generic bank correspondence is archived unread so a human still notices it.
func (p *Processor) processBankGeneric(ctx context.Context, msg *models.InboundMessage, stats *Stats) {
	stats.BankEmailsFound = 1
	stats.BankEmailsProcessed = 1
	p.log.Infof("Bank correspondence identified: %s", msg.Subject)

	if err := p.mailbox.Move(ctx, msg.UID, p.cfg.OtherFolder); err != nil {
		p.log.Warnf("Could not move bank message to %s: %q: %v", p.cfg.OtherFolder, msg.Subject, err)
		stats.Errors++
		return
	}
	stats.OthersMoved = 1
}

func (p *Processor) processUnclassified(ctx context.Context, msg *models.InboundMessage, stats *Stats) {
	p.log.Infof("Message classified as other, from %s: %s", msg.FromAddress, msg.Subject)

	if err := p.mailbox.Move(ctx, msg.UID, p.cfg.OtherFolder); err != nil {
		p.log.Warnf("Could not move message to %s: %q: %v", p.cfg.OtherFolder, msg.Subject, err)
		// Mark it read so the next cycle does not pick it up again.
		if markErr := p.mailbox.MarkSeen(ctx, msg.UID); markErr != nil {
			p.log.Warnf("Could not mark message as read either: %q: %v", msg.Subject, markErr)
		}
		return
	}
	stats.OthersMoved = 1
}

func (p *Processor) logSummary(stats *Stats) {
	p.log.Infof("Processing cycle finished:")
	p.log.Infof("  - Messages processed: %d", stats.EmailsProcessed)
	p.log.Infof("  - SPEI transfers found/processed/inserted: %d/%d/%d", stats.TransferEmailsFound, stats.TransferEmailsProcessed, stats.TransfersInserted)
	p.log.Infof("  - Deposits found/processed/inserted: %d/%d/%d", stats.DepositEmailsFound, stats.DepositEmailsProcessed, stats.DepositsInserted)
	p.log.Infof("  - Bank correspondence: %d", stats.BankEmailsFound)
	p.log.Infof("  - XML files found: %d", stats.XMLFilesFound)
	p.log.Infof("  - Invoices processed/inserted: %d/%d", stats.InvoicesProcessed, stats.InvoicesInserted)
	p.log.Infof("  - Duplicates: %d", stats.DuplicatesFound+stats.DepositDuplicates+stats.TransferDuplicates)
	p.log.Infof("  - Errors: %d", stats.Errors)
}

// Status reports the processor state plus ledger totals for the status
// command.
type Status struct {
	Running          bool         `json:"running"`
	InvoicesInLedger int64        `json:"facturas_en_db"`
	Config           StatusConfig `json:"config"`
}

type StatusConfig struct {
	PollingInterval     int    `json:"polling_interval"`
	PollingIntervalIdle int    `json:"polling_interval_idle"`
	ProcessedFolder     string `json:"processed_folder"`
	BankFolder          string `json:"bank_folder"`
	OtherFolder         string `json:"other_folder"`
}

func (p *Processor) Status(ctx context.Context) (*Status, error) {
	count, err := p.invoices.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &Status{
		Running:          p.running.Load(),
		InvoicesInLedger: count,
		Config: StatusConfig{
			PollingInterval:     p.cfg.PollingInterval,
			PollingIntervalIdle: p.cfg.PollingIntervalIdle,
			ProcessedFolder:     p.cfg.ProcessedFolder,
			BankFolder:          p.cfg.BankFolder,
			OtherFolder:         p.cfg.OtherFolder,
		},
	}, nil
}

func (p *Processor) setRunning(running bool) {
	p.running.Store(running)
}
