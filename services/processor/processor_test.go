package processor

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jereff77/SPHCFDIs/config"
	"github.com/Jereff77/SPHCFDIs/internal/logger"
	"github.com/Jereff77/SPHCFDIs/internal/models"
)

type fakeMailbox struct {
	unseen   []*models.InboundMessage
	fetchErr error
	moveErr  error
	markErr  error

	seen    []uint32
	moved   map[uint32]string
	folders []string
}

func newFakeMailbox(unseen ...*models.InboundMessage) *fakeMailbox {
	return &fakeMailbox{unseen: unseen, moved: map[uint32]string{}}
}

func (m *fakeMailbox) Connect(ctx context.Context) error        { return nil }
func (m *fakeMailbox) Disconnect()                              {}
func (m *fakeMailbox) TestConnection(ctx context.Context) error { return nil }

func (m *fakeMailbox) EnsureFolder(ctx context.Context, name string) error {
	m.folders = append(m.folders, name)
	return nil
}

func (m *fakeMailbox) FetchUnseen(ctx context.Context) ([]*models.InboundMessage, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.unseen, nil
}

func (m *fakeMailbox) MarkSeen(ctx context.Context, uid uint32) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.seen = append(m.seen, uid)
	return nil
}

func (m *fakeMailbox) Move(ctx context.Context, uid uint32, folder string) error {
	if m.moveErr != nil {
		return m.moveErr
	}
	m.moved[uid] = folder
	return nil
}

type fakeMovementRepo struct {
	byKey     map[string]*models.BankMovement
	createErr error
}

func newFakeMovementRepo() *fakeMovementRepo {
	return &fakeMovementRepo{byKey: map[string]*models.BankMovement{}}
}

func (r *fakeMovementRepo) GetByTrackingKey(ctx context.Context, trackingKey string) (*models.BankMovement, error) {
	return r.byKey[trackingKey], nil
}

func (r *fakeMovementRepo) Create(ctx context.Context, movement *models.BankMovement) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.byKey[movement.TrackingKey] = movement
	return nil
}

func (r *fakeMovementRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.byKey)), nil
}

type fakeInvoiceRepo struct {
	byUUID map[string]*models.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{byUUID: map[string]*models.Invoice{}}
}

func (r *fakeInvoiceRepo) GetByUUID(ctx context.Context, uuid string) (*models.Invoice, error) {
	return r.byUUID[uuid], nil
}

func (r *fakeInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	r.byUUID[invoice.UUID] = invoice
	return nil
}

func (r *fakeInvoiceRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.byUUID)), nil
}

func testLogger() logger.Logger {
	l := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	l.InitLogger()
	return l
}

func testProcessorConfig() *config.ProcessorConfig {
	return &config.ProcessorConfig{
		PollingInterval:     60,
		PollingIntervalIdle: 300,
		IdleCycleThreshold:  3,
		ProcessedFolder:     "procesados",
		BankFolder:          "BanBajio",
		OtherFolder:         "BanBajio/otros",
		BankDomains:         []string{"@bb.com.mx", "@bb.com"},
	}
}

func depositMessage(uid uint32, trackingKey string) *models.InboundMessage {
	return &models.InboundMessage{
		UID:         uid,
		Subject:     "Instrucción de depósito a tu cuenta",
		FromAddress: "notificaciones@bb.com.mx",
		BodyText: "Hola CLIENTE\n" +
			"Fecha de Operación: 22-Dic-2025\n" +
			"Cuenta Destino:\t0123456789\tNombre del Ordenante:\tACME SA\t" +
			"Banco Emisor:\tBANORTE\tImporte:\t$ 1,000.00 MN\t" +
			"Concepto de Pago:\tPAGO\tClave de Rastreo:\t" + trackingKey + "\n",
	}
}

func transferMessage(uid uint32, trackingKey string) *models.InboundMessage {
	return &models.InboundMessage{
		UID:         uid,
		Subject:     "Transferencia Interbancaria SPEI",
		FromAddress: "notificaciones@bb.com.mx",
		BodyText: "Fecha de Operación: 05-Ene-2026\n" +
			"Importe: $ 500.00 MN\n" +
			"Clave de Rastreo: " + trackingKey + "\n",
	}
}

func TestProcessBatchDepositInserted(t *testing.T) {
	mailbox := newFakeMailbox(depositMessage(7, "BNET01002512150049564834"))
	movements := newFakeMovementRepo()
	p := NewProcessor(testProcessorConfig(), testLogger(), mailbox, movements, newFakeInvoiceRepo())

	stats, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.EmailsProcessed)
	assert.Equal(t, 1, stats.DepositEmailsFound)
	assert.Equal(t, 1, stats.DepositEmailsProcessed)
	assert.Equal(t, 1, stats.DepositsInserted)
	assert.Equal(t, 0, stats.Errors)

	assert.Contains(t, mailbox.seen, uint32(7))
	assert.Equal(t, "BanBajio", mailbox.moved[7])
	assert.Contains(t, movements.byKey, "BNET01002512150049564834")
}

func TestProcessBatchTransferDuplicate(t *testing.T) {
	mailbox := newFakeMailbox(transferMessage(9, "BB1738120020753"))
	movements := newFakeMovementRepo()
	movements.byKey["BB1738120020753"] = &models.BankMovement{TrackingKey: "BB1738120020753"}
	p := NewProcessor(testProcessorConfig(), testLogger(), mailbox, movements, newFakeInvoiceRepo())

	stats, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TransferEmailsFound)
	assert.Equal(t, 1, stats.TransferEmailsProcessed)
	assert.Equal(t, 0, stats.TransfersInserted)
	assert.Equal(t, 1, stats.TransferDuplicates)
	assert.Equal(t, 0, stats.Errors)

	// Duplicates still get filed away to break the reprocessing cycle.
	assert.Contains(t, mailbox.seen, uint32(9))
	assert.Equal(t, "BanBajio", mailbox.moved[9])
}

func TestProcessBatchRejectedStaysUntouched(t *testing.T) {
	msg := transferMessage(11, "")
	msg.BodyText = "Importe: $ 100.00 MN\nSin clave de rastreo\n"
	mailbox := newFakeMailbox(msg)
	p := NewProcessor(testProcessorConfig(), testLogger(), mailbox, newFakeMovementRepo(), newFakeInvoiceRepo())

	stats, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TransferEmailsFound)
	assert.Equal(t, 0, stats.TransferEmailsProcessed)
	assert.Equal(t, 1, stats.Errors)

	// The message keeps its unseen flag and inbox position for review.
	assert.Empty(t, mailbox.seen)
	assert.Empty(t, mailbox.moved)
}

func TestProcessBatchTransportErrorLeavesMessage(t *testing.T) {
	mailbox := newFakeMailbox(depositMessage(13, "BNET01002512150049564834"))
	movements := newFakeMovementRepo()
	movements.createErr = errors.New("connection reset")
	p := NewProcessor(testProcessorConfig(), testLogger(), mailbox, movements, newFakeInvoiceRepo())

	stats, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DepositEmailsProcessed)
	assert.Equal(t, 0, stats.DepositsInserted)
	assert.Equal(t, 1, stats.Errors)
	assert.Empty(t, mailbox.seen)
	assert.Empty(t, mailbox.moved)
}

func TestProcessBatchBankGenericMovedUnread(t *testing.T) {
	msg := &models.InboundMessage{
		UID:         21,
		Subject:     "Estado de cuenta disponible",
		FromAddress: "avisos@bb.com.mx",
		BodyText:    "Su estado de cuenta está disponible.",
	}
	mailbox := newFakeMailbox(msg)
	p := NewProcessor(testProcessorConfig(), testLogger(), mailbox, newFakeMovementRepo(), newFakeInvoiceRepo())

	stats, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.BankEmailsFound)
	assert.Equal(t, 1, stats.OthersMoved)
	assert.Empty(t, mailbox.seen)
	assert.Equal(t, "BanBajio/otros", mailbox.moved[21])
}

func TestProcessBatchUnclassifiedMoveFailureMarksRead(t *testing.T) {
	msg := &models.InboundMessage{
		UID:         23,
		Subject:     "Oferta de temporada",
		FromAddress: "promo@example.com",
		BodyText:    "Compre ahora",
	}
	mailbox := newFakeMailbox(msg)
	mailbox.moveErr = errors.New("no such folder")
	p := NewProcessor(testProcessorConfig(), testLogger(), mailbox, newFakeMovementRepo(), newFakeInvoiceRepo())

	stats, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.OthersMoved)
	// Marked read in place so the next cycle skips it.
	assert.Contains(t, mailbox.seen, uint32(23))
}

const testCFDI = `<?xml version="1.0" encoding="UTF-8"?>
<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4"
    xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital"
    Version="4.0" Folio="77" Fecha="2025-11-03T09:00:00"
    SubTotal="100.00" Total="116.00" Moneda="MXN">
  <cfdi:Emisor Rfc="AAA010101AAA" Nombre="EMISOR SA" RegimenFiscal="601"/>
  <cfdi:Receptor Rfc="BBB020202BBB" Nombre="RECEPTOR SA"/>
  <cfdi:Conceptos>
    <cfdi:Concepto Cantidad="1" Descripcion="Servicio" ValorUnitario="100.00" Importe="100.00"/>
  </cfdi:Conceptos>
  <cfdi:Complemento>
    <tfd:TimbreFiscalDigital UUID="DDDD4444-EEEE-5555-FFFF-666677778888"
        FechaTimbrado="2025-11-03T09:01:00" SelloSAT="selloXYZ"/>
  </cfdi:Complemento>
</cfdi:Comprobante>`

func invoiceMessage(uid uint32) *models.InboundMessage {
	return &models.InboundMessage{
		UID:         uid,
		Subject:     "Factura noviembre",
		FromAddress: "facturacion@proveedor.mx",
		BodyText:    "Adjunto factura",
		Attachments: []models.MessageAttachment{
			{Filename: "factura.xml", ContentType: "application/xml", Content: []byte(testCFDI)},
		},
	}
}

func TestProcessBatchInvoiceInserted(t *testing.T) {
	mailbox := newFakeMailbox(invoiceMessage(31))
	invoices := newFakeInvoiceRepo()
	p := NewProcessor(testProcessorConfig(), testLogger(), mailbox, newFakeMovementRepo(), invoices)

	stats, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.XMLFilesFound)
	assert.Equal(t, 1, stats.InvoicesProcessed)
	assert.Equal(t, 1, stats.InvoicesInserted)
	assert.Equal(t, 0, stats.Errors)

	assert.Contains(t, mailbox.seen, uint32(31))
	assert.Equal(t, "procesados", mailbox.moved[31])
	assert.Contains(t, invoices.byUUID, "DDDD4444-EEEE-5555-FFFF-666677778888")
}

func TestProcessBatchInvoiceDuplicateStillFiled(t *testing.T) {
	mailbox := newFakeMailbox(invoiceMessage(33))
	invoices := newFakeInvoiceRepo()
	invoices.byUUID["DDDD4444-EEEE-5555-FFFF-666677778888"] = &models.Invoice{UUID: "DDDD4444-EEEE-5555-FFFF-666677778888"}
	p := NewProcessor(testProcessorConfig(), testLogger(), mailbox, newFakeMovementRepo(), invoices)

	stats, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.DuplicatesFound)
	assert.Equal(t, 0, stats.InvoicesInserted)
	assert.Equal(t, 0, stats.Errors)
	assert.Contains(t, mailbox.seen, uint32(33))
	assert.Equal(t, "procesados", mailbox.moved[33])
}

func TestProcessBatchInvoiceParseErrorLeavesUnread(t *testing.T) {
	msg := invoiceMessage(35)
	msg.Attachments[0].Content = []byte("broken <")
	mailbox := newFakeMailbox(msg)
	p := NewProcessor(testProcessorConfig(), testLogger(), mailbox, newFakeMovementRepo(), newFakeInvoiceRepo())

	stats, err := p.ProcessBatch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Errors)
	assert.Empty(t, mailbox.seen)
	assert.Empty(t, mailbox.moved)
}

func TestEnsureFoldersRequestsAllDestinations(t *testing.T) {
	mailbox := newFakeMailbox()
	p := NewProcessor(testProcessorConfig(), testLogger(), mailbox, newFakeMovementRepo(), newFakeInvoiceRepo())

	p.EnsureFolders(context.Background())
	assert.Equal(t, []string{"procesados", "BanBajio", "BanBajio/otros"}, mailbox.folders)
}

func TestStatusReportsLedgerCount(t *testing.T) {
	invoices := newFakeInvoiceRepo()
	invoices.byUUID["u1"] = &models.Invoice{UUID: "u1"}
	invoices.byUUID["u2"] = &models.Invoice{UUID: "u2"}
	p := NewProcessor(testProcessorConfig(), testLogger(), newFakeMailbox(), newFakeMovementRepo(), invoices)

	status, err := p.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, int64(2), status.InvoicesInLedger)
	assert.Equal(t, "BanBajio", status.Config.BankFolder)
}
