package interfaces

import (
	"context"

	"github.com/Jereff77/SPHCFDIs/internal/models"
)

// MailboxClient is the IMAP transport used by the processor. All operations
// act on the currently selected inbox of a single account.
type MailboxClient interface {
	Connect(ctx context.Context) error
	Disconnect()
	TestConnection(ctx context.Context) error

	// EnsureFolder creates the folder when it does not exist yet.
	EnsureFolder(ctx context.Context, name string) error

	// FetchUnseen returns all unseen inbox messages, most recent first,
	// fetched without setting the \Seen flag.
	FetchUnseen(ctx context.Context) ([]*models.InboundMessage, error)

	MarkSeen(ctx context.Context, uid uint32) error
	Move(ctx context.Context, uid uint32, folder string) error
}
