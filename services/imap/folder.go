package imap

import (
	"context"
	"fmt"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/Jereff77/SPHCFDIs/internal/tracing"
)

// Folder names are configured with "/" separators (BanBajio/otros) while most
// Dovecot-style servers expose them as INBOX.BanBajio.otros. translateFolder
// produces the canonical server-side name; the List response decides which
// spelling actually exists.
func translateFolder(name string) string {
	if strings.HasPrefix(name, "INBOX.") {
		return name
	}
	return "INBOX." + strings.ReplaceAll(name, "/", ".")
}

func (c *Client) listFolders(conn *client.Client) ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	conn.Timeout = commandTimeout
	go func() {
		done <- conn.List("", "*", mailboxes)
	}()

	var folders []string
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}
	conn.Timeout = 0

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// resolveFolder maps a configured folder name onto the name the server
// reports, falling back to the canonical translation when no listing matches.
func (c *Client) resolveFolder(conn *client.Client, name string) (string, error) {
	folders, err := c.listFolders(conn)
	if err != nil {
		return "", err
	}

	want := translateFolder(name)
	for _, folder := range folders {
		if strings.EqualFold(folder, want) || strings.EqualFold(folder, name) {
			return folder, nil
		}
	}
	return want, nil
}

// EnsureFolder creates the folder when the server does not have it yet.
func (c *Client) EnsureFolder(ctx context.Context, name string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "imapClient.EnsureFolder")
	defer span.Finish()
	tracing.TagComponentImap(span)
	span.SetTag("folder.name", name)

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureConnected(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	folders, err := c.listFolders(conn)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	want := translateFolder(name)
	for _, folder := range folders {
		if strings.EqualFold(folder, want) || strings.EqualFold(folder, name) {
			return nil
		}
	}

	conn.Timeout = commandTimeout
	err = conn.Create(want)
	conn.Timeout = 0
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to create folder %s: %w", want, err)
	}

	c.log.Infof("Created folder %s", want)
	return nil
}

// Move copies a message to the target folder, then deletes and expunges the
// inbox original.
func (c *Client) Move(ctx context.Context, uid uint32, folder string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "imapClient.Move")
	defer span.Finish()
	tracing.TagComponentImap(span)
	span.SetTag(tracing.SpanTagMessageUID, uid)
	span.SetTag("folder.name", folder)

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureConnected(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if err := c.selectInbox(conn); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	target, err := c.resolveFolder(conn, folder)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	conn.Timeout = commandTimeout
	defer func() { conn.Timeout = 0 }()

	if err := conn.UidCopy(seqSet, target); err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to copy message %d to %s: %w", uid, target, err)
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.DeletedFlag}
	if err := conn.UidStore(seqSet, item, flags, nil); err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to flag message %d as deleted: %w", uid, err)
	}

	if err := conn.Expunge(nil); err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to expunge after moving message %d: %w", uid, err)
	}

	c.log.Infof("Moved message %d to %s", uid, target)
	return nil
}
