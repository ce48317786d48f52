package imap

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"github.com/opentracing/opentracing-go"

	"github.com/Jereff77/SPHCFDIs/internal/models"
	"github.com/Jereff77/SPHCFDIs/internal/tracing"
)

// FetchUnseen returns every unseen inbox message, most recent first. Bodies
// are fetched with BODY.PEEK so the \Seen flag stays untouched until the
// processor decides the message's fate.
func (c *Client) FetchUnseen(ctx context.Context) ([]*models.InboundMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "imapClient.FetchUnseen")
	defer span.Finish()
	tracing.TagComponentImap(span)

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureConnected(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if err := c.selectInbox(conn); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	conn.Timeout = commandTimeout
	uids, err := conn.UidSearch(criteria)
	conn.Timeout = 0
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to search unseen messages: %w", err)
	}

	// Newest first, so fresh notifications land before a backlog is drained.
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	span.SetTag("unseen.count", len(uids))

	var messages []*models.InboundMessage
	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return messages, err
		}

		msg, err := c.fetchMessage(conn, uid)
		if err != nil {
			c.log.Errorf("Error fetching message %d: %v", uid, err)
			continue
		}
		messages = append(messages, msg)
	}

	c.log.Infof("Found %d unseen messages", len(messages))
	return messages, nil
}

func (c *Client) fetchMessage(conn *client.Client, uid uint32) (*models.InboundMessage, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchEnvelope, imap.FetchUid}

	ch := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- conn.UidFetch(seqSet, items, ch)
	}()

	raw := <-ch
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message %d: %w", uid, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("message %d not returned by server", uid)
	}

	body := raw.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message %d has no body section", uid)
	}

	envelope, err := enmime.ReadEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %d: %w", uid, err)
	}

	msg := &models.InboundMessage{
		UID:         uid,
		Subject:     envelope.GetHeader("Subject"),
		FromAddress: parseFromAddress(envelope.GetHeader("From")),
		BodyText:    envelope.Text,
		BodyHTML:    envelope.HTML,
	}
	if raw.Envelope != nil {
		msg.RawSubject = raw.Envelope.Subject
	}
	if msg.RawSubject == "" {
		msg.RawSubject = msg.Subject
	}

	for _, part := range envelope.Attachments {
		msg.Attachments = append(msg.Attachments, models.MessageAttachment{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Content:     part.Content,
		})
	}
	// Some senders attach the CFDI XML inline instead of as an attachment.
	for _, part := range envelope.Inlines {
		if part.FileName == "" {
			continue
		}
		msg.Attachments = append(msg.Attachments, models.MessageAttachment{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Content:     part.Content,
		})
	}

	return msg, nil
}

func parseFromAddress(header string) string {
	if header == "" {
		return ""
	}
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return strings.TrimSpace(header)
	}
	return addr.Address
}

// MarkSeen flags a message as read without moving it.
func (c *Client) MarkSeen(ctx context.Context, uid uint32) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "imapClient.MarkSeen")
	defer span.Finish()
	tracing.TagComponentImap(span)
	span.SetTag(tracing.SpanTagMessageUID, uid)

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

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}

	conn.Timeout = commandTimeout
	err = conn.UidStore(seqSet, item, flags, nil)
	conn.Timeout = 0
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to mark message %d as seen: %w", uid, err)
	}
	return nil
}
