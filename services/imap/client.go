package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"
	"github.com/opentracing/opentracing-go"

	"github.com/Jereff77/SPHCFDIs/config"
	"github.com/Jereff77/SPHCFDIs/internal/logger"
	"github.com/Jereff77/SPHCFDIs/internal/tracing"
)

const (
	inboxFolder    = "INBOX"
	dialTimeout    = 30 * time.Second
	commandTimeout = 30 * time.Second
	logoutTimeout  = 5 * time.Second
)

// Client is a single-account IMAP connection. All operations run against the
// configured account's inbox; a broken connection is re-established on the
// next call.
type Client struct {
	cfg *config.IMAPConfig
	log logger.Logger

	mu   sync.Mutex
	conn *client.Client
}

func NewClient(cfg *config.IMAPConfig, log logger.Logger) *Client {
	return &Client{cfg: cfg, log: log}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "imapClient.Connect")
	defer span.Finish()
	tracing.TagComponentImap(span)
	span.SetTag("server", c.cfg.Server)
	span.SetTag("port", c.cfg.Port)
	span.SetTag("tls", c.cfg.TLS)

	serverAddr := fmt.Sprintf("%s:%d", c.cfg.Server, c.cfg.Port)

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: dialTimeout,
	}

	var conn *client.Client
	var err error

	if c.cfg.TLS {
		tlsConfig := &tls.Config{ServerName: c.cfg.Server}
		conn, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	} else {
		conn, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	conn.Timeout = commandTimeout
	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		conn.Logout()
		tracing.TraceErr(span, err)
		return fmt.Errorf("failed to login as %s: %w", c.cfg.Username, err)
	}
	conn.Timeout = 0

	c.conn = conn
	c.log.Infof("Connected and logged in to %s", serverAddr)
	return nil
}

// ensureConnected returns a live connection, reconnecting when the existing
// one no longer answers a NOOP.
func (c *Client) ensureConnected(ctx context.Context) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.conn != nil {
		if err := c.conn.Noop(); err == nil {
			return c.conn, nil
		}
		c.log.Warnf("Existing IMAP connection is broken, reconnecting")
		c.conn = nil
	}

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}
	return c.conn, nil
}

func (c *Client) selectInbox(conn *client.Client) error {
	conn.Timeout = commandTimeout
	_, err := conn.Select(inboxFolder, false)
	conn.Timeout = 0
	if err != nil {
		return fmt.Errorf("failed to select %s: %w", inboxFolder, err)
	}
	return nil
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return
	}
	conn := c.conn
	c.conn = nil

	conn.Timeout = logoutTimeout
	done := make(chan error, 1)
	go func() {
		done <- conn.Logout()
	}()

	select {
	case err := <-done:
		if err != nil {
			c.log.Warnf("Error during logout: %v", err)
		} else {
			c.log.Infof("Logged out from IMAP server")
		}
	case <-time.After(logoutTimeout):
		c.log.Warnf("Logout timed out")
	}
}

// TestConnection verifies the account is reachable and the inbox selectable.
func (c *Client) TestConnection(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "imapClient.TestConnection")
	defer span.Finish()
	tracing.TagComponentImap(span)

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
	return nil
}
