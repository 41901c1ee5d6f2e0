// Package notify publishes batch events to NATS JetStream.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
)

// Publisher sends one message to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Options configure a JetStream connection.
type Options struct {
	URL           string
	SubjectPrefix string
	Stream        string
}

// Client is a JetStream-backed Publisher.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// Connect dials NATS and makes sure a stream captures prefix.>.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	conn, err := nats.Connect(opts.URL, nats.Name("staticboot"))
	if err != nil {
		return nil, ferrors.MessagingError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", opts.URL).
			Build()
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, ferrors.MessagingError("failed to create JetStream context").WithCause(err).Build()
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        opts.Stream,
		Description: "staticboot batch events",
		Subjects:    []string{opts.SubjectPrefix + ".>"},
		MaxAge:      7 * 24 * time.Hour,
	}); err != nil {
		conn.Close()
		return nil, ferrors.MessagingError("failed to ensure JetStream stream").
			WithCause(err).
			WithContext("stream", opts.Stream).
			Build()
	}

	slog.Info("NATS client initialized for batch notifications",
		"url", opts.URL,
		"subject", opts.SubjectPrefix,
		"stream", opts.Stream)
	return &Client{conn: conn, js: js}, nil
}

// Publish sends data and waits for the stream acknowledgement.
func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := c.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Drain()
}
