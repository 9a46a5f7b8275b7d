package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Config is fixed at construction; the dispatcher never mutates it.
type Config struct {
	APIKey  string
	From    string
	Timeout time.Duration
}

type Message struct {
	To      []string
	From    string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers a fully populated message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

type Dispatcher struct {
	cfg       Config
	transport Transport
	log       *zap.Logger
}

func New(cfg Config, transport Transport, log *zap.Logger) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{cfg: cfg, transport: transport, log: log.Named("mailer")}
}

// Configured reports whether messages actually leave the process.
func (d *Dispatcher) Configured() bool {
	return d.cfg.APIKey != "" && d.transport != nil
}

// Send delivers msg and reports success. Without a transport credential the
// message is only logged and Send returns true. Transport errors and panics
// are logged and turned into false.
func (d *Dispatcher) Send(ctx context.Context, msg Message) (ok bool) {
	msg = d.prepare(msg)

	if err := validate(msg); err != nil {
		d.log.Warn("email rejected", zap.Strings("to", msg.To), zap.Error(err))
		return false
	}

	if !d.Configured() {
		d.log.Info("email transport not configured, skipping delivery",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
		)
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("email transport panicked", zap.Strings("to", msg.To), zap.Any("panic", r))
			ok = false
		}
	}()

	start := time.Now()
	if err := d.transport.Send(ctx, msg); err != nil {
		d.log.Warn("email delivery failed",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return false
	}

	d.log.Info("email sent",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Duration("elapsed", time.Since(start)),
	)
	return true
}

func (d *Dispatcher) prepare(msg Message) Message {
	if msg.From == "" {
		msg.From = d.cfg.From
	}
	if msg.Text == "" && msg.HTML != "" {
		text, err := PlainText(msg.HTML)
		if err != nil {
			d.log.Debug("plain text fallback failed", zap.Error(err))
		} else {
			msg.Text = text
		}
	}
	to := make([]string, 0, len(msg.To))
	for _, addr := range msg.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	msg.To = to
	return msg
}

func validate(msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("no recipient")
	}
	if msg.Subject == "" {
		return errors.New("empty subject")
	}
	if msg.Text == "" && msg.HTML == "" {
		return fmt.Errorf("empty body")
	}
	return nil
}
