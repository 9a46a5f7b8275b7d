package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingTransport struct {
	mu    sync.Mutex
	calls []Message
	err   error
	panic bool
	block bool
}

func (r *recordingTransport) Send(ctx context.Context, msg Message) error {
	r.mu.Lock()
	r.calls = append(r.calls, msg)
	r.mu.Unlock()
	if r.panic {
		panic("boom")
	}
	if r.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.err
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func message() Message {
	return Message{
		To:      []string{"jane@farm.test"},
		Subject: "Hello",
		HTML:    "<p>Hi Jane</p>",
	}
}

func TestSendWithoutCredentialIsDryRun(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	transport := &recordingTransport{}
	d := New(Config{From: "quotes@co.test"}, transport, zap.New(core))

	assert.False(t, d.Configured())
	assert.True(t, d.Send(context.Background(), message()))
	assert.Equal(t, 0, transport.count())

	entries := logs.FilterMessage("email transport not configured, skipping delivery").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Hello", entries[0].ContextMap()["subject"])
}

func TestSendDelegatesToTransport(t *testing.T) {
	transport := &recordingTransport{}
	d := New(Config{APIKey: "re_test", From: "quotes@co.test"}, transport, zap.NewNop())

	assert.True(t, d.Send(context.Background(), message()))
	require.Equal(t, 1, transport.count())

	sent := transport.calls[0]
	assert.Equal(t, "quotes@co.test", sent.From)
	assert.Equal(t, "Hi Jane", sent.Text)
}

func TestSendKeepsExplicitFromAndText(t *testing.T) {
	transport := &recordingTransport{}
	d := New(Config{APIKey: "re_test", From: "quotes@co.test"}, transport, zap.NewNop())

	msg := message()
	msg.From = "sales@co.test"
	msg.Text = "custom"
	require.True(t, d.Send(context.Background(), msg))
	assert.Equal(t, "sales@co.test", transport.calls[0].From)
	assert.Equal(t, "custom", transport.calls[0].Text)
}

func TestSendConvertsTransportErrorToFalse(t *testing.T) {
	transport := &recordingTransport{err: errors.New("smtp down")}
	d := New(Config{APIKey: "re_test"}, transport, zap.NewNop())

	assert.False(t, d.Send(context.Background(), message()))
	assert.Equal(t, 1, transport.count())
}

func TestSendRecoversFromTransportPanic(t *testing.T) {
	transport := &recordingTransport{panic: true}
	d := New(Config{APIKey: "re_test"}, transport, zap.NewNop())

	assert.NotPanics(t, func() {
		assert.False(t, d.Send(context.Background(), message()))
	})
}

func TestSendTimesOut(t *testing.T) {
	transport := &recordingTransport{block: true}
	d := New(Config{APIKey: "re_test", Timeout: 20 * time.Millisecond}, transport, zap.NewNop())

	start := time.Now()
	assert.False(t, d.Send(context.Background(), message()))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSendRejectsMessageWithoutRecipient(t *testing.T) {
	transport := &recordingTransport{}
	d := New(Config{APIKey: "re_test"}, transport, zap.NewNop())

	msg := message()
	msg.To = []string{"  "}
	assert.False(t, d.Send(context.Background(), msg))
	assert.Equal(t, 0, transport.count())
}

func TestPlainText(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body>
<h2>Quote   QT-1</h2>
<p>Dear  Jane,</p>
<table><tr><td>Total</td><td>KES 116,000.00</td></tr></table>
</body></html>`

	text, err := PlainText(html)
	require.NoError(t, err)
	assert.Equal(t, "Quote QT-1\n\nDear Jane,\n\nTotal | KES 116,000.00", text)
}
