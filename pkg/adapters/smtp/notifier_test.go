package smtp_test

import (
	"context"
	"errors"
	netsmtp "net/smtp"
	"testing"
	"time"

	"github.com/aretw0/waypoint/pkg/adapters/smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	addr string
	auth netsmtp.Auth
	from string
	to   []string
	msg  string
}

func TestNotifier_Send(t *testing.T) {
	var got capture
	n, err := smtp.New(smtp.Config{Host: "smtp.example.com", Sender: "bot@example.com", Password: "secret"},
		smtp.WithSendFunc(func(addr string, a netsmtp.Auth, from string, to []string, msg []byte) error {
			got = capture{addr: addr, auth: a, from: from, to: to, msg: string(msg)}
			return nil
		}),
		smtp.WithClock(func() time.Time { return time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)

	require.NoError(t, n.Send(context.Background(), "john@example.com", "Welcome John", "line one\nline two"))

	assert.Equal(t, "smtp.example.com:587", got.addr)
	assert.NotNil(t, got.auth)
	assert.Equal(t, "bot@example.com", got.from)
	assert.Equal(t, []string{"john@example.com"}, got.to)
	assert.Contains(t, got.msg, "To: john@example.com\r\n")
	assert.Contains(t, got.msg, "Subject: Welcome John\r\n")
	assert.Contains(t, got.msg, "Date: Wed, 03 Jan 2024 09:00:00 +0000\r\n")
	assert.Contains(t, got.msg, "\r\n\r\nline one\r\nline two")
}

func TestNotifier_Errors(t *testing.T) {
	_, err := smtp.New(smtp.Config{Sender: "bot@example.com"})
	assert.Error(t, err)

	_, err = smtp.New(smtp.Config{Host: "smtp.example.com"})
	assert.Error(t, err)

	relay := errors.New("535 auth failed")
	n, err := smtp.New(smtp.Config{Host: "smtp.example.com", Port: 2525, Sender: "bot@example.com"},
		smtp.WithSendFunc(func(addr string, a netsmtp.Auth, _ string, _ []string, _ []byte) error {
			assert.Equal(t, "smtp.example.com:2525", addr)
			assert.Nil(t, a, "no password means no auth")
			return relay
		}))
	require.NoError(t, err)

	err = n.Send(context.Background(), "tom@example.com", "Goodbye", "bye")
	assert.ErrorIs(t, err, relay)

	assert.Error(t, n.Send(context.Background(), "", "x", "y"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Send(ctx, "tom@example.com", "x", "y"), context.Canceled)
}
