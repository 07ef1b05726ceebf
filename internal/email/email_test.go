package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSenderSend(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	s := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: 2525, From: "Shop <shop@nexu.hu>"})
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	err := s.Send(context.Background(), Message{To: "a@b.hu", Subject: "Hello", HTML: "<p>hi</p>"})
	require.NoError(t, err)

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, "shop@nexu.hu", gotFrom)
	assert.Equal(t, []string{"a@b.hu"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Hello\r\n")
	assert.Contains(t, gotMsg, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>hi</p>")
}

func TestSMTPSenderRejectsHeaderInjection(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: 25})
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("must not send")
		return nil
	}
	err := s.Send(context.Background(), Message{To: "a@b.hu\r\nBcc: x@y.z", Subject: "s"})
	assert.Error(t, err)
}

func TestSMTPSenderWrapsFailure(t *testing.T) {
	relayDown := errors.New("relay down")
	s := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: 25})
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return relayDown }

	err := s.Send(context.Background(), Message{To: "a@b.hu", Subject: "s"})
	assert.ErrorIs(t, err, relayDown)
}
