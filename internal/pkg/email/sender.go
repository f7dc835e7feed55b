package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

// defaultSendTimeout bounds a direct send when the caller set no deadline.
const defaultSendTimeout = time.Minute

// Sender delivers fully built messages, giving up once ctx is done.
type Sender interface {
	Send(ctx context.Context, m *gomail.Message) error
}

// smtpSender speaks SMTP over a connection whose I/O deadline follows ctx.
// gomail frames the message; its own Dialer hides the connection.
type smtpSender struct {
	dialer *gomail.Dialer
}

func newSMTPSender(cfg *Config) *smtpSender {
	return &smtpSender{dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)}
}

func (s *smtpSender) Send(ctx context.Context, m *gomail.Message) error {
	host := s.dialer.Host
	addr := net.JoinHostPort(host, strconv.Itoa(s.dialer.Port))

	var nd net.Dialer
	raw, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer raw.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultSendTimeout)
	}
	if err := raw.SetDeadline(deadline); err != nil {
		return err
	}
	// cancellation unblocks any pending read or write
	stop := context.AfterFunc(ctx, func() { _ = raw.SetDeadline(time.Now()) })
	defer stop()

	tlsConfig := s.dialer.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: host}
	}

	conn := raw
	if s.dialer.SSL {
		conn = tls.Client(raw, tlsConfig)
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Close()

	if s.dialer.LocalName != "" {
		if err := c.Hello(s.dialer.LocalName); err != nil {
			return err
		}
	}
	if !s.dialer.SSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}
	if s.dialer.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", s.dialer.Username, s.dialer.Password, host)); err != nil {
				return err
			}
		}
	}

	send := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		if err := c.Mail(from); err != nil {
			return err
		}
		for _, rcpt := range to {
			if err := c.Rcpt(rcpt); err != nil {
				return fmt.Errorf("rcpt %s: %w", rcpt, err)
			}
		}
		w, err := c.Data()
		if err != nil {
			return err
		}
		if _, err := msg.WriteTo(w); err != nil {
			_ = w.Close()
			return err
		}
		return w.Close()
	})
	if err := gomail.Send(send, m); err != nil {
		return err
	}
	return c.Quit()
}
