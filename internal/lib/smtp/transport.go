package smtp

import (
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/magabrotheeeer/randomlife/internal/config"
	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
)

const dialTimeout = 10 * time.Second

// Transport подключается к relay, включает STARTTLS и
// авторизуется через PLAIN.
type Transport struct {
	cfg config.SMTP
	log *slog.Logger
	// AllowPlaintext отключает STARTTLS для локальных relay вроде MailHog.
	AllowPlaintext bool
}

type clientWrapper struct {
	*smtp.Client
}

var _ TransportInterface = (*Transport)(nil)

// NewTransport создает Transport.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Connect открывает готовую к работе сессию.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Connect"
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: dial %s: %w", op, addr, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			t.log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); ok {
		tlsConfig := &tls.Config{
			ServerName: t.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err = client.StartTLS(tlsConfig); err != nil {
			t.closeClient(client)
			return nil, fmt.Errorf("%s: starttls: %w", op, err)
		}
	} else if !t.AllowPlaintext {
		t.closeClient(client)
		return nil, fmt.Errorf("%s: server does not support STARTTLS", op)
	}

	if t.cfg.Username != "" {
		auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
		if err = client.Auth(auth); err != nil {
			t.closeClient(client)
			return nil, fmt.Errorf("%s: auth: %w", op, err)
		}
	}

	return clientWrapper{client}, nil
}

func (t *Transport) closeClient(c *smtp.Client) {
	if err := c.Close(); err != nil {
		t.log.Error("failed to close smtp client", sl.Err(err))
	}
}

// From возвращает отправителя из конфига, иначе логин.
func (t *Transport) From() string {
	if t.cfg.From != "" {
		return t.cfg.From
	}
	return t.cfg.Username
}
