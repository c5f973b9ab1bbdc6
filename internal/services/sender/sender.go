// Package sender собирает письма-уведомления и отправляет их по SMTP.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/mail"
	"strings"

	"github.com/magabrotheeeer/randomlife/internal/lib/sl"
	"github.com/magabrotheeeer/randomlife/internal/lib/smtp"
	"github.com/magabrotheeeer/randomlife/internal/models"
)

// ErrUnknownKind возвращается для сообщений без шаблона.
var ErrUnknownKind = errors.New("unknown email kind")

// Service отправляет EmailMessage.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New создает Service.
func New(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// HandleMessage потребитель очереди notifications.email. Битые сообщения
// отбрасываются, ошибки доставки возвращаются в очередь.
func (s *Service) HandleMessage(_ context.Context, body []byte) (bool, error) {
	var msg models.EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return false, fmt.Errorf("decode email message: %w", err)
	}
	subject, text, err := Render(msg)
	if err != nil {
		return false, err
	}
	if err := s.Send(msg.To, subject, text); err != nil {
		return true, err
	}
	return false, nil
}

func formatAmount(amount int64, currency string) string {
	switch currency {
	case "CNY":
		return fmt.Sprintf("¥%d.%02d", amount/100, amount%100)
	case "USD":
		return fmt.Sprintf("$%d.%02d", amount/100, amount%100)
	default:
		return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, currency)
	}
}

func planName(plan models.PlanType, zh bool) string {
	switch {
	case zh && plan == models.PlanYearly:
		return "年度会员"
	case zh:
		return "月度会员"
	case plan == models.PlanYearly:
		return "yearly"
	default:
		return "monthly"
	}
}

// Render возвращает тему и текст письма msg на его языке.
func Render(msg models.EmailMessage) (string, string, error) {
	zh := strings.HasPrefix(strings.ToLower(msg.Locale), "zh")
	name := msg.Name
	if name == "" {
		name = map[bool]string{true: "用户", false: "there"}[zh]
	}
	end := msg.EndDate.Format("2006-01-02")

	switch msg.Kind {
	case models.EmailPaymentReceipt:
		amount := formatAmount(msg.Amount, msg.Currency)
		if zh {
			return "RandomLife 支付成功",
				fmt.Sprintf("%s，您好！\n\n您已成功支付 %s，开通 RandomLife 专业版%s。\n会员有效期至 %s。\n\n感谢您的支持！",
					name, amount, planName(msg.Plan, true), end), nil
		}
		return "Your RandomLife Pro receipt",
			fmt.Sprintf("Hi %s,\n\nWe received your payment of %s for the %s RandomLife Pro plan.\nYour subscription is active until %s.\n\nThanks for your support!",
				name, amount, planName(msg.Plan, false), end), nil
	case models.EmailExpiryReminder:
		if zh {
			return "RandomLife 会员即将到期",
				fmt.Sprintf("%s，您好！\n\n您的 RandomLife 专业版%s将于 %s 到期。\n续费后可继续享受无限次推荐。",
					name, planName(msg.Plan, true), end), nil
		}
		return "Your RandomLife Pro subscription ends soon",
			fmt.Sprintf("Hi %s,\n\nYour %s RandomLife Pro plan ends on %s.\nRenew to keep unlimited recommendations.",
				name, planName(msg.Plan, false), end), nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKind, msg.Kind)
	}
}

// Send отправляет текстовое письмо одному получателю.
func (s *Service) Send(to, subject, bodyText string) error {
	const op = "services.sender.Send"

	from := s.transport.From()
	envelopeFrom := from
	if addr, err := mail.ParseAddress(from); err == nil {
		envelopeFrom = addr.Address
	}
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("%s: recipient: %w", op, err)
	}

	msg := strings.Join([]string{
		"From: " + from,
		"To: " + rcpt.String(),
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(envelopeFrom); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", envelopeFrom), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Rcpt(rcpt.Address); err != nil {
		s.log.Error("failed to set RCPT TO", slog.String("recipient", rcpt.Address), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP session", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("email sent", slog.String("to", rcpt.Address), slog.String("subject", subject))
	return nil
}
