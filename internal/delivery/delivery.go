// Package delivery implements the digest handoff contract: the orchestrator
// builds a model.Digest, renders it, and hands the result to a Deliverer
// without caring which provider is configured.
//
// Grounded on internal/alert/notifier.go's one-method Notifier interface
// and log_alert.go's LogAlertNotifier; the SMTP adapter is new (the teacher
// carries a TelegramNotifier instead, net/smtp is the closest idiomatic
// stand-in the examples exercise for an email-based digest per spec.md's
// email delivery adapter).
package delivery

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/singlethrowdata/scout-anomaly-detection/internal/config"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/digestrender"
	"github.com/singlethrowdata/scout-anomaly-detection/internal/model"
)

// Deliverer hands a rendered digest off to its destination.
type Deliverer interface {
	Deliver(ctx context.Context, digest *model.Digest) error
}

// New builds the Deliverer configured by cfg.Delivery.Provider, defaulting
// to LogDeliverer when the provider name is unrecognized.
func New(cfg *config.Config, logger *logrus.Logger) Deliverer {
	switch cfg.Delivery.Provider {
	case "smtp":
		return NewSMTPDeliverer(cfg, logger)
	default:
		return NewLogDeliverer(logger)
	}
}

// LogDeliverer writes the digest's plain-text rendering to the structured
// logger instead of sending it anywhere. Grounded on
// internal/alert/log_alert.go's LogAlertNotifier.SendAlert.
type LogDeliverer struct {
	logger *logrus.Logger
}

func NewLogDeliverer(logger *logrus.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(ctx context.Context, digest *model.Digest) error {
	if digest.AllClear {
		d.logger.Infof("digest %s: all clear, %d properties monitored",
			digest.ReferenceDate.Format("2006-01-02"), len(digest.PropertyRollups))
		return nil
	}
	d.logger.Warnf("digest %s: %d alerts (%d suppressed)\n%s",
		digest.ReferenceDate.Format("2006-01-02"), digest.TotalAlerts, digest.SuppressedCount,
		digestrender.RenderText(digest))
	return nil
}

// SMTPDeliverer emails the rendered HTML digest to cfg.Delivery.Recipients
// via net/smtp with PLAIN auth, the lowest-ceremony path to a real mail
// submission the stdlib offers and the one every SMTP relay in front of a
// corporate mail gateway accepts.
type SMTPDeliverer struct {
	cfg    *config.Config
	logger *logrus.Logger
}

func NewSMTPDeliverer(cfg *config.Config, logger *logrus.Logger) *SMTPDeliverer {
	return &SMTPDeliverer{cfg: cfg, logger: logger}
}

func (d *SMTPDeliverer) Deliver(ctx context.Context, digest *model.Digest) error {
	smtpCfg := d.cfg.Delivery.SMTP
	if smtpCfg.Host == "" || len(d.cfg.Delivery.Recipients) == 0 {
		return &model.DeliveryError{ProviderID: "smtp", Err: fmt.Errorf("smtp host or recipients not configured")}
	}

	subject := subjectLine(digest)
	body := digestrender.RenderHTML(digest)
	msg := buildMIMEMessage(smtpCfg.From, d.cfg.Delivery.Recipients, subject, body)

	addr := fmt.Sprintf("%s:%d", smtpCfg.Host, smtpCfg.Port)
	var auth smtp.Auth
	if smtpCfg.Username != "" {
		auth = smtp.PlainAuth("", smtpCfg.Username, smtpCfg.Password, smtpCfg.Host)
	}

	if err := smtp.SendMail(addr, auth, smtpCfg.From, d.cfg.Delivery.Recipients, msg); err != nil {
		return &model.DeliveryError{ProviderID: "smtp", Err: err}
	}

	d.logger.Infof("delivered digest %s to %d recipients", digest.ReferenceDate.Format("2006-01-02"), len(d.cfg.Delivery.Recipients))
	return nil
}

func subjectLine(d *model.Digest) string {
	if d.AllClear {
		return fmt.Sprintf("SCOUT digest %s: all clear", d.ReferenceDate.Format("2006-01-02"))
	}
	return fmt.Sprintf("SCOUT digest %s: %d alerts", d.ReferenceDate.Format("2006-01-02"), d.TotalAlerts)
}

func buildMIMEMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
