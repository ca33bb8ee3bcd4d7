package mailer

import (
	"github.com/diagnosis/zayna-hotel/pkg/config"
	"github.com/diagnosis/zayna-hotel/pkg/logger"
)

// NewSender picks the transport: dev printing, MailerSend when a key is set, SMTP otherwise.
func NewSender(cfg config.EmailConfig) Sender {
	switch {
	case cfg.DevMode:
		logger.Info("Using development mailer")
		return NewDevMailer()
	case cfg.MailerSendKey != "":
		logger.Info("Using MailerSend mailer")
		return NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	default:
		logger.Info("Using SMTP mailer", "host", cfg.SMTPHost, "port", cfg.SMTPPort)
		return NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.FromName, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
}
