package services

import (
	"fmt"
	"net/smtp"
	"os"
)

// SMTPConfig holds the settings for sending magic-link emails.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMTPConfigFromEnv reads the SMTP_* environment variables.
func SMTPConfigFromEnv() SMTPConfig {
	return SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     os.Getenv("SMTP_PORT"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     os.Getenv("SMTP_FROM"),
	}
}

// Configured reports whether the config is complete enough to send mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Port != "" && c.Username != "" && c.Password != ""
}

// Sender returns a MailSender backed by this config, or nil when SMTP is
// not configured. A nil sender leaves the service in development mode:
// the magic link is only returned to the caller.
func (c SMTPConfig) Sender() MailSender {
	if !c.Configured() {
		return nil
	}

	return func(to, magicLink string) error {
		from := c.From
		if from == "" {
			from = c.Username
		}

		subject := "Your login link"
		body := fmt.Sprintf("Click the link to log in:\r\n\r\n%s\r\n\r\nThe link expires in 15 minutes.", magicLink)
		message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body)

		auth := smtp.PlainAuth("", c.Username, c.Password, c.Host)
		addr := fmt.Sprintf("%s:%s", c.Host, c.Port)
		if err := smtp.SendMail(addr, auth, from, []string{to}, []byte(message)); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}
}
