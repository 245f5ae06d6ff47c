// Package notify delivers call reports over SMTP.
//
// A Mailer validates its transport settings before any network I/O,
// can verify connectivity without sending mail, and composes a single
// MIME message per call report with the recording attached. Credentials
// never appear in logs or error messages.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"callmail/internal/audio"
	"callmail/internal/circuitbreaker"
	"callmail/internal/common/errors"
	"callmail/internal/common/logging"
	"callmail/internal/event"
)

// SubjectPrefix starts every report subject line. The current local
// time is appended.
const SubjectPrefix = "Voice call report - "

const subjectTimeLayout = "2006-01-02 15:04"

// FallbackAudioType is used when the platform response carried no
// content type for the recording.
const FallbackAudioType = "audio/mpeg"

// Config holds the mail transport settings
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string

	// To is a comma separated recipient list
	To string

	// UseTLS upgrades the connection with STARTTLS after the greeting
	UseTLS bool

	// UseSSL connects over implicit TLS instead
	UseSSL bool

	// SkipVerify disables TLS certificate verification
	SkipVerify bool

	// Timeout bounds the dial and the whole SMTP session
	Timeout time.Duration

	// Now supplies the time stamped into the subject line.
	// Defaults to time.Now.
	Now func() time.Time
}

// Mailer sends call report emails
type Mailer struct {
	config     Config
	recipients []string
	breaker    *circuitbreaker.GoBreakerAdapter
	logger     logging.Logger
}

// NewMailer creates a mailer for the configured SMTP server
func NewMailer(config Config, logger logging.Logger) *Mailer {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	if config.Now == nil {
		config.Now = time.Now
	}

	return &Mailer{
		config:     config,
		recipients: splitRecipients(config.To),
		breaker:    circuitbreaker.NewGoBreaker("smtp", circuitbreaker.MailConfig, logger),
		logger:     logger,
	}
}

func splitRecipients(to string) []string {
	var out []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}

	return out
}

// Validate checks that every transport setting needed for delivery is
// present and well formed. It performs no network I/O.
func (m *Mailer) Validate() error {
	var missing []string

	if m.config.Host == "" {
		missing = append(missing, "host")
	}
	if m.config.Port == "" {
		missing = append(missing, "port")
	}
	if m.config.Username == "" {
		missing = append(missing, "username")
	}
	if m.config.Password == "" {
		missing = append(missing, "password")
	}
	if m.config.From == "" {
		missing = append(missing, "from address")
	}
	if len(m.recipients) == 0 {
		missing = append(missing, "recipient")
	}

	if len(missing) > 0 {
		return errors.ConfigIncompleteError(
			fmt.Sprintf("SMTP configuration incomplete: missing %s", strings.Join(missing, ", ")))
	}

	if !ValidAddress(m.config.From) {
		return errors.ConfigIncompleteError("SMTP configuration incomplete: malformed from address")
	}

	for _, addr := range m.recipients {
		if !ValidAddress(addr) {
			return errors.ConfigIncompleteError("SMTP configuration incomplete: malformed recipient address")
		}
	}

	return nil
}

// Verify dials the server and performs the protocol handshake without
// sending mail. Used at startup and by the health monitor.
func (m *Mailer) Verify(ctx context.Context) error {
	if err := m.Validate(); err != nil {
		return err
	}

	client, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Noop(); err != nil {
		return errors.DeliveryError("SMTP handshake failed", err)
	}

	return client.Quit()
}

// Send composes and submits one message for the report. The recording
// may be nil; the report is then delivered without an attachment.
// Sends are never retried.
func (m *Mailer) Send(ctx context.Context, report *event.CallReport, recording *audio.Recording) error {
	if err := m.Validate(); err != nil {
		return err
	}

	msg, err := m.compose(report, recording)
	if err != nil {
		return err
	}

	err = m.breaker.Execute(ctx, func() error {
		return m.submit(ctx, msg)
	})
	if err != nil {
		m.logger.Warn("Call report delivery failed",
			logging.String("conversation_id", report.ConversationID),
			logging.Err(err),
		)
		return err
	}

	m.logger.Info("Call report emailed",
		logging.String("conversation_id", report.ConversationID),
		logging.Int("recipients", len(m.recipients)),
		logging.Bool("attachment", recording != nil),
	)

	return nil
}

// compose renders the report into a MIME message with an inline text
// part and at most one audio attachment.
func (m *Mailer) compose(report *event.CallReport, recording *audio.Recording) ([]byte, error) {
	var buf bytes.Buffer

	from := []*mail.Address{{Name: m.config.FromName, Address: m.config.From}}
	to := make([]*mail.Address, len(m.recipients))
	for i, addr := range m.recipients {
		to[i] = &mail.Address{Address: addr}
	}

	var h mail.Header
	h.SetDate(m.config.Now())
	h.SetAddressList("From", from)
	h.SetAddressList("To", to)
	h.SetSubject(SubjectPrefix + m.config.Now().Local().Format(subjectTimeLayout))

	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, errors.DeliveryError("failed to compose message", err)
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	tw, err := mw.CreateSingleInline(th)
	if err != nil {
		return nil, errors.DeliveryError("failed to compose message body", err)
	}
	if _, err := io.WriteString(tw, renderBody(report)); err != nil {
		return nil, errors.DeliveryError("failed to compose message body", err)
	}
	tw.Close()

	if recording != nil && len(recording.Data) > 0 {
		contentType := recording.ContentType
		if contentType == "" {
			contentType = FallbackAudioType
		}

		var ah mail.AttachmentHeader
		ah.SetContentType(contentType, nil)
		ah.SetFilename(AttachmentName(report.ConversationID))

		aw, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, errors.DeliveryError("failed to attach recording", err)
		}
		if _, err := aw.Write(recording.Data); err != nil {
			return nil, errors.DeliveryError("failed to attach recording", err)
		}
		aw.Close()
	}

	mw.Close()

	return buf.Bytes(), nil
}

// AttachmentName returns the deterministic file name for a recording
func AttachmentName(conversationID string) string {
	return fmt.Sprintf("call_%s.mp3", conversationID)
}

func renderBody(report *event.CallReport) string {
	return fmt.Sprintf("Summary:\n%s\n\nDuration: %s seconds\n\n%s\n",
		report.Summary, report.Duration, report.Transcript)
}

// connect dials the server, upgrades the connection per config and
// authenticates when the server advertises AUTH.
func (m *Mailer) connect(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(m.config.Host, m.config.Port)
	dialer := &net.Dialer{Timeout: m.config.Timeout}

	var (
		conn net.Conn
		err  error
	)

	if m.config.UseSSL {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, m.tlsConfig())
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, errors.DeliveryError("failed to connect to SMTP server", err)
	}

	if m.config.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(m.config.Timeout))
	}

	client, err := smtp.NewClient(conn, m.config.Host)
	if err != nil {
		conn.Close()
		return nil, errors.DeliveryError("failed to create SMTP client", err)
	}

	if !m.config.UseSSL && m.config.UseTLS {
		if err := client.StartTLS(m.tlsConfig()); err != nil {
			client.Close()
			return nil, errors.DeliveryError("STARTTLS failed", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, errors.DeliveryError("SMTP authentication failed", err)
		}
	}

	return client, nil
}

func (m *Mailer) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName:         m.config.Host,
		InsecureSkipVerify: m.config.SkipVerify,
	}
}

// submit runs one mail transaction over a fresh connection
func (m *Mailer) submit(ctx context.Context, msg []byte) error {
	client, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(m.config.From); err != nil {
		return errors.DeliveryError("sender rejected", err)
	}

	for _, addr := range m.recipients {
		if err := client.Rcpt(addr); err != nil {
			return errors.DeliveryError("recipient rejected", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return errors.DeliveryError("DATA command failed", err)
	}

	if _, err := w.Write(msg); err != nil {
		return errors.DeliveryError("failed to write message", err)
	}

	if err := w.Close(); err != nil {
		return errors.DeliveryError("message rejected", err)
	}

	return client.Quit()
}

// ValidAddress performs basic email address validation
func ValidAddress(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}

	if len(parts[0]) == 0 {
		return false
	}

	return strings.Contains(parts[1], ".")
}
