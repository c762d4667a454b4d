package digest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

// Mailer submits one email payload to the email backend.
type Mailer interface {
	Send(ctx context.Context, from string, payload EmailPayload) (id string, err error)
}

// ResendMailer sends email through the Resend API.
type ResendMailer struct {
	client *resend.Client
}

// NewResendMailer builds a Mailer backed by Resend.
func NewResendMailer(apiKey string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey)}
}

// Send submits the payload and returns the message ID Resend assigns.
func (m *ResendMailer) Send(ctx context.Context, from string, payload EmailPayload) (string, error) {
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      payload.Recipients,
		Subject: payload.Subject,
		Html:    payload.HTMLBody,
		Text:    payload.TextBody,
	})
	if err != nil {
		return "", fmt.Errorf("resend: %w", err)
	}
	if sent == nil || sent.Id == "" {
		return "", fmt.Errorf("resend: no message ID in response")
	}
	return sent.Id, nil
}

// Dispatcher converts a digest into an email and delivers it. Email is
// optional: a nil Mailer (no credentials) yields a skipped result, never
// an error. Sends are issued per recipient so a partial failure can name
// exactly which recipients did not get the digest. No automatic retry.
type Dispatcher struct {
	Mailer Mailer
	From   string
}

// Send delivers the digest to every recipient and aggregates the outcome.
func (d *Dispatcher) Send(ctx context.Context, dg Digest, recipients []string) DeliveryResult {
	if d.Mailer == nil {
		return DeliveryResult{Status: DeliverySkipped, Detail: "email credentials not configured"}
	}
	if len(recipients) == 0 {
		return DeliveryResult{Status: DeliverySkipped, Detail: "no recipients configured"}
	}

	htmlBody, err := renderEmailHTML(dg.BodyMarkdown)
	if err != nil {
		return DeliveryResult{Status: DeliveryFailed, Detail: fmt.Sprintf("render html: %v", err)}
	}

	var failures []string
	sent := 0
	for _, rcpt := range recipients {
		id, err := d.Mailer.Send(ctx, d.From, EmailPayload{
			Subject:    dg.Subject,
			HTMLBody:   htmlBody,
			TextBody:   dg.BodyMarkdown, // plain-text fallback is the raw markdown
			Recipients: []string{rcpt},
		})
		if err != nil {
			slog.Error("delivery failed", slog.String("recipient", rcpt), slog.Any("err", err))
			failures = append(failures, fmt.Sprintf("%s: %v", rcpt, err))
			continue
		}
		slog.Info("delivered", slog.String("recipient", rcpt), slog.String("id", id))
		sent++
	}

	if len(failures) > 0 {
		return DeliveryResult{
			Status: DeliveryFailed,
			Detail: fmt.Sprintf("%d/%d failed: %s", len(failures), len(recipients), strings.Join(failures, "; ")),
		}
	}
	return DeliveryResult{Status: DeliverySent, Detail: fmt.Sprintf("delivered to %d recipient(s)", sent)}
}

// markdown renderer with hard wraps so single newlines become <br>,
// matching how the digest body is written by the model.
var emailMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(htmlrenderer.WithHardWraps()),
)

// markdownToHTML converts a Markdown fragment to HTML.
func markdownToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := emailMarkdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return buf.String(), nil
}

// renderEmailHTML wraps the converted digest in a styled email document.
func renderEmailHTML(md string) (string, error) {
	fragment, err := markdownToHTML(md)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(emailHTMLShell, fragment), nil
}

const emailHTMLShell = `<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; color: #333333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        h3 { color: #1a1a1a; margin-top: 20px; margin-bottom: 5px; }
        a { color: #0066cc; text-decoration: none; }
        a:hover { text-decoration: underline; }
        ul { margin-top: 0; padding-left: 20px; margin-bottom: 20px; }
        li { margin-bottom: 5px; }
        hr { border: 0; border-top: 1px solid #eeeeee; margin: 20px 0; }
        .footer { font-size: 12px; color: #888888; margin-top: 30px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        %s
        <div class="footer">
            <p>Generated by AI</p>
        </div>
    </div>
</body>
</html>`
