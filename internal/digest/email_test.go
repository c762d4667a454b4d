package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeMailer fails for recipients listed in failFor and records payloads.
type fakeMailer struct {
	failFor map[string]error
	sent    []EmailPayload
}

func (m *fakeMailer) Send(_ context.Context, _ string, p EmailPayload) (string, error) {
	if len(p.Recipients) != 1 {
		return "", fmt.Errorf("expected exactly one recipient per call, got %d", len(p.Recipients))
	}
	if err, ok := m.failFor[p.Recipients[0]]; ok {
		return "", err
	}
	m.sent = append(m.sent, p)
	return "msg-" + p.Recipients[0], nil
}

var testDigest = Digest{
	Subject:      DefaultSubject,
	BodyMarkdown: "### Title: Some Video\nLink: [Watch on YouTube](https://www.youtube.com/watch?v=vid-aaa-0001)\nKey Takeaways:\n\n- first point\n- second point\n",
}

func TestDispatcherSkippedWithoutCredentials(t *testing.T) {
	d := &Dispatcher{Mailer: nil, From: "digest@example.com"}
	res := d.Send(context.Background(), testDigest, []string{"a@example.com"})
	if res.Status != DeliverySkipped {
		t.Errorf("status = %s, want %s", res.Status, DeliverySkipped)
	}
}

func TestDispatcherSkippedWithoutRecipients(t *testing.T) {
	d := &Dispatcher{Mailer: &fakeMailer{}, From: "digest@example.com"}
	res := d.Send(context.Background(), testDigest, nil)
	if res.Status != DeliverySkipped {
		t.Errorf("status = %s, want %s", res.Status, DeliverySkipped)
	}
}

func TestDispatcherSent(t *testing.T) {
	mailer := &fakeMailer{}
	d := &Dispatcher{Mailer: mailer, From: "digest@example.com"}

	res := d.Send(context.Background(), testDigest, []string{"a@example.com", "b@example.com"})
	if res.Status != DeliverySent {
		t.Fatalf("status = %s (%s), want %s", res.Status, res.Detail, DeliverySent)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d payloads, want 2", len(mailer.sent))
	}
	for _, p := range mailer.sent {
		if p.Subject != DefaultSubject {
			t.Errorf("subject = %q", p.Subject)
		}
		if p.TextBody != testDigest.BodyMarkdown {
			t.Error("plain-text fallback is not the raw markdown")
		}
		if !strings.Contains(p.HTMLBody, "<h3") {
			t.Error("html body missing heading")
		}
	}
}

func TestDispatcherPartialFailure(t *testing.T) {
	mailer := &fakeMailer{failFor: map[string]error{
		"bad@example.com": errors.New("invalid recipient"),
	}}
	d := &Dispatcher{Mailer: mailer, From: "digest@example.com"}

	res := d.Send(context.Background(), testDigest, []string{"good@example.com", "bad@example.com"})
	if res.Status != DeliveryFailed {
		t.Fatalf("status = %s, want %s", res.Status, DeliveryFailed)
	}
	if !strings.Contains(res.Detail, "bad@example.com") {
		t.Errorf("detail does not identify failing recipient: %q", res.Detail)
	}
	// The good recipient was still attempted and succeeded.
	if len(mailer.sent) != 1 || mailer.sent[0].Recipients[0] != "good@example.com" {
		t.Errorf("unexpected sent set: %+v", mailer.sent)
	}
}

func TestRenderEmailHTML(t *testing.T) {
	html, err := renderEmailHTML(testDigest.BodyMarkdown)
	if err != nil {
		t.Fatalf("renderEmailHTML: %v", err)
	}
	for _, want := range []string{
		"<h3",
		"Some Video",
		`href="https://www.youtube.com/watch?v=vid-aaa-0001"`,
		"<li>",
		"first point",
		"<!DOCTYPE html>",
		"container",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered email missing %q", want)
		}
	}
}

func TestMarkdownToHTMLEmphasisAndLists(t *testing.T) {
	out, err := markdownToHTML("**bold** and *italic*\n\n- one\n- two\n")
	if err != nil {
		t.Fatalf("markdownToHTML: %v", err)
	}
	for _, want := range []string{"<strong>bold</strong>", "<em>italic</em>", "<li>one</li>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q in %q", want, out)
		}
	}
}
