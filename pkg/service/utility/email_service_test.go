package utility

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestEmailService_SendWithoutHost(t *testing.T) {
	svc := NewEmailService(SMTPConfig{})
	err := svc.Send(context.Background(), &Message{To: "a@example.com", Subject: "hi"})
	if !errors.Is(err, ErrEmailNotConfigured) {
		t.Fatalf("expected ErrEmailNotConfigured, got %v", err)
	}
}

func TestBuildMessage(t *testing.T) {
	cfg := SMTPConfig{SenderName: "安和鱼", SenderEmail: "noreply@example.com"}

	t.Run("HTML 正文", func(t *testing.T) {
		raw := string(buildMessage(cfg, &Message{To: "owner@example.com", Subject: "新留言", HTMLBody: "<p>hi</p>", TextBody: "hi"}))
		head, body, ok := strings.Cut(raw, "\r\n\r\n")
		if !ok {
			t.Fatal("missing header separator")
		}
		if !strings.Contains(head, "To: owner@example.com\r\n") {
			t.Errorf("missing To header: %q", head)
		}
		if !strings.Contains(head, "Content-Type: text/html; charset=UTF-8") {
			t.Errorf("expected html content type: %q", head)
		}
		if !strings.Contains(head, "=?utf-8?q?") {
			t.Errorf("expected encoded subject: %q", head)
		}
		if body != "<p>hi</p>" {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("只有纯文本时使用 text/plain", func(t *testing.T) {
		raw := string(buildMessage(cfg, &Message{To: "x@example.com", Subject: "s", TextBody: "plain"}))
		if !strings.Contains(raw, "Content-Type: text/plain; charset=UTF-8") {
			t.Errorf("expected plain content type: %q", raw)
		}
		if !strings.HasSuffix(raw, "\r\n\r\nplain") {
			t.Errorf("unexpected body: %q", raw)
		}
	})
}
