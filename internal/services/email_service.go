package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/email"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/metrics"
)

const welcomeTemplate = `# Welcome aboard

Your **%s** account for %s is ready. Sign in to start onboarding; you can
save your answers as you go and come back at any time.
`

type EmailService struct {
	sender email.Sender
}

func NewEmailService(sender email.Sender) *EmailService {
	return &EmailService{sender: sender}
}

// SendRequest is the passthrough payload. Markdown may stand in for HTML.
type SendRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Markdown string `json:"markdown,omitempty"`
}

func (s *EmailService) Send(ctx context.Context, req SendRequest) error {
	html := req.HTML
	if strings.TrimSpace(html) == "" && strings.TrimSpace(req.Markdown) != "" {
		rendered, err := email.RenderMarkdown(req.Markdown)
		if err != nil {
			return validation("markdown: %v", err)
		}
		html = rendered
	}
	var missing []string
	if strings.TrimSpace(req.To) == "" {
		missing = append(missing, "to")
	}
	if strings.TrimSpace(req.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(html) == "" {
		missing = append(missing, "html")
	}
	if len(missing) > 0 {
		return validation("missing required fields: %s", strings.Join(missing, ", "))
	}

	if err := s.sender.Send(ctx, email.Message{To: req.To, Subject: req.Subject, HTML: html}); err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	metrics.EmailsSent.WithLabelValues("sent").Inc()
	return nil
}

// SendWelcome mails a new user in the background; failures are only logged.
func (s *EmailService) SendWelcome(to, role string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := s.Send(ctx, SendRequest{
			To:       to,
			Subject:  "Welcome to the marketplace",
			Markdown: fmt.Sprintf(welcomeTemplate, role, to),
		})
		if err != nil {
			slog.Error("welcome email failed", "to", to, "error", err)
		}
	}()
}
