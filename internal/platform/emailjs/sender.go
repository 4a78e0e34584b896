// Package emailjs delivers notification messages through the EmailJS REST API.
package emailjs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cuenca-ubate/internal/config"
	"cuenca-ubate/internal/domain/notification"
)

const sendPath = "/api/v1.0/email/send"

// SendError is a non-2xx answer from EmailJS
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("emailjs: status %d: %s", e.StatusCode, e.Body)
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// Sender implements notification.Sender
type Sender struct {
	cfg        config.EmailConfig
	endpoint   string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewSender creates an EmailJS sender
func NewSender(cfg config.EmailConfig, httpClient *http.Client) *Sender {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Sender{
		cfg:        cfg,
		endpoint:   strings.TrimRight(cfg.URL, "/") + sendPath,
		httpClient: httpClient,
		tracer:     otel.Tracer("cuenca-ubate/emailjs"),
	}
}

// Send delivers msg to one recipient
func (s *Sender) Send(ctx context.Context, to notification.Recipient, msg notification.Message) error {
	ctx, span := s.tracer.Start(ctx, "emailjs.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("email.template", string(msg.Template))),
	)
	defer span.End()

	if err := s.send(ctx, to, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s *Sender) send(ctx context.Context, to notification.Recipient, msg notification.Message) error {
	params := make(map[string]string, len(msg.Params)+2)
	for k, v := range msg.Params {
		params[k] = v
	}
	params["to_email"] = to.Email
	if to.Name != "" {
		params["to_name"] = to.Name
	}

	payload, err := json.Marshal(sendRequest{
		ServiceID:      s.cfg.ServiceID,
		TemplateID:     s.templateFor(msg.Template),
		UserID:         s.cfg.PublicKey,
		AccessToken:    s.cfg.PrivateKey,
		TemplateParams: params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return &SendError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (s *Sender) templateFor(t notification.Template) string {
	if t == notification.TemplateAdmin && s.cfg.AdminTemplateID != "" {
		return s.cfg.AdminTemplateID
	}
	return s.cfg.TemplateID
}
