// Package notify delivers notification messages through shoutrrr service URLs
// (smtp://, generic webhooks, chat services).
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/k3a/html2text"
	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cuenca-ubate/internal/domain/notification"
)

// toAddressesParam overrides the recipient list of smtp:// URLs per message
const toAddressesParam = "toaddresses"

// Router is the part of shoutrrr's service router the sender needs
type Router interface {
	Send(message string, params *stypes.Params) []error
}

// ShoutrrrSender implements notification.Sender
type ShoutrrrSender struct {
	mu     sync.Mutex
	router Router
	tracer trace.Tracer
}

// NewShoutrrrSender builds a sender from a shoutrrr URL
func NewShoutrrrSender(serviceURL string, timeout time.Duration) (*ShoutrrrSender, error) {
	if strings.TrimSpace(serviceURL) == "" {
		return nil, errors.New("shoutrrr url is required")
	}
	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("invalid shoutrrr url: %w", sanitize(err, serviceURL))
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))
	return newShoutrrrSender(sender), nil
}

func newShoutrrrSender(r Router) *ShoutrrrSender {
	return &ShoutrrrSender{router: r, tracer: otel.Tracer("cuenca-ubate/notify")}
}

var _ Router = (*router.ServiceRouter)(nil)

// Send delivers msg to one recipient. The body is sent as plain text.
func (s *ShoutrrrSender) Send(ctx context.Context, to notification.Recipient, msg notification.Message) error {
	_, span := s.tracer.Start(ctx, "shoutrrr.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("email.template", string(msg.Template))),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if msg.Title != "" {
		params.SetTitle(msg.Title)
	}
	if to.Email != "" {
		params[toAddressesParam] = to.Email
	}

	s.mu.Lock()
	errs := s.router.Send(PlainBody(to, msg), &params)
	s.mu.Unlock()

	for _, err := range errs {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("shoutrrr send failed: %w", err)
		}
	}
	return nil
}

// PlainBody renders the message body as text with a greeting line
func PlainBody(to notification.Recipient, msg notification.Message) string {
	body := html2text.HTML2Text(msg.Body)
	if to.Name != "" {
		body = "Hola " + to.Name + ",\n\n" + body
	}
	if date := msg.Params["date"]; date != "" {
		body += "\n\n" + date
	}
	return body
}

// sanitize drops credentials from service URLs echoed in errors
func sanitize(err error, serviceURL string) error {
	u, parseErr := url.Parse(serviceURL)
	if parseErr != nil || u.User == nil {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), u.User.String(), "REDACTED"))
}
