package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"circles-service/internal/models"
)

// DefaultRoutingKey is where invitation mail requests are published.
const DefaultRoutingKey = "mail.invitation"

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("mail dispatch unavailable")

// Publisher is satisfied by the RabbitMQ publisher.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// MailRequest is the message consumed by the mail worker.
type MailRequest struct {
	Template string            `json:"template"`
	To       string            `json:"to"`
	Subject  string            `json:"subject"`
	TextBody string            `json:"text_body"`
	HTMLBody string            `json:"html_body"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LogFields implements rabbitmq.LogDescriber. The recipient is left out.
func (m MailRequest) LogFields() logrus.Fields {
	return logrus.Fields{"event_type": "mail_request", "template": m.Template}
}

// Sender renders invitation emails and hands them to the mail queue.
type Sender struct {
	publisher  Publisher
	routingKey string
	siteName   string
	breaker    *gobreaker.CircuitBreaker[struct{}]
}

// NewSender builds a Sender. After five consecutive publish failures the
// breaker opens for 30 seconds and sends fail fast.
func NewSender(publisher Publisher, routingKey, siteName string) *Sender {
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}
	return &Sender{
		publisher:  publisher,
		routingKey: routingKey,
		siteName:   siteName,
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "invitation-mail",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logrus.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("mail breaker state changed")
			},
		}),
	}
}

// SendInvitation publishes one invitation email.
func (s *Sender) SendInvitation(ctx context.Context, email models.InvitationEmail) error {
	if email.To == "" {
		return errors.New("invitation email has no recipient")
	}

	data := newInvitationEmailData(s.siteName, email)
	html, err := buildInvitationHTML(data)
	if err != nil {
		return err
	}
	req := MailRequest{
		Template: "group_invitation",
		To:       email.To,
		Subject:  invitationSubject(data),
		TextBody: buildInvitationText(data),
		HTMLBody: html,
		Metadata: map[string]string{"group_name": data.GroupName},
	}

	_, err = s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.publisher.Publish(ctx, s.routingKey, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("publish invitation email: %w", err)
	}
	return nil
}
