// Package customerservice is the customer-service module scaffold. Only the
// configuration and workflow are defined; the handlers are stubs.
package customerservice

import (
	"carebot/internal/business"
	"context"
	"time"
)

const Name = "customer_service"

type Config struct {
	AutoReply           bool
	Greeting            string
	ResponseTimeout     time.Duration
	EscalationThreshold int // unanswered turns before a human takes over
	Languages           []string
	BusinessHours       string
}

// DefaultConfig returns the built-in module settings.
func DefaultConfig() Config {
	return Config{
		AutoReply:           true,
		Greeting:            "Hi! How can we help you today?",
		ResponseTimeout:     30 * time.Second,
		EscalationThreshold: 3,
		Languages:           []string{"en", "id"},
		BusinessHours:       "09:00-17:00",
	}
}

// Workflow returns the ordered stages an inquiry goes through.
func Workflow() []business.Stage {
	return []business.Stage{
		"receive_message",
		"identify_customer",
		"classify_intent",
		"answer_faq",
		"escalate_to_agent",
		"collect_feedback",
		"close_ticket",
	}
}

func Module() business.Module {
	return business.Module{Name: Name, Workflow: Workflow()}
}

// Inquiry is an incoming customer question.
type Inquiry struct {
	CustomerID string
	Channel    string
	Text       string
}

type Reply struct {
	Text      string
	Escalated bool
}

// HandleInquiry is not implemented.
func HandleInquiry(ctx context.Context, in Inquiry) (Reply, error) {
	return Reply{}, business.NotImplemented(Name, "handle inquiry")
}

// Escalate is not implemented.
func Escalate(ctx context.Context, ticketID string) error {
	return business.NotImplemented(Name, "escalate")
}
