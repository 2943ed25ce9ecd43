package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "",
		FromEmail: "test@example.com",
	}, nil)

	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{
		APIKey:    "test-key",
		FromEmail: "test@example.com",
	}, nil)

	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != defaultFromName {
		t.Errorf("expected default from name %q, got %q", defaultFromName, sender.fromName)
	}
}

func TestSendGridSender_NilClient(t *testing.T) {
	var sender *SendGridSender
	if err := sender.Send(context.Background(), EmailMessage{To: "a@b.com"}); err == nil {
		t.Error("expected error when sender is nil")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	sender := NewStubEmailSender(nil)
	err := sender.Send(context.Background(), EmailMessage{
		To:      "recipient@example.com",
		Subject: "Test Subject",
		Body:    "Test body",
	})
	if err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "ventas@acme.com"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "equipo@acme.com",
		Subject: "Nuevo lead",
		Body:    "texto",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if api.input.ReplyToAddresses != nil || api.input.EmailTags != nil {
		t.Fatalf("expected no reply-to or tags, got %+v", api.input)
	}
	if got := aws.ToString(api.input.FromEmailAddress); got != "Asistente comercial <ventas@acme.com>" {
		t.Fatalf("unexpected from address %q", got)
	}
	body := api.input.Content.Simple.Body
	if body.Text == nil || body.Html != nil {
		t.Fatalf("expected text-only body, got %+v", body)
	}

	api.err = errors.New("throttled")
	if err := sender.Send(context.Background(), EmailMessage{To: "x@y.com", Subject: "Nuevo lead"}); err == nil {
		t.Fatal("expected SES error to propagate")
	}

	if NewSESSender(nil, SESConfig{}, nil) != nil {
		t.Fatal("expected nil sender without client")
	}
}

func TestSESSender_ReplyToAndCategory(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "ventas@acme.com", FromName: "Acme"}, nil)

	err := sender.Send(context.Background(), EmailMessage{
		To:       "equipo@acme.com",
		ReplyTo:  "juan@cliente.pe",
		Subject:  "Nuevo lead",
		HTML:     "<p>hola</p>",
		Category: LeadCategory,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(api.input.ReplyToAddresses) != 1 || api.input.ReplyToAddresses[0] != "juan@cliente.pe" {
		t.Fatalf("unexpected reply-to %v", api.input.ReplyToAddresses)
	}
	if len(api.input.EmailTags) != 1 || aws.ToString(api.input.EmailTags[0].Value) != LeadCategory {
		t.Fatalf("unexpected tags %+v", api.input.EmailTags)
	}
}

func TestEmailMessage_Validate(t *testing.T) {
	tests := []struct {
		name string
		msg  EmailMessage
		want error
	}{
		{"valid", EmailMessage{To: "a@b.com", Subject: "Hola"}, nil},
		{"missing recipient", EmailMessage{To: "  ", Subject: "Hola"}, ErrMissingRecipient},
		{"missing subject", EmailMessage{To: "a@b.com"}, ErrMissingSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.msg.Validate(); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "ventas@acme.com"}, nil)
	if err := sender.Send(context.Background(), EmailMessage{Subject: "Hola"}); !errors.Is(err, ErrMissingRecipient) {
		t.Fatalf("expected validation before the provider call, got %v", err)
	}
	if api.input != nil {
		t.Fatal("provider must not be called for an invalid message")
	}
	if err := NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "a@b.com"}); !errors.Is(err, ErrMissingSubject) {
		t.Fatalf("expected stub to validate, got %v", err)
	}
}

func TestSendGridSender_BuildMessage(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "ventas@acme.com"}, nil)

	msg := sender.buildMessage(EmailMessage{
		To:       "equipo@acme.com",
		ReplyTo:  "juan@cliente.pe",
		Subject:  "Nuevo lead",
		Body:     "texto",
		Category: LeadCategory,
	})
	if msg.From.Name != defaultFromName || msg.From.Address != "ventas@acme.com" {
		t.Fatalf("unexpected from %+v", msg.From)
	}
	if msg.ReplyTo == nil || msg.ReplyTo.Address != "juan@cliente.pe" {
		t.Fatalf("unexpected reply-to %+v", msg.ReplyTo)
	}
	if len(msg.Categories) != 1 || msg.Categories[0] != LeadCategory {
		t.Fatalf("unexpected categories %v", msg.Categories)
	}
	if len(msg.Content) != 2 || msg.Content[1].Value != "texto" {
		t.Fatalf("expected the text body reused as html, got %+v", msg.Content)
	}

	plain := sender.buildMessage(EmailMessage{To: "equipo@acme.com", Subject: "Hola", Body: "x"})
	if plain.ReplyTo != nil || len(plain.Categories) != 0 {
		t.Fatalf("expected no reply-to or categories, got %+v", plain)
	}
}
