package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/kineticlab/physio-academy-backend/pkg/config"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

type fakeMailClient struct {
	sent []*mail.SGMailV3
	resp *rest.Response
	err  error
}

func (f *fakeMailClient) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	return f.resp, f.err
}

var testSendgridConfig = config.SendgridConfig{DefaultFrom: "billing@example.com", FromName: "Academy"}

func TestSendgridSenderBuildsMessage(t *testing.T) {
	client := &fakeMailClient{resp: &rest.Response{StatusCode: 202}}
	sender := newSendgridSender(client, testSendgridConfig, logger.Nop())

	err := sender.SendInvoice(context.Background(), Invoice{
		To:        "ana@example.com",
		Name:      "Ana <Physio>",
		PlanType:  enums.PlanTypeMonthly,
		PlanName:  "Monthly",
		Amount:    2400,
		Currency:  "eur",
		PromoCode: "SAVE20",
		PeriodEnd: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Reference: "sub_1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(client.sent))
	}
	msg := client.sent[0]
	if msg.Subject != "Your Monthly plan is active" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if msg.From.Address != "billing@example.com" {
		t.Fatalf("unexpected from %q", msg.From.Address)
	}
	if len(msg.Personalizations) != 1 || msg.Personalizations[0].To[0].Address != "ana@example.com" {
		t.Fatalf("unexpected recipients")
	}
	if len(msg.Content) != 2 {
		t.Fatalf("expected plain and html content")
	}
	plain, htmlBody := msg.Content[0].Value, msg.Content[1].Value
	for _, want := range []string{"24.00 EUR", "SAVE20", "1 April 2026", "sub_1"} {
		if !strings.Contains(plain, want) {
			t.Fatalf("plain body missing %q: %s", want, plain)
		}
	}
	if strings.Contains(htmlBody, "<Physio>") || !strings.Contains(htmlBody, "&lt;Physio&gt;") {
		t.Fatalf("expected escaped name in html: %s", htmlBody)
	}
}

func TestSendgridSenderErrors(t *testing.T) {
	sender := newSendgridSender(&fakeMailClient{err: errors.New("network")}, testSendgridConfig, logger.Nop())
	if err := sender.SendInvoice(context.Background(), Invoice{To: "a@example.com"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}

	sender = newSendgridSender(&fakeMailClient{resp: &rest.Response{StatusCode: 401}}, testSendgridConfig, logger.Nop())
	if err := sender.SendInvoice(context.Background(), Invoice{To: "a@example.com"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error on non-2xx, got %v", err)
	}

	if err := sender.SendInvoice(context.Background(), Invoice{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error without recipient, got %v", err)
	}
}

func TestNewInvoiceSenderFallsBackToLog(t *testing.T) {
	sender := NewInvoiceSender(config.SendgridConfig{}, nil)
	if _, ok := sender.(*LogSender); !ok {
		t.Fatalf("expected log sender without api key, got %T", sender)
	}
	if err := sender.SendInvoice(context.Background(), Invoice{To: "a@example.com"}); err != nil {
		t.Fatalf("log sender should not fail: %v", err)
	}

	if _, ok := NewInvoiceSender(config.SendgridConfig{APIKey: "SG.key"}, nil).(*SendgridSender); !ok {
		t.Fatalf("expected sendgrid sender with api key")
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(19900, "eur"); got != "199.00 EUR" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatAmount(0, "usd"); got != "0.00 USD" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestRenderLifetimeOmitsPeriodEnd(t *testing.T) {
	_, plain, _ := renderInvoice(Invoice{To: "a@example.com", PlanType: enums.PlanTypeLifetime, PeriodEnd: time.Now().AddDate(100, 0, 0)})
	if strings.Contains(plain, "Access until") {
		t.Fatalf("lifetime invoices should not show an end date: %s", plain)
	}
}
