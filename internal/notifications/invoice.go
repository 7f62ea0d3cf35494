package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"

	"github.com/kineticlab/physio-academy-backend/pkg/config"
	"github.com/kineticlab/physio-academy-backend/pkg/enums"
	pkgerrors "github.com/kineticlab/physio-academy-backend/pkg/errors"
	"github.com/kineticlab/physio-academy-backend/pkg/logger"
)

// Invoice describes a purchase confirmation email.
type Invoice struct {
	To        string
	Name      string
	PlanType  enums.PlanType
	PlanName  string
	Amount    int64
	Currency  string
	PromoCode string
	PeriodEnd time.Time
	Reference string
}

// InvoiceSender delivers purchase confirmations. Callers treat failures as
// best effort.
type InvoiceSender interface {
	SendInvoice(ctx context.Context, invoice Invoice) error
}

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridSender sends invoices through the SendGrid v3 API.
type SendgridSender struct {
	client mailClient
	from   *mail.Email
	logg   *logger.Logger
}

// NewInvoiceSender returns a SendGrid sender when an API key is configured and
// a log-only sender otherwise.
func NewInvoiceSender(cfg config.SendgridConfig, logg *logger.Logger) InvoiceSender {
	if logg == nil {
		logg = logger.Nop()
	}
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return &LogSender{logg: logg}
	}
	return newSendgridSender(sendgrid.NewSendClient(key), cfg, logg)
}

func newSendgridSender(client mailClient, cfg config.SendgridConfig, logg *logger.Logger) *SendgridSender {
	return &SendgridSender{
		client: client,
		from:   mail.NewEmail(cfg.FromName, cfg.DefaultFrom),
		logg:   logg,
	}
}

func (s *SendgridSender) SendInvoice(ctx context.Context, invoice Invoice) error {
	if strings.TrimSpace(invoice.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invoice recipient required")
	}
	subject, plain, htmlBody := renderInvoice(invoice)
	message := mail.NewSingleEmail(s.from, subject, mail.NewEmail(invoice.Name, invoice.To), plain, htmlBody)

	resp, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send invoice email")
	}
	if resp != nil && resp.StatusCode >= 300 {
		return pkgerrors.Newf(pkgerrors.CodeDependency, "sendgrid responded with status %d", resp.StatusCode)
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"plan_type": string(invoice.PlanType),
		"reference": invoice.Reference,
	})
	s.logg.Info(logCtx, "notifications.invoice.sent")
	return nil
}

// LogSender records invoices instead of delivering them.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	if logg == nil {
		logg = logger.Nop()
	}
	return &LogSender{logg: logg}
}

func (s *LogSender) SendInvoice(ctx context.Context, invoice Invoice) error {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"plan_type": string(invoice.PlanType),
		"amount":    invoice.Amount,
		"reference": invoice.Reference,
	})
	s.logg.Info(logCtx, "notifications.invoice.skipped_no_provider")
	return nil
}

// FormatAmount renders minor units as a major-unit string, e.g. 2400 eur -> "24.00 EUR".
func FormatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%s %s", decimal.New(amount, -2).StringFixed(2), strings.ToUpper(currency))
}

func renderInvoice(invoice Invoice) (subject, plain, htmlBody string) {
	planName := invoice.PlanName
	if planName == "" {
		planName = string(invoice.PlanType)
	}
	greeting := invoice.Name
	if greeting == "" {
		greeting = invoice.To
	}
	amount := FormatAmount(invoice.Amount, invoice.Currency)

	subject = fmt.Sprintf("Your %s plan is active", planName)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", greeting)
	fmt.Fprintf(&b, "Thanks for joining. Your %s plan is now active.\n\n", planName)
	fmt.Fprintf(&b, "Amount: %s\n", amount)
	if invoice.PromoCode != "" {
		fmt.Fprintf(&b, "Promo code: %s\n", invoice.PromoCode)
	}
	if !invoice.PeriodEnd.IsZero() && invoice.PlanType != enums.PlanTypeLifetime {
		fmt.Fprintf(&b, "Access until: %s\n", invoice.PeriodEnd.UTC().Format("2 January 2006"))
	}
	if invoice.Reference != "" {
		fmt.Fprintf(&b, "Reference: %s\n", invoice.Reference)
	}
	plain = b.String()

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(plain), "\n") {
		if line == "" {
			continue
		}
		lines = append(lines, "<p>"+html.EscapeString(line)+"</p>")
	}
	htmlBody = strings.Join(lines, "\n")
	return subject, plain, htmlBody
}
