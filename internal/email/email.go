// Package email delivers outbound notification email.
package email

import "context"

// QuotationSentData carries the fields rendered into the sent-quotation
// notification.
type QuotationSentData struct {
	QuotationNumber string
	CustomerName    string
	SalesmanName    string
	TotalFormatted  string
	ValidUntil      string
}

// Sender delivers notification email.
type Sender interface {
	SendQuotationSent(ctx context.Context, toEmail string, data QuotationSentData) error
}

// NoopSender drops all mail. Used when email delivery is disabled.
type NoopSender struct{}

// SendQuotationSent discards the message.
func (NoopSender) SendQuotationSent(ctx context.Context, toEmail string, data QuotationSentData) error {
	return nil
}

var _ Sender = NoopSender{}
