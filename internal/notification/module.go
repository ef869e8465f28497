// Package notification delivers customer-facing notifications in response
// to domain events.
package notification

import (
	"context"
	"fmt"
	"time"

	"salesops_backend/internal/email"
	"salesops_backend/internal/events"
	"salesops_backend/platform/logger"
)

// Module subscribes to quotation events and sends the matching email.
type Module struct {
	sender email.Sender
	log    *logger.Logger
}

// NewModule creates the notification module and registers its event
// subscriptions on the bus.
func NewModule(bus events.Bus, sender email.Sender, log *logger.Logger) *Module {
	m := &Module{sender: sender, log: log}

	bus.Subscribe(events.QuotationSent{}.EventName(), events.HandlerFunc(m.onQuotationSent))

	return m
}

func (m *Module) onQuotationSent(ctx context.Context, event events.Event) error {
	sent, ok := event.(events.QuotationSent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}
	if sent.CustomerEmail == "" {
		m.log.Debug("quotation sent without customer email, skipping notification", "quotation_id", sent.QuotationID)
		return nil
	}

	data := email.QuotationSentData{
		QuotationNumber: sent.QuotationNumber,
		CustomerName:    sent.CustomerName,
		SalesmanName:    sent.SalesmanName,
		TotalFormatted:  formatCents(sent.TotalCents),
	}
	if sent.ValidUntil != nil {
		data.ValidUntil = sent.ValidUntil.Format("2 January 2006")
	}

	sendCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := m.sender.SendQuotationSent(sendCtx, sent.CustomerEmail, data); err != nil {
		m.log.Error("failed to send quotation notification", "error", err, "quotation_id", sent.QuotationID)
		return err
	}

	m.log.Info("quotation notification sent", "quotation_id", sent.QuotationID, "to", sent.CustomerEmail)
	return nil
}

func formatCents(cents int64) string {
	return fmt.Sprintf("₹%.2f", float64(cents)/100)
}
