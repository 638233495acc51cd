package gateway

import (
	"context"
	"fmt"
	"time"

	xendit "github.com/xendit/xendit-go/v6"
	"github.com/xendit/xendit-go/v6/invoice"
)

// Invoice is what the orchestrator stores back on a Payment after a
// successful gateway call.
type Invoice struct {
	GatewayID  string
	PaymentURL string
	ExpiresAt  *time.Time
}

type ChargeRequest struct {
	ExternalID  string
	Amount      int
	Description string
	PayerEmail  string
	// Gateway payment-method filter, e.g. ["BCA"] or ["OVO"]. Empty lets the
	// payer choose on the checkout page.
	Methods []string
}

// Gateway abstracts the external payment provider so settlement logic can be
// exercised against a fake in tests.
type Gateway interface {
	CreateInvoice(ctx context.Context, req ChargeRequest) (*Invoice, error)
	ExpireInvoice(ctx context.Context, gatewayID string) error
}

type XenditGateway struct {
	client *xendit.APIClient
}

func NewXenditGateway(client *xendit.APIClient) *XenditGateway {
	return &XenditGateway{client: client}
}

func (g *XenditGateway) CreateInvoice(ctx context.Context, req ChargeRequest) (*Invoice, error) {
	body := invoice.NewCreateInvoiceRequest(req.ExternalID, float64(req.Amount))
	body.SetDescription(req.Description)
	body.SetCurrency("IDR")
	if req.PayerEmail != "" {
		body.SetPayerEmail(req.PayerEmail)
	}
	if len(req.Methods) > 0 {
		body.SetPaymentMethods(req.Methods)
	}

	inv, _, xndErr := g.client.InvoiceApi.CreateInvoice(ctx).CreateInvoiceRequest(*body).Execute()
	if xndErr != nil {
		return nil, fmt.Errorf("xendit create invoice: %s", xndErr.Error())
	}

	result := &Invoice{
		GatewayID:  inv.GetId(),
		PaymentURL: inv.GetInvoiceUrl(),
	}
	if expiry := inv.GetExpiryDate(); !expiry.IsZero() {
		result.ExpiresAt = &expiry
	}
	return result, nil
}

func (g *XenditGateway) ExpireInvoice(ctx context.Context, gatewayID string) error {
	_, _, xndErr := g.client.InvoiceApi.ExpireInvoice(ctx, gatewayID).Execute()
	if xndErr != nil {
		return fmt.Errorf("xendit expire invoice: %s", xndErr.Error())
	}
	return nil
}
