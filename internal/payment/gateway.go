package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// InitStripe initializes the Stripe API with the secret key
func InitStripe(key string) {
	stripe.Key = key
}

type Recorder interface {
	SavePayment(p models.Payment) error
	SetPaymentStatus(paymentID string, status models.PaymentStatus, txnID string) error
}

// StripeGateway charges invoices through Stripe payment intents. Charges
// are keyed by idempotency key so a retried checkout never double-bills.
type StripeGateway struct {
	Records Recorder
	Logger  *logger.Logger

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewStripeGateway(records Recorder, log *logger.Logger) *StripeGateway {
	return &StripeGateway{
		Records:  records,
		Logger:   log,
		inFlight: make(map[string]bool),
	}
}

func (g *StripeGateway) Charge(ctx context.Context, amount decimal.Decimal, currency, methodRef, idempotencyKey string) (models.PaymentResult, error) {
	// Lock this idempotency key to prevent concurrent double-charges
	g.mu.Lock()
	if g.inFlight[idempotencyKey] {
		g.mu.Unlock()
		g.Logger.Warn("PAYMENT", fmt.Sprintf("Charge for key %s is already in progress", idempotencyKey))
		return models.PaymentResult{}, errs.ErrLocked
	}
	g.inFlight[idempotencyKey] = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.inFlight, idempotencyKey)
		g.mu.Unlock()
	}()

	record := models.Payment{
		PaymentID:      idempotencyKey,
		InvoiceID:      strings.TrimPrefix(idempotencyKey, "charge-"),
		Status:         models.PaymentPending,
		Amount:         amount,
		Currency:       currency,
		MethodRef:      methodRef,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now(),
	}
	if err := g.Records.SavePayment(record); err != nil {
		g.Logger.Error("PAYMENT", fmt.Sprintf("Failed to record payment attempt: %v", err))
		return models.PaymentResult{}, err
	}

	// Convert to cents for Stripe
	amountInCents := amount.Mul(decimal.NewFromInt(100)).IntPart()

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountInCents),
		Currency:      stripe.String(currency),
		PaymentMethod: stripe.String(methodRef),
		Confirm:       stripe.Bool(true),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	intent, err := paymentintent.New(params)
	if err != nil {
		return g.failure(idempotencyKey, err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		g.Logger.Warn("PAYMENT", fmt.Sprintf("Payment intent %s ended with status %s", intent.ID, intent.Status))
		if recErr := g.Records.SetPaymentStatus(idempotencyKey, models.PaymentDeclined, intent.ID); recErr != nil {
			g.Logger.Error("PAYMENT", fmt.Sprintf("Failed to mark payment failed: %v", recErr))
		}
		return models.PaymentResult{Success: false, TxnID: intent.ID}, errs.ErrGatewayDeclined
	}

	if recErr := g.Records.SetPaymentStatus(idempotencyKey, models.PaymentSuccess, intent.ID); recErr != nil {
		g.Logger.Error("PAYMENT", fmt.Sprintf("Failed to mark payment succeeded: %v", recErr))
	}

	g.Logger.Info("PAYMENT", fmt.Sprintf("Charged %s %s (intent %s)", amount.String(), currency, intent.ID))
	return models.PaymentResult{Success: true, TxnID: intent.ID}, nil
}

func (g *StripeGateway) failure(idempotencyKey string, err error) (models.PaymentResult, error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		g.Logger.Warn("PAYMENT", fmt.Sprintf("Gateway timed out for key %s: %v", idempotencyKey, err))
		if recErr := g.Records.SetPaymentStatus(idempotencyKey, models.PaymentTimeout, ""); recErr != nil {
			g.Logger.Error("PAYMENT", fmt.Sprintf("Failed to mark payment timeout: %v", recErr))
		}
		return models.PaymentResult{}, errs.ErrGatewayTimeout
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Type {
		case stripe.ErrorTypeCard:
			g.Logger.Warn("PAYMENT", fmt.Sprintf("Card declined for key %s: %s", idempotencyKey, stripeErr.Code))
			if recErr := g.Records.SetPaymentStatus(idempotencyKey, models.PaymentDeclined, ""); recErr != nil {
				g.Logger.Error("PAYMENT", fmt.Sprintf("Failed to mark payment failed: %v", recErr))
			}
			return models.PaymentResult{}, errs.ErrGatewayDeclined
		case stripe.ErrorTypeAPI:
			g.Logger.Warn("PAYMENT", fmt.Sprintf("Gateway unreachable for key %s: %v", idempotencyKey, err))
			return models.PaymentResult{}, errs.ErrGatewayTimeout
		}
	}

	g.Logger.Error("PAYMENT", fmt.Sprintf("Stripe charge failed for key %s: %v", idempotencyKey, err))
	return models.PaymentResult{}, fmt.Errorf("stripe charge: %w", err)
}
