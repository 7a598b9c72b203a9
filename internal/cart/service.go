package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/kafka"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"
	"ms-licensing/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DBLayer interface {
	AddItem(item models.CartItem) error
	GetItemsByUser(userID string) ([]models.CartItem, error)
	RemoveItem(userID, itemID string) error
	ClearCart(userID string) error
	GetCoupon(code string) (*models.Coupon, error)
	CreateInvoice(invoice models.Invoice, items []models.InvoiceItem) error
	GetInvoiceByID(id string) (*models.InvoiceWithItems, error)
	ListInvoicesByUser(userID string) ([]models.Invoice, error)
	SetInvoiceStatus(id string, status models.InvoiceStatus, txnID string) error
	SetItemFulfillment(itemID string, status models.FulfillmentStatus) error
}

// Catalog is the slice of the catalog service checkout needs.
type Catalog interface {
	GetMusic(id string) (*models.Music, error)
	ResolvePrice(musicID string, tier models.LicenseTier) (decimal.Decimal, error)
	PurchaseLicense(musicID string, tier models.LicenseTier, buyerID string) (decimal.Decimal, error)
}

// Orders is the slice of the order service checkout needs.
type Orders interface {
	GetOrder(id string) (*models.Order, error)
	RecordPayment(orderID string) error
}

// Gateway charges the external payment provider. Timeouts are bounded by
// ctx; the core never blocks on the gateway indefinitely.
type Gateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, currency, methodRef, idempotencyKey string) (models.PaymentResult, error)
}

// LicenseIssuer creates license records for purchased music lines.
type LicenseIssuer interface {
	IssueForPurchase(userID, musicID, invoiceID string, tier models.LicenseTier, price decimal.Decimal) (*models.License, error)
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

type CartService struct {
	DB            DBLayer
	Catalog       Catalog
	Orders        Orders
	Gateway       Gateway
	Licenses      LicenseIssuer
	Kafka         KafkaPublisher
	Pricer        *Pricer
	Logger        *logger.Logger
	Currency      string
	ChargeTimeout time.Duration
}

func NewCartService(db DBLayer, catalog Catalog, orders Orders, gateway Gateway, licenses LicenseIssuer,
	kafkaPub KafkaPublisher, pricer *Pricer, log *logger.Logger, currency string, chargeTimeout time.Duration) *CartService {
	return &CartService{
		DB:            db,
		Catalog:       catalog,
		Orders:        orders,
		Gateway:       gateway,
		Licenses:      licenses,
		Kafka:         kafkaPub,
		Pricer:        pricer,
		Logger:        log,
		Currency:      currency,
		ChargeTimeout: chargeTimeout,
	}
}

// ---------------- CART ----------------

// AddItem validates the referenced entity before the line enters the cart:
// music must be priced for the chosen tier, order payments must belong to
// the caller and actually be payable.
func (s *CartService) AddItem(userID string, req models.CartItemRequest) (*models.CartItem, error) {
	switch req.Kind {
	case models.CartItemMusic:
		if _, err := s.Catalog.ResolvePrice(req.MusicID, req.Tier); err != nil {
			return nil, err
		}
	case models.CartItemOrderPayment:
		order, err := s.Orders.GetOrder(req.OrderID)
		if err != nil {
			return nil, err
		}
		if order.CustomerID != userID {
			return nil, errs.ErrUnauthorized
		}
		if order.Status != models.OrderStatusReadyForPayment {
			return nil, errs.InvalidState("add_order_payment", order.Status)
		}
	default:
		return nil, fmt.Errorf("unknown cart item kind: %q", req.Kind)
	}

	item := models.CartItem{
		CartItemID: uuid.NewString(),
		UserID:     userID,
		Kind:       req.Kind,
		MusicID:    req.MusicID,
		Tier:       req.Tier,
		OrderID:    req.OrderID,
		AddedAt:    time.Now(),
	}

	if err := s.DB.AddItem(item); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	return &item, nil
}

func (s *CartService) ListItems(userID string) ([]models.CartItem, error) {
	return s.DB.GetItemsByUser(userID)
}

func (s *CartService) RemoveItem(userID, itemID string) error {
	return s.DB.RemoveItem(userID, itemID)
}

// ---------------- QUOTE ----------------

// Quote prices the cart. An unknown coupon code is not an error: the
// storefront treats it as "no discount" and reports why.
func (s *CartService) Quote(userID, couponCode string) (*models.Quote, error) {
	items, err := s.DB.GetItemsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	quote := &models.Quote{Lines: make([]models.QuoteLine, 0, len(items))}
	for _, item := range items {
		line, err := s.priceLine(userID, item)
		if err != nil {
			return nil, err
		}
		quote.Lines = append(quote.Lines, line)
	}

	rate := decimal.Zero
	if couponCode != "" {
		coupon, err := s.DB.GetCoupon(couponCode)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			quote.CouponReason = "unknown coupon code"
		case err != nil:
			return nil, fmt.Errorf("failed to look up coupon: %w", err)
		default:
			rate = coupon.Rate
			quote.CouponCode = coupon.Code
		}
	}

	s.Pricer.Compute(quote, rate)
	return quote, nil
}

func (s *CartService) priceLine(userID string, item models.CartItem) (models.QuoteLine, error) {
	line := models.QuoteLine{
		CartItemID: item.CartItemID,
		Kind:       item.Kind,
		MusicID:    item.MusicID,
		OrderID:    item.OrderID,
		Tier:       item.Tier,
	}

	switch item.Kind {
	case models.CartItemMusic:
		music, err := s.Catalog.GetMusic(item.MusicID)
		if err != nil {
			return line, err
		}
		price, err := s.Catalog.ResolvePrice(item.MusicID, item.Tier)
		if err != nil {
			return line, err
		}
		line.Description = fmt.Sprintf("%s (%s license)", music.Title, item.Tier)
		line.UnitPrice = price
	case models.CartItemOrderPayment:
		order, err := s.Orders.GetOrder(item.OrderID)
		if err != nil {
			return line, err
		}
		if order.CustomerID != userID {
			return line, errs.ErrUnauthorized
		}
		if !order.OfferedPrice.Valid {
			return line, errs.InvalidState("price_order_payment", order.Status)
		}
		line.Description = fmt.Sprintf("Commission payment for order %s", order.OrderID)
		line.UnitPrice = order.OfferedPrice.Decimal
	default:
		return line, fmt.Errorf("unknown cart item kind: %q", item.Kind)
	}

	return line, nil
}

// ---------------- CHECKOUT ----------------

// Checkout freezes the quote into an invoice, charges the gateway, and on
// success fulfills every line. A gateway timeout leaves the invoice pending
// and all orders untouched, so the client can retry with the same
// idempotency key; a decline marks the invoice failed. Per-line fulfillment
// outcomes are recorded on the returned invoice items.
func (s *CartService) Checkout(userID string, req models.ChargeRequest) (*models.InvoiceWithItems, error) {
	quote, err := s.Quote(userID, req.CouponCode)
	if err != nil {
		return nil, err
	}
	if len(quote.Lines) == 0 {
		return nil, fmt.Errorf("cart is empty")
	}

	now := time.Now()
	invoice := models.Invoice{
		InvoiceID:  utils.NewInvoiceRef(),
		UserID:     userID,
		Status:     models.InvoicePending,
		CouponCode: quote.CouponCode,
		Subtotal:   quote.Subtotal,
		Discount:   quote.Discount,
		Tax:        quote.Tax,
		Total:      quote.Total,
		Currency:   s.Currency,
		CreatedAt:  now,
	}

	items := make([]models.InvoiceItem, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		items = append(items, models.InvoiceItem{
			ItemID:      uuid.NewString(),
			InvoiceID:   invoice.InvoiceID,
			Kind:        line.Kind,
			MusicID:     line.MusicID,
			OrderID:     line.OrderID,
			Tier:        line.Tier,
			Description: line.Description,
			UnitPrice:   line.UnitPrice,
			Fulfillment: models.FulfillmentPending,
		})
	}

	// Snapshot persisted before the gateway is involved. Price edits after
	// this point can never change what the customer is billed.
	if err := s.DB.CreateInvoice(invoice, items); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	s.publishInvoice("invoice_created", &invoice)

	if err := s.charge(&invoice, req); err != nil {
		return nil, err
	}

	s.fulfill(&invoice, items)

	if err := s.DB.ClearCart(userID); err != nil {
		s.Logger.Error("CART", fmt.Sprintf("Failed to clear cart for %s: %v", userID, err))
	}

	return s.DB.GetInvoiceByID(invoice.InvoiceID)
}

// RetryInvoice re-charges a pending invoice after a gateway timeout. The
// idempotency key is derived from the invoice id, so a charge that did land
// on the gateway side is not duplicated.
func (s *CartService) RetryInvoice(userID, invoiceID string, req models.ChargeRequest) (*models.InvoiceWithItems, error) {
	stored, err := s.DB.GetInvoiceByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if stored.UserID != userID {
		return nil, errs.ErrUnauthorized
	}
	if stored.Status != models.InvoicePending {
		return nil, errs.InvalidState("retry_invoice", stored.Status)
	}

	if err := s.charge(&stored.Invoice, req); err != nil {
		return nil, err
	}

	s.fulfill(&stored.Invoice, stored.Items)
	if err := s.DB.ClearCart(userID); err != nil {
		s.Logger.Error("CART", fmt.Sprintf("Failed to clear cart for %s: %v", userID, err))
	}

	return s.DB.GetInvoiceByID(invoiceID)
}

func (s *CartService) charge(invoice *models.Invoice, req models.ChargeRequest) error {
	key := req.IdempotencyKey
	if key == "" {
		key = utils.NewIdempotencyKey(invoice.InvoiceID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ChargeTimeout)
	defer cancel()

	result, err := s.Gateway.Charge(ctx, invoice.Total, invoice.Currency, req.MethodRef, key)
	switch {
	case errors.Is(err, errs.ErrGatewayTimeout):
		// Retriable: nothing is marked paid, orders stay where they were.
		s.Logger.Error("PAYMENT", fmt.Sprintf("Gateway timeout charging invoice %s", invoice.InvoiceID))
		return err
	case errors.Is(err, errs.ErrGatewayDeclined):
		if dbErr := s.DB.SetInvoiceStatus(invoice.InvoiceID, models.InvoiceFailed, ""); dbErr != nil {
			s.Logger.Error("PAYMENT", fmt.Sprintf("Failed to mark invoice %s failed: %v", invoice.InvoiceID, dbErr))
		}
		invoice.Status = models.InvoiceFailed
		s.publishInvoice("payment_declined", invoice)
		return err
	case err != nil:
		return fmt.Errorf("gateway error charging invoice %s: %w", invoice.InvoiceID, err)
	}

	if err := s.DB.SetInvoiceStatus(invoice.InvoiceID, models.InvoicePaid, result.TxnID); err != nil {
		return fmt.Errorf("charge succeeded but invoice %s not marked paid: %w", invoice.InvoiceID, err)
	}
	invoice.Status = models.InvoicePaid
	invoice.TxnID = result.TxnID
	s.publishInvoice("payment_succeeded", invoice)
	return nil
}

// fulfill issues what was bought, line by line. Transient failures leave
// the line pending for an out-of-band retry (orders expose
// CompleteIssuance, music issuance is idempotent per invoice line). A lost
// exclusive buyout can never succeed, so the line is marked failed and a
// refund request goes out for the payment collaborator; the payment itself
// is never undone here.
func (s *CartService) fulfill(invoice *models.Invoice, items []models.InvoiceItem) {
	for _, item := range items {
		if item.Fulfillment == models.FulfillmentFulfilled || item.Fulfillment == models.FulfillmentFailed {
			continue
		}
		switch item.Kind {
		case models.CartItemMusic:
			if _, err := s.Catalog.PurchaseLicense(item.MusicID, item.Tier, invoice.UserID); err != nil {
				if errors.Is(err, errs.ErrExclusiveAlreadySold) {
					s.failLine(invoice, item, err)
					continue
				}
				s.Logger.Error("CART", fmt.Sprintf("Purchase registration failed for music %s on invoice %s: %v",
					item.MusicID, invoice.InvoiceID, err))
				continue
			}
			if _, err := s.Licenses.IssueForPurchase(invoice.UserID, item.MusicID, invoice.InvoiceID, item.Tier, item.UnitPrice); err != nil {
				s.Logger.Error("CART", fmt.Sprintf("License issuance failed for music %s on invoice %s: %v",
					item.MusicID, invoice.InvoiceID, err))
				continue
			}
			s.markFulfilled(invoice, item)
		case models.CartItemOrderPayment:
			if err := s.Orders.RecordPayment(item.OrderID); err != nil {
				s.Logger.Error("CART", fmt.Sprintf("Order payment recording failed for order %s on invoice %s: %v",
					item.OrderID, invoice.InvoiceID, err))
				continue
			}
			s.markFulfilled(invoice, item)
		}
	}
}

func (s *CartService) markFulfilled(invoice *models.Invoice, item models.InvoiceItem) {
	if err := s.DB.SetItemFulfillment(item.ItemID, models.FulfillmentFulfilled); err != nil {
		s.Logger.Error("CART", fmt.Sprintf("Failed to mark item %s fulfilled on invoice %s: %v",
			item.ItemID, invoice.InvoiceID, err))
	}
}

// failLine records a permanently unfulfillable line and publishes a refund
// request so the money taken for it goes back.
func (s *CartService) failLine(invoice *models.Invoice, item models.InvoiceItem, cause error) {
	s.Logger.Error("CART", fmt.Sprintf("Line %s on invoice %s is unfulfillable: %v",
		item.ItemID, invoice.InvoiceID, cause))
	if err := s.DB.SetItemFulfillment(item.ItemID, models.FulfillmentFailed); err != nil {
		s.Logger.Error("CART", fmt.Sprintf("Failed to mark item %s failed on invoice %s: %v",
			item.ItemID, invoice.InvoiceID, err))
	}

	event := models.RefundEvent{
		Type:      "refund_requested",
		InvoiceID: invoice.InvoiceID,
		ItemID:    item.ItemID,
		MusicID:   item.MusicID,
		UserID:    invoice.UserID,
		Amount:    DisplayAmount(item.UnitPrice),
		Reason:    cause.Error(),
		Timestamp: time.Now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("CART", fmt.Sprintf("Failed to marshal refund event: %v", err))
		return
	}
	if err := s.Kafka.Publish(kafka.TopicPaymentRefunded, invoice.InvoiceID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (refund_requested): %v", err))
	}
}

func (s *CartService) ListInvoices(userID string) ([]models.Invoice, error) {
	return s.DB.ListInvoicesByUser(userID)
}

func (s *CartService) GetInvoice(userID, invoiceID string) (*models.InvoiceWithItems, error) {
	invoice, err := s.DB.GetInvoiceByID(invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.UserID != userID {
		return nil, errs.ErrUnauthorized
	}
	return invoice, nil
}

func (s *CartService) publishInvoice(eventType string, invoice *models.Invoice) {
	event := models.InvoiceEvent{
		Type:      eventType,
		InvoiceID: invoice.InvoiceID,
		UserID:    invoice.UserID,
		Status:    invoice.Status,
		Total:     DisplayAmount(invoice.Total),
		Timestamp: time.Now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("CART", fmt.Sprintf("Failed to marshal %s event: %v", eventType, err))
		return
	}
	topic := kafka.TopicInvoiceCreated
	switch eventType {
	case "payment_succeeded":
		topic = kafka.TopicPaymentSuccess
	case "payment_declined":
		topic = kafka.TopicPaymentFailed
	}
	if err := s.Kafka.Publish(topic, invoice.InvoiceID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (%s): %v", eventType, err))
	}
}
