package order

import (
	"encoding/json"
	"fmt"
	"time"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/kafka"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"
	"ms-licensing/internal/redislock"

	"github.com/google/uuid"
)

type DBLayer interface {
	CreateOrder(order models.Order) error
	GetOrderByID(id string) (*models.Order, error)
	UpdateOrder(order models.Order) error
	GetOrdersByCustomer(customerID string) ([]models.Order, error)
	GetOrdersByDirector(directorID string) ([]models.Order, error)
	GetOpenOrders() ([]models.Order, error)
	GetOrdersByStatus(status models.OrderStatus) ([]models.Order, error)
}

type OrderLock interface {
	Lock(key, owner string) (bool, error)
	Unlock(key, owner string) error
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

// Issuer creates the download/license record for a completed commission.
type Issuer interface {
	IssueForOrder(order models.Order) (string, error)
}

type OrderService struct {
	DB     DBLayer
	Redis  OrderLock
	Kafka  KafkaPublisher
	Issuer Issuer
	Logger *logger.Logger
}

func NewOrderService(db DBLayer, redis OrderLock, kafkaPub KafkaPublisher, issuer Issuer, log *logger.Logger) *OrderService {
	return &OrderService{DB: db, Redis: redis, Kafka: kafkaPub, Issuer: issuer, Logger: log}
}

// withLock serializes mutations per order. Concurrent offer submissions or
// revision requests on the same order queue up behind the redis key instead
// of racing; the version column in the DB layer is the second line of
// defense.
func (s *OrderService) withLock(orderID string, fn func() error) error {
	key := redislock.OrderKey(orderID)
	owner := uuid.NewString()

	ok, err := s.Redis.Lock(key, owner)
	if err != nil {
		return fmt.Errorf("redis lock error: %w", err)
	}
	if !ok {
		return errs.ErrLocked
	}
	defer func() {
		if err := s.Redis.Unlock(key, owner); err != nil {
			s.Logger.Error("REDIS", fmt.Sprintf("Failed to unlock order %s: %v", orderID, err))
		}
	}()

	return fn()
}

// ---------------- READS ----------------

func (s *OrderService) GetOrder(id string) (*models.Order, error) {
	return s.DB.GetOrderByID(id)
}

func (s *OrderService) ListForCustomer(customerID string) ([]models.Order, error) {
	return s.DB.GetOrdersByCustomer(customerID)
}

func (s *OrderService) ListForDirector(directorID string) ([]models.Order, error) {
	return s.DB.GetOrdersByDirector(directorID)
}

func (s *OrderService) ListOpen() ([]models.Order, error) {
	return s.DB.GetOpenOrders()
}

func (s *OrderService) ListDisputed() ([]models.Order, error) {
	return s.DB.GetOrdersByStatus(models.OrderStatusDisputed)
}

// ---------------- CUSTOMER OPS ----------------

// PlaceOrder creates a new commission in PENDING.
func (s *OrderService) PlaceOrder(customerID string, req models.OrderRequest) (*models.Order, error) {
	if req.IncludedRevisions <= 0 {
		req.IncludedRevisions = 2
	}
	if req.MaxRevisions < req.IncludedRevisions {
		req.MaxRevisions = req.IncludedRevisions
	}
	if req.PaymentModel == "" {
		req.PaymentModel = models.PayOnCompletion
	}

	now := time.Now()
	order := models.Order{
		OrderID:            uuid.NewString(),
		CustomerID:         customerID,
		DirectorID:         req.DirectorID,
		Status:             models.OrderStatusPending,
		Brief:              req.Brief,
		Budget:             req.Budget,
		PaymentModel:       req.PaymentModel,
		IncludedRevisions:  req.IncludedRevisions,
		MaxRevisions:       req.MaxRevisions,
		ProductionTimeDays: req.ProductionTimeDays,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.DB.CreateOrder(order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.publish(kafka.TopicOrderCreated, "order_created", &order, "")
	return &order, nil
}

// AcceptOffer moves OFFER_PENDING through OFFER_ACCEPTED into IN_PROGRESS.
// The intermediate state is recorded via offer_accepted_at; the order lands
// in IN_PROGRESS in the same write.
func (s *OrderService) AcceptOffer(customerID, orderID string) error {
	return s.withLock(orderID, func() error {
		order, err := s.DB.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return errs.ErrUnauthorized
		}
		// The intermediate offer_accepted edge is traversed in-memory;
		// only in_progress is persisted.
		if err := advance(order, models.OrderStatusOfferAccepted, "accept_offer"); err != nil {
			return err
		}
		if err := advance(order, models.OrderStatusInProgress, "accept_offer"); err != nil {
			return err
		}
		order.OfferAcceptedAt = time.Now()
		order.UpdatedAt = order.OfferAcceptedAt

		if err := s.DB.UpdateOrder(*order); err != nil {
			return fmt.Errorf("failed to accept offer on order %s: %w", orderID, err)
		}

		s.publish(kafka.TopicOrderUpdated, "offer_accepted", order, "")
		return nil
	})
}

// RequestRevision increments the revision counter and parks the order in
// REVISION_REQUESTED. Past the included allowance the call fails and the
// order is untouched; paid add-on revisions are a separate billable flow
// not modeled here.
func (s *OrderService) RequestRevision(customerID, orderID, note string) error {
	return s.withLock(orderID, func() error {
		order, err := s.DB.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != customerID {
			return errs.ErrUnauthorized
		}
		if err := advance(order, models.OrderStatusRevisionRequested, "request_revision"); err != nil {
			return err
		}
		if order.UsedRevisions >= order.IncludedRevisions {
			return errs.ErrRevisionLimitExceeded
		}

		order.UsedRevisions++
		order.RevisionNote = note
		order.UpdatedAt = time.Now()

		if err := s.DB.UpdateOrder(*order); err != nil {
			return fmt.Errorf("failed to request revision on order %s: %w", orderID, err)
		}

		s.publish(kafka.TopicOrderUpdated, "revision_requested", order, note)
		return nil
	})
}

// Cancel terminates an order from any state before money changed hands.
func (s *OrderService) Cancel(actorID, orderID, reason string) error {
	return s.withLock(orderID, func() error {
		order, err := s.DB.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != actorID && order.DirectorID != actorID {
			return errs.ErrUnauthorized
		}
		// The disputed→cancelled edge is reserved for admin resolution;
		// participants cannot cancel out from under an open dispute.
		if order.Status == models.OrderStatusDisputed {
			return errs.InvalidState("cancel", order.Status)
		}
		if err := advance(order, models.OrderStatusCancelled, "cancel"); err != nil {
			return err
		}
		order.CancelReason = reason
		order.UpdatedAt = time.Now()

		if err := s.DB.UpdateOrder(*order); err != nil {
			return fmt.Errorf("failed to cancel order %s: %w", orderID, err)
		}

		s.publish(kafka.TopicOrderCancelled, "order_cancelled", order, reason)
		return nil
	})
}

// OpenDispute freezes the order until an admin resolves it. Customer and
// director operations all gate on concrete statuses, so DISPUTED blocks
// them by construction.
func (s *OrderService) OpenDispute(actorID, orderID, reason string) error {
	return s.withLock(orderID, func() error {
		order, err := s.DB.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if order.CustomerID != actorID && order.DirectorID != actorID {
			return errs.ErrUnauthorized
		}
		from := order.Status
		if err := advance(order, models.OrderStatusDisputed, "open_dispute"); err != nil {
			return err
		}
		order.DisputedFrom = from
		order.DisputeReason = reason
		order.UpdatedAt = time.Now()

		if err := s.DB.UpdateOrder(*order); err != nil {
			return fmt.Errorf("failed to open dispute on order %s: %w", orderID, err)
		}

		s.publish(kafka.TopicDisputeOpened, "dispute_opened", order, reason)
		return nil
	})
}

// ---------------- DIRECTOR OPS ----------------

// SubmitOffer is valid only from PENDING and assigns the director.
func (s *OrderService) SubmitOffer(directorID, orderID string, offer models.OfferRequest) error {
	return s.withLock(orderID, func() error {
		order, err := s.DB.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if err := advance(order, models.OrderStatusOfferPending, "submit_offer"); err != nil {
			return err
		}
		if order.DirectorID != "" && order.DirectorID != directorID {
			return errs.ErrUnauthorized
		}

		order.DirectorID = directorID
		order.OfferedPrice.Decimal = offer.Price
		order.OfferedPrice.Valid = true
		if offer.ProductionTimeDays > 0 {
			order.ProductionTimeDays = offer.ProductionTimeDays
		}
		order.UpdatedAt = time.Now()

		if err := s.DB.UpdateOrder(*order); err != nil {
			return fmt.Errorf("failed to submit offer on order %s: %w", orderID, err)
		}

		s.publish(kafka.TopicOfferSubmitted, "offer_submitted", order, "")
		return nil
	})
}

// ResumeWork takes a REVISION_REQUESTED order back to IN_PROGRESS once the
// director picks up the revision.
func (s *OrderService) ResumeWork(directorID, orderID string) error {
	return s.withLock(orderID, func() error {
		order, err := s.DB.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if order.DirectorID != directorID {
			return errs.ErrUnauthorized
		}
		if err := advance(order, models.OrderStatusInProgress, "resume_work"); err != nil {
			return err
		}
		order.UpdatedAt = time.Now()

		if err := s.DB.UpdateOrder(*order); err != nil {
			return fmt.Errorf("failed to resume work on order %s: %w", orderID, err)
		}

		s.publish(kafka.TopicOrderUpdated, "work_resumed", order, "")
		return nil
	})
}

// MarkReadyForPayment records the delivered file and opens the payment
// window.
func (s *OrderService) MarkReadyForPayment(directorID, orderID, finalMusicURL string) error {
	return s.withLock(orderID, func() error {
		order, err := s.DB.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if order.DirectorID != directorID {
			return errs.ErrUnauthorized
		}
		if err := advance(order, models.OrderStatusReadyForPayment, "mark_ready_for_payment"); err != nil {
			return err
		}
		order.FinalMusicURL = finalMusicURL
		order.UpdatedAt = time.Now()

		if err := s.DB.UpdateOrder(*order); err != nil {
			return fmt.Errorf("failed to mark order %s ready for payment: %w", orderID, err)
		}

		s.publish(kafka.TopicOrderUpdated, "ready_for_payment", order, "")
		return nil
	})
}

// ---------------- PAYMENT ----------------

// RecordPayment is called by checkout after the gateway charge succeeded.
// Phase one persists PAID; phase two issues the download/license and lands
// COMPLETED. If issuance fails the order stays PAID and CompleteIssuance
// can be retried — the money is taken either way.
func (s *OrderService) RecordPayment(orderID string) error {
	return s.withLock(orderID, func() error {
		order, err := s.DB.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if err := advance(order, models.OrderStatusPaid, "record_payment"); err != nil {
			return err
		}
		order.UpdatedAt = time.Now()

		if err := s.DB.UpdateOrder(*order); err != nil {
			return fmt.Errorf("failed to record payment on order %s: %w", orderID, err)
		}
		order.Version++
		s.publish(kafka.TopicPaymentSuccess, "order_paid", order, "")

		return s.completeIssuance(order)
	})
}

// CompleteIssuance retries phase two for an order stuck in PAID.
func (s *OrderService) CompleteIssuance(orderID string) error {
	return s.withLock(orderID, func() error {
		order, err := s.DB.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusPaid {
			return errs.InvalidState("complete_issuance", order.Status)
		}
		return s.completeIssuance(order)
	})
}

func (s *OrderService) completeIssuance(order *models.Order) error {
	licenseID, err := s.Issuer.IssueForOrder(*order)
	if err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Issuance failed for order %s, staying paid: %v", order.OrderID, err))
		return fmt.Errorf("license issuance failed for order %s: %w", order.OrderID, err)
	}

	if err := advance(order, models.OrderStatusCompleted, "complete_issuance"); err != nil {
		return err
	}
	order.FinalMusicID = licenseID
	order.CompletedAt = time.Now()
	order.UpdatedAt = order.CompletedAt

	if err := s.DB.UpdateOrder(*order); err != nil {
		return fmt.Errorf("failed to complete order %s: %w", order.OrderID, err)
	}

	s.publish(kafka.TopicOrderUpdated, "order_completed", order, "")
	return nil
}

// ---------------- ADMIN OPS ----------------

// ResolveDispute is the only way out of DISPUTED. complete=true finishes
// the order; otherwise it is cancelled and, when money was taken, a refund
// event goes out for the payment collaborator.
func (s *OrderService) ResolveDispute(adminID, orderID string, complete bool, note string) error {
	return s.withLock(orderID, func() error {
		order, err := s.DB.GetOrderByID(orderID)
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusDisputed {
			return errs.InvalidState("resolve_dispute", order.Status)
		}

		wasPaid := order.DisputedFrom == models.OrderStatusPaid
		now := time.Now()
		if complete {
			if err := advance(order, models.OrderStatusCompleted, "resolve_dispute"); err != nil {
				return err
			}
			order.CompletedAt = now
		} else {
			if err := advance(order, models.OrderStatusCancelled, "resolve_dispute"); err != nil {
				return err
			}
			order.CancelReason = note
		}
		order.UpdatedAt = now

		if err := s.DB.UpdateOrder(*order); err != nil {
			return fmt.Errorf("failed to resolve dispute on order %s: %w", orderID, err)
		}

		s.Logger.LogAudit(adminID, "order.resolve_dispute", orderID,
			fmt.Sprintf("complete=%t %s", complete, note))
		s.publish(kafka.TopicDisputeResolved, "dispute_resolved", order, note)
		if !complete && wasPaid {
			s.publish(kafka.TopicPaymentRefunded, "payment_refunded", order, note)
		}
		return nil
	})
}

func (s *OrderService) publish(topic, eventType string, order *models.Order, reason string) {
	event := models.OrderEvent{
		Type:       eventType,
		OrderID:    order.OrderID,
		CustomerID: order.CustomerID,
		DirectorID: order.DirectorID,
		Status:     order.Status,
		Reason:     reason,
		Timestamp:  time.Now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to marshal %s event: %v", eventType, err))
		return
	}
	if err := s.Kafka.Publish(topic, order.OrderID, value); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Kafka publish error (%s): %v", eventType, err))
	}
}
