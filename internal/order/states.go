package order

import (
	"ms-licensing/internal/errs"
	"ms-licensing/internal/models"
)

// transitions is the full commission lifecycle graph. Anything not listed
// here is rejected, regardless of which buttons a client renders.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {
		models.OrderStatusOfferPending,
		models.OrderStatusCancelled,
	},
	models.OrderStatusOfferPending: {
		models.OrderStatusOfferAccepted,
		models.OrderStatusCancelled,
	},
	models.OrderStatusOfferAccepted: {
		models.OrderStatusInProgress,
		models.OrderStatusCancelled,
	},
	models.OrderStatusInProgress: {
		models.OrderStatusRevisionRequested,
		models.OrderStatusReadyForPayment,
		models.OrderStatusCancelled,
		models.OrderStatusDisputed,
	},
	models.OrderStatusRevisionRequested: {
		models.OrderStatusInProgress,
		models.OrderStatusCancelled,
	},
	models.OrderStatusReadyForPayment: {
		models.OrderStatusRevisionRequested,
		models.OrderStatusPaid,
		models.OrderStatusCancelled,
		models.OrderStatusDisputed,
	},
	models.OrderStatusPaid: {
		models.OrderStatusCompleted,
		models.OrderStatusDisputed,
	},
	models.OrderStatusDisputed: {
		models.OrderStatusCompleted,
		models.OrderStatusCancelled,
	},
	// completed and cancelled are terminal
	models.OrderStatusCompleted: {},
	models.OrderStatusCancelled: {},
}

// CanTransition reports whether from → to is a legal edge.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// advance moves the order along a graph edge. Every status write in the
// service goes through here, so the graph above is the single enforcement
// point; anything it does not allow fails with InvalidStateError and the
// order is left untouched.
func advance(order *models.Order, to models.OrderStatus, op string) error {
	if !CanTransition(order.Status, to) {
		return errs.InvalidState(op, order.Status)
	}
	order.Status = to
	return nil
}
