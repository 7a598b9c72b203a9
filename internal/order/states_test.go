package order_test

import (
	"testing"

	"ms-licensing/internal/models"
	"ms-licensing/internal/order"

	"github.com/stretchr/testify/assert"
)

func TestLifecycleGraph(t *testing.T) {
	legal := []struct {
		from, to models.OrderStatus
	}{
		{models.OrderStatusPending, models.OrderStatusOfferPending},
		{models.OrderStatusOfferPending, models.OrderStatusOfferAccepted},
		{models.OrderStatusOfferAccepted, models.OrderStatusInProgress},
		{models.OrderStatusInProgress, models.OrderStatusRevisionRequested},
		{models.OrderStatusRevisionRequested, models.OrderStatusInProgress},
		{models.OrderStatusInProgress, models.OrderStatusReadyForPayment},
		{models.OrderStatusReadyForPayment, models.OrderStatusRevisionRequested},
		{models.OrderStatusReadyForPayment, models.OrderStatusPaid},
		{models.OrderStatusPaid, models.OrderStatusCompleted},
		{models.OrderStatusPaid, models.OrderStatusDisputed},
		{models.OrderStatusDisputed, models.OrderStatusCompleted},
		{models.OrderStatusDisputed, models.OrderStatusCancelled},
	}
	for _, edge := range legal {
		assert.True(t, order.CanTransition(edge.from, edge.to),
			"%s -> %s should be legal", edge.from, edge.to)
	}

	illegal := []struct {
		from, to models.OrderStatus
	}{
		{models.OrderStatusPending, models.OrderStatusInProgress},
		{models.OrderStatusPending, models.OrderStatusPaid},
		{models.OrderStatusPaid, models.OrderStatusCancelled},
		{models.OrderStatusCompleted, models.OrderStatusDisputed},
		{models.OrderStatusCancelled, models.OrderStatusPending},
		{models.OrderStatusRevisionRequested, models.OrderStatusReadyForPayment},
	}
	for _, edge := range illegal {
		assert.False(t, order.CanTransition(edge.from, edge.to),
			"%s -> %s should be rejected", edge.from, edge.to)
	}
}

func TestTerminalStates(t *testing.T) {
	all := []models.OrderStatus{
		models.OrderStatusPending, models.OrderStatusOfferPending,
		models.OrderStatusOfferAccepted, models.OrderStatusInProgress,
		models.OrderStatusRevisionRequested, models.OrderStatusReadyForPayment,
		models.OrderStatusPaid, models.OrderStatusCompleted,
		models.OrderStatusCancelled, models.OrderStatusDisputed,
	}
	for _, to := range all {
		assert.False(t, order.CanTransition(models.OrderStatusCompleted, to))
		assert.False(t, order.CanTransition(models.OrderStatusCancelled, to))
	}
}
