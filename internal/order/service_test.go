package order_test

import (
	"errors"
	"testing"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"
	"ms-licensing/internal/order"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockDBLayer is a mock implementation of the order DBLayer interface
type MockDBLayer struct {
	mock.Mock
}

func (m *MockDBLayer) CreateOrder(o models.Order) error {
	args := m.Called(o)
	return args.Error(0)
}

func (m *MockDBLayer) GetOrderByID(id string) (*models.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockDBLayer) UpdateOrder(o models.Order) error {
	args := m.Called(o)
	return args.Error(0)
}

func (m *MockDBLayer) GetOrdersByCustomer(customerID string) ([]models.Order, error) {
	args := m.Called(customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockDBLayer) GetOrdersByDirector(directorID string) ([]models.Order, error) {
	args := m.Called(directorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockDBLayer) GetOpenOrders() ([]models.Order, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockDBLayer) GetOrdersByStatus(status models.OrderStatus) ([]models.Order, error) {
	args := m.Called(status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}

// MockLock always grants the per-order lock unless told otherwise
type MockLock struct {
	mock.Mock
}

func (m *MockLock) Lock(key, owner string) (bool, error) {
	args := m.Called(key, owner)
	return args.Bool(0), args.Error(1)
}

func (m *MockLock) Unlock(key, owner string) error {
	args := m.Called(key, owner)
	return args.Error(0)
}

type MockKafka struct {
	mock.Mock
}

func (m *MockKafka) Publish(topic string, key string, value []byte) error {
	args := m.Called(topic, key, value)
	return args.Error(0)
}

type MockIssuer struct {
	mock.Mock
}

func (m *MockIssuer) IssueForOrder(o models.Order) (string, error) {
	args := m.Called(o)
	return args.String(0), args.Error(1)
}

func newService(db *MockDBLayer, lock *MockLock, kafka *MockKafka, issuer *MockIssuer) *order.OrderService {
	return order.NewOrderService(db, lock, kafka, issuer, logger.NewLogger())
}

func grantLock(lock *MockLock) {
	lock.On("Lock", mock.Anything, mock.Anything).Return(true, nil)
	lock.On("Unlock", mock.Anything, mock.Anything).Return(nil)
}

func allowPublish(kafka *MockKafka) {
	kafka.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func testOrder(status models.OrderStatus) *models.Order {
	return &models.Order{
		OrderID:           uuid.NewString(),
		CustomerID:        "customer1",
		DirectorID:        "director1",
		Status:            status,
		Brief:             "two minute synthwave intro",
		Budget:            decimal.NewFromInt(300),
		IncludedRevisions: 2,
		MaxRevisions:      2,
		Version:           1,
	}
}

func TestPlaceOrderDefaults(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	svc := newService(mockDB, mockLock, mockKafka, new(MockIssuer))
	allowPublish(mockKafka)

	mockDB.On("CreateOrder", mock.MatchedBy(func(o models.Order) bool {
		return o.Status == models.OrderStatusPending &&
			o.IncludedRevisions == 2 &&
			o.MaxRevisions == 2 &&
			o.PaymentModel == models.PayOnCompletion &&
			o.Version == 1
	})).Return(nil)

	placed, err := svc.PlaceOrder("customer1", models.OrderRequest{
		Brief:  "two minute synthwave intro",
		Budget: decimal.NewFromInt(300),
	})

	assert.NoError(t, err)
	assert.Equal(t, "customer1", placed.CustomerID)
	mockDB.AssertExpectations(t)
}

func TestSubmitOfferOnlyFromPending(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	svc := newService(mockDB, mockLock, mockKafka, new(MockIssuer))
	grantLock(mockLock)
	allowPublish(mockKafka)

	o := testOrder(models.OrderStatusPending)
	o.DirectorID = ""
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusOfferPending &&
			updated.DirectorID == "director1" &&
			updated.OfferedPrice.Valid &&
			updated.OfferedPrice.Decimal.Equal(decimal.NewFromInt(450))
	})).Return(nil)

	err := svc.SubmitOffer("director1", o.OrderID, models.OfferRequest{
		Price:              decimal.NewFromInt(450),
		ProductionTimeDays: 14,
	})

	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestSubmitOfferRejectedAfterAccept(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	svc := newService(mockDB, mockLock, new(MockKafka), new(MockIssuer))
	grantLock(mockLock)

	o := testOrder(models.OrderStatusInProgress)
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)

	err := svc.SubmitOffer("director1", o.OrderID, models.OfferRequest{Price: decimal.NewFromInt(450)})

	assert.True(t, errs.IsInvalidState(err))
	mockDB.AssertNotCalled(t, "UpdateOrder", mock.Anything)
}

func TestAcceptOfferMovesToInProgress(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	svc := newService(mockDB, mockLock, mockKafka, new(MockIssuer))
	grantLock(mockLock)
	allowPublish(mockKafka)

	o := testOrder(models.OrderStatusOfferPending)
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusInProgress && !updated.OfferAcceptedAt.IsZero()
	})).Return(nil)

	err := svc.AcceptOffer("customer1", o.OrderID)

	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestAcceptOfferWrongCustomer(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	svc := newService(mockDB, mockLock, new(MockKafka), new(MockIssuer))
	grantLock(mockLock)

	o := testOrder(models.OrderStatusOfferPending)
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)

	err := svc.AcceptOffer("someone-else", o.OrderID)

	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestRequestRevisionWithinAllowance(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	svc := newService(mockDB, mockLock, mockKafka, new(MockIssuer))
	grantLock(mockLock)
	allowPublish(mockKafka)

	o := testOrder(models.OrderStatusInProgress)
	o.UsedRevisions = 1
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusRevisionRequested &&
			updated.UsedRevisions == 2 &&
			updated.RevisionNote == "bassline too loud"
	})).Return(nil)

	err := svc.RequestRevision("customer1", o.OrderID, "bassline too loud")

	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestRequestRevisionLimitExceeded(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	svc := newService(mockDB, mockLock, new(MockKafka), new(MockIssuer))
	grantLock(mockLock)

	o := testOrder(models.OrderStatusInProgress)
	o.UsedRevisions = 2
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)

	err := svc.RequestRevision("customer1", o.OrderID, "one more pass")

	assert.ErrorIs(t, err, errs.ErrRevisionLimitExceeded)
	// The counter must not move when the limit check fails.
	mockDB.AssertNotCalled(t, "UpdateOrder", mock.Anything)
}

func TestRequestRevisionFromReadyForPayment(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	svc := newService(mockDB, mockLock, mockKafka, new(MockIssuer))
	grantLock(mockLock)
	allowPublish(mockKafka)

	o := testOrder(models.OrderStatusReadyForPayment)
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusRevisionRequested
	})).Return(nil)

	err := svc.RequestRevision("customer1", o.OrderID, "wrong mix delivered")

	assert.NoError(t, err)
}

func TestCancelAfterPaymentRejected(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	svc := newService(mockDB, mockLock, new(MockKafka), new(MockIssuer))
	grantLock(mockLock)

	o := testOrder(models.OrderStatusPaid)
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)

	err := svc.Cancel("customer1", o.OrderID, "changed my mind")

	assert.True(t, errs.IsInvalidState(err))
}

func TestCancelPendingOrder(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	svc := newService(mockDB, mockLock, mockKafka, new(MockIssuer))
	grantLock(mockLock)
	allowPublish(mockKafka)

	o := testOrder(models.OrderStatusPending)
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusCancelled && updated.CancelReason == "budget cut"
	})).Return(nil)

	err := svc.Cancel("customer1", o.OrderID, "budget cut")

	assert.NoError(t, err)
}

// An open dispute freezes the order: neither participant can cancel out
// from under it, even though the lifecycle graph reserves a
// disputed->cancelled edge for admin resolution.
func TestCancelDisputedOrderRejected(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	svc := newService(mockDB, mockLock, new(MockKafka), new(MockIssuer))
	grantLock(mockLock)

	o := testOrder(models.OrderStatusDisputed)
	o.DisputedFrom = models.OrderStatusInProgress
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)

	err := svc.Cancel("customer1", o.OrderID, "changed my mind")

	assert.True(t, errs.IsInvalidState(err))
	mockDB.AssertNotCalled(t, "UpdateOrder", mock.Anything)
}

func TestRecordPaymentCompletesOrder(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	mockIssuer := new(MockIssuer)
	svc := newService(mockDB, mockLock, mockKafka, mockIssuer)
	grantLock(mockLock)
	allowPublish(mockKafka)

	o := testOrder(models.OrderStatusReadyForPayment)
	o.FinalMusicURL = "https://cdn.example.com/final/track.wav"
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusPaid
	})).Return(nil).Once()
	mockIssuer.On("IssueForOrder", mock.Anything).Return("license123", nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusCompleted &&
			updated.FinalMusicID == "license123" &&
			!updated.CompletedAt.IsZero()
	})).Return(nil).Once()

	err := svc.RecordPayment(o.OrderID)

	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
	mockIssuer.AssertExpectations(t)
}

func TestRecordPaymentIssuanceFailureStaysPaid(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	mockIssuer := new(MockIssuer)
	svc := newService(mockDB, mockLock, mockKafka, mockIssuer)
	grantLock(mockLock)
	allowPublish(mockKafka)

	o := testOrder(models.OrderStatusReadyForPayment)
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusPaid
	})).Return(nil).Once()
	mockIssuer.On("IssueForOrder", mock.Anything).Return("", errors.New("cert store down"))

	err := svc.RecordPayment(o.OrderID)

	assert.Error(t, err)
	// Only the PAID write happened; no COMPLETED write.
	mockDB.AssertNumberOfCalls(t, "UpdateOrder", 1)
}

func TestCompleteIssuanceRetriesStuckOrder(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	mockIssuer := new(MockIssuer)
	svc := newService(mockDB, mockLock, mockKafka, mockIssuer)
	grantLock(mockLock)
	allowPublish(mockKafka)

	o := testOrder(models.OrderStatusPaid)
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockIssuer.On("IssueForOrder", mock.Anything).Return("license456", nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusCompleted && updated.FinalMusicID == "license456"
	})).Return(nil)

	err := svc.CompleteIssuance(o.OrderID)

	assert.NoError(t, err)
	mockIssuer.AssertExpectations(t)
}

func TestOpenDisputeRecordsOrigin(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	svc := newService(mockDB, mockLock, mockKafka, new(MockIssuer))
	grantLock(mockLock)
	allowPublish(mockKafka)

	o := testOrder(models.OrderStatusPaid)
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusDisputed &&
			updated.DisputedFrom == models.OrderStatusPaid &&
			updated.DisputeReason == "delivered file is silent"
	})).Return(nil)

	err := svc.OpenDispute("customer1", o.OrderID, "delivered file is silent")

	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestResolveDisputeRefundsWhenPaid(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	svc := newService(mockDB, mockLock, mockKafka, new(MockIssuer))
	grantLock(mockLock)

	o := testOrder(models.OrderStatusDisputed)
	o.DisputedFrom = models.OrderStatusPaid
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusCancelled
	})).Return(nil)
	mockKafka.On("Publish", "licensing.order.dispute_resolved", o.OrderID, mock.Anything).Return(nil)
	mockKafka.On("Publish", "licensing.payment.refunded", o.OrderID, mock.Anything).Return(nil)

	err := svc.ResolveDispute("admin1", o.OrderID, false, "refund the customer")

	assert.NoError(t, err)
	mockKafka.AssertExpectations(t)
}

func TestResolveDisputeCompleteNoRefund(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	mockKafka := new(MockKafka)
	svc := newService(mockDB, mockLock, mockKafka, new(MockIssuer))
	grantLock(mockLock)

	o := testOrder(models.OrderStatusDisputed)
	o.DisputedFrom = models.OrderStatusPaid
	mockDB.On("GetOrderByID", o.OrderID).Return(o, nil)
	mockDB.On("UpdateOrder", mock.MatchedBy(func(updated models.Order) bool {
		return updated.Status == models.OrderStatusCompleted
	})).Return(nil)
	mockKafka.On("Publish", "licensing.order.dispute_resolved", o.OrderID, mock.Anything).Return(nil)

	err := svc.ResolveDispute("admin1", o.OrderID, true, "work was delivered")

	assert.NoError(t, err)
	mockKafka.AssertNotCalled(t, "Publish", "licensing.payment.refunded", mock.Anything, mock.Anything)
}

func TestMutationBlockedWhileLocked(t *testing.T) {
	mockDB := new(MockDBLayer)
	mockLock := new(MockLock)
	svc := newService(mockDB, mockLock, new(MockKafka), new(MockIssuer))

	mockLock.On("Lock", mock.Anything, mock.Anything).Return(false, nil)

	err := svc.AcceptOffer("customer1", "order1")

	assert.ErrorIs(t, err, errs.ErrLocked)
	mockDB.AssertNotCalled(t, "GetOrderByID", mock.Anything)
}
