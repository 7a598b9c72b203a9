package support_test

import (
	"testing"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"
	"ms-licensing/internal/support"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSupportDB struct {
	mock.Mock
}

func (m *MockSupportDB) CreateTicket(ticket models.SupportTicket) error {
	args := m.Called(ticket)
	return args.Error(0)
}

func (m *MockSupportDB) GetTicketByID(ticketID string) (*models.SupportTicket, error) {
	args := m.Called(ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SupportTicket), args.Error(1)
}

func (m *MockSupportDB) SetTicketStatus(ticketID string, from, to models.TicketStatus) error {
	args := m.Called(ticketID, from, to)
	return args.Error(0)
}

func (m *MockSupportDB) GetTicketsByUser(userID string) ([]models.SupportTicket, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SupportTicket), args.Error(1)
}

func (m *MockSupportDB) GetTicketsByStatus(status models.TicketStatus) ([]models.SupportTicket, error) {
	args := m.Called(status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.SupportTicket), args.Error(1)
}

func (m *MockSupportDB) AddMessage(msg models.TicketMessage) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockSupportDB) GetMessages(ticketID string) ([]models.TicketMessage, error) {
	args := m.Called(ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.TicketMessage), args.Error(1)
}

type MockSupportKafka struct {
	mock.Mock
}

func (m *MockSupportKafka) Publish(topic string, key string, value []byte) error {
	args := m.Called(topic, key, value)
	return args.Error(0)
}

func newSupportService(db *MockSupportDB, kafka *MockSupportKafka) *support.SupportService {
	return support.NewSupportService(db, kafka, logger.NewLogger())
}

func openTicket(userID string) *models.SupportTicket {
	return &models.SupportTicket{
		TicketID: "ticket1",
		UserID:   userID,
		Type:     models.TicketTypeGeneral,
		Subject:  "Download link broken",
		Status:   models.TicketOpen,
	}
}

func TestCreateTicketStoresFirstMessage(t *testing.T) {
	mockDB := new(MockSupportDB)
	svc := newSupportService(mockDB, new(MockSupportKafka))

	mockDB.On("CreateTicket", mock.MatchedBy(func(tk models.SupportTicket) bool {
		return tk.Status == models.TicketOpen && tk.Type == models.TicketTypeGeneral
	})).Return(nil)
	mockDB.On("AddMessage", mock.MatchedBy(func(msg models.TicketMessage) bool {
		return msg.SenderID == "user1" && msg.Content == "The link 404s"
	})).Return(nil)

	ticket, err := svc.CreateTicket("user1", models.TicketRequest{
		Subject: "Download link broken",
		Message: "The link 404s",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.TicketOpen, ticket.Status)
	mockDB.AssertExpectations(t)
}

func TestCreateTicketRequiresSubjectAndMessage(t *testing.T) {
	mockDB := new(MockSupportDB)
	svc := newSupportService(mockDB, new(MockSupportKafka))

	_, err := svc.CreateTicket("user1", models.TicketRequest{Subject: "no body"})

	assert.Error(t, err)
	mockDB.AssertNotCalled(t, "CreateTicket", mock.Anything)
}

func TestFirstAdminReplyMovesToInProgress(t *testing.T) {
	mockDB := new(MockSupportDB)
	mockKafka := new(MockSupportKafka)
	svc := newSupportService(mockDB, mockKafka)

	mockDB.On("GetTicketByID", "ticket1").Return(openTicket("user1"), nil)
	mockDB.On("AddMessage", mock.Anything).Return(nil)
	mockDB.On("SetTicketStatus", "ticket1", models.TicketOpen, models.TicketInProgress).Return(nil)
	mockKafka.On("Publish", "licensing.ticket.replied", "ticket1", mock.Anything).Return(nil)

	msg, err := svc.PostMessage("admin1", "ticket1", "Looking into it", true)

	assert.NoError(t, err)
	assert.True(t, msg.IsAdmin)
	mockDB.AssertCalled(t, "SetTicketStatus", "ticket1", models.TicketOpen, models.TicketInProgress)
	mockKafka.AssertExpectations(t)
}

func TestLaterAdminReplyLeavesStatusAlone(t *testing.T) {
	mockDB := new(MockSupportDB)
	mockKafka := new(MockSupportKafka)
	svc := newSupportService(mockDB, mockKafka)

	ticket := openTicket("user1")
	ticket.Status = models.TicketInProgress
	mockDB.On("GetTicketByID", "ticket1").Return(ticket, nil)
	mockDB.On("AddMessage", mock.Anything).Return(nil)
	mockKafka.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := svc.PostMessage("admin1", "ticket1", "Still on it", true)

	assert.NoError(t, err)
	mockDB.AssertNotCalled(t, "SetTicketStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserReplyNeverBumpsStatus(t *testing.T) {
	mockDB := new(MockSupportDB)
	mockKafka := new(MockSupportKafka)
	svc := newSupportService(mockDB, mockKafka)

	mockDB.On("GetTicketByID", "ticket1").Return(openTicket("user1"), nil)
	mockDB.On("AddMessage", mock.Anything).Return(nil)
	mockKafka.On("Publish", "licensing.ticket.replied", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.PostMessage("user1", "ticket1", "Any update?", false)

	assert.NoError(t, err)
	mockDB.AssertNotCalled(t, "SetTicketStatus", mock.Anything, mock.Anything, mock.Anything)
	// The reply still fans out to the notification sink.
	mockKafka.AssertCalled(t, "Publish", "licensing.ticket.replied", mock.Anything, mock.Anything)
}

func TestPostMessageToResolvedTicketRejected(t *testing.T) {
	mockDB := new(MockSupportDB)
	svc := newSupportService(mockDB, new(MockSupportKafka))

	ticket := openTicket("user1")
	ticket.Status = models.TicketResolved
	mockDB.On("GetTicketByID", "ticket1").Return(ticket, nil)

	_, err := svc.PostMessage("user1", "ticket1", "Actually one more thing", false)

	assert.True(t, errs.IsInvalidState(err))
	mockDB.AssertNotCalled(t, "AddMessage", mock.Anything)
}

func TestPostMessageOwnershipCheck(t *testing.T) {
	mockDB := new(MockSupportDB)
	svc := newSupportService(mockDB, new(MockSupportKafka))

	mockDB.On("GetTicketByID", "ticket1").Return(openTicket("user1"), nil)

	_, err := svc.PostMessage("someone-else", "ticket1", "hi", false)

	assert.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestSetStatusForwardOnly(t *testing.T) {
	mockDB := new(MockSupportDB)
	svc := newSupportService(mockDB, new(MockSupportKafka))

	ticket := openTicket("user1")
	ticket.Status = models.TicketResolved
	mockDB.On("GetTicketByID", "ticket1").Return(ticket, nil)

	// resolved -> in_progress would be a step backwards.
	err := svc.SetStatus("admin1", "ticket1", models.TicketInProgress)

	assert.True(t, errs.IsInvalidState(err))
	mockDB.AssertNotCalled(t, "SetTicketStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetStatusClosedIsTerminal(t *testing.T) {
	mockDB := new(MockSupportDB)
	svc := newSupportService(mockDB, new(MockSupportKafka))

	ticket := openTicket("user1")
	ticket.Status = models.TicketClosed
	mockDB.On("GetTicketByID", "ticket1").Return(ticket, nil)

	err := svc.SetStatus("admin1", "ticket1", models.TicketResolved)

	assert.True(t, errs.IsInvalidState(err))
}

func TestSetStatusResolve(t *testing.T) {
	mockDB := new(MockSupportDB)
	svc := newSupportService(mockDB, new(MockSupportKafka))

	ticket := openTicket("user1")
	ticket.Status = models.TicketInProgress
	mockDB.On("GetTicketByID", "ticket1").Return(ticket, nil)
	mockDB.On("SetTicketStatus", "ticket1", models.TicketInProgress, models.TicketResolved).Return(nil)

	err := svc.SetStatus("admin1", "ticket1", models.TicketResolved)

	assert.NoError(t, err)
	mockDB.AssertExpectations(t)
}

func TestGetTicketIncludesThread(t *testing.T) {
	mockDB := new(MockSupportDB)
	svc := newSupportService(mockDB, new(MockSupportKafka))

	mockDB.On("GetTicketByID", "ticket1").Return(openTicket("user1"), nil)
	mockDB.On("GetMessages", "ticket1").Return([]models.TicketMessage{
		{MessageID: "msg1", TicketID: "ticket1", SenderID: "user1", Content: "The link 404s"},
	}, nil)

	got, err := svc.GetTicket("user1", "ticket1", false)

	assert.NoError(t, err)
	assert.Len(t, got.Messages, 1)
}
