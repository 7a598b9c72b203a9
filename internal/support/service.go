package support

import (
	"encoding/json"
	"fmt"
	"time"

	"ms-licensing/internal/errs"
	"ms-licensing/internal/kafka"
	"ms-licensing/internal/logger"
	"ms-licensing/internal/models"
	"ms-licensing/internal/utils"
)

type DBLayer interface {
	CreateTicket(ticket models.SupportTicket) error
	GetTicketByID(ticketID string) (*models.SupportTicket, error)
	SetTicketStatus(ticketID string, from, to models.TicketStatus) error
	GetTicketsByUser(userID string) ([]models.SupportTicket, error)
	GetTicketsByStatus(status models.TicketStatus) ([]models.SupportTicket, error)
	AddMessage(msg models.TicketMessage) error
	GetMessages(ticketID string) ([]models.TicketMessage, error)
}

type KafkaPublisher interface {
	Publish(topic string, key string, value []byte) error
}

type SupportService struct {
	DB     DBLayer
	Kafka  KafkaPublisher
	Logger *logger.Logger
}

func NewSupportService(db DBLayer, kafkaPub KafkaPublisher, log *logger.Logger) *SupportService {
	return &SupportService{DB: db, Kafka: kafkaPub, Logger: log}
}

// Tickets only move forward. Resolved and closed tickets stay that way;
// users open a new ticket instead of reviving an old thread.
var ticketTransitions = map[models.TicketStatus][]models.TicketStatus{
	models.TicketOpen:       {models.TicketInProgress, models.TicketResolved, models.TicketClosed},
	models.TicketInProgress: {models.TicketResolved, models.TicketClosed},
	models.TicketResolved:   {models.TicketClosed},
	models.TicketClosed:     {},
}

func canTransition(from, to models.TicketStatus) bool {
	for _, allowed := range ticketTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *SupportService) CreateTicket(userID string, req models.TicketRequest) (*models.SupportTicket, error) {
	if req.Subject == "" || req.Message == "" {
		return nil, fmt.Errorf("subject and message are required")
	}
	if req.Type == "" {
		req.Type = models.TicketTypeGeneral
	}

	now := time.Now()
	ticket := models.SupportTicket{
		TicketID:  utils.NewID(),
		UserID:    userID,
		OrderID:   req.OrderID,
		Type:      req.Type,
		Subject:   req.Subject,
		Status:    models.TicketOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.DB.CreateTicket(ticket); err != nil {
		s.Logger.Error("SUPPORT", fmt.Sprintf("Failed to create ticket: %v", err))
		return nil, err
	}

	msg := models.TicketMessage{
		MessageID: utils.NewID(),
		TicketID:  ticket.TicketID,
		SenderID:  userID,
		Content:   req.Message,
		SentAt:    now,
	}
	if err := s.DB.AddMessage(msg); err != nil {
		s.Logger.Error("SUPPORT", fmt.Sprintf("Failed to store first message for ticket %s: %v", ticket.TicketID, err))
		return nil, err
	}

	s.Logger.Info("SUPPORT", fmt.Sprintf("Ticket %s opened by user %s", ticket.TicketID, userID))
	return &ticket, nil
}

// PostMessage appends to the thread. The first admin reply moves an open
// ticket to in_progress; later replies leave the status alone. Every reply,
// admin or customer, goes to the notification sink.
func (s *SupportService) PostMessage(senderID, ticketID, content string, isAdmin bool) (*models.TicketMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("message content is required")
	}

	ticket, err := s.DB.GetTicketByID(ticketID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && ticket.UserID != senderID {
		return nil, errs.ErrUnauthorized
	}
	if ticket.Status == models.TicketResolved || ticket.Status == models.TicketClosed {
		return nil, errs.InvalidState("post_message", ticket.Status)
	}

	msg := models.TicketMessage{
		MessageID: utils.NewID(),
		TicketID:  ticketID,
		SenderID:  senderID,
		Content:   content,
		IsAdmin:   isAdmin,
		SentAt:    time.Now(),
	}
	if err := s.DB.AddMessage(msg); err != nil {
		return nil, err
	}

	if isAdmin && ticket.Status == models.TicketOpen {
		if err := s.DB.SetTicketStatus(ticketID, models.TicketOpen, models.TicketInProgress); err != nil {
			// A concurrent reply got there first, the message itself landed.
			if !errs.IsInvalidState(err) {
				s.Logger.Error("SUPPORT", fmt.Sprintf("Failed to move ticket %s to in_progress: %v", ticketID, err))
			}
		}
	}

	s.publishReply(ticket, msg)
	return &msg, nil
}

func (s *SupportService) SetStatus(adminID, ticketID string, to models.TicketStatus) error {
	switch to {
	case models.TicketInProgress, models.TicketResolved, models.TicketClosed:
	default:
		return fmt.Errorf("unsupported target status %q", to)
	}

	ticket, err := s.DB.GetTicketByID(ticketID)
	if err != nil {
		return err
	}
	if !canTransition(ticket.Status, to) {
		return errs.InvalidState("set_status", ticket.Status)
	}

	if err := s.DB.SetTicketStatus(ticketID, ticket.Status, to); err != nil {
		return err
	}

	s.Logger.LogAudit(adminID, "ticket_status_changed", ticketID, string(to))
	return nil
}

func (s *SupportService) GetTicket(requesterID, ticketID string, isAdmin bool) (*models.TicketWithMessages, error) {
	ticket, err := s.DB.GetTicketByID(ticketID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && ticket.UserID != requesterID {
		return nil, errs.ErrUnauthorized
	}

	msgs, err := s.DB.GetMessages(ticketID)
	if err != nil {
		return nil, err
	}
	return &models.TicketWithMessages{SupportTicket: *ticket, Messages: msgs}, nil
}

func (s *SupportService) ListMine(userID string) ([]models.SupportTicket, error) {
	return s.DB.GetTicketsByUser(userID)
}

func (s *SupportService) ListByStatus(status models.TicketStatus) ([]models.SupportTicket, error) {
	return s.DB.GetTicketsByStatus(status)
}

func (s *SupportService) publishReply(ticket *models.SupportTicket, msg models.TicketMessage) {
	event := models.TicketEvent{
		Type:      "ticket_replied",
		TicketID:  ticket.TicketID,
		UserID:    ticket.UserID,
		SenderID:  msg.SenderID,
		IsAdmin:   msg.IsAdmin,
		Status:    ticket.Status,
		Timestamp: msg.SentAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.Kafka.Publish(kafka.TopicTicketReplied, ticket.TicketID, payload); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish ticket reply event: %v", err))
	}
}
