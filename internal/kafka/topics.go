package kafka

import (
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Topic names consumed by the notification sink and other collaborators.
const (
	TopicOrderCreated    = "licensing.order.created"
	TopicOfferSubmitted  = "licensing.order.offer_submitted"
	TopicOrderUpdated    = "licensing.order.updated"
	TopicOrderCancelled  = "licensing.order.cancelled"
	TopicDisputeOpened   = "licensing.order.dispute_opened"
	TopicDisputeResolved = "licensing.order.dispute_resolved"
	TopicInvoiceCreated  = "licensing.invoice.created"
	TopicPaymentSuccess  = "licensing.payment.success"
	TopicPaymentFailed   = "licensing.payment.failed"
	TopicPaymentRefunded = "licensing.payment.refunded"
	TopicLicenseIssued   = "licensing.license.issued"
	TopicTicketReplied   = "licensing.ticket.replied"
	TopicMusicModerated  = "licensing.music.moderated"
)

// AllTopics lists every topic the service publishes to, for bootstrap.
func AllTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOfferSubmitted,
		TopicOrderUpdated,
		TopicOrderCancelled,
		TopicDisputeOpened,
		TopicDisputeResolved,
		TopicInvoiceCreated,
		TopicPaymentSuccess,
		TopicPaymentFailed,
		TopicPaymentRefunded,
		TopicLicenseIssued,
		TopicTicketReplied,
		TopicMusicModerated,
	}
}

// EnsureTopicsExist creates Kafka topics if they don't already exist.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", controller.Host)
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		topicConfigs := []kafka.TopicConfig{
			{
				Topic:             topic,
				NumPartitions:     1,
				ReplicationFactor: 1,
			},
		}

		err = controllerConn.CreateTopics(topicConfigs...)
		if err != nil {
			if err.Error() == "kafka server: topic already exists" {
				log.Printf("Topic %s already exists", topic)
				continue
			}
			log.Printf("Error creating topic %s: %v", topic, err)
		} else {
			log.Printf("Created topic: %s", topic)
		}
	}

	// Give the controller a moment to settle the new topics
	time.Sleep(1 * time.Second)
	return nil
}
