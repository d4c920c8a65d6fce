package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-marketplace/internal/config"
	"ms-marketplace/internal/models"
)

// Producer publishes marketplace notifications. In mock mode (and when Kafka
// is disabled) messages are formatted and dropped, which is what tests and
// local development use.
type Producer struct {
	writer *kafka.Writer
	topics config.TopicConfig
	mock   bool
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	if !cfg.Enabled || cfg.MockMode {
		return &Producer{topics: cfg.Topics, mock: true}
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer, topics: cfg.Topics}
}

func (p *Producer) publish(topic, key string, payload any) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if p.mock {
		fmt.Printf("Kafka (mock) [%s]: %s\n", topic, string(msgBytes))
		return nil
	}

	fmt.Printf("Publishing to Kafka [%s]: %s\n", topic, string(msgBytes))
	return p.writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

func ticketKey(collectionID string, ticketID int64) string {
	return fmt.Sprintf("%s/%d", collectionID, ticketID)
}

func (p *Producer) PublishCollectionCreated(evt models.CollectionCreatedEvent) error {
	return p.publish(p.topics.CollectionCreated, evt.CollectionID, evt)
}

func (p *Producer) PublishTicketMinted(evt models.TicketMintedEvent) error {
	return p.publish(p.topics.TicketMinted, ticketKey(evt.CollectionID, evt.TicketID), evt)
}

func (p *Producer) PublishTicketTransferred(evt models.TicketTransferredEvent) error {
	return p.publish(p.topics.TicketTransferred, ticketKey(evt.CollectionID, evt.TicketID), evt)
}

func (p *Producer) PublishTicketApproved(evt models.TicketApprovedEvent) error {
	return p.publish(p.topics.TicketApproved, ticketKey(evt.CollectionID, evt.TicketID), evt)
}

func (p *Producer) PublishTicketListed(evt models.TicketListedEvent) error {
	return p.publish(p.topics.TicketListed, ticketKey(evt.CollectionID, evt.TicketID), evt)
}

func (p *Producer) PublishBidSubmitted(evt models.BidSubmittedEvent) error {
	return p.publish(p.topics.BidSubmitted, ticketKey(evt.CollectionID, evt.TicketID), evt)
}

func (p *Producer) PublishBidAccepted(evt models.BidAcceptedEvent) error {
	return p.publish(p.topics.BidAccepted, ticketKey(evt.CollectionID, evt.TicketID), evt)
}

func (p *Producer) PublishTicketDelisted(evt models.TicketDelistedEvent) error {
	return p.publish(p.topics.TicketDelisted, ticketKey(evt.CollectionID, evt.TicketID), evt)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
