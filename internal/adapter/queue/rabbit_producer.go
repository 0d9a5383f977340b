// Package queue publishes machine transaction events to RabbitMQ for the
// operator's fleet tooling. Publishing is fire-and-forget from the engine's
// point of view; a broker outage never blocks a sale.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/vmandke/vending-machine/internal/usecase"
)

// RabbitProducer implements usecase.EventPublisher.
type RabbitProducer struct {
	ch       *amqp.Channel
	exchange string
}

// NewRabbitProducer declares the topic exchange once at startup and enables
// publisher confirms.
func NewRabbitProducer(ch *amqp.Channel, exchange string) (*RabbitProducer, error) {
	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitProducer{ch: ch, exchange: exchange}, nil
}

// PublishMachineEvent routes the event by its type: SaleCompletedV1 goes out
// as "machine.salecompleted" and so on, letting consumers bind selectively.
func (p *RabbitProducer) PublishMachineEvent(ctx context.Context, ev usecase.MachineEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		MessageId:    ev.ID,
		Body:         body,
	}

	if err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey(ev.Type),
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

func routingKey(eventType string) string {
	return "machine." + strings.ToLower(strings.TrimSuffix(eventType, "V1"))
}

var _ usecase.EventPublisher = (*RabbitProducer)(nil)
