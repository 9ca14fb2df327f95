package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/shopfloor/services/report/config"
	"example.com/shopfloor/services/report/internal/tracing"
)

// ServiceBusClient is an interface for Azure Service Bus send operations
type ServiceBusClient interface {
	SendMessage(ctx context.Context, body interface{}) error
	Close() error
}

type serviceBusClient struct {
	client *azservicebus.Client
	sender *azservicebus.Sender
	source string
}

// NewServiceBusClient creates a sender for the snapshot notification queue
func NewServiceBusClient(cfg config.AzureConfig, source string) (ServiceBusClient, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.NotifyQueue, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &serviceBusClient{client: client, sender: sender, source: source}, nil
}

// SendMessage sends a JSON message to the notification queue
func (c *serviceBusClient) SendMessage(ctx context.Context, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to marshal message body")
	}

	message := &azservicebus.Message{
		Body: data,
		ApplicationProperties: map[string]interface{}{
			"source": c.source,
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := c.sender.SendMessage(ctx, message, nil); err != nil {
		return errors.Wrap(err, "failed to send message")
	}
	return nil
}

// Close closes the sender and the underlying client
func (c *serviceBusClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.sender.Close(ctx); err != nil {
		return errors.Wrap(err, "failed to close Service Bus sender")
	}
	return c.client.Close(ctx)
}

// MessageHandler processes one received event message
type MessageHandler func(ctx context.Context, message *azservicebus.ReceivedMessage, txn *newrelic.Transaction) error

// AzureServiceBus consumes machine event messages from the ingest queue
type AzureServiceBus struct {
	client    *azservicebus.Client
	queueName string
	tracer    tracing.Tracer
}

// NewAzureServiceBus creates the consumer-side Service Bus client
func NewAzureServiceBus(cfg config.AzureConfig, tracer tracing.Tracer) (*AzureServiceBus, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	return &AzureServiceBus{client: client, queueName: cfg.QueueName, tracer: tracer}, nil
}

// ProcessMessages receives until the context ends, completing handled
// messages and abandoning failures back onto the queue for redelivery
func (b *AzureServiceBus) ProcessMessages(ctx context.Context, handler MessageHandler) error {
	receiver, err := b.client.NewReceiverForQueue(b.queueName, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create Service Bus receiver")
	}
	defer func() {
		if err := receiver.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("Error closing Service Bus receiver")
		}
	}()

	log.Info().Str("queue", b.queueName).Msg("Listening for event messages")

	for {
		messages, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to receive messages")
		}

		for _, message := range messages {
			txn := b.tracer.StartTransaction("process-event-message")

			if err := handler(ctx, message, txn); err != nil {
				log.Error().Err(err).Str("message_id", message.MessageID).Msg("Error processing message")
				b.tracer.RecordError(txn, err)
				if err := receiver.AbandonMessage(ctx, message, nil); err != nil {
					log.Error().Err(err).Str("message_id", message.MessageID).Msg("Error abandoning message")
				}
				b.tracer.EndTransaction(txn)
				continue
			}

			if err := receiver.CompleteMessage(ctx, message, nil); err != nil {
				log.Error().Err(err).Str("message_id", message.MessageID).Msg("Error completing message")
			}
			b.tracer.EndTransaction(txn)
		}
	}
}

// Close closes the underlying Service Bus client
func (b *AzureServiceBus) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.client.Close(ctx)
}
