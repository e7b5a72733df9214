package events

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/yourorg/ctk-wopi/pkg/logging"
)

// ServiceBusPublisher sends events to an Azure Service Bus queue.
type ServiceBusPublisher struct {
	client *azservicebus.Client
	sender *azservicebus.Sender
	queue  string
	logger logging.Logger
}

// ServiceBusConfig configures a ServiceBusPublisher.
type ServiceBusConfig struct {
	// Namespace is the short namespace name, without .servicebus.windows.net.
	Namespace string
	// KeyName and KeyValue select shared access key auth. When either is
	// empty the default Azure credential chain (managed identity, CLI, ...) is used.
	KeyName  string
	KeyValue string
	Queue    string
}

// NewServiceBusPublisher connects to the namespace and opens a sender for the queue.
func NewServiceBusPublisher(cfg ServiceBusConfig, logger logging.Logger) (*ServiceBusPublisher, error) {
	var (
		client *azservicebus.Client
		err    error
	)

	if cfg.KeyName == "" || cfg.KeyValue == "" {
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", credErr)
		}
		client, err = azservicebus.NewClient(fmt.Sprintf("%s.servicebus.windows.net", cfg.Namespace), cred, nil)
	} else {
		connStr := fmt.Sprintf("Endpoint=sb://%s.servicebus.windows.net/;SharedAccessKeyName=%s;SharedAccessKey=%s",
			cfg.Namespace, cfg.KeyName, cfg.KeyValue)
		client, err = azservicebus.NewClientFromConnectionString(connStr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	sender, err := client.NewSender(cfg.Queue, nil)
	if err != nil {
		_ = client.Close(context.Background())
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}

	return &ServiceBusPublisher{
		client: client,
		sender: sender,
		queue:  cfg.Queue,
		logger: logger.With(logging.NewField("queue", cfg.Queue)),
	}, nil
}

// PublishFileUpdated sends one message per event.
func (p *ServiceBusPublisher) PublishFileUpdated(ctx context.Context, event FileUpdated) error {
	body, err := encode(event)
	if err != nil {
		return err
	}

	contentType := "application/json"
	subject := EventTypeFileUpdated
	msg := &azservicebus.Message{
		Body:        body,
		ContentType: &contentType,
		Subject:     &subject,
		ApplicationProperties: map[string]interface{}{
			"container": event.Container,
			"name":      event.Name,
		},
	}
	if event.RequestID != "" {
		msg.CorrelationID = &event.RequestID
	}

	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.Debug("File event published",
		logging.NewField("blob", event.Name),
		logging.NewField("type", EventTypeFileUpdated),
	)
	return nil
}

// Close releases the sender and the underlying AMQP connection.
func (p *ServiceBusPublisher) Close(ctx context.Context) error {
	if err := p.sender.Close(ctx); err != nil {
		p.logger.Warn("Failed to close sender", logging.NewField("error", err))
	}
	return p.client.Close(ctx)
}
