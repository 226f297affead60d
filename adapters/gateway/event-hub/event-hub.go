package event_hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs"
	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/iba-monitor/adapters/gateway/codec"
	"github.com/Go-routine-4595/iba-monitor/model"
)

// connection string can have the event hub name like this
// Endpoint=sb://<namespace>.servicebus.windows.net/;SharedAccessKeyName=<KeyName>;SharedAccessKey=<KeyValue>;EntityPath=<hub>
// see https://learn.microsoft.com/en-us/azure/event-hubs/event-hubs-get-connection-string

type EventHubConfig struct {
	Connection   string        `yaml:"connection"`
	EventHubName string        `yaml:"EventHubName"`
	Format       string        `yaml:"Format"`
	SendTimeout  time.Duration `yaml:"SendTimeout"`
}

type producer interface {
	NewEventDataBatch(ctx context.Context, options *azeventhubs.EventDataBatchOptions) (*azeventhubs.EventDataBatch, error)
	SendEventDataBatch(ctx context.Context, batch *azeventhubs.EventDataBatch, options *azeventhubs.SendEventDataBatchOptions) error
	Close(ctx context.Context) error
}

// EventHub sends every alarm as one event, partitioned by signal id so the
// events of a signal stay ordered.
type EventHub struct {
	producerClient producer
	codec          codec.Codec
	timeout        time.Duration
	logger         zerolog.Logger
}

func NewEventHub(ctx context.Context, wg *sync.WaitGroup, conf EventHubConfig, logger zerolog.Logger) (*EventHub, error) {
	c, err := codec.New(conf.Format, "")
	if err != nil {
		return nil, err
	}

	producerClient, err := azeventhubs.NewProducerClientFromConnectionString(conf.Connection, conf.EventHubName, nil)
	if err != nil {
		return nil, errors.Join(err, errors.New("failed to create producer client"))
	}
	if conf.SendTimeout <= 0 {
		conf.SendTimeout = 5 * time.Second
	}

	e := &EventHub{
		producerClient: producerClient,
		codec:          c,
		timeout:        conf.SendTimeout,
		logger:         logger.With().Str("component", "event-hub").Logger(),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		closeCtx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		if err := producerClient.Close(closeCtx); err != nil {
			e.logger.Error().Err(err).Msg("failed to close producer client")
		}
	}()

	return e, nil
}

func (e *EventHub) SendAlarm(a model.AlarmLog) error {
	buf, err := e.codec.Encode(a)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	partitionKey := a.SignalID
	batch, err := e.producerClient.NewEventDataBatch(ctx, &azeventhubs.EventDataBatchOptions{
		PartitionKey: &partitionKey,
	})
	if err != nil {
		return errors.Join(err, errors.New("failed to create event data batch"))
	}

	err = batch.AddEventData(createEventForAlarm(buf, a, e.codec.ContentType()), nil)
	if errors.Is(err, azeventhubs.ErrEventDataTooLarge) {
		// a single alarm is small; this only happens with a misconfigured hub
		return errors.Join(err, errors.New("failed to send alarm event is too large"))
	} else if err != nil {
		return errors.Join(err, errors.New("failed to send alarm"))
	}

	if err = e.producerClient.SendEventDataBatch(ctx, batch, nil); err != nil {
		return errors.Join(err, errors.New("failed to send alarm couldn't send the event"))
	}
	return nil
}

func createEventForAlarm(buf []byte, a model.AlarmLog, contentType string) *azeventhubs.EventData {
	id := a.ID
	return &azeventhubs.EventData{
		Body:        buf,
		ContentType: &contentType,
		MessageID:   &id,
		Properties: map[string]any{
			"signalId": a.SignalID,
			"severity": string(a.Severity),
		},
	}
}
