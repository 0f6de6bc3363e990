package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderproxy/internal/config"
)

// HeaderEventType names the event carried by a message.
const HeaderEventType = "event-type"

// Message represents a message on the bus.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// Handler processes an inbound message.
type Handler func(context.Context, Message) error

// Client is the pluggable messaging abstraction.
type Client interface {
	Publish(ctx context.Context, msg Message) error
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

// Module wires the messaging client.
var Module = fx.Provide(NewClient)

// NewClient builds a messaging client based on configuration.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	if !cfg.Messaging.Enabled || cfg.Messaging.Driver == "noop" {
		logger.Info("messaging disabled; using noop client")

		return NoopClient{topic: cfg.Messaging.Kafka.Topic}, nil
	}

	switch cfg.Messaging.Driver {
	case "kafka":
		return newKafkaClient(lc, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
}

// NoopClient drops published messages and blocks consumers until cancelled.
type NoopClient struct {
	topic string
}

func (n NoopClient) Publish(context.Context, Message) error { return nil }

func (n NoopClient) Consume(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (n NoopClient) Topic() string { return n.topic }

type kafkaClient struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger

	// The consumer group reader joins the group as soon as it is built, so
	// it is only created once Consume is first called.
	readerConfig kafka.ReaderConfig
	readerOnce   sync.Once
	reader       *kafka.Reader
}

func newKafkaClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	kcfg := cfg.Messaging.Kafka

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kcfg.Brokers...),
		Topic:        kcfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafkaLogger{logger: logger},
		ErrorLogger:  kafkaErrorLogger{logger: logger},
	}

	client := &kafkaClient{
		writer: writer,
		topic:  kcfg.Topic,
		logger: logger,
		readerConfig: kafka.ReaderConfig{
			Brokers:        kcfg.Brokers,
			GroupID:        cfg.Messaging.ConsumerGroup,
			Topic:          kcfg.Topic,
			MinBytes:       kcfg.MinBytes,
			MaxBytes:       kcfg.MaxBytes,
			CommitInterval: kcfg.CommitInterval,
			Dialer: &kafka.Dialer{
				Timeout:  kcfg.ConnectTimeout,
				ClientID: kcfg.ClientID,
			},
		},
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing kafka client")

			return client.close()
		},
	})

	return client, nil
}

func (k *kafkaClient) Publish(ctx context.Context, msg Message) error {
	out := kafka.Message{Key: msg.Key, Value: msg.Value}
	for key, value := range msg.Headers {
		out.Headers = append(out.Headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	return k.writer.WriteMessages(ctx, out)
}

func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	k.readerOnce.Do(func() {
		k.reader = kafka.NewReader(k.readerConfig)
	})

	return consumeGroup(ctx, k.reader, handler, k.logger, handlerRetryBackoff)
}

// groupReader is the subset of *kafka.Reader the consume loop drives.
type groupReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

const (
	handlerRetryBackoff = time.Second
	maxRetryBackoff     = 30 * time.Second
)

// consumeGroup hands each fetched message to handler and commits it once the
// handler succeeds. A consumer-group reader never rewinds, and committing a
// later offset covers every earlier one, so a failing message is retried in
// place until it succeeds or ctx ends.
func consumeGroup(ctx context.Context, reader groupReader, handler Handler, logger *zap.Logger, backoff time.Duration) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Error("kafka fetch failed", zap.Error(err))

			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if err := handleWithRetry(ctx, msg, handler, logger, backoff); err != nil {
			return err
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Warn("commit failed", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
}

func handleWithRetry(ctx context.Context, msg kafka.Message, handler Handler, logger *zap.Logger, backoff time.Duration) error {
	wait := backoff
	for attempt := 1; ; attempt++ {
		err := handler(ctx, fromKafka(msg))
		if err == nil {
			return nil
		}
		logger.Error("message handler failed",
			zap.Error(err),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", wait),
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}

		if wait < maxRetryBackoff {
			wait *= 2
		}
	}
}

func (k *kafkaClient) Topic() string { return k.topic }

func (k *kafkaClient) close() error {
	err := k.writer.Close()
	k.readerOnce.Do(func() {})
	if k.reader != nil {
		err = errors.Join(err, k.reader.Close())
	}
	return err
}

func fromKafka(msg kafka.Message) Message {
	out := Message{
		Topic:  msg.Topic,
		Key:    append([]byte(nil), msg.Key...),
		Value:  append([]byte(nil), msg.Value...),
		Offset: msg.Offset,
		Time:   msg.Time,
	}
	if len(msg.Headers) > 0 {
		out.Headers = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			out.Headers[h.Key] = string(h.Value)
		}
	}
	return out
}

type kafkaLogger struct {
	logger *zap.Logger
}

func (k kafkaLogger) Printf(msg string, args ...interface{}) {
	k.logger.Sugar().Debugf(msg, args...)
}

type kafkaErrorLogger struct {
	logger *zap.Logger
}

func (k kafkaErrorLogger) Printf(msg string, args ...interface{}) {
	k.logger.Sugar().Warnf(msg, args...)
}
