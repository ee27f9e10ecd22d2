package brokers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Kafka реализует MessageBroker для Apache Kafka.
// Reader и writer создаются при первом использовании: входной воркер
// только читает, выходной только пишет.
type Kafka struct {
	config      Config
	compression kafka.Compression

	mu      sync.Mutex
	writer  *kafka.Writer
	reader  *kafka.Reader
	pending *kafka.Message // получено, но не закоммичено
}

// NewKafka создает новый Kafka брокер
func NewKafka(cfg Config) (*Kafka, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = "tdtp-deid-group"
	}

	codec, err := kafkaCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	return &Kafka{config: cfg, compression: codec}, nil
}

func kafkaCompression(name string) (kafka.Compression, error) {
	switch name {
	case "", "snappy":
		return kafka.Snappy, nil
	case "zstd":
		return kafka.Zstd, nil
	case "gzip":
		return kafka.Gzip, nil
	case "lz4":
		return kafka.Lz4, nil
	case "none":
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported kafka compression: %s", name)
	}
}

// Connect проверяет доступность брокера и topic
func (k *Kafka) Connect(ctx context.Context) error {
	return k.Ping(ctx)
}

// Close закрывает reader и writer
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	var errs []error
	if k.writer != nil {
		if err := k.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer: %w", err))
		}
		k.writer = nil
	}
	if k.reader != nil {
		if err := k.reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close reader: %w", err))
		}
		k.reader = nil
	}
	return errors.Join(errs...)
}

func (k *Kafka) getWriter() *kafka.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.writer == nil {
		k.writer = &kafka.Writer{
			Addr:         kafka.TCP(k.config.Brokers...),
			Topic:        k.config.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  k.compression,
			MaxAttempts:  1, // повторы делает retry.Retryer
			WriteTimeout: 10 * time.Second,
		}
	}
	return k.writer
}

func (k *Kafka) getReader() *kafka.Reader {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.reader == nil {
		k.reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:        k.config.Brokers,
			GroupID:        k.config.ConsumerGroup,
			Topic:          k.config.Topic,
			MinBytes:       1,
			MaxBytes:       10e6,
			CommitInterval: 0, // коммит только явным Ack
			StartOffset:    kafka.FirstOffset,
			MaxWait:        time.Second,
		})
	}
	return k.reader
}

// Send публикует пакет. Ключ сообщения случайный: пакеты независимы.
func (k *Kafka) Send(ctx context.Context, message []byte) error {
	msg := kafka.Message{
		Key:   []byte(uuid.NewString()),
		Value: message,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := k.getWriter().WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write to %s: %w", k.config.Topic, err)
	}
	return nil
}

// Receive читает следующее сообщение; offset не коммитится до Ack/Reject
func (k *Kafka) Receive(ctx context.Context) ([]byte, error) {
	msg, err := k.getReader().FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("kafka fetch from %s: %w", k.config.Topic, err)
	}

	k.mu.Lock()
	k.pending = &msg
	k.mu.Unlock()
	return msg.Value, nil
}

// Ack коммитит offset последнего полученного сообщения
func (k *Kafka) Ack(ctx context.Context) error {
	k.mu.Lock()
	msg, reader := k.pending, k.reader
	k.pending = nil
	k.mu.Unlock()

	if msg == nil || reader == nil {
		return fmt.Errorf("no message to commit")
	}
	if err := reader.CommitMessages(ctx, *msg); err != nil {
		return fmt.Errorf("kafka commit offset %d: %w", msg.Offset, err)
	}
	return nil
}

// Reject для Kafka совпадает с Ack: offset сдвигается, пакет уже лежит в DLQ
func (k *Kafka) Reject(ctx context.Context) error {
	return k.Ack(ctx)
}

// Ping проверяет, что первый брокер отвечает и topic существует
func (k *Kafka) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", k.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial Kafka broker: %w", err)
	}
	defer conn.Close()

	if _, err = conn.ReadPartitions(k.config.Topic); err != nil {
		return fmt.Errorf("failed to read topic partitions: %w", err)
	}
	return nil
}

// GetBrokerType возвращает тип брокера
func (k *Kafka) GetBrokerType() string {
	return "kafka"
}
