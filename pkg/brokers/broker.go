package brokers

import (
	"context"
	"fmt"
)

// MessageBroker представляет универсальный интерфейс для работы с очередями сообщений.
// Поддерживает Apache Kafka, RabbitMQ и очередь в памяти (dev-режим и тесты).
type MessageBroker interface {
	// Connect устанавливает соединение с брокером
	Connect(ctx context.Context) error

	// Close закрывает соединение с брокером
	Close() error

	// Send отправляет сообщение в очередь
	// message - тело сообщения (JSON-массив записей)
	Send(ctx context.Context, message []byte) error

	// Receive получает сообщение из очереди
	// Блокирующий вызов - ждет пока не придет сообщение или не отменится ctx.
	// Сообщение остается неподтвержденным до вызова Ack или Reject.
	Receive(ctx context.Context) ([]byte, error)

	// Ack подтверждает последнее полученное сообщение
	// Вызывайте ТОЛЬКО после публикации результата!
	Ack(ctx context.Context) error

	// Reject снимает последнее сообщение с обработки без повторной доставки
	// (сообщение уже сохранено в DLQ)
	Reject(ctx context.Context) error

	// Ping проверяет доступность брокера
	Ping(ctx context.Context) error

	// GetBrokerType возвращает тип брокера (rabbitmq, kafka, memory)
	GetBrokerType() string
}

// Config содержит параметры подключения к message broker
type Config struct {
	Type     string `yaml:"type"`     // rabbitmq, kafka, memory
	Host     string `yaml:"host"`     // Хост (для RabbitMQ)
	Port     int    `yaml:"port"`     // Порт (для RabbitMQ)
	User     string `yaml:"user"`     // Пользователь (для RabbitMQ)
	Password string `yaml:"password"` // Пароль (для RabbitMQ)
	Queue    string `yaml:"queue"`    // Имя очереди (для RabbitMQ и memory)
	VHost    string `yaml:"vhost"`    // Virtual host (для RabbitMQ, по умолчанию "/")
	UseTLS   bool   `yaml:"use_tls"`  // Использовать TLS/SSL (amqps://) для RabbitMQ

	// RabbitMQ параметры очереди (ВАЖНО: должны совпадать с существующей очередью!)
	Durable    bool `yaml:"durable"`     // Очередь переживает перезапуск RabbitMQ
	AutoDelete bool `yaml:"auto_delete"` // Очередь удаляется когда нет consumer'ов
	Exclusive  bool `yaml:"exclusive"`   // Очередь доступна только одному соединению

	// Kafka специфичные параметры
	Brokers       []string `yaml:"brokers"`        // Список Kafka brokers (например: ["localhost:9092"])
	Topic         string   `yaml:"topic"`          // Имя Kafka topic
	ConsumerGroup string   `yaml:"consumer_group"` // Consumer group ID (по умолчанию "tdtp-deid-group")
	Compression   string   `yaml:"compression"`    // snappy (по умолчанию), zstd, gzip, lz4, none
}

// New создает новый MessageBroker на основе конфигурации
func New(cfg Config) (MessageBroker, error) {
	switch cfg.Type {
	case "rabbitmq":
		return NewRabbitMQ(cfg)
	case "kafka":
		return NewKafka(cfg)
	case "memory":
		return NewMemory(cfg)
	default:
		return nil, fmt.Errorf("unsupported broker type: %s (supported: rabbitmq, kafka, memory)", cfg.Type)
	}
}
