package retry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Причины попадания пакета в DLQ
const (
	FailureDecode    = "decode_failed"
	FailureTransform = "transform_failed"
)

// DLQEntry - пакет, который не удалось обработать
type DLQEntry struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	PlanID      string          `json:"plan_id"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"last_error"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	FailureType string          `json:"failure_type"`
	Payload     json.RawMessage `json:"payload,omitempty"` // исходное сообщение, если это валидный JSON
	RawPayload  []byte          `json:"raw_payload,omitempty"`
}

// DLQ - файловая Dead Letter Queue. Каждое добавление сразу сохраняется на диск.
type DLQ struct {
	mu      sync.RWMutex
	config  DLQConfig
	entries []DLQEntry
}

// NewDLQ создает DLQ и загружает существующий файл, если он есть
func NewDLQ(config DLQConfig) (*DLQ, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("dlq file path is required")
	}

	dlq := &DLQ{
		config:  config,
		entries: make([]DLQEntry, 0),
	}

	if _, err := os.Stat(config.FilePath); err == nil {
		if err := dlq.Load(); err != nil {
			return nil, fmt.Errorf("failed to load DLQ: %w", err)
		}
	}

	return dlq, nil
}

// Add добавляет запись и сохраняет файл
func (d *DLQ) Add(entry DLQEntry, payload []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry.ID = uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if json.Valid(payload) {
		entry.Payload = append(json.RawMessage(nil), payload...)
	} else if len(payload) > 0 {
		entry.RawPayload = append([]byte(nil), payload...)
	}

	d.entries = append(d.entries, entry)

	// Вытесняем самые старые записи
	if d.config.MaxSize > 0 && len(d.entries) > d.config.MaxSize {
		d.entries = d.entries[len(d.entries)-d.config.MaxSize:]
	}

	return d.saveUnsafe()
}

// Get возвращает копию всех записей
func (d *DLQ) Get() []DLQEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]DLQEntry, len(d.entries))
	copy(result, d.entries)
	return result
}

// Remove удаляет запись по ID
func (d *DLQ) Remove(id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, entry := range d.entries {
		if entry.ID == id {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return true, d.saveUnsafe()
		}
	}

	return false, nil
}

// CleanupOld удаляет записи старше RetentionPeriod
func (d *DLQ) CleanupOld() (int, error) {
	if d.config.RetentionPeriod == 0 {
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := time.Now().Add(-d.config.RetentionPeriod)
	kept := make([]DLQEntry, 0, len(d.entries))
	for _, entry := range d.entries {
		if entry.Timestamp.After(cutoff) {
			kept = append(kept, entry)
		}
	}

	removed := len(d.entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	d.entries = kept
	return removed, d.saveUnsafe()
}

// Size возвращает количество записей
func (d *DLQ) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entries)
}

// saveUnsafe сохраняет без блокировки (вызывается когда lock уже взят)
func (d *DLQ) saveUnsafe() error {
	data, err := json.MarshalIndent(d.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ: %w", err)
	}

	if err := os.WriteFile(d.config.FilePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write DLQ file: %w", err)
	}

	return nil
}

// Load загружает DLQ из файла
func (d *DLQ) Load() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, err := os.ReadFile(d.config.FilePath)
	if err != nil {
		return fmt.Errorf("failed to read DLQ file: %w", err)
	}

	var entries []DLQEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to unmarshal DLQ: %w", err)
	}

	d.entries = entries
	return nil
}

// Stats возвращает количество записей по причинам
func (d *DLQ) Stats() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := make(map[string]int)
	for _, entry := range d.entries {
		stats[entry.FailureType]++
	}
	return stats
}
