package hierarchy

import (
	"fmt"
	"strconv"
)

// Factory создает иерархии по их виду и конфигурации
type Factory struct {
	creators map[string]CreatorFunc
}

// CreatorFunc функция для создания иерархии из конфигурации
type CreatorFunc func(params map[string]any) (Hierarchy, error)

// NewFactory создает новую фабрику иерархий
func NewFactory() *Factory {
	f := &Factory{
		creators: make(map[string]CreatorFunc),
	}

	// Регистрируем встроенные виды
	f.Register("table", NewTableFromConfig)
	f.Register("interval", NewIntervalFromConfig)
	f.Register("mask", NewMaskFromConfig)
	f.Register("xlsx", NewXLSXFromConfig)

	return f
}

// Register регистрирует новый вид иерархии
func (f *Factory) Register(kind string, creator CreatorFunc) {
	f.creators[kind] = creator
}

// Create создает иерархию по конфигурации
func (f *Factory) Create(config Config) (Hierarchy, error) {
	creator, ok := f.creators[config.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown hierarchy kind: %s", config.Kind)
	}

	params := config.Params
	if params == nil {
		params = map[string]any{}
	}

	h, err := creator(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create hierarchy '%s': %w", config.Kind, err)
	}

	return h, nil
}

// DefaultFactory возвращает фабрику со всеми встроенными видами
var DefaultFactory = NewFactory()

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("must be an integer, got %v", n)
		}
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("must be an integer, got %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("must be a number, got %T", v)
	}
}
