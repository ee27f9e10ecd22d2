package criteria

import (
	"fmt"
	"sort"
	"sync"
)

// Config - описание критерия в конфигурации
type Config struct {
	Kind   string         `yaml:"kind" json:"kind"`
	Params map[string]any `yaml:"params" json:"params"`
}

// FactoryFunc создает критерий из параметров
type FactoryFunc func(params map[string]any) (Criterion, error)

type registration struct {
	scope   Scope
	factory FactoryFunc
}

// Registry хранит виды критериев вместе с их областью действия.
// Область действия назначается при регистрации и не выводится из имени вида.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]registration
}

// NewRegistry создает реестр со встроенными видами критериев
func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[string]registration)}

	r.Register(KindKAnonymity, DatasetGlobal, func(params map[string]any) (Criterion, error) {
		k, err := intParam(params, "k")
		if err != nil {
			return nil, err
		}
		if k < 1 {
			return nil, fmt.Errorf("k must be >= 1, got %d", k)
		}
		return KAnonymity{K: k}, nil
	})

	r.Register(KindLDiversity, DatasetGlobal, func(params map[string]any) (Criterion, error) {
		attr, err := stringParam(params, "attribute")
		if err != nil {
			return nil, err
		}
		l, err := intParam(params, "l")
		if err != nil {
			return nil, err
		}
		if l < 1 {
			return nil, fmt.Errorf("l must be >= 1, got %d", l)
		}
		return LDiversity{Attribute: attr, L: l}, nil
	})

	r.Register(KindTCloseness, DatasetGlobal, func(params map[string]any) (Criterion, error) {
		attr, err := stringParam(params, "attribute")
		if err != nil {
			return nil, err
		}
		t, err := floatParam(params, "t")
		if err != nil {
			return nil, err
		}
		if t < 0 || t > 1 {
			return nil, fmt.Errorf("t must be in [0,1], got %v", t)
		}
		return TCloseness{Attribute: attr, T: t}, nil
	})

	r.Register(KindMinGeneralization, RecordLocal, func(params map[string]any) (Criterion, error) {
		attr, err := stringParam(params, "attribute")
		if err != nil {
			return nil, err
		}
		level, err := intParam(params, "level")
		if err != nil {
			return nil, err
		}
		if level < 0 {
			return nil, fmt.Errorf("level must be >= 0, got %d", level)
		}
		return MinGeneralization{Attribute: attr, Level: level}, nil
	})

	return r
}

// Register регистрирует вид критерия с его областью действия
func (r *Registry) Register(kind string, scope Scope, factory FactoryFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[kind] = registration{scope: scope, factory: factory}
}

// Scope возвращает область действия зарегистрированного вида
func (r *Registry) Scope(kind string) (Scope, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.kinds[kind]
	return reg.scope, ok
}

// Kinds возвращает отсортированный список зарегистрированных видов
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Create создает правило по конфигурации
func (r *Registry) Create(config Config) (Rule, error) {
	r.mu.RLock()
	reg, ok := r.kinds[config.Kind]
	r.mu.RUnlock()
	if !ok {
		return Rule{}, fmt.Errorf("unknown criterion kind: %s", config.Kind)
	}

	params := config.Params
	if params == nil {
		params = map[string]any{}
	}

	c, err := reg.factory(params)
	if err != nil {
		return Rule{}, fmt.Errorf("failed to create criterion '%s': %w", config.Kind, err)
	}

	return Rule{Criterion: c, Scope: reg.scope}, nil
}

// CreateSet создает набор критериев из массива конфигураций
func (r *Registry) CreateSet(configs []Config, maxOutliers float64) (Set, error) {
	rules := make([]Rule, 0, len(configs))
	for i, config := range configs {
		rule, err := r.Create(config)
		if err != nil {
			return Set{}, fmt.Errorf("criterion %d: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return NewSet(rules, maxOutliers)
}

// DefaultRegistry - реестр со встроенными видами критериев
var DefaultRegistry = NewRegistry()

// Register регистрирует вид в реестре по умолчанию
func Register(kind string, scope Scope, factory FactoryFunc) {
	DefaultRegistry.Register(kind, scope, factory)
}

// CreateSetFromConfigs создает набор критериев через реестр по умолчанию
func CreateSetFromConfigs(configs []Config, maxOutliers float64) (Set, error) {
	return DefaultRegistry.CreateSet(configs, maxOutliers)
}
