// Package artifact загружает авторскую конфигурацию обезличивания:
// схему атрибутов, иерархии обобщения и критерии приватности.
package artifact

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tdtp-deid/pkg/core/schema"
	"github.com/ruslano69/tdtp-deid/pkg/criteria"
	"github.com/ruslano69/tdtp-deid/pkg/hierarchy"
)

// Artifact - авторская конфигурация в том виде, как она хранится в YAML
//
//	attributes:
//	  - name: age
//	    type: quasi_identifying
//	    hierarchy: age
//	hierarchies:
//	  age:
//	    kind: interval
//	    params: {widths: [10, 20]}
//	criteria:
//	  - kind: k_anonymity
//	    params: {k: 5}
//	max_outliers: 0.05
type Artifact struct {
	Name        string                      `yaml:"name"`
	Attributes  []schema.Attribute          `yaml:"attributes"`
	Hierarchies map[string]hierarchy.Config `yaml:"hierarchies"`
	Criteria    []criteria.Config           `yaml:"criteria"`
	MaxOutliers float64                     `yaml:"max_outliers"`

	// BaseDir - каталог, относительно которого разрешаются файлы иерархий
	BaseDir string `yaml:"-"`
}

// Resolved - артефакт, собранный в объекты предметной области
type Resolved struct {
	Schema      schema.Schema
	Hierarchies map[string]hierarchy.Hierarchy
	Criteria    criteria.Set
}

// Parse разбирает YAML. Неизвестные поля считаются ошибкой.
func Parse(data []byte) (*Artifact, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var a Artifact
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("failed to parse artifact: %w", err)
	}
	if len(a.Attributes) == 0 {
		return nil, fmt.Errorf("artifact has no attributes")
	}
	return &a, nil
}

// Build собирает схему, иерархии и критерии.
// nil factory/registry означают реестры по умолчанию.
func (a *Artifact) Build(f *hierarchy.Factory, reg *criteria.Registry) (*Resolved, error) {
	if f == nil {
		f = hierarchy.DefaultFactory
	}
	if reg == nil {
		reg = criteria.DefaultRegistry
	}

	s := schema.New(a.Attributes...)
	if err := schema.NewValidator().ValidateSchema(s); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	// Собираем только используемые иерархии, в детерминированном порядке
	used := map[string]bool{}
	for _, attr := range s.Attributes() {
		if attr.Hierarchy != "" {
			used[attr.Hierarchy] = true
		}
	}
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)

	hiers := make(map[string]hierarchy.Hierarchy, len(names))
	for _, name := range names {
		cfg, ok := a.Hierarchies[name]
		if !ok {
			return nil, fmt.Errorf("hierarchy '%s' is referenced but not defined", name)
		}
		h, err := f.Create(a.resolvePaths(cfg))
		if err != nil {
			return nil, fmt.Errorf("hierarchy '%s': %w", name, err)
		}
		hiers[name] = h
	}

	set, err := reg.CreateSet(a.Criteria, a.MaxOutliers)
	if err != nil {
		return nil, fmt.Errorf("criteria: %w", err)
	}

	return &Resolved{Schema: s, Hierarchies: hiers, Criteria: set}, nil
}

// resolvePaths делает относительный params.file абсолютным относительно BaseDir
func (a *Artifact) resolvePaths(cfg hierarchy.Config) hierarchy.Config {
	file, ok := cfg.Params["file"].(string)
	if !ok || file == "" || a.BaseDir == "" || filepath.IsAbs(file) {
		return cfg
	}

	params := make(map[string]any, len(cfg.Params))
	for k, v := range cfg.Params {
		params[k] = v
	}
	params["file"] = filepath.Join(a.BaseDir, file)
	return hierarchy.Config{Kind: cfg.Kind, Params: params}
}
