package criteria

import (
	"strings"
	"testing"
)

func TestBuiltinScopes(t *testing.T) {
	tests := []struct {
		kind  string
		scope Scope
	}{
		{KindKAnonymity, DatasetGlobal},
		{KindLDiversity, DatasetGlobal},
		{KindTCloseness, DatasetGlobal},
		{KindMinGeneralization, RecordLocal},
	}

	for _, tt := range tests {
		scope, ok := DefaultRegistry.Scope(tt.kind)
		if !ok {
			t.Errorf("kind %s not registered", tt.kind)
			continue
		}
		if scope != tt.scope {
			t.Errorf("Scope(%s) = %s, want %s", tt.kind, scope, tt.scope)
		}
	}
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    Criterion
		wantErr string
	}{
		{
			name:   "k-anonymity from yaml int",
			config: Config{Kind: KindKAnonymity, Params: map[string]any{"k": 5}},
			want:   KAnonymity{K: 5},
		},
		{
			name:   "k-anonymity from json float",
			config: Config{Kind: KindKAnonymity, Params: map[string]any{"k": 3.0}},
			want:   KAnonymity{K: 3},
		},
		{
			name:   "l-diversity",
			config: Config{Kind: KindLDiversity, Params: map[string]any{"attribute": "diagnosis", "l": 2}},
			want:   LDiversity{Attribute: "diagnosis", L: 2},
		},
		{
			name:   "t-closeness",
			config: Config{Kind: KindTCloseness, Params: map[string]any{"attribute": "diagnosis", "t": 0.2}},
			want:   TCloseness{Attribute: "diagnosis", T: 0.2},
		},
		{
			name:   "min generalization",
			config: Config{Kind: KindMinGeneralization, Params: map[string]any{"attribute": "zip", "level": "2"}},
			want:   MinGeneralization{Attribute: "zip", Level: 2},
		},
		{
			name:    "unknown kind",
			config:  Config{Kind: "delta_presence"},
			wantErr: "unknown criterion kind",
		},
		{
			name:    "missing parameter",
			config:  Config{Kind: KindKAnonymity},
			wantErr: "missing parameter 'k'",
		},
		{
			name:    "fractional k",
			config:  Config{Kind: KindKAnonymity, Params: map[string]any{"k": 2.5}},
			wantErr: "must be an integer",
		},
		{
			name:    "t out of range",
			config:  Config{Kind: KindTCloseness, Params: map[string]any{"attribute": "d", "t": 1.5}},
			wantErr: "t must be in [0,1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := DefaultRegistry.Create(tt.config)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rule.Criterion != tt.want {
				t.Errorf("Criterion = %#v, want %#v", rule.Criterion, tt.want)
			}
		})
	}
}

func TestNewSetRejectsOutliersOutOfRange(t *testing.T) {
	for _, v := range []float64{-0.1, 1.01} {
		if _, err := NewSet(nil, v); err == nil {
			t.Errorf("NewSet(nil, %v) expected error", v)
		}
	}
}

// Правило l-diversity и 5% выбросов превращаются в набор без l-diversity и с нулевыми выбросами
func TestAdaptDropsGlobalCriteria(t *testing.T) {
	set, err := CreateSetFromConfigs([]Config{
		{Kind: KindLDiversity, Params: map[string]any{"attribute": "diagnosis", "l": 2}},
	}, 0.05)
	if err != nil {
		t.Fatalf("CreateSetFromConfigs: %v", err)
	}

	adapted := set.Adapt()

	if adapted.Has(KindLDiversity) {
		t.Error("adapted set still contains l_diversity")
	}
	if adapted.MaxOutliers() != 0 {
		t.Errorf("MaxOutliers = %v, want 0", adapted.MaxOutliers())
	}

	// Исходный набор не изменился
	if !set.Has(KindLDiversity) || set.MaxOutliers() != 0.05 {
		t.Errorf("original set modified: %s", set)
	}
}

func TestAdaptKeepsRecordLocalCriteria(t *testing.T) {
	set, err := CreateSetFromConfigs([]Config{
		{Kind: KindKAnonymity, Params: map[string]any{"k": 2}},
		{Kind: KindMinGeneralization, Params: map[string]any{"attribute": "zip", "level": 2}},
		{Kind: KindTCloseness, Params: map[string]any{"attribute": "d", "t": 0.3}},
	}, 0.1)
	if err != nil {
		t.Fatalf("CreateSetFromConfigs: %v", err)
	}

	adapted := set.Adapt()
	if adapted.Len() != 1 {
		t.Fatalf("adapted.Len() = %d, want 1: %s", adapted.Len(), adapted)
	}
	rule := adapted.Rules()[0]
	if rule.Scope != RecordLocal || rule.Criterion.Kind() != KindMinGeneralization {
		t.Errorf("unexpected rule kept: %s", rule)
	}

	// Повторная адаптация ничего не меняет
	again := adapted.Adapt()
	if again.String() != adapted.String() {
		t.Errorf("Adapt is not idempotent: %s vs %s", again, adapted)
	}
}

func TestCustomKindScope(t *testing.T) {
	r := NewRegistry()
	r.Register("max_length", RecordLocal, func(params map[string]any) (Criterion, error) {
		return MinGeneralization{Attribute: "x", Level: 1}, nil
	})

	kinds := r.Kinds()
	if len(kinds) != 5 {
		t.Errorf("Kinds() = %v, want 5 kinds", kinds)
	}
	scope, ok := r.Scope("max_length")
	if !ok || scope != RecordLocal {
		t.Errorf("Scope(max_length) = %v, %v", scope, ok)
	}
}
