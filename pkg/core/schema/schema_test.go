package schema

import (
	"strings"
	"testing"
)

func TestTypeValidation(t *testing.T) {
	tests := []struct {
		attrType AttributeType
		valid    bool
	}{
		{QuasiIdentifying, true},
		{Identifying, true},
		{Sensitive, true},
		{Insensitive, true},
		{AttributeType("INVALID"), false},
		{AttributeType(""), false},
	}

	for _, tt := range tests {
		result := IsValidType(tt.attrType)
		if result != tt.valid {
			t.Errorf("IsValidType(%s) = %v, want %v", tt.attrType, result, tt.valid)
		}
	}
}

func TestNewNormalizesEmptyType(t *testing.T) {
	s := New(Attribute{Name: "note"})
	attr, ok := s.Attribute("note")
	if !ok {
		t.Fatal("attribute 'note' not found")
	}
	if attr.Type != Insensitive {
		t.Errorf("Expected Insensitive, got %s", attr.Type)
	}
}

func TestSchemaIsImmutable(t *testing.T) {
	attrs := []Attribute{{Name: "age", Type: Sensitive}}
	s := New(attrs...)

	// Изменение исходного среза не должно влиять на схему
	attrs[0].Name = "changed"
	if s.Names()[0] != "age" {
		t.Errorf("schema changed through caller slice: %v", s.Names())
	}

	// Изменение результата Names() тоже
	names := s.Names()
	names[0] = "changed"
	if s.Names()[0] != "age" {
		t.Errorf("schema changed through Names(): %v", s.Names())
	}
}

func TestBuilder(t *testing.T) {
	s := NewBuilder().
		AddQuasiIdentifier("age", "age_h").
		AddQuasiIdentifier("zip", "zip_h").
		AddIdentifier("name").
		AddSensitive("diagnosis").
		AddInsensitive("note").
		Build()

	want := []string{"age", "zip", "name", "diagnosis", "note"}
	got := s.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if s.Index("diagnosis") != 3 {
		t.Errorf("Index(diagnosis) = %d, want 3", s.Index("diagnosis"))
	}
	if s.Index("missing") != -1 {
		t.Errorf("Index(missing) = %d, want -1", s.Index("missing"))
	}
}

func TestValidateSchema(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		schema  Schema
		wantErr string
	}{
		{
			name:   "valid",
			schema: NewBuilder().AddQuasiIdentifier("age", "age_h").AddSensitive("d").Build(),
		},
		{
			name:    "empty",
			schema:  New(),
			wantErr: "at least one attribute",
		},
		{
			name:    "duplicate",
			schema:  NewBuilder().AddSensitive("a").AddInsensitive("a").Build(),
			wantErr: "duplicate attribute name",
		},
		{
			name:    "reserved prefix",
			schema:  NewBuilder().AddInsensitive("_id").Build(),
			wantErr: "reserved prefix",
		},
		{
			name:    "empty name",
			schema:  NewBuilder().AddInsensitive("").Build(),
			wantErr: "empty name",
		},
		{
			name:    "quasi-identifier without hierarchy",
			schema:  NewBuilder().AddQuasiIdentifier("zip", "").Build(),
			wantErr: "has no hierarchy",
		},
		{
			name:    "invalid type",
			schema:  New(Attribute{Name: "x", Type: "secret"}),
			wantErr: "invalid type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateSchema(tt.schema)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateHeader(t *testing.T) {
	v := NewValidator()

	if err := v.ValidateHeader([]string{"age", "zip"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateHeader([]string{"age", "age"}); err == nil {
		t.Error("Expected error for duplicate header column")
	}
	if err := v.ValidateHeader([]string{"_meta"}); err == nil {
		t.Error("Expected error for reserved header column")
	}
}

func TestIsReserved(t *testing.T) {
	if !IsReserved(IdentifierField) {
		t.Errorf("IsReserved(%q) = false", IdentifierField)
	}
	if !IsReserved("_updated") {
		t.Error("IsReserved(_updated) = false")
	}
	if IsReserved("age") {
		t.Error("IsReserved(age) = true")
	}
}
