package schema

import (
	"fmt"
)

// Validator валидирует схемы атрибутов
type Validator struct {
	// requireHierarchy - квази-идентификаторы обязаны ссылаться на иерархию
	requireHierarchy bool
}

// NewValidator создает новый валидатор
func NewValidator() *Validator {
	return &Validator{requireHierarchy: true}
}

// ValidateSchema проверяет корректность схемы
func (v *Validator) ValidateSchema(s Schema) error {
	if s.Len() == 0 {
		return fmt.Errorf("schema must have at least one attribute")
	}

	names := make(map[string]bool, s.Len())

	for i, attr := range s.attributes {
		// Проверка имени поля
		if attr.Name == "" {
			return fmt.Errorf("attribute at index %d has empty name", i)
		}

		// Служебные поля не могут быть столбцами
		if IsReserved(attr.Name) {
			return fmt.Errorf("attribute '%s' uses reserved prefix '%s'", attr.Name, ReservedPrefix)
		}

		// Проверка уникальности имен
		if names[attr.Name] {
			return fmt.Errorf("duplicate attribute name: %s", attr.Name)
		}
		names[attr.Name] = true

		if !IsValidType(attr.Type) {
			return fmt.Errorf("invalid type '%s' for attribute '%s'", attr.Type, attr.Name)
		}

		if v.requireHierarchy && attr.Type == QuasiIdentifying && attr.Hierarchy == "" {
			return fmt.Errorf("quasi-identifying attribute '%s' has no hierarchy", attr.Name)
		}
	}

	return nil
}

// ValidateHeader проверяет заголовок таблицы: непустые уникальные имена без служебного префикса
func (v *Validator) ValidateHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		if name == "" {
			return fmt.Errorf("header column %d has empty name", i)
		}
		if IsReserved(name) {
			return fmt.Errorf("header column '%s' uses reserved prefix '%s'", name, ReservedPrefix)
		}
		if seen[name] {
			return fmt.Errorf("duplicate header column: %s", name)
		}
		seen[name] = true
	}
	return nil
}

// QuasiIdentifiers возвращает квази-идентифицирующие атрибуты в порядке схемы
func (v *Validator) QuasiIdentifiers(s Schema) []Attribute {
	var qis []Attribute
	for _, attr := range s.attributes {
		if attr.Type == QuasiIdentifying {
			qis = append(qis, attr)
		}
	}
	return qis
}
