package schema

// AttributeType определяет роль атрибута при деидентификации
type AttributeType string

// Поддерживаемые роли атрибутов
const (
	// QuasiIdentifying обобщается по своей иерархии
	QuasiIdentifying AttributeType = "quasi_identifying"
	// Identifying подавляется полностью
	Identifying AttributeType = "identifying"
	// Sensitive сохраняется без изменений, участвует в l-diversity и t-closeness
	Sensitive AttributeType = "sensitive"
	// Insensitive сохраняется без изменений
	Insensitive AttributeType = "insensitive"
)

// ReservedPrefix - префикс служебных полей вызывающей стороны.
// Поля с этим префиксом никогда не входят в схему.
const ReservedPrefix = "_"

// IdentifierField - служебное поле-идентификатор записи, которое
// возвращается в выходной записи без изменений
const IdentifierField = "_id"

// IsReserved проверяет, является ли имя поля служебным
func IsReserved(name string) bool {
	return len(name) >= len(ReservedPrefix) && name[:len(ReservedPrefix)] == ReservedPrefix
}

// IsValidType проверяет допустимость роли атрибута
func IsValidType(t AttributeType) bool {
	switch t {
	case QuasiIdentifying, Identifying, Sensitive, Insensitive:
		return true
	default:
		return false
	}
}

// NormalizeType приводит пустую роль к значению по умолчанию.
// Атрибут без роли считается нечувствительным.
func NormalizeType(t AttributeType) AttributeType {
	if t == "" {
		return Insensitive
	}
	return t
}

// Attribute описывает один столбец схемы
type Attribute struct {
	Name      string        `yaml:"name" json:"name"`
	Type      AttributeType `yaml:"type" json:"type"`
	Hierarchy string        `yaml:"hierarchy,omitempty" json:"hierarchy,omitempty"` // Имя иерархии обобщения
}

// Schema - упорядоченный набор атрибутов.
// Порядок определяет порядок столбцов таблицы, передаваемой движку.
type Schema struct {
	attributes []Attribute
}

// New создает схему из копии переданных атрибутов
func New(attrs ...Attribute) Schema {
	cp := make([]Attribute, len(attrs))
	for i, a := range attrs {
		a.Type = NormalizeType(a.Type)
		cp[i] = a
	}
	return Schema{attributes: cp}
}

// FromNames строит схему из заголовка таблицы (все атрибуты нечувствительные)
func FromNames(names []string) Schema {
	attrs := make([]Attribute, len(names))
	for i, n := range names {
		attrs[i] = Attribute{Name: n, Type: Insensitive}
	}
	return Schema{attributes: attrs}
}

// Len возвращает количество атрибутов
func (s Schema) Len() int {
	return len(s.attributes)
}

// Attributes возвращает копию атрибутов
func (s Schema) Attributes() []Attribute {
	cp := make([]Attribute, len(s.attributes))
	copy(cp, s.attributes)
	return cp
}

// Names возвращает имена атрибутов в порядке схемы
func (s Schema) Names() []string {
	names := make([]string, len(s.attributes))
	for i, a := range s.attributes {
		names[i] = a.Name
	}
	return names
}

// Index возвращает позицию атрибута или -1
func (s Schema) Index(name string) int {
	for i, a := range s.attributes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// Attribute находит атрибут по имени
func (s Schema) Attribute(name string) (Attribute, bool) {
	if i := s.Index(name); i >= 0 {
		return s.attributes[i], true
	}
	return Attribute{}, false
}

// Equal reports whether two schemas have the same attribute names in the same order.
func (s Schema) Equal(o Schema) bool {
	if len(s.attributes) != len(o.attributes) {
		return false
	}
	for i := range s.attributes {
		if s.attributes[i].Name != o.attributes[i].Name {
			return false
		}
	}
	return true
}
