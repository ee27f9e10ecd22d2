package schema

// Builder помогает строить схемы
type Builder struct {
	attrs []Attribute
}

// NewBuilder создает новый builder
func NewBuilder() *Builder {
	return &Builder{
		attrs: []Attribute{},
	}
}

// AddQuasiIdentifier добавляет квази-идентификатор с иерархией обобщения
func (b *Builder) AddQuasiIdentifier(name, hierarchy string) *Builder {
	b.attrs = append(b.attrs, Attribute{
		Name:      name,
		Type:      QuasiIdentifying,
		Hierarchy: hierarchy,
	})
	return b
}

// AddIdentifier добавляет идентифицирующий атрибут (подавляется)
func (b *Builder) AddIdentifier(name string) *Builder {
	b.attrs = append(b.attrs, Attribute{Name: name, Type: Identifying})
	return b
}

// AddSensitive добавляет чувствительный атрибут
func (b *Builder) AddSensitive(name string) *Builder {
	b.attrs = append(b.attrs, Attribute{Name: name, Type: Sensitive})
	return b
}

// AddInsensitive добавляет нечувствительный атрибут
func (b *Builder) AddInsensitive(name string) *Builder {
	b.attrs = append(b.attrs, Attribute{Name: name, Type: Insensitive})
	return b
}

// AddAttribute добавляет произвольный атрибут
func (b *Builder) AddAttribute(attr Attribute) *Builder {
	b.attrs = append(b.attrs, attr)
	return b
}

// Build строит схему
func (b *Builder) Build() Schema {
	return New(b.attrs...)
}

// Reset очищает builder
func (b *Builder) Reset() *Builder {
	b.attrs = []Attribute{}
	return b
}

// AttributeCount возвращает количество атрибутов
func (b *Builder) AttributeCount() int {
	return len(b.attrs)
}
