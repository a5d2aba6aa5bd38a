package domain

// Entity is a stored resource with a server-assigned integer id.
type Entity interface {
	RecordID() int64
}

// Kind declares one resource kind: its route segment, its backing table and
// how a validated payload becomes an entity ready for insert. The generic
// repository, service and router binder are driven entirely by this value.
type Kind[E Entity, P any] struct {
	// Name is the route segment and metrics label, e.g. "people".
	Name string
	// Table is the backing table name.
	Table string
	// Build maps a validated payload to an entity with a zero id.
	Build func(P) E
}

// People is the Person resource kind.
var People = Kind[Person, CreatePerson]{
	Name:  "people",
	Table: Person{}.TableName(),
	Build: func(p CreatePerson) Person {
		return Person{
			Name:       p.Name,
			City:       p.City,
			Occupation: p.Occupation,
			Age:        p.Age,
			Education:  p.Education,
		}
	},
}

// Keyboards is the Keyboard resource kind.
var Keyboards = Kind[Keyboard, CreateKeyboard]{
	Name:  "keyboards",
	Table: Keyboard{}.TableName(),
	Build: func(p CreateKeyboard) Keyboard {
		return Keyboard{
			Brand:      p.Brand,
			Model:      p.Model,
			SwitchType: p.SwitchType,
			KeyCount:   p.KeyCount,
			Connection: p.Connection,
		}
	},
}
