package light2d

import (
	"reflect"
)

// Queries walk the entities that own every required component type. Types passed
// as optionals to Map may be missing; their pointer is then nil. Types passed to
// Without exclude entities that own them.
//
// Pointers handed to the callback are only valid inside it. Structural changes go
// through Commands and are applied at the next flush.
type Query1[A any] struct {
	ecs     *Ecs
	without []reflect.Type
}
type Query2[A, B any] struct {
	ecs     *Ecs
	without []reflect.Type
}
type Query3[A, B, C any] struct {
	ecs     *Ecs
	without []reflect.Type
}
type Query4[A, B, C, D any] struct {
	ecs     *Ecs
	without []reflect.Type
}
type Query5[A, B, C, D, E any] struct {
	ecs     *Ecs
	without []reflect.Type
}

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }
func MakeQuery4[A, B, C, D any](cmd *Commands) Query4[A, B, C, D] {
	return Query4[A, B, C, D]{ecs: cmd.app.ecs}
}
func MakeQuery5[A, B, C, D, E any](cmd *Commands) Query5[A, B, C, D, E] {
	return Query5[A, B, C, D, E]{ecs: cmd.app.ecs}
}

func (q Query1[A]) Without(components ...any) Query1[A] {
	q.without = appendTypes(q.without, components)
	return q
}
func (q Query2[A, B]) Without(components ...any) Query2[A, B] {
	q.without = appendTypes(q.without, components)
	return q
}
func (q Query3[A, B, C]) Without(components ...any) Query3[A, B, C] {
	q.without = appendTypes(q.without, components)
	return q
}
func (q Query4[A, B, C, D]) Without(components ...any) Query4[A, B, C, D] {
	q.without = appendTypes(q.without, components)
	return q
}
func (q Query5[A, B, C, D, E]) Without(components ...any) Query5[A, B, C, D, E] {
	q.without = appendTypes(q.without, components)
	return q
}

func appendTypes(dst []reflect.Type, components []any) []reflect.Type {
	res := append([]reflect.Type(nil), dst...)
	for _, c := range components {
		res = append(res, componentType(c))
	}
	return res
}

func identifyOptionals(optionals ...any) set[reflect.Type] {
	res := make(set[reflect.Type], len(optionals))
	for _, o := range optionals {
		res[componentType(o)] = struct{}{}
	}
	return res
}

// column is one component type of a query resolved against the registry.
type column[T any] struct {
	table    *componentTable
	data     []T
	optional bool
}

func makeColumn[T any](ecs *Ecs, opt set[reflect.Type]) column[T] {
	t := typeOf[T]()
	c := column[T]{table: ecs.tables[t]}
	if c.table != nil {
		c.data = c.table.slice().([]T)
	}
	_, c.optional = opt[t]
	return c
}

// get returns the entity's component, nil for a missing optional, false when a
// required component is missing.
func (c column[T]) get(eid EntityId) (*T, bool) {
	if c.table != nil {
		if r, ok := c.table.rows[eid]; ok {
			return &c.data[r], true
		}
	}
	return nil, c.optional
}

// required reports the table to drive iteration with, nil if the column is optional.
func (c column[T]) required() (*componentTable, bool) {
	if c.optional {
		return nil, false
	}
	return c.table, true
}

// candidates returns the entities to test: the owners of the smallest required table,
// or every entity when all columns are optional.
func (ecs *Ecs) candidates(columns ...func() (*componentTable, bool)) []EntityId {
	var driver *componentTable
	for _, col := range columns {
		table, required := col()
		if !required {
			continue
		}
		if table == nil {
			return nil
		}
		if driver == nil || table.len() < driver.len() {
			driver = table
		}
	}
	if driver != nil {
		return append([]EntityId(nil), driver.owners...)
	}
	res := make([]EntityId, 0, len(ecs.entities))
	for eid := range ecs.entities {
		res = append(res, eid)
	}
	return res
}

func (ecs *Ecs) excluded(eid EntityId, without []reflect.Type) bool {
	for _, t := range without {
		if ecs.hasComponent(eid, t) {
			return true
		}
	}
	return false
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	opt := identifyOptionals(optionals...)
	ca := makeColumn[A](q.ecs, opt)

	for _, eid := range q.ecs.candidates(ca.required) {
		if q.ecs.excluded(eid, q.without) {
			continue
		}
		a, ok := ca.get(eid)
		if !ok {
			continue
		}
		if !m(eid, a) {
			return
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	opt := identifyOptionals(optionals...)
	ca := makeColumn[A](q.ecs, opt)
	cb := makeColumn[B](q.ecs, opt)

	for _, eid := range q.ecs.candidates(ca.required, cb.required) {
		if q.ecs.excluded(eid, q.without) {
			continue
		}
		a, ok := ca.get(eid)
		if !ok {
			continue
		}
		b, ok := cb.get(eid)
		if !ok {
			continue
		}
		if !m(eid, a, b) {
			return
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	opt := identifyOptionals(optionals...)
	ca := makeColumn[A](q.ecs, opt)
	cb := makeColumn[B](q.ecs, opt)
	cc := makeColumn[C](q.ecs, opt)

	for _, eid := range q.ecs.candidates(ca.required, cb.required, cc.required) {
		if q.ecs.excluded(eid, q.without) {
			continue
		}
		a, ok := ca.get(eid)
		if !ok {
			continue
		}
		b, ok := cb.get(eid)
		if !ok {
			continue
		}
		c, ok := cc.get(eid)
		if !ok {
			continue
		}
		if !m(eid, a, b, c) {
			return
		}
	}
}

func (q Query4[A, B, C, D]) Map(m func(EntityId, *A, *B, *C, *D) bool, optionals ...any) {
	opt := identifyOptionals(optionals...)
	ca := makeColumn[A](q.ecs, opt)
	cb := makeColumn[B](q.ecs, opt)
	cc := makeColumn[C](q.ecs, opt)
	cd := makeColumn[D](q.ecs, opt)

	for _, eid := range q.ecs.candidates(ca.required, cb.required, cc.required, cd.required) {
		if q.ecs.excluded(eid, q.without) {
			continue
		}
		a, ok := ca.get(eid)
		if !ok {
			continue
		}
		b, ok := cb.get(eid)
		if !ok {
			continue
		}
		c, ok := cc.get(eid)
		if !ok {
			continue
		}
		d, ok := cd.get(eid)
		if !ok {
			continue
		}
		if !m(eid, a, b, c, d) {
			return
		}
	}
}

func (q Query5[A, B, C, D, E]) Map(m func(EntityId, *A, *B, *C, *D, *E) bool, optionals ...any) {
	opt := identifyOptionals(optionals...)
	ca := makeColumn[A](q.ecs, opt)
	cb := makeColumn[B](q.ecs, opt)
	cc := makeColumn[C](q.ecs, opt)
	cd := makeColumn[D](q.ecs, opt)
	ce := makeColumn[E](q.ecs, opt)

	for _, eid := range q.ecs.candidates(ca.required, cb.required, cc.required, cd.required, ce.required) {
		if q.ecs.excluded(eid, q.without) {
			continue
		}
		a, ok := ca.get(eid)
		if !ok {
			continue
		}
		b, ok := cb.get(eid)
		if !ok {
			continue
		}
		c, ok := cc.get(eid)
		if !ok {
			continue
		}
		d, ok := cd.get(eid)
		if !ok {
			continue
		}
		e, ok := ce.get(eid)
		if !ok {
			continue
		}
		if !m(eid, a, b, c, d, e) {
			return
		}
	}
}
