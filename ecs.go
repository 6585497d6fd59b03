package light2d

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

type EntityId uint64

type set[T comparable] = map[T]struct{}

// componentTable associates entities with the values of one component type.
// Values live densely in a typed slice; rows are swap-removed.
type componentTable struct {
	typ    reflect.Type
	values reflect.Value // []T
	rows   map[EntityId]int
	owners []EntityId
}

func newComponentTable(typ reflect.Type) *componentTable {
	values := reflect.New(reflect.SliceOf(typ)).Elem()
	values.Set(reflect.MakeSlice(values.Type(), 0, 1))
	return &componentTable{
		typ:    typ,
		values: values,
		rows:   make(map[EntityId]int),
	}
}

func (t *componentTable) len() int {
	return len(t.owners)
}

// slice returns the backing []T, valid until the table is next modified.
func (t *componentTable) slice() any {
	return t.values.Interface()
}

func (t *componentTable) set(eid EntityId, value reflect.Value) {
	if r, ok := t.rows[eid]; ok {
		t.values.Index(r).Set(value)
		return
	}
	t.values.Set(reflect.Append(t.values, value))
	t.rows[eid] = len(t.owners)
	t.owners = append(t.owners, eid)
}

func (t *componentTable) remove(eid EntityId) bool {
	r, ok := t.rows[eid]
	if !ok {
		return false
	}
	last := len(t.owners) - 1
	if r != last {
		moved := t.owners[last]
		t.values.Index(r).Set(t.values.Index(last))
		t.owners[r] = moved
		t.rows[moved] = r
	}
	// Zero the vacated row so it stops referencing the removed value.
	t.values.Index(last).Set(reflect.Zero(t.typ))
	t.values.SetLen(last)
	t.owners = t.owners[:last]
	delete(t.rows, eid)
	return true
}

// value returns the stored component of eid.
func (t *componentTable) value(eid EntityId) (reflect.Value, bool) {
	r, ok := t.rows[eid]
	if !ok {
		return reflect.Value{}, false
	}
	return t.values.Index(r), true
}

// pointer returns a *T into the table, valid until the table is next modified.
func (t *componentTable) pointer(eid EntityId) (any, bool) {
	v, ok := t.value(eid)
	if !ok {
		return nil, false
	}
	return v.Addr().Interface(), true
}

type Ecs struct {
	tables   map[reflect.Type]*componentTable
	entities set[EntityId]

	idGeneratorLock sync.Mutex
	entityIdCounter EntityId
}

func MakeEcs() Ecs {
	return Ecs{
		tables:          make(map[reflect.Type]*componentTable),
		entities:        make(set[EntityId]),
		entityIdCounter: EntityId(0),
	}
}

func (ecs *Ecs) nextEntityId() EntityId {
	ecs.idGeneratorLock.Lock()
	defer ecs.idGeneratorLock.Unlock()

	id := ecs.entityIdCounter
	ecs.entityIdCounter += 1

	return id
}

func (ecs *Ecs) addEntity(components ...any) EntityId {
	return ecs.insertEntity(ecs.nextEntityId(), components...)
}

func (ecs *Ecs) insertEntity(entityId EntityId, components ...any) EntityId {
	ecs.entities[entityId] = struct{}{}
	for _, component := range components {
		ecs.writeComponent(entityId, component)
	}
	return entityId
}

func (ecs *Ecs) hasEntity(entityId EntityId) bool {
	_, ok := ecs.entities[entityId]
	return ok
}

func (ecs *Ecs) addComponents(entityId EntityId, components ...any) {
	if !ecs.hasEntity(entityId) {
		return
	}
	for _, component := range components {
		ecs.writeComponent(entityId, component)
	}
}

func (ecs *Ecs) removeComponents(entityId EntityId, components ...any) {
	for _, c := range components {
		if table, ok := ecs.tables[componentType(c)]; ok {
			table.remove(entityId)
		}
	}
}

func (ecs *Ecs) removeEntity(entityId EntityId) {
	if !ecs.hasEntity(entityId) {
		return
	}
	for _, table := range ecs.tables {
		table.remove(entityId)
	}
	delete(ecs.entities, entityId)
}

func (ecs *Ecs) writeComponent(entityId EntityId, component any) {
	componentType := reflect.TypeOf(component)
	reflectValue := reflect.ValueOf(component)
	if componentType.Kind() == reflect.Pointer {
		componentType = componentType.Elem()
		reflectValue = reflectValue.Elem()
	}
	if componentType.Kind() != reflect.Struct {
		panic(fmt.Errorf("expected Component to be a struct or a pointer to a struct, got %s", componentType.Kind()))
	}
	ecs.table(componentType).set(entityId, reflectValue)
}

func (ecs *Ecs) table(t reflect.Type) *componentTable {
	table, ok := ecs.tables[t]
	if !ok {
		table = newComponentTable(t)
		ecs.tables[t] = table
	}
	return table
}

func (ecs *Ecs) hasComponent(entityId EntityId, t reflect.Type) bool {
	table, ok := ecs.tables[t]
	if !ok {
		return false
	}
	_, ok = table.rows[entityId]
	return ok
}

// componentsOf returns copies of every component of an entity, ordered by type name.
func (ecs *Ecs) componentsOf(entityId EntityId) []any {
	var tables []*componentTable
	for _, table := range ecs.tables {
		if _, ok := table.rows[entityId]; ok {
			tables = append(tables, table)
		}
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].typ.String() < tables[j].typ.String()
	})

	res := make([]any, 0, len(tables))
	for _, table := range tables {
		v, _ := table.value(entityId)
		res = append(res, v.Interface())
	}
	return res
}

func (ecs *Ecs) entityCount() int {
	return len(ecs.entities)
}

// componentType resolves a component value or pointer to its struct type.
func componentType(c any) reflect.Type {
	t := reflect.TypeOf(c)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
