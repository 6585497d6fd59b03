package light2d

import (
	"reflect"
)

type Commands struct {
	app *App
}

// RequiresComponents is implemented by components that cannot be processed without
// other components. Missing ones are inserted with the returned defaults when the
// entity is flushed; components already present are never overwritten.
type RequiresComponents interface {
	RequiresComponents() []any
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// Exit asks the App to stop after the current frame.
func (cmd *Commands) Exit() {
	cmd.app.exitRequested = true
}

func (cmd *Commands) AddEntity(components ...any) EntityId {
	eid := cmd.app.ecs.nextEntityId()
	cmd.app.pendingAdditions = append(cmd.app.pendingAdditions, pendingAdd{
		eid:        eid,
		components: components,
	})
	return eid
}

func (cmd *Commands) AddComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompAdds = append(cmd.app.pendingCompAdds, pendingCompAdd{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompRemovals = append(cmd.app.pendingCompRemovals, pendingCompAdd{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveEntity(entityId EntityId) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, entityId)
}

func (cmd *Commands) HasComponent(entityId EntityId, component any) bool {
	return cmd.app.ecs.hasComponent(entityId, componentType(component))
}

// GetComponent returns a pointer to the entity's component of the same type as
// component, or nil.
func (cmd *Commands) GetComponent(entityId EntityId, component any) any {
	table, ok := cmd.app.ecs.tables[componentType(component)]
	if !ok {
		return nil
	}
	p, ok := table.pointer(entityId)
	if !ok {
		return nil
	}
	return p
}

func (cmd *Commands) GetAllComponents(entityId EntityId) []any {
	return cmd.app.ecs.componentsOf(entityId)
}

func (cmd *Commands) EntityCount() int {
	return cmd.app.ecs.entityCount()
}

// withRequiredComponents appends defaults for every required component that is
// neither in components nor satisfied by present. Requirements of inserted
// defaults are resolved too.
func withRequiredComponents(components []any, present func(reflect.Type) bool) []any {
	have := make(set[reflect.Type], len(components))
	for _, c := range components {
		have[componentType(c)] = struct{}{}
	}

	res := components
	for i := 0; i < len(res); i++ {
		req, ok := res[i].(RequiresComponents)
		if !ok {
			continue
		}
		for _, dep := range req.RequiresComponents() {
			t := componentType(dep)
			if _, ok := have[t]; ok {
				continue
			}
			if present != nil && present(t) {
				continue
			}
			have[t] = struct{}{}
			if len(res) == len(components) {
				res = append([]any(nil), components...)
			}
			res = append(res, dep)
		}
	}
	return res
}
