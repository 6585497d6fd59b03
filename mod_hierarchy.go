package light2d

// maxHierarchyDepth bounds the propagation passes. Deeper chains and cycles stay invalid.
const maxHierarchyDepth = 32

type HierarchyModule struct{}

func (HierarchyModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(TransformHierarchySystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

func TransformHierarchySystem(cmd *Commands) {
	// Roots take their local transform as is.
	MakeQuery2[TransformComponent, GlobalTransform](cmd).Without(Parent{}).Map(func(eid EntityId, local *TransformComponent, world *GlobalTransform) bool {
		*world = rootGlobal(*local)
		return true
	})

	children := MakeQuery3[TransformComponent, Parent, GlobalTransform](cmd)
	children.Map(func(eid EntityId, local *TransformComponent, parent *Parent, world *GlobalTransform) bool {
		world.Valid = false
		return true
	})

	// Each pass resolves one more level of the hierarchy.
	for pass := 0; pass < maxHierarchyDepth; pass++ {
		changed := false
		children.Map(func(eid EntityId, local *TransformComponent, parent *Parent, world *GlobalTransform) bool {
			if world.Valid {
				return true
			}
			pw, ok := cmd.GetComponent(parent.Entity, GlobalTransform{}).(*GlobalTransform)
			if !ok || !pw.Valid {
				return true
			}
			*world = pw.Mul(*local)
			changed = true
			return true
		})
		if !changed {
			break
		}
	}
}
