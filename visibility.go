package light2d

type VisibilityMode int

const (
	// VisibilityInherited follows the parent, roots are visible.
	VisibilityInherited VisibilityMode = iota
	VisibilityVisible
	VisibilityHidden
)

func (m VisibilityMode) String() string {
	switch m {
	case VisibilityInherited:
		return "Inherited"
	case VisibilityVisible:
		return "Visible"
	case VisibilityHidden:
		return "Hidden"
	default:
		return "Unknown"
	}
}

// Visibility is the authored visibility of an entity.
type Visibility struct {
	Mode VisibilityMode
}

// ViewVisibility is the resolved visibility for the current frame. Only the
// visibility system writes it.
type ViewVisibility struct {
	Visible bool
}

type VisibilityModule struct{}

func (VisibilityModule) Install(app *App, cmd *Commands) {
	app.UseSystem(
		System(VisibilitySystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

func VisibilitySystem(cmd *Commands) {
	resolved := make(map[EntityId]bool)

	var resolve func(eid EntityId, depth int) bool
	resolve = func(eid EntityId, depth int) bool {
		if v, ok := resolved[eid]; ok {
			return v
		}
		visible := true
		if depth > maxHierarchyDepth {
			visible = false
		} else if vis, ok := cmd.GetComponent(eid, Visibility{}).(*Visibility); ok {
			switch vis.Mode {
			case VisibilityHidden:
				visible = false
			case VisibilityInherited:
				if p, ok := cmd.GetComponent(eid, Parent{}).(*Parent); ok {
					visible = resolve(p.Entity, depth+1)
				}
			}
		} else if p, ok := cmd.GetComponent(eid, Parent{}).(*Parent); ok {
			visible = resolve(p.Entity, depth+1)
		}
		resolved[eid] = visible
		return visible
	}

	MakeQuery1[ViewVisibility](cmd).Map(func(eid EntityId, vv *ViewVisibility) bool {
		vv.Visible = resolve(eid, 0)
		return true
	})
}
