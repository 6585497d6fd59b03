package light2d

import (
	"fmt"
	"slices"
)

type Stage struct {
	Name string
}

var (
	Prelude    = Stage{Name: "Prelude"}
	PreUpdate  = Stage{Name: "PreUpdate"}
	Update     = Stage{Name: "Update"}
	PostUpdate = Stage{Name: "PostUpdate"}
	// Extract copies the simulation state the renderer needs into RenderWorld.
	Extract    = Stage{Name: "Extract"}
	PreRender  = Stage{Name: "PreRender"}
	Render     = Stage{Name: "Render"}
	PostRender = Stage{Name: "PostRender"}
	Finale     = Stage{Name: "Finale"}
)

var defaultStages = []Stage{Prelude, PreUpdate, Update, PostUpdate, Extract, PreRender, Render, PostRender, Finale}

type systemScheduleBuilder struct {
	inStage Stage
	system  systemFn
}

func System(system systemFn) systemScheduleBuilder {
	return systemScheduleBuilder{
		system:  system,
		inStage: Update,
	}
}

func (sched systemScheduleBuilder) InStage(s Stage) systemScheduleBuilder {
	return systemScheduleBuilder{
		system:  sched.system,
		inStage: s,
	}
}

// RunAlways is kept for call sites written against stateful schedules; every
// system runs each frame.
func (sched systemScheduleBuilder) RunAlways() systemScheduleBuilder {
	return sched
}

type stagePosition int

const (
	stageBefore stagePosition = iota
	stageAfter
)

type stagePositionBuilder struct {
	position stagePosition
	target   Stage
}

func BeforeStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{
		position: stageBefore,
		target:   s,
	}
}

func AfterStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{
		position: stageAfter,
		target:   s,
	}
}

func (app *App) UseStage(stage Stage, where stagePositionBuilder) *App {
	var stageIdx int = -1
	for i, s := range app.stages {
		if s.Name == stage.Name {
			panic(fmt.Sprintf("Stage %v already exists", stage.Name))
		}
		if s.Name == where.target.Name {
			stageIdx = i
		}
	}
	if -1 == stageIdx {
		panic(fmt.Sprintf("Stage %v not found", where.target.Name))
	}

	var insertAt int
	if stageBefore == where.position {
		insertAt = stageIdx
	} else {
		insertAt = stageIdx + 1
	}

	app.stages = slices.Insert(app.stages, insertAt, stage)
	app.initStage(stage)

	return app
}

func (app *App) UseSystem(system systemScheduleBuilder) *App {
	if _, ok := app.systemsStateless[system.inStage.Name]; ok {
		app.systemsStateless[system.inStage.Name] = append(app.systemsStateless[system.inStage.Name], system.system)
		return app
	}
	panic(fmt.Sprintf("Stage %v doesn't exist", system.inStage.Name))
}

// Stages returns the stage names in execution order.
func (app *App) Stages() []string {
	names := make([]string, len(app.stages))
	for i, s := range app.stages {
		names[i] = s.Name
	}
	return names
}

func (app *App) initStage(stage Stage) {
	app.systemsStateless[stage.Name] = make([]systemFn, 0)
}
