package light2d

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

type App struct {
	modules          []Module
	stages           []Stage
	systemsStateless map[string][]systemFn
	resources        map[reflect.Type]any
	ecs              *Ecs

	frame         uint64
	exitRequested bool

	// Command Buffering
	pendingAdditions    []pendingAdd
	pendingRemovals     []EntityId
	pendingCompAdds     []pendingCompAdd
	pendingCompRemovals []pendingCompAdd
}

type Module interface {
	Install(app *App, cmd *Commands)
}

type pendingAdd struct {
	eid        EntityId
	components []any
}

type pendingCompAdd struct {
	eid        EntityId
	components []any
}

// NewApp returns an App with the default stages and no modules.
func NewApp() *App {
	ecs := MakeEcs()
	app := &App{
		systemsStateless: make(map[string][]systemFn),
		resources:        make(map[reflect.Type]any),
		ecs:              &ecs,
	}
	for _, stage := range defaultStages {
		app.stages = append(app.stages, stage)
		app.initStage(stage)
	}
	return app
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

func (app *App) UseModules(modules ...Module) *App {
	cmd := app.Commands()
	for _, module := range modules {
		app.modules = append(app.modules, module)
		module.Install(app, cmd)
	}
	app.FlushCommands()
	return app
}

// Frame returns the number of completed frames.
func (app *App) Frame() uint64 {
	return app.frame
}

// Update runs every stage once.
func (app *App) Update() {
	app.callSystems()
	app.frame++
}

// Run updates until a system calls Commands.Exit.
func (app *App) Run() {
	app.Logger().Infof("Running %d stages, %d modules", len(app.stages), len(app.modules))
	for !app.exitRequested {
		app.Update()
	}
}

func (app *App) callSystems() {
	for _, stage := range app.stages {
		for _, system := range app.systemsStateless[stage.Name] {
			app.callSystem(system)
		}
		app.FlushCommands()
	}
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// Resource returns the resource of type *T, or nil.
func Resource[T any](app *App) *T {
	if r, ok := app.resources[typeOf[T]()]; ok {
		return r.(*T)
	}
	return nil
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			app.panicUnresolved(systemType, systemValue, argType)
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			app.panicUnresolved(systemType, systemValue, argType)
		}
	}
	systemValue.Call(args)
}

func (app *App) panicUnresolved(systemType reflect.Type, systemValue reflect.Value, argType reflect.Type) {
	msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
		runtime.FuncForPC(systemValue.Pointer()).Name(),
		fmt.Sprint(systemType),
		fmt.Sprint(argType),
	)
	app.Logger().Errorf("%s", msg)
	panic(msg)
}

func (app *App) FlushCommands() {
	if len(app.pendingAdditions) == 0 && len(app.pendingRemovals) == 0 &&
		len(app.pendingCompAdds) == 0 && len(app.pendingCompRemovals) == 0 {
		return
	}

	// Removals first so nothing is added to dead entities.
	for _, eid := range app.pendingRemovals {
		app.ecs.removeEntity(eid)
	}
	app.pendingRemovals = app.pendingRemovals[:0]

	for _, add := range app.pendingAdditions {
		app.ecs.insertEntity(add.eid, withRequiredComponents(add.components, nil)...)
	}
	app.pendingAdditions = app.pendingAdditions[:0]

	for _, add := range app.pendingCompAdds {
		eid := add.eid
		present := func(t reflect.Type) bool { return app.ecs.hasComponent(eid, t) }
		app.ecs.addComponents(eid, withRequiredComponents(add.components, present)...)
	}
	app.pendingCompAdds = app.pendingCompAdds[:0]

	for _, rm := range app.pendingCompRemovals {
		app.ecs.removeComponents(rm.eid, rm.components...)
	}
	app.pendingCompRemovals = app.pendingCompRemovals[:0]
}
