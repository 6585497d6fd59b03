package light2d

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)

	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	// Expect panic when trying to add the same type of resource again
	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)

	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")
	assert.Same(t, resource2, Resource[MockResource2](app))
}

func TestApp_addResourcesRejectsValues(t *testing.T) {
	app := NewApp()
	assert.Panics(t, func() { app.addResources(MockResource1{}) })
}

func TestApp_DefaultStagesRunExtractAfterPostUpdate(t *testing.T) {
	app := NewApp()

	assert.Equal(t, []string{
		"Prelude", "PreUpdate", "Update", "PostUpdate", "Extract",
		"PreRender", "Render", "PostRender", "Finale",
	}, app.Stages())
}

func TestApp_SystemsRunInStageOrder(t *testing.T) {
	app := NewApp()
	var order []string
	record := func(name string) func() {
		return func() { order = append(order, name) }
	}
	app.UseSystem(System(record("render")).InStage(Render))
	app.UseSystem(System(record("extract")).InStage(Extract))
	app.UseSystem(System(record("update")))
	app.UseSystem(System(record("update2")).InStage(Update).RunAlways())

	app.Update()

	assert.Equal(t, []string{"update", "update2", "extract", "render"}, order)
	assert.Equal(t, uint64(1), app.Frame())
}

func TestApp_SystemDependencies(t *testing.T) {
	app := NewApp()
	res := NewMockResource1("a")
	app.addResources(res)

	var gotCmd *Commands
	var gotRes *MockResource1
	app.UseSystem(System(func(cmd *Commands, r *MockResource1) {
		gotCmd = cmd
		gotRes = r
	}))
	app.Update()

	require.NotNil(t, gotCmd)
	assert.Same(t, app, gotCmd.app)
	assert.Same(t, res, gotRes)
}

func TestApp_UnresolvedDependencyPanics(t *testing.T) {
	app := NewApp()
	app.UseSystem(System(func(r *MockResource2) {}))

	assert.Panics(t, func() { app.Update() })
}

func TestApp_UnknownStagePanics(t *testing.T) {
	app := NewApp()
	assert.PanicsWithValue(t, "Stage Nowhere doesn't exist", func() {
		app.UseSystem(System(func() {}).InStage(Stage{Name: "Nowhere"}))
	})
}

func TestApp_UseStage(t *testing.T) {
	app := NewApp()
	debug := Stage{Name: "Debug"}
	app.UseStage(debug, AfterStage(Render))
	early := Stage{Name: "Early"}
	app.UseStage(early, BeforeStage(Prelude))

	stages := app.Stages()
	assert.Equal(t, "Early", stages[0])
	assert.Equal(t, "Debug", stages[indexOf(stages, "Render")+1])

	assert.Panics(t, func() { app.UseStage(debug, AfterStage(Update)) })
	assert.Panics(t, func() { app.UseStage(Stage{Name: "X"}, AfterStage(Stage{Name: "Missing"})) })
}

func TestApp_RunUntilExit(t *testing.T) {
	app := NewApp()
	frames := 0
	app.UseSystem(System(func(cmd *Commands) {
		frames++
		if frames == 3 {
			cmd.Exit()
		}
	}))

	app.Run()

	assert.Equal(t, 3, frames)
	assert.Equal(t, uint64(3), app.Frame())
}

func TestApp_CommandsFlushAfterEachStage(t *testing.T) {
	app := NewApp()
	var eid EntityId
	app.UseSystem(System(func(cmd *Commands) {
		if app.Frame() == 0 {
			eid = cmd.AddEntity(&testPos{X: 1})
		}
	}).InStage(Update))

	seenInPostUpdate := false
	app.UseSystem(System(func(cmd *Commands) {
		seenInPostUpdate = cmd.HasComponent(eid, testPos{})
	}).InStage(PostUpdate))

	app.Update()
	assert.True(t, seenInPostUpdate)
}

func TestApp_LoggerNeverNil(t *testing.T) {
	var nilApp *App
	assert.NotNil(t, nilApp.Logger())
	assert.NotNil(t, NewApp().Logger())

	app := NewApp()
	app.UseModules(LoggingModule{Prefix: "test"})
	_, isDefault := app.Logger().(*DefaultLogger)
	assert.True(t, isDefault)
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
