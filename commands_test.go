package light2d

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type needsPos struct{}

func (needsPos) RequiresComponents() []any { return []any{testPos{X: 7}, needsVel{}} }

type needsVel struct{}

func (needsVel) RequiresComponents() []any { return []any{testVel{DX: 9}} }

func TestWithRequiredComponents_Transitive(t *testing.T) {
	in := []any{needsPos{}}
	out := withRequiredComponents(in, nil)

	assert.Len(t, in, 1, "input is not modified")
	assert.ElementsMatch(t, []any{needsPos{}, testPos{X: 7}, needsVel{}, testVel{DX: 9}}, out)
}

func TestWithRequiredComponents_ExplicitWins(t *testing.T) {
	out := withRequiredComponents([]any{&needsPos{}, &testPos{X: 1}}, nil)

	require.Len(t, out, 4)
	for _, c := range out {
		if p, ok := c.(testPos); ok {
			t.Errorf("default %v inserted although testPos was given", p)
		}
	}
}

func TestCommands_AddEntityInsertsRequired(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	eid := cmd.AddEntity(&PointLight2d{Radius: 3, Intensity: 1})
	assert.False(t, cmd.HasComponent(eid, PointLight2d{}), "additions are deferred to the flush")
	app.FlushCommands()

	assert.True(t, cmd.HasComponent(eid, PointLight2d{}))
	assert.True(t, cmd.HasComponent(eid, TransformComponent{}))
	assert.True(t, cmd.HasComponent(eid, GlobalTransform{}))
	assert.True(t, cmd.HasComponent(eid, Visibility{}))
	assert.True(t, cmd.HasComponent(eid, ViewVisibility{}))

	tr := cmd.GetComponent(eid, TransformComponent{}).(*TransformComponent)
	assert.Equal(t, mgl32.Vec2{1, 1}, tr.Scale)
}

func TestCommands_AddComponentsKeepsExisting(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	eid := cmd.AddEntity(&TransformComponent{Position: mgl32.Vec2{4, 5}, Scale: mgl32.Vec2{2, 2}})
	app.FlushCommands()

	cmd.AddComponents(eid, &LightOccluder2d{Shape: RectangleShape{HalfSize: mgl32.Vec2{1, 1}}})
	app.FlushCommands()

	tr := cmd.GetComponent(eid, TransformComponent{}).(*TransformComponent)
	assert.Equal(t, mgl32.Vec2{4, 5}, tr.Position, "present components are never overwritten")
	assert.True(t, cmd.HasComponent(eid, ViewVisibility{}))
}

func TestCommands_RemoveComponentsAndEntity(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()

	a := cmd.AddEntity(&testPos{}, &testVel{})
	b := cmd.AddEntity(&testPos{})
	app.FlushCommands()
	require.Equal(t, 2, cmd.EntityCount())

	cmd.RemoveComponents(a, testVel{})
	cmd.RemoveEntity(b)
	app.FlushCommands()

	assert.False(t, cmd.HasComponent(a, testVel{}))
	assert.True(t, cmd.HasComponent(a, testPos{}))
	assert.Equal(t, 1, cmd.EntityCount())
	assert.Nil(t, cmd.GetComponent(b, testPos{}))
	assert.Len(t, cmd.GetAllComponents(a), 1)
}
