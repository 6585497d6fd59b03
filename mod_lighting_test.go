package light2d

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/light2d/lightrt/core"
	"github.com/gekko3d/light2d/lightrt/gpu"
)

var white = core.LinearRgba{R: 1, G: 1, B: 1, A: 1}

// lineScene is a 21x1 view centered on the origin, one world unit per pixel, so
// pixel x samples world (x-10, 0).
type lineScene struct {
	app  *App
	cmd  *Commands
	view string
}

func newLineScene(t *testing.T, mod Lighting2dModule, brightness float32) *lineScene {
	t.Helper()
	app, cmd := newLightingApp(t, mod)
	cam := NewCamera2d(21, 1)
	cmd.AddEntity(&cam, &Light2d{Ambient: AmbientLight2d{Color: core.White, Brightness: brightness}})

	if targets := Resource[LightingTargets](app); targets != nil {
		scene := core.NewColorBuffer(21, 1)
		scene.Fill(white)
		targets.SetScene(cam.ID.String(), scene)
	}
	return &lineScene{app: app, cmd: cmd, view: cam.ID.String()}
}

func (s *lineScene) output(t *testing.T) *core.ColorBuffer {
	t.Helper()
	out, ok := Resource[LightingTargets](s.app).Output(s.view)
	require.True(t, ok, "view %s was not composited", s.view)
	return out
}

func scenarioLight() PointLight2d {
	return PointLight2d{Color: core.White, Intensity: 1, Radius: 10, CastShadows: true}
}

func TestLighting_PointLightScenario(t *testing.T) {
	s := newLineScene(t, Lighting2dModule{HDR: true}, 0.2)
	s.cmd.AddEntity(pointAt(0, 0, scenarioLight())...)

	s.app.Update()

	out := s.output(t)
	ambientOnly := out.At(0, 0).R // 10 units away, outside the radius
	atFive := out.At(15, 0).R
	atCenter := out.At(10, 0).R

	assert.InDelta(t, 0.2, ambientOnly, 1e-5)
	assert.InDelta(t, 0.2+0.5625, atFive, 1e-5)
	assert.Greater(t, atFive, ambientOnly)
	assert.Less(t, atFive, atCenter)
	assert.InDelta(t, 1.2, atCenter, 1e-5)
}

func TestLighting_OccluderCastsShadow(t *testing.T) {
	s := newLineScene(t, Lighting2dModule{}, 0.2)
	s.cmd.AddEntity(pointAt(0, 0, scenarioLight())...)
	tr := NewTransform(mgl32.Vec2{3, 0})
	s.cmd.AddEntity(&tr, &LightOccluder2d{Shape: RectangleShape{HalfSize: mgl32.Vec2{0.5, 0.5}}})

	s.app.Update()

	out := s.output(t)
	assert.InDelta(t, 0.2, out.At(15, 0).R, 1e-5, "behind the occluder only ambient remains")
	assert.Greater(t, out.At(5, 0).R, float32(0.2), "the other side is lit")
}

func TestLighting_NoAmbientNoLightsIsBlack(t *testing.T) {
	s := newLineScene(t, Lighting2dModule{}, 0)

	s.app.Update()

	out := s.output(t)
	for x := 0; x < out.Width; x++ {
		c := out.At(x, 0)
		assert.Equal(t, float32(0), c.R+c.G+c.B)
		assert.Equal(t, float32(1), c.A, "alpha is preserved")
	}
}

func TestLighting_CpuStatus(t *testing.T) {
	s := newLineScene(t, Lighting2dModule{Workers: 2, GridCellSize: 4}, 1)

	s.app.Update()
	s.app.Update()

	status := Resource[LightingPassStatus](s.app)
	assert.Equal(t, BackendCpu, status.Backend)
	assert.Equal(t, gpu.PassReady, status.State)
	assert.Equal(t, 1, status.Views)
	assert.Equal(t, uint64(2), status.Frames)
	assert.Equal(t, "cpu", status.Backend.String())
}

func TestLighting_ViewWithoutSceneIsSkipped(t *testing.T) {
	app, cmd := newLightingApp(t, Lighting2dModule{})
	cam := NewCamera2d(4, 4)
	cmd.AddEntity(&cam, &Light2d{Ambient: DefaultAmbientLight2d()})

	app.Update()

	_, ok := Resource[LightingTargets](app).Output(cam.ID.String())
	assert.False(t, ok)
	assert.Equal(t, 0, Resource[LightingPassStatus](app).Views)
}

func TestLighting_SceneImageIsResampled(t *testing.T) {
	app, cmd := newLightingApp(t, Lighting2dModule{})
	cam := NewCamera2d(8, 4)
	cmd.AddEntity(&cam, &Light2d{Ambient: DefaultAmbientLight2d()})

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{255, 255, 255, 255})
	img.Set(1, 0, color.NRGBA{255, 255, 255, 255})
	Resource[LightingTargets](app).SetSceneImage(cam.ID.String(), img)

	app.Update()

	out, ok := Resource[LightingTargets](app).Output(cam.ID.String())
	require.True(t, ok)
	assert.Equal(t, 8, out.Width)
	assert.Equal(t, 4, out.Height)
	assert.InDelta(t, 1, out.At(3, 2).R, 1e-3)
}

func TestLighting_EmissiveIsAddedUnlit(t *testing.T) {
	s := newLineScene(t, Lighting2dModule{HDR: true}, 0)
	emissive := core.NewColorBuffer(21, 1)
	emissive.Set(4, 0, core.LinearRgba{R: 0.5, A: 1})
	Resource[LightingTargets](s.app).SetEmissive(s.view, emissive)

	s.app.Update()

	out := s.output(t)
	assert.InDelta(t, 0.5, out.At(4, 0).R, 1e-6)
	assert.Equal(t, float32(0), out.At(5, 0).R)
}

type fakePipelineDevice struct {
	failBuild     error
	failBuffer    error
	failBindGroup error
	builds        int
	buffers       int
}

func (d *fakePipelineDevice) CreateBuffer(*wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	d.buffers++
	if d.failBuffer != nil {
		return nil, d.failBuffer
	}
	return &wgpu.Buffer{}, nil
}

func (d *fakePipelineDevice) WriteBuffer(*wgpu.Buffer, uint64, []byte) error { return nil }

func (d *fakePipelineDevice) ReleaseBuffer(*wgpu.Buffer) {}

func (d *fakePipelineDevice) CreateBindGroup(*wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	if d.failBindGroup != nil {
		return nil, d.failBindGroup
	}
	return &wgpu.BindGroup{}, nil
}

func (d *fakePipelineDevice) ReleaseBindGroup(*wgpu.BindGroup) {}

// pipelineOnlyDevice builds pipelines but cannot create frame resources.
type pipelineOnlyDevice struct{}

func (pipelineOnlyDevice) CreateBindGroupLayout(*wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	return &wgpu.BindGroupLayout{}, nil
}

func (pipelineOnlyDevice) CreateSampler(*wgpu.SamplerDescriptor) (*wgpu.Sampler, error) {
	return &wgpu.Sampler{}, nil
}

func (pipelineOnlyDevice) CreateFullscreenPipeline(*gpu.FullscreenPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	return &wgpu.RenderPipeline{}, nil
}

func newGpuLightingApp(t *testing.T, mod Lighting2dModule) (*App, *bytes.Buffer, string) {
	t.Helper()
	var errOut bytes.Buffer
	app := NewApp()
	app.addResources(NewDefaultLoggerTo(&bytes.Buffer{}, &errOut, "test", false))
	app.UseModules(HierarchyModule{}, VisibilityModule{}, mod)
	cam := NewCamera2d(4, 4)
	app.Commands().AddEntity(&cam, &Light2d{Ambient: DefaultAmbientLight2d()})
	return app, &errOut, cam.ID.String()
}

func (d *fakePipelineDevice) CreateBindGroupLayout(*wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	return &wgpu.BindGroupLayout{}, nil
}

func (d *fakePipelineDevice) CreateSampler(*wgpu.SamplerDescriptor) (*wgpu.Sampler, error) {
	return &wgpu.Sampler{}, nil
}

func (d *fakePipelineDevice) CreateFullscreenPipeline(*gpu.FullscreenPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	d.builds++
	if d.failBuild != nil {
		return nil, d.failBuild
	}
	return &wgpu.RenderPipeline{}, nil
}

func TestLighting_GpuFailureDisablesPass(t *testing.T) {
	var errOut bytes.Buffer
	app := NewApp()
	app.addResources(NewDefaultLoggerTo(&bytes.Buffer{}, &errOut, "test", false))
	dev := &fakePipelineDevice{failBuild: errors.New("out of memory")}
	app.UseModules(HierarchyModule{}, VisibilityModule{}, Lighting2dModule{PipelineDevice: dev})
	cmd := app.Commands()
	cam := NewCamera2d(4, 4)
	cmd.AddEntity(&cam, &Light2d{Ambient: DefaultAmbientLight2d()})

	app.Update()
	app.Update()
	app.Update()

	status := Resource[LightingPassStatus](app)
	assert.Equal(t, BackendGpu, status.Backend)
	assert.Equal(t, gpu.PassDisabled, status.State)
	require.Error(t, status.Err)
	assert.Contains(t, status.Err.Error(), "out of memory")
	assert.Equal(t, 1, dev.builds, "a disabled pass is not retried")
	assert.Equal(t, 1, strings.Count(errOut.String(), "lighting pass disabled"))
	assert.Nil(t, Resource[LightingTargets](app), "no CPU fallback unless configured")

	state := Resource[LightingGpuState](app)
	require.NoError(t, state.Pipeline.Rebuild(nil))
	dev.failBuild = nil
	app.Update()
	assert.Equal(t, gpu.PassReady, status.State)
	assert.Equal(t, 2, dev.builds)
}

func TestLighting_GpuFailureFallsBackToCpu(t *testing.T) {
	dev := &fakePipelineDevice{failBuild: errors.New("lost")}
	s := newLineScene(t, Lighting2dModule{PipelineDevice: dev, CPUFallback: true}, 0.5)

	s.app.Update()

	status := Resource[LightingPassStatus](s.app)
	assert.Equal(t, gpu.PassDisabled, status.State)
	assert.Equal(t, 1, status.Views)
	assert.InDelta(t, 0.5, s.output(t).At(0, 0).R, 1e-5)
}

func TestLighting_GpuPipelinesAreSpecializedPerKey(t *testing.T) {
	dev := &fakePipelineDevice{}
	app, cmd := newLightingApp(t, Lighting2dModule{PipelineDevice: dev})
	sdr := NewCamera2d(4, 4)
	hdr := NewCamera2d(4, 4)
	hdr.HDR = true
	cmd.AddEntity(&sdr, &Light2d{Ambient: DefaultAmbientLight2d()})
	cmd.AddEntity(&hdr, &Light2d{Ambient: DefaultAmbientLight2d()})

	app.Update()
	app.Update()

	stats := Resource[LightingGpuState](app).Pipeline.Stats()
	assert.Equal(t, 2, stats.Pipelines)
	assert.Equal(t, uint64(2), stats.Misses)
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, 2, dev.builds)
	assert.Equal(t, gpu.PassReady, Resource[LightingPassStatus](app).State)
}

func TestLighting_SingleBackend(t *testing.T) {
	app := NewApp()
	app.UseModules(Lighting2dModule{})

	assert.PanicsWithValue(t, "Multiple renderers installed: light2d-cpu and light2d-gpu", func() {
		ensureSingleRenderer(app, BackendGpu)
	})
	assert.NotPanics(t, func() { ensureSingleRenderer(app, BackendCpu) })
	assert.Equal(t, BackendCpu, Resource[RendererTag](app).Backend)
}

func TestLighting_GpuWithoutResourceDeviceIsRejected(t *testing.T) {
	app, errOut, _ := newGpuLightingApp(t, Lighting2dModule{PipelineDevice: pipelineOnlyDevice{}})

	app.Update()
	app.Update()

	status := Resource[LightingPassStatus](app)
	assert.Equal(t, BackendGpu, status.Backend)
	assert.Equal(t, gpu.PassDisabled, status.State)
	assert.ErrorIs(t, status.Err, gpu.ErrNilDevice)
	assert.Nil(t, Resource[LightingGpuState](app))
	assert.Equal(t, 1, strings.Count(errOut.String(), "lighting pass disabled"))
}

func TestLighting_GpuBufferFailureDisablesPass(t *testing.T) {
	dev := &fakePipelineDevice{failBuffer: errors.New("out of memory")}
	app, errOut, _ := newGpuLightingApp(t, Lighting2dModule{PipelineDevice: dev})

	app.Update()
	attempts := dev.buffers
	app.Update()
	app.Update()

	status := Resource[LightingPassStatus](app)
	assert.Equal(t, gpu.PassDisabled, status.State)
	assert.ErrorContains(t, status.Err, "out of memory")
	assert.Equal(t, attempts, dev.buffers, "a disabled pass does not touch the device")
	assert.Equal(t, 1, strings.Count(errOut.String(), "lighting pass disabled"))

	state := Resource[LightingGpuState](app)
	assert.Equal(t, gpu.PassDisabled, state.Pipeline.State())
	dev.failBuffer = nil
	require.NoError(t, state.Pipeline.Rebuild(nil))
	app.Update()
	assert.Equal(t, gpu.PassReady, status.State)
	assert.NoError(t, status.Err)
}

func TestLighting_GpuEncodeFailureDisablesPass(t *testing.T) {
	dev := &fakePipelineDevice{failBindGroup: errors.New("device lost")}
	app, errOut, view := newGpuLightingApp(t, Lighting2dModule{PipelineDevice: dev})
	state := Resource[LightingGpuState](app)
	state.Encoder = &wgpu.CommandEncoder{}
	state.Targets[view] = gpu.ViewTarget{SceneColor: &wgpu.TextureView{}, Output: &wgpu.TextureView{}}

	app.Update()
	app.Update()

	status := Resource[LightingPassStatus](app)
	assert.Equal(t, gpu.PassDisabled, status.State)
	assert.ErrorContains(t, status.Err, "device lost")
	assert.Equal(t, 0, status.Views)
	assert.Equal(t, uint64(0), status.Frames)
	assert.Equal(t, gpu.PassDisabled, state.Pipeline.State())
	assert.Equal(t, 1, strings.Count(errOut.String(), "lighting pass disabled"))
}

func TestLighting_GpuMissingTargetOnlyWarns(t *testing.T) {
	dev := &fakePipelineDevice{}
	app, errOut, view := newGpuLightingApp(t, Lighting2dModule{PipelineDevice: dev})
	state := Resource[LightingGpuState](app)
	state.Encoder = &wgpu.CommandEncoder{}
	state.Targets[view] = gpu.ViewTarget{Output: &wgpu.TextureView{}}

	app.Update()

	assert.Equal(t, gpu.PassReady, Resource[LightingPassStatus](app).State)
	assert.Contains(t, errOut.String(), "missing scene color or output")
	assert.NotContains(t, errOut.String(), "lighting pass disabled")
}
