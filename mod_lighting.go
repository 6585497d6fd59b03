package light2d

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/light2d/lightrt/core"
	"github.com/gekko3d/light2d/lightrt/gpu"
)

type LightingBackend int

const (
	BackendNone LightingBackend = iota
	BackendGpu
	BackendCpu
)

func (b LightingBackend) String() string {
	switch b {
	case BackendGpu:
		return "gpu"
	case BackendCpu:
		return "cpu"
	default:
		return "none"
	}
}

// Lighting2dModule adds extraction and the lighting pass. With a Device the pass is
// encoded on the GPU, otherwise views are composited on the CPU.
type Lighting2dModule struct {
	// HDR renders every view into HDR targets regardless of its camera.
	HDR bool
	// SurfaceFormat is the SDR output format, BGRA8UnormSrgb when undefined.
	SurfaceFormat   wgpu.TextureFormat
	ValidateShaders bool
	// CPUFallback composites on the CPU while the GPU pass is disabled.
	CPUFallback  bool
	Workers      int
	GridCellSize float32

	Device *wgpu.Device
	// PipelineDevice builds pipelines instead of Device when set. If it also
	// implements gpu.ResourceDevice it creates the per-frame buffers and bind
	// groups as well; otherwise Device must be set.
	PipelineDevice gpu.Device
}

// resourceDevice picks the device that creates per-frame buffers and bind groups.
func (mod Lighting2dModule) resourceDevice() (gpu.ResourceDevice, error) {
	if mod.Device != nil {
		return gpu.WgpuDevice{Device: mod.Device}, nil
	}
	if rd, ok := mod.PipelineDevice.(gpu.ResourceDevice); ok {
		return rd, nil
	}
	return nil, fmt.Errorf("lighting pass: no device for frame resources: %w", gpu.ErrNilDevice)
}

// LightingSettings is the module configuration the systems read each frame.
type LightingSettings struct {
	HDR          bool
	Workers      int
	GridCellSize float32
	CPUFallback  bool
}

// LightingPassStatus reports what the lighting pass did in the last frame.
type LightingPassStatus struct {
	Backend LightingBackend
	State   gpu.PassState
	// Err is the failure that disabled the pass.
	Err error
	// Views is the number of views lit in the last frame.
	Views int
	// Frames counts frames in which at least one view was lit.
	Frames uint64
}

// ViewBuffers holds the CPU images of one view. The host provides Scene, or
// SceneImage which is resampled to the view size; Output is written by the pass.
type ViewBuffers struct {
	Scene      *core.ColorBuffer
	SceneImage image.Image
	Emissive   *core.ColorBuffer
	Output     *core.ColorBuffer
}

// LightingTargets maps view ids to their CPU buffers.
type LightingTargets struct {
	mu    sync.Mutex
	views map[string]*ViewBuffers
}

func NewLightingTargets() *LightingTargets {
	return &LightingTargets{views: make(map[string]*ViewBuffers)}
}

func (t *LightingTargets) buffers(viewID string) *ViewBuffers {
	t.mu.Lock()
	defer t.mu.Unlock()
	vb, ok := t.views[viewID]
	if !ok {
		vb = &ViewBuffers{}
		t.views[viewID] = vb
	}
	return vb
}

func (t *LightingTargets) SetScene(viewID string, scene *core.ColorBuffer) {
	t.buffers(viewID).Scene = scene
}

func (t *LightingTargets) SetSceneImage(viewID string, img image.Image) {
	vb := t.buffers(viewID)
	vb.SceneImage = img
	vb.Scene = nil
}

func (t *LightingTargets) SetEmissive(viewID string, emissive *core.ColorBuffer) {
	t.buffers(viewID).Emissive = emissive
}

// Output returns the last composited image of the view.
func (t *LightingTargets) Output(viewID string) (*core.ColorBuffer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	vb, ok := t.views[viewID]
	if !ok || vb.Output == nil {
		return nil, false
	}
	return vb.Output, true
}

// LightingGpuState owns the GPU side of the pass. The host sets Encoder and
// Targets before the Render stage of each frame.
type LightingGpuState struct {
	Pipeline *gpu.LightingPipeline
	Pass     *gpu.CompositorPass
	Encoder  *wgpu.CommandEncoder
	Targets  map[string]gpu.ViewTarget

	prepared bool
}

func (mod Lighting2dModule) Install(app *App, cmd *Commands) {
	settings := &LightingSettings{
		HDR:          mod.HDR,
		Workers:      mod.Workers,
		GridCellSize: mod.GridCellSize,
		CPUFallback:  mod.CPUFallback,
	}
	status := &LightingPassStatus{}
	cmd.AddResources(NewRenderWorld(), settings, status)

	app.UseSystem(
		System(ExtractLightingSystem).
			InStage(Extract).
			RunAlways(),
	)

	pipelineDevice := mod.PipelineDevice
	if pipelineDevice == nil && mod.Device != nil {
		pipelineDevice = gpu.WgpuDevice{Device: mod.Device}
	}

	useCpu := pipelineDevice == nil
	if pipelineDevice != nil {
		ensureSingleRenderer(app, BackendGpu)
		status.Backend = BackendGpu
		resources, err := mod.resourceDevice()
		var pipeline *gpu.LightingPipeline
		if err == nil {
			pipeline, err = gpu.NewLightingPipeline(pipelineDevice, gpu.PipelineConfig{
				SurfaceFormat:   mod.SurfaceFormat,
				ValidateShaders: mod.ValidateShaders,
			})
		}
		if err != nil {
			app.Logger().Errorf("lighting pass disabled: %v", err)
			status.State = gpu.PassDisabled
			status.Err = err
			useCpu = mod.CPUFallback
		} else {
			cmd.AddResources(&LightingGpuState{
				Pipeline: pipeline,
				Pass:     gpu.NewCompositorPass(resources, pipeline),
				Targets:  make(map[string]gpu.ViewTarget),
			})
			app.UseSystem(
				System(prepareLightingGpuSystem).
					InStage(PreRender).
					RunAlways(),
			)
			app.UseSystem(
				System(renderLightingGpuSystem).
					InStage(Render).
					RunAlways(),
			)
			useCpu = mod.CPUFallback
		}
	} else {
		ensureSingleRenderer(app, BackendCpu)
		status.Backend = BackendCpu
	}

	if useCpu {
		cmd.AddResources(NewLightingTargets())
		app.UseSystem(
			System(renderLightingCpuSystem).
				InStage(Render).
				RunAlways(),
		)
	}
}

// disable records the transition into PassDisabled, logging it once.
func (s *LightingPassStatus) disable(log Logger, err error) {
	if s.State != gpu.PassDisabled {
		log.Errorf("lighting pass disabled: %v", err)
	}
	s.State = gpu.PassDisabled
	s.Err = err
	s.Views = 0
}

func prepareLightingGpuSystem(cmd *Commands, rw *RenderWorld, state *LightingGpuState, status *LightingPassStatus) {
	log := cmd.app.Logger()
	state.prepared = false
	if state.Pipeline.State() == gpu.PassDisabled {
		status.disable(log, state.Pipeline.Err())
		return
	}
	if status.State == gpu.PassDisabled {
		log.Infof("lighting pass re-enabled")
		status.State = gpu.PassReady
		status.Err = nil
	}

	live := make(map[string]bool, len(rw.Views))
	for _, view := range rw.Views {
		live[view.ID] = true
		if _, err := state.Pipeline.Specialize(gpu.LightingPipelineKey{HDR: view.HDR}); err != nil {
			status.disable(log, err)
			return
		}
	}
	state.Pass.Buffers.RetainViews(live)

	if len(rw.Views) == 0 {
		return
	}
	if err := state.Pass.Prepare(rw.Frame); err != nil {
		state.Pipeline.Disable(err)
		status.disable(log, err)
		return
	}
	state.prepared = true
}

func renderLightingGpuSystem(cmd *Commands, rw *RenderWorld, state *LightingGpuState, status *LightingPassStatus) {
	log := cmd.app.Logger()
	status.Views = 0
	if !state.prepared || status.State == gpu.PassDisabled {
		return
	}
	if state.Encoder == nil {
		log.Debugf("lighting pass: no command encoder")
		return
	}
	for _, view := range rw.Views {
		target, ok := state.Targets[view.ID]
		if !ok {
			log.Debugf("lighting pass: no target for view %s", view.ID)
			continue
		}
		if err := state.Pass.Encode(state.Encoder, view, target); err != nil {
			if errors.Is(err, gpu.ErrMissingTarget) {
				log.Warnf("lighting pass: %v", err)
				continue
			}
			if !errors.Is(err, gpu.ErrPassDisabled) {
				state.Pipeline.Disable(err)
			}
			status.disable(log, state.Pipeline.Err())
			return
		}
		status.Views++
	}
	if status.Views > 0 {
		status.Frames++
	}
}

func renderLightingCpuSystem(cmd *Commands, rw *RenderWorld, settings *LightingSettings, targets *LightingTargets, status *LightingPassStatus) {
	log := cmd.app.Logger()
	if status.Backend == BackendGpu && status.State != gpu.PassDisabled {
		return
	}
	if status.Backend != BackendGpu {
		status.Views = 0
	}

	type job struct {
		view core.ExtractedView
		vb   *ViewBuffers
	}
	var jobs []job
	for _, view := range rw.Views {
		vb := targets.buffers(view.ID)
		scene := vb.Scene
		if (scene == nil || scene.Width != int(view.Width) || scene.Height != int(view.Height)) && vb.SceneImage != nil {
			scene = core.ColorBufferFromImage(vb.SceneImage, int(view.Width), int(view.Height))
			vb.Scene = scene
		}
		if scene == nil {
			log.Debugf("lighting pass: no scene color for view %s", view.ID)
			continue
		}
		jobs = append(jobs, job{view: view, vb: vb})
	}

	// Views share only the read-only frame.
	errs := make([]error, len(jobs))
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			j := jobs[i]
			out, err := core.Composite(j.vb.Scene, j.view, rw.Frame, core.CompositeOptions{
				Workers:      settings.Workers,
				GridCellSize: settings.GridCellSize,
				Emissive:     j.vb.Emissive,
			})
			if err != nil {
				errs[i] = err
				return
			}
			j.vb.Output = out
		}(i)
	}
	wg.Wait()

	lit := 0
	for i, err := range errs {
		if err != nil {
			log.Warnf("lighting pass: view %s: %v", jobs[i].view.ID, err)
			continue
		}
		lit++
	}
	status.Views += lit
	if lit > 0 {
		status.Frames++
	}
}
