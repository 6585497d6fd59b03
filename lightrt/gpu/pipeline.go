package gpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/light2d/lightrt/shaders"
)

var (
	ErrNilDevice    = errors.New("gpu: nil device")
	ErrPassDisabled = errors.New("gpu: lighting pass disabled")
)

const (
	LightingPipelineLabel   = "lighting_pipeline"
	LightingBindGroupLayout = "lighting_bind_group_layout"
	LightsBindGroupLayout   = "lighting_lights_bind_group_layout"
	HDRTextureFormat        = wgpu.TextureFormatRGBA16Float
	DefaultSurfaceFormat    = wgpu.TextureFormatBGRA8UnormSrgb
	fullscreenShaderLabel   = "fullscreen_vertex"
	lightingShaderLabel     = "lighting_2d"
)

// PassState tells whether the lighting pass can run.
type PassState int32

const (
	PassReady PassState = iota
	PassDisabled
)

func (s PassState) String() string {
	switch s {
	case PassReady:
		return "ready"
	case PassDisabled:
		return "disabled"
	default:
		return fmt.Sprintf("PassState(%d)", int32(s))
	}
}

// LightingPipelineKey selects a pipeline specialization.
type LightingPipelineKey struct {
	HDR bool
}

type PipelineConfig struct {
	// SurfaceFormat is the SDR target format, DefaultSurfaceFormat when undefined.
	SurfaceFormat wgpu.TextureFormat
	// ValidateShaders compiles the embedded WGSL with naga before any device work.
	ValidateShaders bool
}

// CacheStats reports pipeline cache usage.
type CacheStats struct {
	Pipelines int
	Hits      uint64
	Misses    uint64
}

// LightingPipeline owns the device objects shared by every specialization of the
// lighting pass and caches one render pipeline per key.
//
// Specialize is safe for concurrent use. Cached entries are served under a read
// lock; a new key is built once under the write lock.
type LightingPipeline struct {
	// Layout is group 0: scene color, emissive color, filtering sampler.
	Layout *wgpu.BindGroupLayout
	// LightsLayout is group 1: header uniform and the three record arrays.
	LightsLayout *wgpu.BindGroupLayout
	Sampler      *wgpu.Sampler

	device        Device
	surfaceFormat wgpu.TextureFormat

	mu        sync.RWMutex
	pipelines map[LightingPipelineKey]*wgpu.RenderPipeline
	lastErr   error

	state  atomic.Int32
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewLightingPipeline(device Device, cfg PipelineConfig) (*LightingPipeline, error) {
	if device == nil {
		return nil, ErrNilDevice
	}
	if cfg.ValidateShaders {
		if err := shaders.Validate(); err != nil {
			return nil, fmt.Errorf("gpu: lighting pipeline: %w", err)
		}
	}
	format := cfg.SurfaceFormat
	if format == wgpu.TextureFormatUndefined {
		format = DefaultSurfaceFormat
	}

	p := &LightingPipeline{
		device:        device,
		surfaceFormat: format,
		pipelines:     make(map[LightingPipelineKey]*wgpu.RenderPipeline),
	}
	if err := p.createShared(device); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LightingPipeline) createShared(device Device) error {
	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: LightingBindGroupLayout,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: create %s: %w", LightingBindGroupLayout, err)
	}

	lightsLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: LightsBindGroupLayout,
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: HeaderSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: PointLightStride,
				},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: SpotLightStride,
				},
			},
			{
				Binding:    3,
				Visibility: wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: OccluderStride,
				},
			},
		},
	})
	if err != nil {
		if r, ok := device.(pipelineReleaser); ok {
			r.ReleaseBindGroupLayout(layout)
		}
		return fmt.Errorf("gpu: create %s: %w", LightsBindGroupLayout, err)
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "lighting_sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   1,
		MaxAnisotropy: 1,
	})
	if err != nil {
		if r, ok := device.(pipelineReleaser); ok {
			r.ReleaseBindGroupLayout(layout)
			r.ReleaseBindGroupLayout(lightsLayout)
		}
		return fmt.Errorf("gpu: create lighting sampler: %w", err)
	}

	p.Layout = layout
	p.LightsLayout = lightsLayout
	p.Sampler = sampler
	return nil
}

// TextureFormatForKey returns the color target format of a specialization.
func (p *LightingPipeline) TextureFormatForKey(key LightingPipelineKey) wgpu.TextureFormat {
	if key.HDR {
		return HDRTextureFormat
	}
	return p.surfaceFormat
}

// Descriptor is the pure description of the pipeline built for key.
func (p *LightingPipeline) Descriptor(key LightingPipelineKey) *FullscreenPipelineDescriptor {
	return &FullscreenPipelineDescriptor{
		Label:            LightingPipelineLabel,
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.Layout, p.LightsLayout},
		Vertex: ShaderStage{
			Label:      fullscreenShaderLabel,
			Code:       shaders.FullscreenWGSL,
			EntryPoint: shaders.FullscreenVertexEntry,
		},
		Fragment: ShaderStage{
			Label:      lightingShaderLabel,
			Code:       shaders.LightingWGSL,
			EntryPoint: shaders.LightingFragmentEntry,
		},
		Format: p.TextureFormatForKey(key),
	}
}

// Specialize returns the pipeline for key, building it on first request. A build
// failure disables the pass; until Rebuild every call returns ErrPassDisabled
// without touching the device.
func (p *LightingPipeline) Specialize(key LightingPipelineKey) (*wgpu.RenderPipeline, error) {
	if p.State() == PassDisabled {
		return nil, ErrPassDisabled
	}

	p.mu.RLock()
	pipeline, ok := p.pipelines[key]
	p.mu.RUnlock()
	if ok {
		p.hits.Add(1)
		return pipeline, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if pipeline, ok := p.pipelines[key]; ok {
		p.hits.Add(1)
		return pipeline, nil
	}
	if p.State() == PassDisabled {
		return nil, ErrPassDisabled
	}

	p.misses.Add(1)
	pipeline, err := p.device.CreateFullscreenPipeline(p.Descriptor(key))
	if err == nil && pipeline == nil {
		err = errors.New("device returned no pipeline")
	}
	if err != nil {
		err = fmt.Errorf("gpu: specialize %s (hdr=%t): %w", LightingPipelineLabel, key.HDR, err)
		p.lastErr = err
		p.state.Store(int32(PassDisabled))
		return nil, err
	}
	p.pipelines[key] = pipeline
	return pipeline, nil
}

func (p *LightingPipeline) State() PassState {
	return PassState(p.state.Load())
}

// Disable marks the pass disabled after a resource failure outside pipeline
// creation. Specialize refuses every key until Rebuild.
func (p *LightingPipeline) Disable(err error) {
	if err == nil {
		err = ErrPassDisabled
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastErr = err
	p.state.Store(int32(PassDisabled))
}

// Err returns the failure that disabled the pass, nil while ready.
func (p *LightingPipeline) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

func (p *LightingPipeline) Stats() CacheStats {
	p.mu.RLock()
	n := len(p.pipelines)
	p.mu.RUnlock()
	return CacheStats{
		Pipelines: n,
		Hits:      p.hits.Load(),
		Misses:    p.misses.Load(),
	}
}

// Rebuild drops every cached pipeline, recreates the shared objects on device
// (the current device when nil) and makes the pass ready again.
func (p *LightingPipeline) Rebuild(device Device) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if device == nil {
		device = p.device
	}
	if r, ok := p.device.(pipelineReleaser); ok {
		for _, pipeline := range p.pipelines {
			r.ReleasePipeline(pipeline)
		}
		r.ReleaseBindGroupLayout(p.Layout)
		r.ReleaseBindGroupLayout(p.LightsLayout)
		r.ReleaseSampler(p.Sampler)
	}
	p.Layout, p.LightsLayout, p.Sampler = nil, nil, nil
	p.pipelines = make(map[LightingPipelineKey]*wgpu.RenderPipeline)
	p.device = device

	if err := p.createShared(device); err != nil {
		p.lastErr = err
		p.state.Store(int32(PassDisabled))
		return err
	}
	p.lastErr = nil
	p.state.Store(int32(PassReady))
	return nil
}
