package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Device is the subset of GPU device operations the lighting pass needs.
type Device interface {
	CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error)
	CreateSampler(desc *wgpu.SamplerDescriptor) (*wgpu.Sampler, error)
	CreateFullscreenPipeline(desc *FullscreenPipelineDescriptor) (*wgpu.RenderPipeline, error)
}

// ResourceDevice creates the per-frame resources of the lighting pass: record and
// header buffers and the bind groups referencing them.
type ResourceDevice interface {
	CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error)
	WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error
	ReleaseBuffer(buf *wgpu.Buffer)
	CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error)
	ReleaseBindGroup(bg *wgpu.BindGroup)
}

// pipelineReleaser is implemented by devices that own real GPU handles.
type pipelineReleaser interface {
	ReleasePipeline(p *wgpu.RenderPipeline)
	ReleaseBindGroupLayout(l *wgpu.BindGroupLayout)
	ReleaseSampler(s *wgpu.Sampler)
}

type ShaderStage struct {
	Label      string
	Code       string
	EntryPoint string
}

// FullscreenPipelineDescriptor describes a pipeline drawing one screen-covering
// triangle into a single color target, without vertex buffers or depth.
type FullscreenPipelineDescriptor struct {
	Label            string
	BindGroupLayouts []*wgpu.BindGroupLayout
	Vertex           ShaderStage
	Fragment         ShaderStage
	Format           wgpu.TextureFormat
}

// WgpuDevice adapts a *wgpu.Device to Device.
type WgpuDevice struct {
	Device *wgpu.Device
}

func (d WgpuDevice) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	if d.Device == nil {
		return nil, ErrNilDevice
	}
	return d.Device.CreateBindGroupLayout(desc)
}

func (d WgpuDevice) CreateSampler(desc *wgpu.SamplerDescriptor) (*wgpu.Sampler, error) {
	if d.Device == nil {
		return nil, ErrNilDevice
	}
	return d.Device.CreateSampler(desc)
}

func (d WgpuDevice) CreateFullscreenPipeline(desc *FullscreenPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	if d.Device == nil {
		return nil, ErrNilDevice
	}

	vs, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Vertex.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Vertex.Code},
	})
	if err != nil {
		return nil, fmt.Errorf("vertex shader %q: %w", desc.Vertex.Label, err)
	}
	defer vs.Release()

	fs, err := d.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Fragment.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.Fragment.Code},
	})
	if err != nil {
		return nil, fmt.Errorf("fragment shader %q: %w", desc.Fragment.Label, err)
	}
	defer fs.Release()

	layout, err := d.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: desc.BindGroupLayouts,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline layout: %w", err)
	}
	defer layout.Release()

	return d.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: desc.Vertex.EntryPoint,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    desc.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

func (d WgpuDevice) ReleasePipeline(p *wgpu.RenderPipeline) {
	if p != nil {
		p.Release()
	}
}

func (d WgpuDevice) ReleaseBindGroupLayout(l *wgpu.BindGroupLayout) {
	if l != nil {
		l.Release()
	}
}

func (d WgpuDevice) ReleaseSampler(s *wgpu.Sampler) {
	if s != nil {
		s.Release()
	}
}

func (d WgpuDevice) CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	if d.Device == nil {
		return nil, ErrNilDevice
	}
	return d.Device.CreateBuffer(desc)
}

func (d WgpuDevice) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	if d.Device == nil {
		return ErrNilDevice
	}
	return d.Device.GetQueue().WriteBuffer(buf, offset, data)
}

func (d WgpuDevice) ReleaseBuffer(buf *wgpu.Buffer) {
	if buf != nil {
		buf.Release()
	}
}

func (d WgpuDevice) CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	if d.Device == nil {
		return nil, ErrNilDevice
	}
	return d.Device.CreateBindGroup(desc)
}

func (d WgpuDevice) ReleaseBindGroup(bg *wgpu.BindGroup) {
	if bg != nil {
		bg.Release()
	}
}
