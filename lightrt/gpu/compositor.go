package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/light2d/lightrt/core"
)

// ErrMissingTarget is returned by Encode when the host did not provide the view's
// scene color or output. It does not disable the pass.
var ErrMissingTarget = errors.New("gpu: missing scene color or output")

// ViewTarget is what one view hands to the lighting pass.
type ViewTarget struct {
	// SceneColor is the rasterized, unlit scene.
	SceneColor *wgpu.TextureView
	// Emissive is added after lighting. Optional.
	Emissive *wgpu.TextureView
	// Output receives the composited image and must match the pipeline format.
	Output *wgpu.TextureView
}

// CompositorPass records the lighting draw for each view into a command encoder.
type CompositorPass struct {
	Pipeline *LightingPipeline
	Buffers  *LightBufferManager

	device     ResourceDevice
	frame      *core.Frame
	bindGroups []*wgpu.BindGroup
}

func NewCompositorPass(device ResourceDevice, pipeline *LightingPipeline) *CompositorPass {
	return &CompositorPass{
		Pipeline: pipeline,
		Buffers:  NewLightBufferManager(device),
		device:   device,
	}
}

// Prepare uploads the frame's records and drops bind groups from the previous frame.
func (p *CompositorPass) Prepare(frame *core.Frame) error {
	p.releaseBindGroups()
	p.frame = nil
	if frame == nil {
		frame = core.NewFrame()
	}

	if _, err := p.Buffers.UpdateFrame(frame); err != nil {
		return fmt.Errorf("gpu: upload light records: %w", err)
	}
	p.frame = frame
	return nil
}

// Encode draws the lighting of view into target.Output. Prepare must have run this frame.
func (p *CompositorPass) Encode(encoder *wgpu.CommandEncoder, view core.ExtractedView, target ViewTarget) error {
	if target.SceneColor == nil || target.Output == nil {
		return fmt.Errorf("gpu: view %s: %w", view.ID, ErrMissingTarget)
	}
	if p.frame == nil {
		return fmt.Errorf("gpu: view %s: pass not prepared", view.ID)
	}

	pipeline, err := p.Pipeline.Specialize(LightingPipelineKey{HDR: view.HDR})
	if err != nil {
		return err
	}

	emissive := target.Emissive
	hasEmissive := emissive != nil
	if !hasEmissive {
		// The shader skips the sample; any filterable view satisfies the layout.
		emissive = target.SceneColor
	}

	header, err := p.Buffers.UpdateView(view, p.frame, hasEmissive)
	if err != nil {
		return fmt.Errorf("gpu: view %s: upload header: %w", view.ID, err)
	}

	textures, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Light2dTextures:" + view.ID,
		Layout: p.Pipeline.Layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: target.SceneColor},
			{Binding: 1, TextureView: emissive},
			{Binding: 2, Sampler: p.Pipeline.Sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: view %s: texture bind group: %w", view.ID, err)
	}
	p.bindGroups = append(p.bindGroups, textures)

	lights, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Light2dLights:" + view.ID,
		Layout: p.Pipeline.LightsLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: header, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: p.Buffers.PointLightsBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: p.Buffers.SpotLightsBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: p.Buffers.OccludersBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: view %s: lights bind group: %w", view.ID, err)
	}
	p.bindGroups = append(p.bindGroups, lights)

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Light2dPass:" + view.ID,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target.Output,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, textures, nil)
	pass.SetBindGroup(1, lights, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("gpu: view %s: end pass: %w", view.ID, err)
	}
	return nil
}

// Release frees the pass's buffers and bind groups. The pipeline is left to its owner.
func (p *CompositorPass) Release() {
	p.releaseBindGroups()
	p.Buffers.Release()
}

func (p *CompositorPass) releaseBindGroups() {
	for _, bg := range p.bindGroups {
		p.device.ReleaseBindGroup(bg)
	}
	p.bindGroups = p.bindGroups[:0]
}
