package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/light2d/lightrt/core"
)

// Byte sizes of the WGSL structs in lighting.wgsl.
const (
	HeaderSize       = 64
	PointLightStride = 48
	SpotLightStride  = 64
	OccluderStride   = 32
)

// Headroom added when a record buffer grows, in records.
const recordHeadroom = 16

func putF32(buf []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
}

func putU32(buf []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(buf[off:], v)
}

func putVec2(buf []byte, off int, x, y float32) {
	putF32(buf, off, x)
	putF32(buf, off+4, y)
}

func putColor(buf []byte, off int, c core.LinearRgba) {
	putF32(buf, off, c.R)
	putF32(buf, off+4, c.G)
	putF32(buf, off+8, c.B)
	putF32(buf, off+12, c.A)
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// PackHeader encodes the per-view uniform:
//
//	ambient: vec4<f32>          0
//	view_origin: vec2<f32>      16
//	view_size: vec2<f32>        24
//	world_per_pixel: f32        32
//	point_count: u32            36
//	spot_count: u32             40
//	occluder_count: u32         44
//	hdr: u32                    48
//	has_emissive: u32           52
func PackHeader(view core.ExtractedView, frame *core.Frame, hasEmissive bool) []byte {
	buf := make([]byte, HeaderSize)
	putColor(buf, 0, view.Ambient.Color)
	putVec2(buf, 16, view.Origin.X(), view.Origin.Y())
	putVec2(buf, 24, float32(view.Width), float32(view.Height))
	putF32(buf, 32, view.WorldPerPixel)
	if frame != nil {
		putU32(buf, 36, uint32(len(frame.PointLights)))
		putU32(buf, 40, uint32(len(frame.SpotLights)))
		putU32(buf, 44, uint32(len(frame.Occluders)))
	}
	putU32(buf, 48, boolU32(view.HDR))
	putU32(buf, 52, boolU32(hasEmissive))
	return buf
}

// PackPointLights encodes the point light array. An empty array still yields one
// zeroed record since storage bindings cannot be empty; the header count stays 0.
func PackPointLights(lights []core.ExtractedPointLight) []byte {
	buf := make([]byte, max(len(lights), 1)*PointLightStride)
	for i := range lights {
		l := &lights[i]
		off := i * PointLightStride
		putVec2(buf, off, l.Center.X(), l.Center.Y())
		putF32(buf, off+8, l.Radius)
		putF32(buf, off+12, l.Intensity)
		putColor(buf, off+16, l.Color)
		putF32(buf, off+32, l.Falloff)
		putU32(buf, off+36, l.CastShadows)
	}
	return buf
}

func PackSpotLights(lights []core.ExtractedSpotLight) []byte {
	buf := make([]byte, max(len(lights), 1)*SpotLightStride)
	for i := range lights {
		l := &lights[i]
		off := i * SpotLightStride
		putVec2(buf, off, l.Center.X(), l.Center.Y())
		putF32(buf, off+8, l.Radius)
		putF32(buf, off+12, l.Intensity)
		putColor(buf, off+16, l.Color)
		putVec2(buf, off+32, l.Direction.X(), l.Direction.Y())
		putF32(buf, off+40, l.InnerAngle)
		putF32(buf, off+44, l.OuterAngle)
		putF32(buf, off+48, l.SourceWidth)
		putF32(buf, off+52, l.Falloff)
		putU32(buf, off+56, l.CastShadows)
	}
	return buf
}

func PackOccluders(occluders []core.ExtractedOccluder) []byte {
	buf := make([]byte, max(len(occluders), 1)*OccluderStride)
	for i := range occluders {
		o := &occluders[i]
		off := i * OccluderStride
		putVec2(buf, off, o.Center.X(), o.Center.Y())
		putVec2(buf, off+8, o.HalfSize.X(), o.HalfSize.Y())
		putU32(buf, off+16, o.Kind)
	}
	return buf
}

// LightBufferManager keeps the frame's record arrays resident on the GPU.
// Record buffers are shared by every view; each view owns its header uniform.
type LightBufferManager struct {
	Device ResourceDevice

	PointLightsBuf *wgpu.Buffer
	SpotLightsBuf  *wgpu.Buffer
	OccludersBuf   *wgpu.Buffer
	HeaderBufs     map[string]*wgpu.Buffer

	sizes map[*wgpu.Buffer]uint64
}

func NewLightBufferManager(device ResourceDevice) *LightBufferManager {
	return &LightBufferManager{
		Device:     device,
		HeaderBufs: make(map[string]*wgpu.Buffer),
		sizes:      make(map[*wgpu.Buffer]uint64),
	}
}

// ensureBuffer writes data into *buf, recreating it with headroom when too small.
// It reports whether the buffer was recreated, which invalidates bind groups.
func (m *LightBufferManager) ensureBuffer(name string, buf **wgpu.Buffer, data []byte, usage wgpu.BufferUsage, headroom int) (bool, error) {
	if m.Device == nil {
		return false, ErrNilDevice
	}
	neededSize := uint64(len(data))
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current != nil && m.sizes[current] >= neededSize {
		if err := m.write(name, current, data); err != nil {
			return false, err
		}
		return false, nil
	}

	if current != nil {
		m.release(current)
		*buf = nil
	}
	size := neededSize + uint64(headroom)
	newBuf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: name,
		Size:  size,
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return false, fmt.Errorf("create %s: %w", name, err)
	}
	if newBuf == nil {
		return false, fmt.Errorf("create %s: device returned no buffer", name)
	}
	m.sizes[newBuf] = size
	*buf = newBuf
	if err := m.write(name, newBuf, data); err != nil {
		return true, err
	}
	return true, nil
}

func (m *LightBufferManager) write(name string, buf *wgpu.Buffer, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := m.Device.WriteBuffer(buf, 0, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (m *LightBufferManager) release(buf *wgpu.Buffer) {
	delete(m.sizes, buf)
	if m.Device != nil {
		m.Device.ReleaseBuffer(buf)
	}
}

// UpdateFrame uploads the record arrays. It reports whether any buffer was recreated.
func (m *LightBufferManager) UpdateFrame(frame *core.Frame) (bool, error) {
	if frame == nil {
		frame = &core.Frame{}
	}
	pr, err := m.ensureBuffer("Light2dPointLights", &m.PointLightsBuf, PackPointLights(frame.PointLights), wgpu.BufferUsageStorage, recordHeadroom*PointLightStride)
	if err != nil {
		return false, err
	}
	sr, err := m.ensureBuffer("Light2dSpotLights", &m.SpotLightsBuf, PackSpotLights(frame.SpotLights), wgpu.BufferUsageStorage, recordHeadroom*SpotLightStride)
	if err != nil {
		return false, err
	}
	or, err := m.ensureBuffer("Light2dOccluders", &m.OccludersBuf, PackOccluders(frame.Occluders), wgpu.BufferUsageStorage, recordHeadroom*OccluderStride)
	if err != nil {
		return false, err
	}
	return pr || sr || or, nil
}

func (m *LightBufferManager) UpdateView(view core.ExtractedView, frame *core.Frame, hasEmissive bool) (*wgpu.Buffer, error) {
	buf := m.HeaderBufs[view.ID]
	_, err := m.ensureBuffer("Light2dHeader:"+view.ID, &buf, PackHeader(view, frame, hasEmissive), wgpu.BufferUsageUniform, 0)
	if buf == nil {
		delete(m.HeaderBufs, view.ID)
	} else {
		m.HeaderBufs[view.ID] = buf
	}
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// RetainViews releases header buffers of views not in live.
func (m *LightBufferManager) RetainViews(live map[string]bool) {
	for id, buf := range m.HeaderBufs {
		if !live[id] {
			m.release(buf)
			delete(m.HeaderBufs, id)
		}
	}
}

func (m *LightBufferManager) Release() {
	for _, buf := range []**wgpu.Buffer{&m.PointLightsBuf, &m.SpotLightsBuf, &m.OccludersBuf} {
		if *buf != nil {
			m.release(*buf)
			*buf = nil
		}
	}
	m.RetainViews(nil)
}
