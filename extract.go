package light2d

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/gekko3d/light2d/lightrt/core"
)

// RenderWorld is the render-side snapshot written by the Extract stage. It is fully
// replaced every frame; render stages read it and never write back into the ECS.
type RenderWorld struct {
	Frame *core.Frame
	Views []core.ExtractedView
	// Generation counts the extractions performed.
	Generation uint64
}

func NewRenderWorld() *RenderWorld {
	return &RenderWorld{Frame: core.NewFrame()}
}

// View returns the extracted view with the given id.
func (rw *RenderWorld) View(id string) (core.ExtractedView, bool) {
	for _, v := range rw.Views {
		if v.ID == id {
			return v, true
		}
	}
	return core.ExtractedView{}, false
}

func ExtractLightingSystem(cmd *Commands, rw *RenderWorld, settings *LightingSettings) {
	log := cmd.app.Logger()
	if rw.Frame == nil {
		rw.Frame = core.NewFrame()
	}
	rw.Frame.Reset()
	rw.Views = rw.Views[:0]

	extractPointLights(cmd, rw.Frame, log)
	extractSpotLights(cmd, rw.Frame, log)
	extractOccluders(cmd, rw.Frame, log)
	rw.Views = extractViews(cmd, rw.Views, settings.HDR, log)
	rw.Generation++
}

func extractPointLights(cmd *Commands, frame *core.Frame, log Logger) {
	MakeQuery3[PointLight2d, GlobalTransform, ViewVisibility](cmd).Map(func(eid EntityId, light *PointLight2d, gt *GlobalTransform, vis *ViewVisibility) bool {
		if !vis.Visible || !gt.usable() {
			return true
		}
		if err := validLightParams(light.Radius, light.Intensity, light.Falloff); err != nil {
			log.Debugf("skipping point light %d: %v", eid, err)
			return true
		}
		frame.PointLights = append(frame.PointLights, core.ExtractedPointLight{
			Center:      gt.Position,
			Radius:      light.Radius,
			Color:       light.Color.ToLinear(),
			Intensity:   light.Intensity,
			Falloff:     light.Falloff,
			CastShadows: flag(light.CastShadows),
		})
		return true
	})
}

func extractSpotLights(cmd *Commands, frame *core.Frame, log Logger) {
	MakeQuery3[SpotLight2d, GlobalTransform, ViewVisibility](cmd).Map(func(eid EntityId, light *SpotLight2d, gt *GlobalTransform, vis *ViewVisibility) bool {
		if !vis.Visible || !gt.usable() {
			return true
		}
		if err := validLightParams(light.Radius, light.Intensity, light.Falloff); err != nil {
			log.Debugf("skipping spot light %d: %v", eid, err)
			return true
		}
		if !finite(light.Direction) || !finite(light.InnerAngle) || !finite(light.OuterAngle) {
			log.Debugf("skipping spot light %d: non-finite angle", eid)
			return true
		}
		if !(light.SourceWidth >= 0) || !finite(light.SourceWidth) {
			log.Debugf("skipping spot light %d: source width %v", eid, light.SourceWidth)
			return true
		}
		dir := float64(light.Direction) * math.Pi / 180
		frame.SpotLights = append(frame.SpotLights, core.ExtractedSpotLight{
			Center:      gt.Position,
			Radius:      light.Radius,
			Color:       light.Color.ToLinear(),
			Intensity:   light.Intensity,
			Falloff:     light.Falloff,
			Direction:   [2]float32{float32(math.Cos(dir)), float32(math.Sin(dir))},
			InnerAngle:  degToRad(light.InnerAngle),
			OuterAngle:  degToRad(light.OuterAngle),
			SourceWidth: light.SourceWidth,
			CastShadows: flag(light.CastShadows),
		})
		return true
	})
}

func extractOccluders(cmd *Commands, frame *core.Frame, log Logger) {
	MakeQuery3[LightOccluder2d, GlobalTransform, ViewVisibility](cmd).Map(func(eid EntityId, occ *LightOccluder2d, gt *GlobalTransform, vis *ViewVisibility) bool {
		if !vis.Visible || !gt.usable() {
			return true
		}
		o, ok := core.ExtractOccluder(occ.Shape, gt.Position)
		if !ok {
			log.Debugf("skipping occluder %d: invalid shape %#v", eid, occ.Shape)
			return true
		}
		frame.Occluders = append(frame.Occluders, o)
		return true
	})
}

func extractViews(cmd *Commands, views []core.ExtractedView, forceHDR bool, log Logger) []core.ExtractedView {
	MakeQuery2[Camera2d, Light2d](cmd).Map(func(eid EntityId, cam *Camera2d, l *Light2d) bool {
		brightness := l.Ambient.Brightness
		if !(brightness >= 0) || !finite(brightness) {
			log.Debugf("camera %d: ambient brightness %v treated as 0", eid, brightness)
			brightness = 0
		}
		view := cam.View(core.ExtractedAmbient{Color: l.Ambient.Color.ToLinear().Scale(brightness)})
		view.HDR = view.HDR || forceHDR
		if cam.ID == uuid.Nil {
			view.ID = fmt.Sprintf("entity-%d", eid)
		}
		views = append(views, view)
		return true
	})
	return views
}

func validLightParams(radius, intensity, falloff float32) error {
	if !(radius > 0) || !finite(radius) {
		return fmt.Errorf("radius %v", radius)
	}
	if !(intensity >= 0) || !finite(intensity) {
		return fmt.Errorf("intensity %v", intensity)
	}
	if !(falloff >= 0) || !finite(falloff) {
		return fmt.Errorf("falloff %v", falloff)
	}
	return nil
}

func degToRad(deg float32) float32 {
	return float32(float64(deg) * math.Pi / 180)
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func flag(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
