package light2d

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/gekko3d/light2d/lightrt/core"
)

type OccluderData struct {
	Shape    string     `json:"shape"`
	HalfSize mgl32.Vec2 `json:"half_size"`
}

type CameraData struct {
	ID             uuid.UUID      `json:"id"`
	Position       mgl32.Vec2     `json:"position"`
	Zoom           float32        `json:"zoom"`
	ViewportWidth  uint32         `json:"viewport_width"`
	ViewportHeight uint32         `json:"viewport_height"`
	HDR            bool           `json:"hdr"`
	Lit            bool           `json:"lit"`
	Ambient        AmbientLight2d `json:"ambient"`
}

type EntityData struct {
	ID           EntityId           `json:"id"`
	HasTransform bool               `json:"has_transform"`
	Transform    TransformComponent `json:"transform"`
	HasParent    bool               `json:"has_parent"`
	ParentID     EntityId           `json:"parent_id"`
	Visibility   VisibilityMode     `json:"visibility"`
	PointLight   *PointLight2d      `json:"point_light,omitempty"`
	SpotLight    *SpotLight2d       `json:"spot_light,omitempty"`
	Occluder     *OccluderData      `json:"occluder,omitempty"`
	Camera       *CameraData        `json:"camera,omitempty"`
}

// LightingPreset is a saved lighting scene: cameras, lights and occluders.
type LightingPreset struct {
	ID       uuid.UUID    `json:"id"`
	Name     string       `json:"name"`
	Entities []EntityData `json:"entities"`
}

const shapeRectangle = "rectangle"

// CaptureLightingPreset records every entity carrying a light, an occluder or a camera.
func CaptureLightingPreset(cmd *Commands, name string) LightingPreset {
	preset := LightingPreset{ID: uuid.New(), Name: name}

	capture := func(eid EntityId) {
		data := EntityData{ID: eid}
		keep := false
		for _, c := range cmd.GetAllComponents(eid) {
			switch comp := c.(type) {
			case TransformComponent:
				data.HasTransform = true
				data.Transform = comp
			case Parent:
				data.HasParent = true
				data.ParentID = comp.Entity
			case Visibility:
				data.Visibility = comp.Mode
			case PointLight2d:
				l := comp
				data.PointLight = &l
				keep = true
			case SpotLight2d:
				l := comp
				data.SpotLight = &l
				keep = true
			case LightOccluder2d:
				if o, ok := occluderData(comp.Shape); ok {
					data.Occluder = &o
					keep = true
				}
			case Camera2d:
				if data.Camera == nil {
					data.Camera = &CameraData{}
				}
				data.Camera.ID = comp.ID
				data.Camera.Position = comp.Position
				data.Camera.Zoom = comp.Zoom
				data.Camera.ViewportWidth = comp.ViewportWidth
				data.Camera.ViewportHeight = comp.ViewportHeight
				data.Camera.HDR = comp.HDR
				keep = true
			case Light2d:
				if data.Camera == nil {
					data.Camera = &CameraData{}
				}
				data.Camera.Lit = true
				data.Camera.Ambient = comp.Ambient
			}
		}
		if keep {
			preset.Entities = append(preset.Entities, data)
		}
	}

	MakeQuery1[TransformComponent](cmd).Map(func(eid EntityId, _ *TransformComponent) bool {
		capture(eid)
		return true
	})
	MakeQuery1[Camera2d](cmd).Without(TransformComponent{}).Map(func(eid EntityId, _ *Camera2d) bool {
		capture(eid)
		return true
	})
	return preset
}

func occluderData(shape core.OccluderShape) (OccluderData, bool) {
	switch s := shape.(type) {
	case RectangleShape:
		return OccluderData{Shape: shapeRectangle, HalfSize: s.HalfSize}, true
	case *RectangleShape:
		if s != nil {
			return OccluderData{Shape: shapeRectangle, HalfSize: s.HalfSize}, true
		}
	}
	return OccluderData{}, false
}

// Spawn queues the preset's entities and restores their hierarchy. The returned
// ids become valid at the next flush.
func (p LightingPreset) Spawn(cmd *Commands) ([]EntityId, error) {
	for _, data := range p.Entities {
		if data.Occluder != nil && data.Occluder.Shape != shapeRectangle {
			return nil, fmt.Errorf("preset %s: entity %d: unknown occluder shape %q", p.Name, data.ID, data.Occluder.Shape)
		}
	}

	idMap := make(map[EntityId]EntityId, len(p.Entities))
	var newEntities []EntityId

	for _, data := range p.Entities {
		var components []any
		if data.HasTransform {
			components = append(components, &TransformComponent{
				Position: data.Transform.Position,
				Rotation: data.Transform.Rotation,
				Scale:    data.Transform.Scale,
				Z:        data.Transform.Z,
			})
		}
		if data.PointLight != nil || data.SpotLight != nil || data.Occluder != nil {
			components = append(components, &Visibility{Mode: data.Visibility})
		}
		if data.PointLight != nil {
			components = append(components, data.PointLight)
		}
		if data.SpotLight != nil {
			components = append(components, data.SpotLight)
		}
		if data.Occluder != nil {
			components = append(components, &LightOccluder2d{Shape: RectangleShape{HalfSize: data.Occluder.HalfSize}})
		}
		if c := data.Camera; c != nil {
			id := c.ID
			if id == uuid.Nil {
				id = uuid.New()
			}
			components = append(components, &Camera2d{
				ID:             id,
				Position:       c.Position,
				Zoom:           c.Zoom,
				ViewportWidth:  c.ViewportWidth,
				ViewportHeight: c.ViewportHeight,
				HDR:            c.HDR,
			})
			if c.Lit {
				components = append(components, &Light2d{Ambient: c.Ambient})
			}
		}

		newEid := cmd.AddEntity(components...)
		idMap[data.ID] = newEid
		newEntities = append(newEntities, newEid)
	}

	for _, data := range p.Entities {
		if !data.HasParent {
			continue
		}
		if newChild, okC := idMap[data.ID]; okC {
			if newParent, okP := idMap[data.ParentID]; okP {
				cmd.AddComponents(newChild, &Parent{Entity: newParent})
			}
		}
	}
	return newEntities, nil
}

func SaveLightingPreset(cmd *Commands, name string, filename string) error {
	preset := CaptureLightingPreset(cmd, name)
	bytes, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, bytes, 0644)
}

// ReadLightingPreset parses a preset file without spawning it.
func ReadLightingPreset(filename string) (LightingPreset, error) {
	var preset LightingPreset
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return preset, err
	}
	if err := json.Unmarshal(bytes, &preset); err != nil {
		return preset, fmt.Errorf("preset %s: %w", filename, err)
	}
	return preset, nil
}

func LoadLightingPreset(cmd *Commands, filename string) ([]EntityId, error) {
	preset, err := ReadLightingPreset(filename)
	if err != nil {
		return nil, err
	}
	return preset.Spawn(cmd)
}
