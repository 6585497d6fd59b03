// Command light2d-preview renders one frame of a lighting preset on the CPU and
// writes the composited views as PNG files.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/gekko3d/light2d"
	"github.com/gekko3d/light2d/lightrt/core"
	"github.com/gekko3d/light2d/lightrt/shaders"
)

func main() {
	var (
		presetPath = flag.String("preset", "", "lighting preset (JSON); a demo scene when empty")
		scenePath  = flag.String("scene", "", "unlit scene image (png, jpeg, bmp, webp); flat gray when empty")
		output     = flag.String("output", "light2d.png", "output file")
		hdr        = flag.Bool("hdr", false, "composite in HDR")
		workers    = flag.Int("workers", 0, "row bands shaded concurrently, GOMAXPROCS when 0")
		validate   = flag.Bool("validate-shaders", false, "compile the WGSL shaders before rendering")
		debug      = flag.Bool("debug", false, "debug logging")
		logLevel   = flag.String("log-level", "info", "debug, info, warn or error")
	)
	flag.Parse()

	level, err := light2d.ParseLogLevel(*logLevel)
	if err != nil {
		log.Fatalf("Invalid -log-level: %v", err)
	}

	if *validate {
		if err := shaders.Validate(); err != nil {
			log.Fatalf("Shader validation failed: %v", err)
		}
		log.Printf("Shaders validated")
	}

	app := light2d.NewAppBuilder().
		UseModule(
			light2d.LoggingModule{Prefix: "light2d-preview", Debug: *debug, Level: level},
			light2d.HierarchyModule{},
			light2d.VisibilityModule{},
			light2d.Lighting2dModule{HDR: *hdr, Workers: *workers},
		).
		Build()
	cmd := app.Commands()

	if *presetPath != "" {
		if _, err := light2d.LoadLightingPreset(cmd, *presetPath); err != nil {
			log.Fatalf("Failed to load preset: %v", err)
		}
	} else {
		spawnDemo(cmd)
	}
	app.FlushCommands()

	var sceneImg image.Image
	if *scenePath != "" {
		img, err := decodeImage(*scenePath)
		if err != nil {
			log.Fatalf("Failed to read scene: %v", err)
		}
		sceneImg = img
	}

	targets := light2d.Resource[light2d.LightingTargets](app)
	var views []string
	light2d.MakeQuery2[light2d.Camera2d, light2d.Light2d](cmd).Map(func(eid light2d.EntityId, cam *light2d.Camera2d, _ *light2d.Light2d) bool {
		id := cam.ID.String()
		views = append(views, id)
		if sceneImg != nil {
			targets.SetSceneImage(id, sceneImg)
			return true
		}
		scene := core.NewColorBuffer(int(cam.ViewportWidth), int(cam.ViewportHeight))
		scene.Fill(core.Srgb(0.7, 0.7, 0.7).ToLinear())
		targets.SetScene(id, scene)
		return true
	})
	if len(views) == 0 {
		log.Fatalf("No lit camera in the scene")
	}

	app.Update()

	for i, id := range views {
		out, ok := targets.Output(id)
		if !ok {
			log.Fatalf("View %s was not composited", id)
		}
		name := *output
		if len(views) > 1 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), i, ext)
		}
		if err := writePNG(name, out.ToImage()); err != nil {
			log.Fatalf("Failed to save: %v", err)
		}
		log.Printf("View %s saved to %s (%dx%d)\n", id, name, out.Width, out.Height)
	}
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// spawnDemo lays out two lights and a wall in front of a dim camera.
func spawnDemo(cmd *light2d.Commands) {
	cam := light2d.NewCamera2d(320, 180)
	cam.Zoom = 2
	cmd.AddEntity(&cam, &light2d.Light2d{Ambient: light2d.AmbientLight2d{Color: core.Srgb(0.6, 0.7, 1), Brightness: 0.15}})

	warm := light2d.DefaultPointLight2d()
	warm.Color = core.Srgb(1, 0.75, 0.4)
	warm.Radius = 60
	warm.Intensity = 1.5
	warm.CastShadows = true
	warmTr := light2d.NewTransform(mgl32.Vec2{-30, 10})
	cmd.AddEntity(&warmTr, &warm)

	spot := light2d.DefaultSpotLight2d()
	spot.Color = core.Srgb(0.5, 0.8, 1)
	spot.Radius = 70
	spot.SourceWidth = 4
	spot.CastShadows = true
	spotTr := light2d.NewTransform(mgl32.Vec2{40, 40})
	cmd.AddEntity(&spotTr, &spot)

	wallTr := light2d.NewTransform(mgl32.Vec2{0, 0})
	cmd.AddEntity(&wallTr, &light2d.LightOccluder2d{Shape: light2d.RectangleShape{HalfSize: mgl32.Vec2{4, 15}}})
}
