package shaders

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

//go:embed fullscreen.wgsl
var FullscreenWGSL string

//go:embed lighting.wgsl
var LightingWGSL string

const (
	FullscreenVertexEntry = "vertex"
	LightingFragmentEntry = "fragment"
)

// Validate compiles every embedded shader with naga and reports the first failure.
func Validate() error {
	for _, s := range []struct {
		name string
		code string
	}{
		{"fullscreen", FullscreenWGSL},
		{"lighting", LightingWGSL},
	} {
		if _, err := naga.Compile(s.code); err != nil {
			return fmt.Errorf("shaders: compile %s: %w", s.name, err)
		}
	}
	return nil
}
