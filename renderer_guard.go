package light2d

import (
	"fmt"
)

// RendererTag records which lighting backend an App was built with.
type RendererTag struct {
	Backend LightingBackend
}

func (t RendererTag) String() string {
	return "light2d-" + t.Backend.String()
}

// ensureSingleRenderer tags app with backend. Installing a second, different
// backend is a wiring error and panics.
func ensureSingleRenderer(app *App, backend LightingBackend) {
	installed := Resource[RendererTag](app)
	if installed == nil {
		app.addResources(&RendererTag{Backend: backend})
		return
	}
	if installed.Backend != backend {
		msg := fmt.Sprintf("Multiple renderers installed: %s and %s", installed, RendererTag{Backend: backend})
		app.Logger().Errorf("%s", msg)
		panic(msg)
	}
}
