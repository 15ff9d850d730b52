package ws

import (
	"fmt"

	"github.com/couchcryptid/geo-heat-overlay/internal/domain"
	"github.com/couchcryptid/geo-heat-overlay/internal/globe"
	"github.com/couchcryptid/geo-heat-overlay/internal/heatmap"
	"github.com/couchcryptid/geo-heat-overlay/internal/interaction"
)

// Event types sent to clients.
const (
	EventState          = "state"
	EventHover          = "hover"
	EventSelect         = "select"
	EventTextureRebuilt = "texture_rebuilt"
	EventMetricChanged  = "metric_changed"
	EventError          = "error"
)

// Command types accepted from clients.
const (
	CmdPointerMove  = "pointer_move"
	CmdPointerLeave = "pointer_leave"
	CmdPointerClick = "pointer_click"
	CmdDrag         = "drag"
	CmdZoom         = "zoom"
	CmdResize       = "resize"
	CmdMetric       = "metric"
)

// Event is one server-to-client message. A hover event with a nil sample
// means the pointer left every sample.
type Event struct {
	Type    string               `json:"type"`
	Sample  *domain.Sample       `json:"sample"`
	Tooltip *interaction.Tooltip `json:"tooltip,omitempty"`
	Texture *heatmap.Info        `json:"texture,omitempty"`
	State   *globe.State         `json:"state,omitempty"`
	Kind    string               `json:"kind,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// Command is one client-to-server message. Pointer coordinates are
// normalized device coordinates in [-1, 1] with +Y up.
type Command struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Factor float64 `json:"factor"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Kind   string  `json:"kind"`
}

func (h *Hub) dispatch(cmd Command) error {
	switch cmd.Type {
	case CmdPointerMove:
		if !inNDC(cmd.X, cmd.Y) {
			return fmt.Errorf("pointer (%g, %g) outside [-1, 1]", cmd.X, cmd.Y)
		}
		h.target.Post(func(a *globe.App) { a.PointerMove(cmd.X, cmd.Y) })
	case CmdPointerLeave:
		h.target.Post(func(a *globe.App) { a.PointerLeave() })
	case CmdPointerClick:
		if !inNDC(cmd.X, cmd.Y) {
			return fmt.Errorf("pointer (%g, %g) outside [-1, 1]", cmd.X, cmd.Y)
		}
		h.target.Post(func(a *globe.App) { a.PointerClick(cmd.X, cmd.Y) })
	case CmdDrag:
		h.target.Post(func(a *globe.App) { a.Drag(cmd.DX, cmd.DY) })
	case CmdZoom:
		if cmd.Factor <= 0 {
			return fmt.Errorf("invalid zoom factor %g", cmd.Factor)
		}
		h.target.Post(func(a *globe.App) { a.Zoom(cmd.Factor) })
	case CmdResize:
		if cmd.Width <= 0 || cmd.Height <= 0 {
			return fmt.Errorf("invalid size %dx%d", cmd.Width, cmd.Height)
		}
		h.target.Post(func(a *globe.App) { a.Resize(cmd.Width, cmd.Height) })
	case CmdMetric:
		kind, err := domain.ParseMetricKind(cmd.Kind)
		if err != nil {
			return err
		}
		h.target.Post(func(a *globe.App) { a.SetActiveMetric(kind) })
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	return nil
}

func inNDC(x, y float64) bool {
	return x >= -1 && x <= 1 && y >= -1 && y <= 1
}
