// Package statusicon renders the glucose status badge shown by desktop
// panel integrations. The badge is a rounded square with the current
// value, colored by range status, with a trend arrow underneath.
package statusicon

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"loopremote/internal/models"
)

const (
	statusUrgentLow  = "urgent_low"
	statusUrgentHigh = "urgent_high"
	statusLow        = "low"
	statusHigh       = "high"
)

// Badge sizing
const (
	badgeSize   = 64
	badgeRadius = 16
)

// Renderer draws glucose status badges
type Renderer struct {
	mu         sync.Mutex
	settings   *models.Settings
	lastStatus *models.GlucoseStatus
}

// NewRenderer creates a badge renderer
func NewRenderer(settings *models.Settings) *Renderer {
	return &Renderer{settings: settings}
}

// Render draws a badge for the given status and returns it as PNG bytes
func (r *Renderer) Render(status *models.GlucoseStatus) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastStatus = status

	var valueStr string
	if r.settings.Unit == "mmol/L" {
		valueStr = fmt.Sprintf("%.1f", status.ValueMmol)
	} else {
		valueStr = fmt.Sprintf("%d", status.Value)
	}

	return r.draw(valueStr, status.Direction)
}

// RenderPlaceholder draws a badge with literal text and no arrow, used
// before the first reading arrives or on fetch errors
func (r *Renderer) RenderPlaceholder(text string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.draw(text, "")
}

// RenderToFile renders the status badge and writes it to path. Panel
// widgets watch this file.
func (r *Renderer) RenderToFile(status *models.GlucoseStatus, path string) error {
	data, err := r.Render(status)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// draw renders the badge. Caller holds the lock.
func (r *Renderer) draw(text string, direction string) ([]byte, error) {
	dc := gg.NewContext(badgeSize, badgeSize)

	// Transparent background
	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()

	red, green, blue := parseHexColor(r.statusColor())
	dc.SetRGB255(int(red), int(green), int(blue))
	dc.DrawRoundedRectangle(0, 0, badgeSize, badgeSize, badgeRadius)
	dc.Fill()

	// Black or white text depending on background brightness
	brightness := (int(red)*299 + int(green)*587 + int(blue)*114) / 1000
	if brightness > 128 {
		dc.SetColor(color.Black)
	} else {
		dc.SetColor(color.White)
	}

	if err := loadFont(dc, 34); err != nil {
		return nil, fmt.Errorf("loading badge font: %w", err)
	}
	dc.DrawStringAnchored(text, badgeSize/2, badgeSize/2-12, 0.5, 0.5)

	if direction != "" {
		drawArrow(dc, badgeSize/2, badgeSize-16, 24, direction)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encoding badge: %w", err)
	}
	return buf.Bytes(), nil
}

// loadFont helper to load font safely
func loadFont(dc *gg.Context, size float64) error {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	face := truetype.NewFace(font, &truetype.Options{Size: size})
	dc.SetFontFace(face)
	return nil
}

// drawArrow draws a vector arrow based on direction
func drawArrow(dc *gg.Context, x, y, size float64, direction string) {
	dc.Push()
	defer dc.Pop()

	dc.Translate(x, y)

	var angle float64
	switch direction {
	case "DoubleUp", "SingleUp":
		angle = 0
	case "FortyFiveUp":
		angle = 45
	case "Flat":
		angle = 90
	case "FortyFiveDown":
		angle = 135
	case "DoubleDown", "SingleDown":
		angle = 180
	default:
		return // No arrow
	}

	dc.Rotate(gg.Radians(angle))

	halfSize := size / 2

	if direction == "DoubleUp" || direction == "DoubleDown" {
		drawSingleArrow(dc, 0, -halfSize/2, size*0.8)
		drawSingleArrow(dc, 0, halfSize/2, size*0.8)
	} else {
		drawSingleArrow(dc, 0, 0, size)
	}
}

func drawSingleArrow(dc *gg.Context, ox, oy, s float64) {
	w := s * 0.5

	dc.NewSubPath() // Tip
	dc.MoveTo(ox, oy-s/2)
	dc.LineTo(ox+w/2, oy)
	dc.LineTo(ox+w/6, oy)
	dc.LineTo(ox+w/6, oy+s/2)
	dc.LineTo(ox-w/6, oy+s/2)
	dc.LineTo(ox-w/6, oy)
	dc.LineTo(ox-w/2, oy)
	dc.ClosePath()
	dc.Fill()
}

// statusColor returns the badge color for the last known status.
// Caller holds the lock.
func (r *Renderer) statusColor() string {
	if r.lastStatus == nil {
		return "#808080" // Gray for unknown
	}

	// Stale data shows gray regardless of range
	if r.lastStatus.StaleMinutes > 7 {
		return "#9ca3af"
	}

	switch r.lastStatus.Status {
	case statusUrgentLow, statusUrgentHigh:
		return "#ef4444" // Red
	case statusLow:
		return "#f97316" // Orange
	case statusHigh:
		return "#facc15" // Yellow
	default:
		return "#4ade80" // Green
	}
}

// parseHexColor parses a hex color string to RGB values
func parseHexColor(hex string) (r, g, b byte) {
	if len(hex) == 7 && hex[0] == '#' {
		_, _ = fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	}
	return
}

// UpdateSettings updates the settings reference
func (r *Renderer) UpdateSettings(settings *models.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = settings
}
