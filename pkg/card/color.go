package card

import (
	"image/color"

	"github.com/noah-isme/student-card-api/internal/models"
)

var (
	colorGreen  = color.RGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 0xFF}
	colorYellow = color.RGBA{R: 0xFF, G: 0xC1, B: 0x07, A: 0xFF}
	colorRed    = color.RGBA{R: 0xF4, G: 0x43, B: 0x36, A: 0xFF}
)

// StatusColor returns the band colour for a status. Unknown values are green.
func StatusColor(status models.StudentStatus) color.RGBA {
	switch status {
	case models.StatusYellow:
		return colorYellow
	case models.StatusRed:
		return colorRed
	default:
		return colorGreen
	}
}
