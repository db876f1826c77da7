package card

// Canvas geometry. All values are pixels on a 1004x638 card, roughly
// 85x54mm at 300 DPI.
const (
	Width  = 1004
	Height = 638

	bandHeight = 118

	logoX      = 10
	logoY      = 9
	logoHeight = 100

	circleX      = Width - 59
	circleY      = 59
	circleRadius = 35

	photoX      = 59
	photoY      = 177
	photoWidth  = 295
	photoHeight = 390

	textX         = photoX + photoWidth + 59
	lineHeight    = 70
	valueOffset   = 35
	valueMaxWidth = Width - textX - 59

	labelSize  = 24
	valueSize  = 24
	schoolSize = 32

	schoolBaseline = Height - 48
	schoolMaxWidth = Width - bandHeight
)

const (
	textColor        = "#000000"
	placeholderColor = "#F0F0F0"
	borderColor      = "#CCCCCC"
)

// Field labels in print order.
const (
	LabelName         = "Nome:"
	LabelRegistration = "Matrícula:"
	LabelGuardian     = "Responsável:"
	LabelClass        = "Turma:"
	LabelAuthorized   = "Autorizados:"
)
