package card

import (
	"fmt"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

type fontSet struct {
	label  text.Face
	value  text.Face
	school text.Face
}

// The Go fonts are embedded, so parsing happens once per process.
var loadFonts = sync.OnceValues(func() (*fontSet, error) {
	regular, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("card: load regular font: %w", err)
	}
	bold, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("card: load bold font: %w", err)
	}
	return &fontSet{
		label:  bold.Face(labelSize),
		value:  regular.Face(valueSize),
		school: bold.Face(schoolSize),
	}, nil
})
