package rimage

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// Colors used for annotations.
var (
	Green = color.NRGBA{R: 0, G: 255, B: 0, A: 255}
	Black = color.NRGBA{R: 0, G: 0, B: 0, A: 160}
)

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// DrawRectangleEmpty draws the given rectangle into the context. The positions of the
// rectangle are used to place it within the context.
func DrawRectangleEmpty(dc *gg.Context, r image.Rectangle, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()
}

// Label is one line of annotation text.
type Label struct {
	Text  string
	Score float64
}

func (l Label) String() string {
	return fmt.Sprintf("%s: %.2f", l.Text, l.Score)
}

// Annotate returns a copy of img with the labels listed in the top left corner over a
// translucent backdrop, largest first.
func Annotate(img image.Image, labels []Label) image.Image {
	dc := gg.NewContextForImage(img)
	if len(labels) == 0 {
		return dc.Image()
	}
	size := float64(img.Bounds().Dy()) / 24
	if size < 10 {
		size = 10
	}
	lineHeight := int(size * 1.4)
	widest := 0.0
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	for _, l := range labels {
		if w, _ := dc.MeasureString(l.String()); w > widest {
			widest = w
		}
	}
	pad := int(size / 2)
	box := image.Rect(0, 0, int(widest)+2*pad, lineHeight*len(labels)+2*pad)
	dc.SetColor(Black)
	dc.DrawRectangle(0, 0, float64(box.Dx()), float64(box.Dy()))
	dc.Fill()
	DrawRectangleEmpty(dc, box, Green, 2)

	for i, l := range labels {
		DrawString(dc, l.String(), image.Pt(pad, pad+i*lineHeight), Green, size)
	}
	return dc.Image()
}
