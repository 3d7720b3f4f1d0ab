package rimage

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/camclassify/camclassify/components/camera"
)

// PreprocessConfig describes the model input a frame is shaped into.
type PreprocessConfig struct {
	Width    int
	Height   int
	Floating bool
	// Mean and Std are only used when Floating is set.
	Mean float64
	Std  float64
}

// Validate checks the target size and normalization parameters.
func (c PreprocessConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Errorf("model input size must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Floating && c.Std == 0 {
		return errors.New("input_std must not be zero for a floating point model")
	}
	return nil
}

// Normalize maps one 8 bit channel value to the model's floating point domain.
func Normalize(v, mean, std float64) float32 {
	return float32((v - mean) / std)
}

// FrameToRGBA converts a packed frame to an RGBA image, swapping channels to RGB order.
func FrameToRGBA(f *camera.Frame) (*image.RGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(f.Bounds())
	for i, j := 0, 0; i < len(f.Pix); i, j = i+camera.Channels, j+4 {
		r, g, b := f.Pix[i], f.Pix[i+1], f.Pix[i+2]
		if f.Order == camera.BGR {
			r, b = b, r
		}
		img.Pix[j] = r
		img.Pix[j+1] = g
		img.Pix[j+2] = b
		img.Pix[j+3] = 255
	}
	return img, nil
}

// ImageToUInt8Buffer reads an image into a row-major HWC RGB byte buffer.
func ImageToUInt8Buffer(img image.Image) []uint8 {
	b := img.Bounds()
	out := make([]uint8, 0, b.Dx()*b.Dy()*3)
	if rgba, ok := img.(*image.RGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, y):rgba.PixOffset(b.Max.X, y)]
			for x := 0; x < len(row); x += 4 {
				out = append(out, row[x], row[x+1], row[x+2])
			}
		}
		return out
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			out = append(out, uint8(r>>8), uint8(g>>8), uint8(bl>>8))
		}
	}
	return out
}

// ImageToFloatBuffer reads an image into a row-major HWC RGB float32 buffer with every
// channel normalized by mean and std.
func ImageToFloatBuffer(img image.Image, mean, std float64) []float32 {
	raw := ImageToUInt8Buffer(img)
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = Normalize(float64(v), mean, std)
	}
	return out
}

// Preprocess turns a captured frame into a fresh [1,H,W,3] model input tensor: channels are
// swapped to RGB, the image is resized bilinearly to exactly the target size, and floating
// models get (p - mean) / std as float32. Quantized models get the resized bytes as is.
func Preprocess(f *camera.Frame, conf PreprocessConfig) (*tensor.Dense, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if f == nil || f.Width <= 0 || f.Height <= 0 {
		return nil, errors.New("cannot preprocess an empty frame")
	}
	img, err := FrameToRGBA(f)
	if err != nil {
		return nil, errors.Wrap(err, "cannot preprocess frame")
	}

	var resized image.Image = img
	if f.Width != conf.Width || f.Height != conf.Height {
		resized = resize.Resize(uint(conf.Width), uint(conf.Height), img, resize.Bilinear)
	}

	shape := tensor.WithShape(1, conf.Height, conf.Width, camera.Channels)
	if conf.Floating {
		return tensor.New(shape, tensor.WithBacking(ImageToFloatBuffer(resized, conf.Mean, conf.Std))), nil
	}
	return tensor.New(shape, tensor.WithBacking(ImageToUInt8Buffer(resized))), nil
}
