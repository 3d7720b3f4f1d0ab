package rimage

import (
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// WriteImageToFile writes the image to a file, picking the encoder from the extension. The
// file is written next to its destination and renamed into place so a reader polling the
// path never sees a partial image.
func WriteImageToFile(path string, img image.Image) error {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return errors.Wrapf(err, "cannot write image to %q", path)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".camclassify-*"+filepath.Ext(path))
	if err != nil {
		return errors.Wrapf(err, "cannot write image to %q", path)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if err := imaging.Encode(tmp, img, format, imaging.JPEGQuality(90)); err != nil {
		tmp.Close() //nolint:errcheck,gosec
		return errors.Wrapf(err, "encoding %s", path)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// ReadImageFromFile decodes the image at path.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read image %q", path)
	}
	return img, nil
}
