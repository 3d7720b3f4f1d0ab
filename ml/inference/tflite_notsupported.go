//go:build no_tflite || no_cgo

package inference

import (
	"context"

	"github.com/pkg/errors"

	"github.com/camclassify/camclassify/logging"
)

// LoadTFLite is not available in builds without cgo or TensorFlow Lite.
func LoadTFLite(
	ctx context.Context,
	modelPath string,
	delegate *DelegateSpec,
	numThreads int,
	logger logging.Logger,
) (Session, error) {
	return nil, errors.Wrapf(ErrModelLoad, "cannot load %s: tflite is not supported on this build", modelPath)
}
