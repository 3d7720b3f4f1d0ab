package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/camclassify/camclassify/ml/inference"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.ModelFile, test.ShouldEqual, "mobilenet_v1_1.0_224_quant.tflite")
	test.That(t, cfg.LabelFile, test.ShouldEqual, "labels.txt")
	test.That(t, cfg.InputMean, test.ShouldEqual, 127.5)
	test.That(t, cfg.InputStd, test.ShouldEqual, 127.5)
	test.That(t, cfg.Camera.DeviceIndex, test.ShouldEqual, 0)
	test.That(t, cfg.Camera.Width, test.ShouldEqual, 1920)
	test.That(t, cfg.Camera.Height, test.ShouldEqual, 1080)
	test.That(t, cfg.Camera.FrameRate, test.ShouldEqual, float32(30))
	test.That(t, cfg.Camera.Autofocus, test.ShouldBeFalse)
	test.That(t, cfg.TopK, test.ShouldEqual, 5)
	test.That(t, cfg.Timing, test.ShouldBeTrue)

	spec, err := cfg.DelegateSpec()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec, test.ShouldBeNil)

	pc := cfg.PipelineConfig()
	test.That(t, pc.TopK, test.ShouldEqual, 5)
	test.That(t, pc.InputStd, test.ShouldEqual, 127.5)
	test.That(t, pc.Timing, test.ShouldBeTrue)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"no model":     func(c *Config) { c.ModelFile = "" },
		"no labels":    func(c *Config) { c.LabelFile = "" },
		"threads":      func(c *Config) { c.NumThreads = -1 },
		"top k":        func(c *Config) { c.TopK = 0 },
		"min score":    func(c *Config) { c.MinScore = 1.5 },
		"failures":     func(c *Config) { c.MaxConsecutiveFailures = -1 },
		"two sources":  func(c *Config) { c.FakeCamera = true; c.ImageFile = "x.png" },
		"camera":       func(c *Config) { c.Camera.Width = -5 },
		"bad delegate": func(c *Config) { c.ExtDelegate = "libvx.so"; c.ExtDelegateOptions = "a:1;bad" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			test.That(t, cfg.Validate(), test.ShouldNotBeNil)
		})
	}

	// input_std is only checked once the model type is known
	cfg := Default()
	cfg.InputStd = 0
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	cfg = Default()
	cfg.ExtDelegate = "libvx_delegate.so"
	cfg.ExtDelegateOptions = "a:1;bad"
	test.That(t, errors.Is(cfg.Validate(), inference.ErrMalformedDelegateOption), test.ShouldBeTrue)
}

func TestFromReader(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(`{
		"model_file": "mobilenet_v2.tflite",
		"ext_delegate": "/usr/lib/libvx_delegate.so",
		"ext_delegate_options": "cache_file_path: /tmp/vx.nb; allowed_cache_mode: true",
		"camera": {"device_index": 2, "width_px": 640, "height_px": 480},
		"top_k": 3
	}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ModelFile, test.ShouldEqual, "mobilenet_v2.tflite")
	test.That(t, cfg.LabelFile, test.ShouldEqual, DefaultLabelFile)
	test.That(t, cfg.Camera.DeviceIndex, test.ShouldEqual, 2)
	test.That(t, cfg.Camera.Width, test.ShouldEqual, 640)
	test.That(t, cfg.TopK, test.ShouldEqual, 3)
	test.That(t, cfg.Timing, test.ShouldBeTrue)

	spec, err := cfg.DelegateSpec()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec.LibraryPath, test.ShouldEqual, "/usr/lib/libvx_delegate.so")
	v, ok := spec.Get("cache_file_path")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, "/tmp/vx.nb")

	_, err = FromReader(strings.NewReader(`{"modle_file": "typo.tflite"}`))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = FromReader(strings.NewReader(`{"top_k": -1}`))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadExpandsEnvironment(t *testing.T) {
	t.Setenv("CAMCLASSIFY_TEST_MODEL", "from_env.tflite")
	path := filepath.Join(t.TempDir(), "config.json")
	test.That(t, os.WriteFile(path, []byte(`{"model_file": "${CAMCLASSIFY_TEST_MODEL}"}`), 0o600), test.ShouldBeNil)

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ModelFile, test.ShouldEqual, "from_env.tflite")

	_, err = Read(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
