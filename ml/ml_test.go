package ml

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"
)

func TestToFloat64s(t *testing.T) {
	got, err := ToFloat64s([]uint8{0, 255, 128})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []float64{0, 255, 128})

	got, err = ToFloat64s([]float32{0.5, 0.25})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, []float64{0.5, 0.25})

	in := []float64{1, 2}
	got, err = ToFloat64s(in)
	test.That(t, err, test.ShouldBeNil)
	got[0] = 9
	test.That(t, in[0], test.ShouldEqual, 1.)

	_, err = ToFloat64s("nope")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestIsFloating(t *testing.T) {
	q := tensor.New(tensor.WithShape(1, 3), tensor.WithBacking([]uint8{1, 2, 3}))
	f := tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]float32{1, 2}))
	test.That(t, IsFloating(q), test.ShouldBeFalse)
	test.That(t, IsFloating(f), test.ShouldBeTrue)
}

func writeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.txt")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestLoadLabels(t *testing.T) {
	labels, err := LoadLabels(writeFile(t, "background\n tench \n\ngoldfish\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldResemble, []string{"background", "tench", "", "goldfish"})

	// commas belong to the label, one line is one class
	labels, err = LoadLabels(writeFile(t, "tench, Tinca tinca\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldResemble, []string{"tench, Tinca tinca"})

	_, err = LoadLabels(writeFile(t, ""))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)
}
