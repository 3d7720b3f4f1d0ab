package inference

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestParseDelegateSpecNoPath(t *testing.T) {
	spec, err := ParseDelegateSpec("", "a:1;b:2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec, test.ShouldBeNil)

	// options are never parsed without a library
	spec, err = ParseDelegateSpec("  ", "garbage")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec, test.ShouldBeNil)
}

func TestParseDelegateSpecOrdered(t *testing.T) {
	spec, err := ParseDelegateSpec("/usr/lib/libvx_delegate.so", "a:1;b:2")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec.LibraryPath, test.ShouldEqual, "/usr/lib/libvx_delegate.so")
	test.That(t, spec.Options(), test.ShouldResemble, []DelegateOption{{"a", "1"}, {"b", "2"}})
	test.That(t, spec.String(), test.ShouldEqual, "/usr/lib/libvx_delegate.so{a: 1, b: 2}")
}

func TestParseDelegateSpecTrimsAndSplitsOnFirstColon(t *testing.T) {
	spec, err := ParseDelegateSpec("lib.so", " backends : GpuAcc,CpuAcc ; cache : /tmp/a:b ;")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec.Options(), test.ShouldResemble, []DelegateOption{
		{"backends", "GpuAcc,CpuAcc"},
		{"cache", "/tmp/a:b"},
	})
	v, ok := spec.Get("cache")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, "/tmp/a:b")
	_, ok = spec.Get("missing")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestParseDelegateSpecLastWins(t *testing.T) {
	spec, err := ParseDelegateSpec("lib.so", "a:1;b:2;a:3")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec.Len(), test.ShouldEqual, 2)
	test.That(t, spec.Options(), test.ShouldResemble, []DelegateOption{{"a", "3"}, {"b", "2"}})
}

func TestParseDelegateSpecMalformed(t *testing.T) {
	for _, raw := range []string{"a:1;bad", "nocolon", ":value", "a:1; ;  b"} {
		spec, err := ParseDelegateSpec("lib.so", raw)
		test.That(t, spec, test.ShouldBeNil)
		test.That(t, errors.Is(err, ErrMalformedDelegateOption), test.ShouldBeTrue)
	}
}

func TestParseDelegateSpecNoOptions(t *testing.T) {
	spec, err := ParseDelegateSpec("lib.so", "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spec.Len(), test.ShouldEqual, 0)
	test.That(t, spec.String(), test.ShouldEqual, "lib.so{}")
}
