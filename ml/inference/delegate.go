package inference

import (
	"strings"

	"github.com/pkg/errors"
)

// DelegateOption is one key/value pair handed to an external delegate.
type DelegateOption struct {
	Key   string
	Value string
}

// DelegateSpec names an accelerator delegate library and the options it is loaded with.
// Options keep insertion order; setting an existing key replaces its value in place.
type DelegateSpec struct {
	LibraryPath string
	options     []DelegateOption
	index       map[string]int
}

// NewDelegateSpec returns a spec with no options.
func NewDelegateSpec(libraryPath string) *DelegateSpec {
	return &DelegateSpec{LibraryPath: libraryPath, index: map[string]int{}}
}

// Set adds or replaces an option.
func (d *DelegateSpec) Set(key, value string) {
	if d.index == nil {
		d.index = map[string]int{}
	}
	if i, ok := d.index[key]; ok {
		d.options[i].Value = value
		return
	}
	d.index[key] = len(d.options)
	d.options = append(d.options, DelegateOption{Key: key, Value: value})
}

// Get returns the value for key.
func (d *DelegateSpec) Get(key string) (string, bool) {
	i, ok := d.index[key]
	if !ok {
		return "", false
	}
	return d.options[i].Value, true
}

// Options returns a copy of the options in insertion order.
func (d *DelegateSpec) Options() []DelegateOption {
	return append([]DelegateOption(nil), d.options...)
}

// Len returns the number of distinct option keys.
func (d *DelegateSpec) Len() int {
	return len(d.options)
}

func (d *DelegateSpec) String() string {
	var b strings.Builder
	b.WriteString(d.LibraryPath)
	b.WriteString("{")
	for i, o := range d.options {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(o.Key)
		b.WriteString(": ")
		b.WriteString(o.Value)
	}
	b.WriteString("}")
	return b.String()
}

// ParseDelegateSpec builds a DelegateSpec from a library path and a raw options string of
// the form "key1: value1; key2: value2". An empty path means no delegate, and the options
// are then ignored entirely. Each token is split on its first colon, so values may contain
// colons. A token without a colon, or with an empty key, is an ErrMalformedDelegateOption.
func ParseDelegateSpec(libraryPath, rawOptions string) (*DelegateSpec, error) {
	if strings.TrimSpace(libraryPath) == "" {
		return nil, nil
	}
	spec := NewDelegateSpec(libraryPath)
	if rawOptions == "" {
		return spec, nil
	}
	for _, token := range strings.Split(rawOptions, ";") {
		if strings.TrimSpace(token) == "" {
			continue
		}
		key, value, found := strings.Cut(token, ":")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, errors.Wrapf(ErrMalformedDelegateOption, "error parsing delegate option %q", token)
		}
		spec.Set(key, strings.TrimSpace(value))
	}
	return spec, nil
}
