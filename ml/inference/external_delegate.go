//go:build !no_tflite && !no_cgo

package inference

/*
#cgo LDFLAGS: -ltensorflowlite_c
#include <stdlib.h>
#include <tensorflow/lite/delegates/external/external_delegate.h>

static TfLiteDelegate* create_external_delegate(const char* path, char** keys, char** values, int n) {
	TfLiteExternalDelegateOptions opts = TfLiteExternalDelegateOptionsDefault(path);
	for (int i = 0; i < n; i++) {
		if (opts.insert(&opts, keys[i], values[i]) != kTfLiteOk) {
			return NULL;
		}
	}
	return TfLiteExternalDelegateCreate(&opts);
}
*/
import "C"

import (
	"unsafe"

	"github.com/pkg/errors"
)

// maxDelegateOptions mirrors kMaxOptions in external_delegate.h.
const maxDelegateOptions = 256

// ExternalDelegate is an accelerator delegate loaded from a shared library. It satisfies the
// go-tflite delegates.Delegater interface so it can be added to interpreter options.
type ExternalDelegate struct {
	d *C.TfLiteDelegate
}

// NewExternalDelegate loads spec.LibraryPath and passes the options in insertion order.
func NewExternalDelegate(spec *DelegateSpec) (*ExternalDelegate, error) {
	if spec == nil {
		return nil, errors.New("no delegate spec")
	}
	opts := spec.Options()
	if len(opts) > maxDelegateOptions {
		return nil, errors.Errorf("too many delegate options (%d > %d)", len(opts), maxDelegateOptions)
	}

	cPath := C.CString(spec.LibraryPath)
	defer C.free(unsafe.Pointer(cPath))

	n := len(opts)
	ptrSize := C.size_t(unsafe.Sizeof(uintptr(0)))
	keysPtr := (**C.char)(C.malloc(C.size_t(n+1) * ptrSize))
	valuesPtr := (**C.char)(C.malloc(C.size_t(n+1) * ptrSize))
	defer C.free(unsafe.Pointer(keysPtr))
	defer C.free(unsafe.Pointer(valuesPtr))
	keys := unsafe.Slice(keysPtr, n+1)
	values := unsafe.Slice(valuesPtr, n+1)
	for i, o := range opts {
		keys[i] = C.CString(o.Key)
		values[i] = C.CString(o.Value)
	}
	defer func() {
		for i := 0; i < n; i++ {
			C.free(unsafe.Pointer(keys[i]))
			C.free(unsafe.Pointer(values[i]))
		}
	}()

	d := C.create_external_delegate(cPath, keysPtr, valuesPtr, C.int(n))
	if d == nil {
		return nil, errors.Errorf("could not create external delegate from %s", spec.LibraryPath)
	}
	return &ExternalDelegate{d: d}, nil
}

// Delete releases the delegate. It must only be called after the interpreter using it is deleted.
func (e *ExternalDelegate) Delete() {
	if e.d != nil {
		C.TfLiteExternalDelegateDelete(e.d)
		e.d = nil
	}
}

// Ptr returns the underlying TfLiteDelegate.
func (e *ExternalDelegate) Ptr() unsafe.Pointer {
	return unsafe.Pointer(e.d)
}
