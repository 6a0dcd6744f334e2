package bridge

import (
	"strings"
	"unsafe"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"github.com/wippyai/geobridge"
	"github.com/wippyai/geobridge/errors"
)

// NativeString is NUL-terminated text in a block allocated by the core.
type NativeString struct {
	ptr unsafe.Pointer
	n   int
	tag geobridge.AllocatorTag
}

// AdoptNative rebuilds a NativeString from a pointer the host hands back.
func AdoptNative(ptr unsafe.Pointer, tag geobridge.AllocatorTag) NativeString {
	if ptr == nil {
		return NativeString{tag: tag}
	}
	return NativeString{ptr: ptr, n: CStringLen(ptr), tag: tag}
}

func (s NativeString) Ptr() unsafe.Pointer         { return s.ptr }
func (s NativeString) Len() int                    { return s.n }
func (s NativeString) Tag() geobridge.AllocatorTag { return s.tag }
func (s NativeString) IsNull() bool                { return s.ptr == nil }

// String copies the text into Go memory.
func (s NativeString) String() string {
	if s.ptr == nil {
		return ""
	}
	return string(unsafe.Slice((*byte)(s.ptr), s.n))
}

// NewNativeString copies text plus a terminating NUL into a block from alloc.
func NewNativeString(alloc geobridge.Allocator, text string) (NativeString, error) {
	if strings.IndexByte(text, 0) >= 0 {
		return NativeString{}, errors.InvalidInput(errors.PhaseString, "text contains an interior NUL byte")
	}

	size := uintptr(len(text) + 1)
	ptr, err := alloc.Alloc(size, 1)
	if err != nil {
		return NativeString{}, errors.New(errors.PhaseString, errors.KindAllocation).
			Detail("string of %d bytes", len(text)).
			Cause(err).
			Build()
	}
	if ptr == nil {
		return NativeString{}, errors.AllocationFailed(errors.PhaseString, size, 1)
	}

	dst := unsafe.Slice((*byte)(ptr), size)
	copy(dst, text)
	dst[len(text)] = 0
	return NativeString{ptr: ptr, n: len(text), tag: alloc.Tag()}, nil
}

// FreeNativeString releases a string produced by NewNativeString with the same allocator.
func FreeNativeString(alloc geobridge.Allocator, s NativeString) error {
	if s.ptr == nil {
		return nil
	}
	if s.tag != alloc.Tag() {
		return errors.AllocatorMismatch(errors.PhaseString, "", alloc.Tag(), s.tag)
	}
	alloc.Free(s.ptr)
	return nil
}

// ForeignString is text owned by the host. The core may read it only until
// Ingest hands it back through release.
type ForeignString struct {
	f *foreign
}

type foreign struct {
	data    []byte
	release func()
}

// NewForeignString wraps host bytes (without the terminating NUL) and the
// host's release mechanism for them.
func NewForeignString(data []byte, release func()) ForeignString {
	return ForeignString{f: &foreign{data: data, release: release}}
}

// IsNull reports whether the host returned no string at all.
func (s ForeignString) IsNull() bool {
	return s.f == nil || s.f.data == nil
}

// Ingest copies a host string into Go memory and releases the host buffer
// before returning. Ill-formed UTF-8 is replaced with U+FFFD, so Ingest never
// fails on malformed bytes. A ForeignString is released at most once;
// ingesting it again yields "".
func Ingest(s ForeignString) string {
	if s.f == nil {
		return ""
	}
	f := s.f
	data, release := f.data, f.release
	f.data, f.release = nil, nil
	if release != nil {
		defer release()
	}
	return decodeLossy(data)
}

var illFormed = runes.ReplaceIllFormed()

func decodeLossy(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	out, _, err := transform.Bytes(illFormed, data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(out)
}

// CStringLen returns the number of bytes before the first NUL at p.
func CStringLen(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return n
}

// CStringBytes returns a view of the NUL-terminated text at p, without the NUL.
func CStringBytes(p unsafe.Pointer) []byte {
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(p), CStringLen(p))
}
