// Package buffer owns the padded byte memory backing every parser
// input (§4.A). Every SIMD kernel reads in 64-byte groups; the
// trailing padding lets them read past the logical end without a
// bounds check on every lane, the way the teacher mmaps a whole file
// once in Scanner.NewScanner and never re-checks bounds per worker.
package buffer

import (
	"fmt"
	"io"
	"os"
)

// DefaultPadding is the minimum trailing padding (§4.A: P >= 64).
const DefaultPadding = 64

// AlignedBuffer owns a contiguous byte region of Size() data bytes
// plus trailing zero-filled padding bytes that SIMD kernels may read
// past the logical end without faulting. It is move-only: copying the
// struct is safe, but Close must be called exactly once by the owner.
//
// A memory-mapped AlignedBuffer cannot have its mapping extended with
// padding in place, so mapped buffers keep the padding as a separate,
// always-zero trailer allocation; DataWithPadding stitches the two
// together lazily, once, on first use.
type AlignedBuffer struct {
	data    []byte // mapped or heap-allocated content, exactly size bytes
	tail    []byte // zero-filled padding bytes, always padding long
	size    int
	padding int
	mapped  bool

	combined []byte // lazily built data+tail view for mapped buffers
}

// Allocate creates an AlignedBuffer of size bytes with the requested
// padding, copying nothing. Padding is guaranteed zero-filled because
// Go zero-initializes slices.
func Allocate(size, padding int) (*AlignedBuffer, error) {
	if padding < DefaultPadding {
		padding = DefaultPadding
	}
	if size < 0 {
		return nil, fmt.Errorf("buffer: negative size %d", size)
	}
	full := make([]byte, size+padding)
	return &AlignedBuffer{data: full[:size], tail: full[size:], size: size, padding: padding, combined: full}, nil
}

// LoadFile memory-maps path read-only and pads it with a freshly
// allocated, zero-filled trailer so SIMD kernels can overread safely.
func LoadFile(path string, padding int) (*AlignedBuffer, error) {
	if padding < DefaultPadding {
		padding = DefaultPadding
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("buffer: open %s: %w", path, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("buffer: stat %s: %w", path, err)
	}
	size := int(stat.Size())

	if size == 0 {
		return Allocate(0, padding)
	}

	mapped, err := mmapFile(f, size)
	if err != nil {
		// Fall back to a plain read-with-copy if mmap is unavailable
		// on this platform or for this file — same fallback the
		// teacher's Windows build takes (common.MmapFile -> ReadAll).
		return loadByCopy(f, size, padding)
	}

	return &AlignedBuffer{
		data:    mapped,
		tail:    make([]byte, padding),
		size:    size,
		padding: padding,
		mapped:  true,
	}, nil
}

// loadByCopy reads the whole file into a freshly allocated, padded
// buffer. Used when mmap is unavailable.
func loadByCopy(f *os.File, size, padding int) (*AlignedBuffer, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("buffer: seek: %w", err)
	}
	ab, err := Allocate(size, padding)
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(f, ab.data); err != nil {
		return nil, fmt.Errorf("buffer: read: %w", err)
	}
	return ab, nil
}

// LoadStdin reads all of stdin into a freshly allocated, padded
// buffer. Stdin cannot be mmapped portably, so this always copies.
func LoadStdin(padding int) (*AlignedBuffer, error) {
	if padding < DefaultPadding {
		padding = DefaultPadding
	}
	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("buffer: read stdin: %w", err)
	}
	ab, err := Allocate(len(content), padding)
	if err != nil {
		return nil, err
	}
	copy(ab.data, content)
	return ab, nil
}

// Data returns the logical content bytes, Size() long.
func (b *AlignedBuffer) Data() []byte {
	return b.data
}

// DataWithPadding returns the content bytes followed by Padding()
// zero bytes that SIMD kernels may read without bounds-checking each
// lane.
func (b *AlignedBuffer) DataWithPadding() []byte {
	if !b.mapped {
		return b.combined
	}
	if b.combined == nil {
		b.combined = make([]byte, b.size+b.padding)
		copy(b.combined, b.data)
		// b.tail is already zero-filled; combined[size:] stays zero.
	}
	return b.combined
}

// Size returns the logical content length in bytes.
func (b *AlignedBuffer) Size() int { return b.size }

// Padding returns the guaranteed zero-filled overread length.
func (b *AlignedBuffer) Padding() int { return b.padding }

// Close releases the underlying storage (munmap or GC'd heap memory).
func (b *AlignedBuffer) Close() error {
	if b.mapped {
		return munmapFile(b.data)
	}
	return nil
}
