// Package bundle reads and writes the custom sections of a WebAssembly binary
// that carry a workload's auxiliary resources.
//
// A bundle is an ordinary WebAssembly module; the extra content rides in named
// custom sections, so engines and tools that do not know about them still load
// the module unchanged.
package bundle

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Names of the custom sections recognized by warden.
const (
	// ArchiveSection holds a tar archive, optionally gzip or zstd compressed,
	// with the file tree exposed to the workload.
	ArchiveSection = ".warden.archive"
	// ManifestSection is reserved for bundle metadata.
	ManifestSection = ".warden.manifest"
)

var (
	magic   = []byte{0x00, 0x61, 0x73, 0x6d}
	version = []byte{0x01, 0x00, 0x00, 0x00}

	// ErrMalformed reports that a byte stream is not a well-formed
	// WebAssembly module container.
	ErrMalformed = errors.New("malformed wasm module")
)

// A Section describes one section of a WebAssembly module.
type Section struct {
	ID      byte   // section id, 0 for custom sections
	Name    string // section name, empty unless ID is 0
	Offset  int64  // offset of the section id byte within the module
	Size    int    // declared size of the section contents
	Payload []byte // section contents; for custom sections, the bytes after the name
}

// A Handler receives the payload of a named custom section. The payload
// aliases the module buffer and must be copied if retained.
type Handler func(payload []byte) error

// Parse walks the sections of a WebAssembly module and invokes the handler
// registered for each named custom section it encounters. Custom sections
// without a handler, and all non-custom sections, are skipped. Only the
// section framing is validated; the module body is left to the engine.
func Parse(module []byte, handlers map[string]Handler) error {
	return walk(module, func(s Section) error {
		if s.ID != 0 {
			return nil
		}
		if handler := handlers[s.Name]; handler != nil {
			return handler(s.Payload)
		}
		return nil
	})
}

// Sections returns the section index of a WebAssembly module.
func Sections(module []byte) ([]Section, error) {
	var sections []Section
	err := walk(module, func(s Section) error {
		sections = append(sections, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sections, nil
}

// Append returns a copy of module with a custom section of the given name and
// payload added at the end. The module framing is validated first, so
// appending to a file which is not a WebAssembly module fails instead of
// producing garbage.
func Append(module []byte, name string, payload []byte) ([]byte, error) {
	if err := walk(module, func(Section) error { return nil }); err != nil {
		return nil, err
	}
	contents := make([]byte, 0, binary.MaxVarintLen32+len(name)+len(payload))
	contents = binary.AppendUvarint(contents, uint64(len(name)))
	contents = append(contents, name...)
	contents = append(contents, payload...)

	out := make([]byte, 0, len(module)+1+binary.MaxVarintLen32+len(contents))
	out = append(out, module...)
	out = append(out, 0) // custom section id
	out = binary.AppendUvarint(out, uint64(len(contents)))
	return append(out, contents...), nil
}

func walk(module []byte, fn func(Section) error) error {
	if !bytes.HasPrefix(module, magic) {
		return fmt.Errorf("%w: bad magic", ErrMalformed)
	}
	if len(module) < 8 || !bytes.Equal(module[4:8], version) {
		return fmt.Errorf("%w: unsupported version", ErrMalformed)
	}
	offset := 8
	for offset < len(module) {
		start := offset
		id := module[offset]
		offset++
		size, n, err := uvarint32(module[offset:])
		if err != nil {
			return fmt.Errorf("%w: section at offset %d: truncated size", ErrMalformed, start)
		}
		offset += n
		if int64(size) > int64(len(module)-offset) {
			return fmt.Errorf("%w: section at offset %d extends past the end of the module", ErrMalformed, start)
		}
		s := Section{
			ID:      id,
			Offset:  int64(start),
			Size:    int(size),
			Payload: module[offset : offset+int(size)],
		}
		offset += int(size)
		if id == 0 {
			nameLen, n, err := uvarint32(s.Payload)
			if err != nil || int64(nameLen) > int64(len(s.Payload)-n) {
				return fmt.Errorf("%w: section at offset %d: truncated name", ErrMalformed, start)
			}
			s.Name = string(s.Payload[n : n+int(nameLen)])
			s.Payload = s.Payload[n+int(nameLen):]
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return nil
}

// uvarint32 decodes an unsigned LEB128 value of at most 32 bits, returning
// the value and the number of bytes read.
func uvarint32(b []byte) (uint32, int, error) {
	v, n := binary.Uvarint(b)
	if n <= 0 || v > math.MaxUint32 {
		return 0, 0, errors.New("invalid uleb128")
	}
	return uint32(v), n, nil
}
