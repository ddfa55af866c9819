// Package wasmtest assembles the tiny WebAssembly modules used across
// warden's tests. The binaries are built by hand from their sections; a
// handful of audited byte sequences beats a toolchain dependency for modules
// of this size.
package wasmtest

import (
	"encoding/binary"
	"math"
)

// Section ids of the WebAssembly binary format.
const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11
)

// Export kinds.
const (
	kindFunc   = 0x00
	kindMemory = 0x02
)

// ReturnI32 builds a module exporting a ()->i32 function with the given name
// which returns value.
func ReturnI32(export string, value int32) []byte {
	return module(
		section(sectionType, vec(funcType(nil, []byte{i32}))),
		section(sectionFunction, vec(uleb(0))),
		section(sectionExport, vec(exportEntry(export, kindFunc, 0))),
		section(sectionCode, vec(code(i32Const(value)))),
	)
}

// ReturnI64 is like ReturnI32 for a ()->i64 function.
func ReturnI64(export string, value int64) []byte {
	return module(
		section(sectionType, vec(funcType(nil, []byte{i64}))),
		section(sectionFunction, vec(uleb(0))),
		section(sectionExport, vec(exportEntry(export, kindFunc, 0))),
		section(sectionCode, vec(code(i64Const(value)))),
	)
}

// ReturnF32 is like ReturnI32 for a ()->f32 function.
func ReturnF32(export string, value float32) []byte {
	return module(
		section(sectionType, vec(funcType(nil, []byte{f32}))),
		section(sectionFunction, vec(uleb(0))),
		section(sectionExport, vec(exportEntry(export, kindFunc, 0))),
		section(sectionCode, vec(code(f32Const(value)))),
	)
}

// ReturnF64 is like ReturnI32 for a ()->f64 function.
func ReturnF64(export string, value float64) []byte {
	return module(
		section(sectionType, vec(funcType(nil, []byte{f64}))),
		section(sectionFunction, vec(uleb(0))),
		section(sectionExport, vec(exportEntry(export, kindFunc, 0))),
		section(sectionCode, vec(code(f64Const(value)))),
	)
}

// ReturnPair builds a module exporting a ()->(i32,i64) function returning the
// two values, exercising multi-value results.
func ReturnPair(export string, a int32, b int64) []byte {
	return module(
		section(sectionType, vec(funcType(nil, []byte{i32, i64}))),
		section(sectionFunction, vec(uleb(0))),
		section(sectionExport, vec(exportEntry(export, kindFunc, 0))),
		section(sectionCode, vec(code(concat(i32Const(a), i64Const(b))))),
	)
}

// NoExports builds a valid module that exports nothing.
func NoExports() []byte {
	return module(
		section(sectionType, vec(funcType(nil, []byte{i32}))),
		section(sectionFunction, vec(uleb(0))),
		section(sectionCode, vec(code(i32Const(0)))),
	)
}

// Entries builds a module exporting two ()->i32 functions: the anonymous ""
// entry returning defaultValue and "_start" returning startValue.
func Entries(defaultValue, startValue int32) []byte {
	return module(
		section(sectionType, vec(funcType(nil, []byte{i32}))),
		section(sectionFunction, vec(uleb(0), uleb(0))),
		section(sectionExport, vec(
			exportEntry("", kindFunc, 0),
			exportEntry("_start", kindFunc, 1),
		)),
		section(sectionCode, vec(code(i32Const(defaultValue)), code(i32Const(startValue)))),
	)
}

// Exit builds a module whose "" entry calls the WASI proc_exit with code.
func Exit(exitCode int32) []byte {
	return module(
		section(sectionType, vec(
			funcType([]byte{i32}, nil), // 0: proc_exit
			funcType(nil, nil),         // 1: entry
		)),
		section(sectionImport, vec(wasiImport("proc_exit", 0))),
		section(sectionFunction, vec(uleb(1))),
		section(sectionExport, vec(exportEntry("", kindFunc, 1))),
		section(sectionCode, vec(code(concat(
			i32Const(exitCode),
			call(0),
		)))),
	)
}

// ArgsCount builds a module whose ()->i32 entry "" returns the number of
// command line arguments reported by the WASI args_sizes_get function.
func ArgsCount() []byte {
	return module(
		section(sectionType, vec(
			funcType([]byte{i32, i32}, []byte{i32}), // 0: args_sizes_get
			funcType(nil, []byte{i32}),              // 1: entry
		)),
		section(sectionImport, vec(wasiImport("args_sizes_get", 0))),
		section(sectionFunction, vec(uleb(1))),
		section(sectionMemory, vec(limits(1))),
		section(sectionExport, vec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("", kindFunc, 1),
		)),
		section(sectionCode, vec(code(concat(
			i32Const(0), // argc destination
			i32Const(4), // argv buffer size destination
			call(0),
			drop(),
			i32Const(0),
			i32Load(),
		)))),
	)
}

// WriteStdout builds a module whose "" entry writes message to stdout through
// the WASI fd_write function.
//
// Memory layout: the iovec lives at offset 8 and the message at offset 16;
// the written byte count lands at offset 0.
func WriteStdout(message string) []byte {
	seg := concat(
		le32(16),                   // iovec base
		le32(uint32(len(message))), // iovec length
		[]byte(message),
	)
	return module(
		section(sectionType, vec(
			funcType([]byte{i32, i32, i32, i32}, []byte{i32}), // 0: fd_write
			funcType(nil, nil),                                // 1: entry
		)),
		section(sectionImport, vec(wasiImport("fd_write", 0))),
		section(sectionFunction, vec(uleb(1))),
		section(sectionMemory, vec(limits(1))),
		section(sectionExport, vec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("", kindFunc, 1),
		)),
		section(sectionCode, vec(code(concat(
			i32Const(1), // stdout
			i32Const(8), // iovec address
			i32Const(1), // iovec count
			i32Const(0), // written byte count destination
			call(0),
			drop(),
		)))),
		section(sectionData, vec(segment(8, seg))),
	)
}

// EchoStdin builds a module whose "" entry reads up to size bytes from stdin
// and writes whatever was read back to stdout.
//
// Memory layout: byte counts at offsets 0 and 4, the iovec at offset 8, and
// the transfer buffer at offset 16.
func EchoStdin(size int32) []byte {
	seg := concat(
		le32(16),           // iovec base
		le32(uint32(size)), // iovec length
	)
	return module(
		section(sectionType, vec(
			funcType([]byte{i32, i32, i32, i32}, []byte{i32}), // 0: fd_read, fd_write
			funcType(nil, nil),                                // 1: entry
		)),
		section(sectionImport, vec(
			wasiImport("fd_read", 0),
			wasiImport("fd_write", 0),
		)),
		section(sectionFunction, vec(uleb(1))),
		section(sectionMemory, vec(limits(1))),
		section(sectionExport, vec(
			exportEntry("memory", kindMemory, 0),
			exportEntry("", kindFunc, 2),
		)),
		section(sectionCode, vec(code(concat(
			i32Const(0), // stdin
			i32Const(8), // iovec address
			i32Const(1), // iovec count
			i32Const(0), // read byte count destination
			call(0),
			drop(),
			// Shrink the iovec to the number of bytes actually read.
			i32Const(12),
			i32Const(0),
			i32Load(),
			i32Store(),
			i32Const(1), // stdout
			i32Const(8),
			i32Const(1),
			i32Const(4), // written byte count destination
			call(1),
			drop(),
		)))),
		section(sectionData, vec(segment(8, seg))),
	)
}

// Value types.
const (
	i32 = 0x7f
	i64 = 0x7e
	f32 = 0x7d
	f64 = 0x7c
)

func module(sections ...[]byte) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func section(id byte, contents []byte) []byte {
	out := append([]byte{id}, uleb(uint64(len(contents)))...)
	return append(out, contents...)
}

// vec prefixes the concatenation of items with their count.
func vec(items ...[]byte) []byte {
	out := uleb(uint64(len(items)))
	for _, item := range items {
		out = append(out, item...)
	}
	return out
}

func funcType(params, results []byte) []byte {
	out := []byte{0x60}
	out = append(out, uleb(uint64(len(params)))...)
	out = append(out, params...)
	out = append(out, uleb(uint64(len(results)))...)
	return append(out, results...)
}

func name(s string) []byte {
	return append(uleb(uint64(len(s))), s...)
}

func exportEntry(s string, kind byte, index uint64) []byte {
	out := append(name(s), kind)
	return append(out, uleb(index)...)
}

func wasiImport(field string, typeIndex uint64) []byte {
	out := name("wasi_snapshot_preview1")
	out = append(out, name(field)...)
	out = append(out, kindFunc)
	return append(out, uleb(typeIndex)...)
}

func limits(min uint64) []byte {
	return append([]byte{0x00}, uleb(min)...)
}

// code wraps a function body (without locals) into a code section entry.
func code(body []byte) []byte {
	contents := append([]byte{0x00}, body...) // no local groups
	contents = append(contents, 0x0b)         // end
	return append(uleb(uint64(len(contents))), contents...)
}

// segment builds an active data segment for memory 0 at the given offset.
func segment(offset int32, data []byte) []byte {
	out := []byte{0x00}
	out = append(out, i32Const(offset)...)
	out = append(out, 0x0b)
	out = append(out, uleb(uint64(len(data)))...)
	return append(out, data...)
}

func i32Const(v int32) []byte { return append([]byte{0x41}, sleb(int64(v))...) }
func i64Const(v int64) []byte { return append([]byte{0x42}, sleb(v)...) }

func f32Const(v float32) []byte {
	out := make([]byte, 5)
	out[0] = 0x43
	binary.LittleEndian.PutUint32(out[1:], math.Float32bits(v))
	return out
}

func f64Const(v float64) []byte {
	out := make([]byte, 9)
	out[0] = 0x44
	binary.LittleEndian.PutUint64(out[1:], math.Float64bits(v))
	return out
}

func call(index uint64) []byte { return append([]byte{0x10}, uleb(index)...) }
func drop() []byte             { return []byte{0x1a} }
func i32Load() []byte          { return []byte{0x28, 0x02, 0x00} }
func i32Store() []byte         { return []byte{0x36, 0x02, 0x00} }

func uleb(v uint64) []byte {
	return binary.AppendUvarint(nil, v)
}

// sleb encodes a value as signed LEB128.
func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func le32(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)
	return out
}

func concat(chunks ...[]byte) []byte {
	var out []byte
	for _, chunk := range chunks {
		out = append(out, chunk...)
	}
	return out
}
