package virtfs

import (
	"errors"
	"io"
	"io/fs"
	"path"
	"time"
)

var errIsDirectory = errors.New("is a directory")

// Open implements fs.FS, making the tree mountable anywhere a standard
// read-only file system is accepted.
func (fsys *FS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	node, ok := fsys.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	switch n := node.(type) {
	case *Dir:
		return &openDir{name: name, dir: n}, nil
	case *File:
		return &openFile{name: name, file: n, section: n.Open()}, nil
	default:
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
}

// openFile is a read cursor over a file node. It implements fs.File along
// with io.ReaderAt and io.Seeker so hosts can use positional reads.
type openFile struct {
	name    string
	file    *File
	section *io.SectionReader
}

func (f *openFile) Stat() (fs.FileInfo, error) {
	return fileInfo{name: f.name, size: f.file.size}, nil
}

func (f *openFile) Read(p []byte) (int, error) {
	return f.section.Read(p)
}

func (f *openFile) ReadAt(p []byte, off int64) (int, error) {
	return f.file.ReadAt(p, off)
}

func (f *openFile) Seek(offset int64, whence int) (int64, error) {
	return f.section.Seek(offset, whence)
}

func (f *openFile) Close() error { return nil }

// openDir is an open directory handle implementing fs.ReadDirFile.
type openDir struct {
	name   string
	dir    *Dir
	names  []string
	opened bool
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return dirInfo{name: d.name}, nil
}

func (d *openDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: errIsDirectory}
}

func (d *openDir) Close() error { return nil }

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.opened {
		d.opened = true
		d.names = d.dir.Names()
	}
	count := len(d.names)
	if n > 0 && count > n {
		count = n
	}
	entries := make([]fs.DirEntry, 0, count)
	for _, name := range d.names[:count] {
		child, _ := d.dir.Child(name)
		entries = append(entries, dirEntry{name: name, node: child})
	}
	d.names = d.names[count:]
	if n > 0 && len(entries) == 0 {
		return entries, io.EOF
	}
	return entries, nil
}

type fileInfo struct {
	name string
	size int64
}

func (info fileInfo) Name() string       { return path.Base(info.name) }
func (info fileInfo) Size() int64        { return info.size }
func (info fileInfo) Mode() fs.FileMode  { return 0444 }
func (info fileInfo) ModTime() time.Time { return time.Time{} }
func (info fileInfo) IsDir() bool        { return false }
func (info fileInfo) Sys() any           { return nil }

type dirInfo struct {
	name string
}

func (info dirInfo) Name() string       { return path.Base(info.name) }
func (info dirInfo) Size() int64        { return 0 }
func (info dirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0555 }
func (info dirInfo) ModTime() time.Time { return time.Time{} }
func (info dirInfo) IsDir() bool        { return true }
func (info dirInfo) Sys() any           { return nil }

type dirEntry struct {
	name string
	node Node
}

func (e dirEntry) Name() string { return e.name }

func (e dirEntry) IsDir() bool {
	_, ok := e.node.(*Dir)
	return ok
}

func (e dirEntry) Type() fs.FileMode {
	if e.IsDir() {
		return fs.ModeDir
	}
	return 0
}

func (e dirEntry) Info() (fs.FileInfo, error) {
	if f, ok := e.node.(*File); ok {
		return fileInfo{name: e.name, size: f.size}, nil
	}
	return dirInfo{name: e.name}, nil
}
