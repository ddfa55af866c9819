// Package virtfs builds read-only, in-memory file systems from tar archives.
//
// The content of every file is a span of a shared Buffer holding the decoded
// archive bytes, so constructing the tree copies the archive once no matter
// how many files it contains. Trees are immutable after construction and safe
// for concurrent use.
package virtfs

import (
	"archive/tar"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// A Node is an entry of the file system, either a *Dir or a *File.
type Node interface {
	node()
}

// Dir is a directory node holding named children.
type Dir struct {
	children map[string]Node
}

// File is a regular file node referencing a span of a shared buffer.
type File struct {
	buffer *Buffer
	offset int64
	size   int64
}

func (*Dir) node()  {}
func (*File) node() {}

func newDir() *Dir {
	return &Dir{children: make(map[string]Node)}
}

// Child returns the child node with the given name.
func (d *Dir) Child(name string) (Node, bool) {
	child, ok := d.children[name]
	return child, ok
}

// Names returns the sorted names of the directory entries.
func (d *Dir) Names() []string {
	names := maps.Keys(d.children)
	slices.Sort(names)
	return names
}

// Len returns the number of directory entries.
func (d *Dir) Len() int { return len(d.children) }

// Size returns the number of content bytes of the file.
func (f *File) Size() int64 { return f.size }

// Data returns the entire file content as a view of the shared buffer. The
// returned slice must not be modified.
func (f *File) Data() []byte {
	return f.buffer.slice(f.offset, f.size)
}

// ReadAt reads from the file content at the given offset, implementing
// io.ReaderAt. Reads at or past the end of the file return io.EOF.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errNegativeOffset
	}
	if off >= f.size {
		return 0, io.EOF
	}
	n := copy(p, f.Data()[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Open returns an independent read cursor over the file content.
func (f *File) Open() *io.SectionReader {
	return io.NewSectionReader(f.buffer, f.offset, f.size)
}

// FS is a read-only file system assembled from archive snapshots.
type FS struct {
	root *Dir
}

// New returns an empty file system.
func New() *FS {
	return &FS{root: newDir()}
}

// Build returns a file system holding the content of the given tar archive.
// The archive may be compressed with gzip or zstd; compression is detected
// from the leading bytes.
func Build(archive []byte) (*FS, error) {
	fsys := New()
	if err := fsys.AddArchive(archive); err != nil {
		return nil, err
	}
	return fsys, nil
}

// AddArchive replays one more tar archive into the file system. The archive
// data is copied once into a buffer shared by every file it contains. Entries
// apply in order: a file entry replaces an earlier file at the same path, but
// an entry that would turn a file into a directory (or the reverse) fails.
func (fsys *FS) AddArchive(archive []byte) error {
	data, err := decompress(archive)
	if err != nil {
		return err
	}
	buffer := newBuffer(data)
	section := io.NewSectionReader(buffer, 0, int64(buffer.Len()))
	reader := tar.NewReader(section)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}
		// The tar reader consumes exactly the header blocks, leaving the
		// section positioned on the first content byte of the entry.
		offset, err := section.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeReg:
			err = fsys.addFile(header.Name, &File{buffer: buffer, offset: offset, size: header.Size})
		case tar.TypeDir:
			err = fsys.addDir(header.Name)
		case tar.TypeXGlobalHeader:
			// Ignored; git archive prepends one of these.
		default:
			err = fmt.Errorf("%s: unsupported archive entry type %q", header.Name, header.Typeflag)
		}
		if err != nil {
			return err
		}
	}
}

// Root returns the root directory of the file system.
func (fsys *FS) Root() *Dir { return fsys.root }

// Lookup resolves a slash-separated path to a node. The empty path and "/"
// resolve to the root directory.
func (fsys *FS) Lookup(name string) (Node, bool) {
	clean := path.Clean(strings.TrimPrefix(name, "/"))
	if clean == "." {
		return fsys.root, true
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, false
	}
	node := Node(fsys.root)
	for _, elem := range strings.Split(clean, "/") {
		dir, ok := node.(*Dir)
		if !ok {
			return nil, false
		}
		if node, ok = dir.children[elem]; !ok {
			return nil, false
		}
	}
	return node, true
}

// makePath walks to the parent directory of the named archive entry, creating
// intermediate directories as needed, and returns it along with the base name
// of the entry. The base name is "." when the entry is the root itself.
func (fsys *FS) makePath(name string) (*Dir, string, error) {
	clean := path.Clean(strings.TrimPrefix(name, "/"))
	if clean == "." {
		return fsys.root, ".", nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, "", fmt.Errorf("%s: archive path escapes the root", name)
	}
	dir := fsys.root
	elems := strings.Split(clean, "/")
	for _, elem := range elems[:len(elems)-1] {
		child, ok := dir.children[elem]
		if !ok {
			sub := newDir()
			dir.children[elem] = sub
			dir = sub
			continue
		}
		sub, ok := child.(*Dir)
		if !ok {
			return nil, "", fmt.Errorf("%s: path segment %q is a file", name, elem)
		}
		dir = sub
	}
	return dir, elems[len(elems)-1], nil
}

func (fsys *FS) addFile(name string, file *File) error {
	dir, base, err := fsys.makePath(name)
	if err != nil {
		return err
	}
	if base == "." {
		return fmt.Errorf("%s: invalid file name", name)
	}
	if _, ok := dir.children[base].(*Dir); ok {
		return fmt.Errorf("%s: file entry replaces a directory", name)
	}
	dir.children[base] = file
	return nil
}

func (fsys *FS) addDir(name string) error {
	dir, base, err := fsys.makePath(name)
	if err != nil {
		return err
	}
	if base == "." {
		return nil
	}
	switch dir.children[base].(type) {
	case nil:
		dir.children[base] = newDir()
	case *Dir:
		// Already materialized, possibly as an implied parent.
	case *File:
		return fmt.Errorf("%s: directory entry replaces a file", name)
	}
	return nil
}
