package main

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	wasmbundle "github.com/wardenrun/warden/internal/bundle"
	"github.com/wardenrun/warden/internal/human"
	"github.com/wardenrun/warden/internal/warden"
)

const bundleUsage = `
Usage:	warden bundle [options] -o <output> [--] <module> [resources...]

   The bundle command packages a WebAssembly module together with the files
   the workload is allowed to see. Each resource is a file or directory
   archived at the root of the workload file system under its base name; a
   config.yaml resource declares the stdio policy.

   The archive rides in a custom section, so the output stays a standard
   WebAssembly binary that any engine can load.

Example:

   $ warden bundle -o app.wasm -z zstd module.wasm config.yaml assets/

Options:
   -c, --config path    Path to the warden configuration file (overrides WARDENCONFIG)
   -h, --help           Show this usage information
   -o, --output path    Path where the bundle is written
   -z, --compress type  Compression applied to the archive, one of none, gzip, zstd (default to none)
`

func bundle(ctx context.Context, args []string) error {
	var (
		output   human.Path
		compress = compression("none")
	)

	flagSet := newFlagSet("warden bundle", bundleUsage)
	customVar(flagSet, &output, "o", "output")
	customVar(flagSet, &compress, "z", "compress")

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	args = flagSet.Args()
	if len(args) == 0 {
		return errors.New("missing module argument")
	}
	if output == "" {
		return errors.New("missing output path, use -o")
	}

	code, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	sections, err := wasmbundle.Sections(code)
	if err != nil {
		return err
	}
	for _, s := range sections {
		if s.Name == wasmbundle.ArchiveSection {
			return fmt.Errorf("%s: module already carries an archive section", args[0])
		}
	}

	archive, err := buildArchive(args[1:])
	if err != nil {
		return err
	}
	archive, err = compressArchive(archive, compress)
	if err != nil {
		return err
	}
	code, err = wasmbundle.Append(code, wasmbundle.ArchiveSection, archive)
	if err != nil {
		return err
	}

	// Loading the bundle validates the whole chain: section framing, archive
	// replay, and the deployment configuration if one was included.
	if _, err := warden.Load(filepath.Base(string(output)), code); err != nil {
		return fmt.Errorf("bundle validation failed: %w", err)
	}

	return writeFileAtomic(string(output), code)
}

// buildArchive tars the given resources: directories recursively under their
// base name, files at the root.
func buildArchive(resources []string) ([]byte, error) {
	buffer := new(bytes.Buffer)
	tw := tar.NewWriter(buffer)
	for _, resource := range resources {
		resource = filepath.Clean(resource)
		info, err := os.Stat(resource)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := appendFile(tw, resource, filepath.Base(resource), info); err != nil {
				return nil, err
			}
			continue
		}
		root := filepath.Dir(resource)
		err = filepath.WalkDir(resource, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)
			info, err := entry.Info()
			if err != nil {
				return err
			}
			switch {
			case entry.IsDir():
				header, err := tar.FileInfoHeader(info, "")
				if err != nil {
					return err
				}
				header.Name = name + "/"
				return tw.WriteHeader(header)
			case entry.Type().IsRegular():
				return appendFile(tw, path, name, info)
			default:
				// Links and devices have no representation in the workload
				// file system.
				return fmt.Errorf("%s: unsupported file type", path)
			}
		})
		if err != nil {
			return nil, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func appendFile(tw *tar.Writer, path, name string, info fs.FileInfo) error {
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

func compressArchive(archive []byte, format compression) ([]byte, error) {
	switch format {
	case "gzip":
		buffer := new(bytes.Buffer)
		w := gzip.NewWriter(buffer)
		if _, err := w.Write(archive); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	case "zstd":
		buffer := new(bytes.Buffer)
		w, err := zstd.NewWriter(buffer)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(archive); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buffer.Bytes(), nil
	default:
		return archive, nil
	}
}

// writeFileAtomic writes through a temporary file and renames it into place,
// so an interrupted write cannot leave a truncated bundle behind.
func writeFileAtomic(path string, data []byte) error {
	dir, file := filepath.Split(path)
	w, err := os.CreateTemp(dir, "."+file+".*")
	if err != nil {
		return err
	}
	defer os.Remove(w.Name())
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	if err := w.Chmod(0644); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return os.Rename(w.Name(), path)
}
