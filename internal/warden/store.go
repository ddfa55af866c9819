package warden

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/layout"
	"github.com/google/go-containerregistry/pkg/v1/match"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
)

// refAnnotation is the OCI annotation under which the store indexes images.
const refAnnotation = "org.opencontainers.image.ref.name"

// Media types under which registries distribute WebAssembly modules.
const (
	mediaTypeWasm      types.MediaType = "application/wasm"
	mediaTypeWasmLayer types.MediaType = "application/vnd.wasm.content.layer.v1+wasm"
)

// Store is the local OCI layout directory where pulled workload bundles are
// kept, indexed by reference name.
type Store struct {
	path layout.Path
}

// OpenStore opens the bundle store at the location configured in c, creating
// an empty store on first use.
func OpenStore(c *Config) (*Store, error) {
	dir, err := c.StorePath()
	if err != nil {
		return nil, err
	}
	if err := createDirectory(dir); err != nil {
		return nil, err
	}
	path, err := layout.FromPath(dir)
	if err != nil {
		if path, err = layout.Write(dir, empty.Index); err != nil {
			return nil, err
		}
	}
	return &Store{path: path}, nil
}

// Pull fetches an image from a registry and records it in the store under its
// reference name, replacing any image previously recorded under that name.
func (s *Store) Pull(ctx context.Context, refName string) error {
	ref, err := name.ParseReference(refName)
	if err != nil {
		return err
	}
	img, err := remote.Image(ref,
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
		remote.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	return s.path.ReplaceImage(img,
		match.Annotation(refAnnotation, ref.Name()),
		layout.WithAnnotations(map[string]string{refAnnotation: ref.Name()}),
	)
}

// Image returns the image recorded in the store under the given reference.
func (s *Store) Image(refName string) (v1.Image, error) {
	ref, err := name.ParseReference(refName)
	if err != nil {
		return nil, err
	}
	index, err := s.path.ImageIndex()
	if err != nil {
		return nil, err
	}
	manifest, err := index.IndexManifest()
	if err != nil {
		return nil, err
	}
	for _, desc := range manifest.Manifests {
		if desc.Annotations[refAnnotation] == ref.Name() {
			return s.path.Image(desc.Digest)
		}
	}
	return nil, fmt.Errorf("bundle store: %s: %w", refName, fs.ErrNotExist)
}

// Bundle returns the workload bundle carried by the stored image. The bundle
// is taken from the image's wasm layer when one is present; images built as
// file systems are scanned for a .wasm file instead.
func (s *Store) Bundle(refName string) ([]byte, error) {
	img, err := s.Image(refName)
	if err != nil {
		return nil, err
	}
	layers, err := img.Layers()
	if err != nil {
		return nil, err
	}
	for _, layer := range layers {
		mediaType, err := layer.MediaType()
		if err != nil {
			return nil, err
		}
		switch mediaType {
		case mediaTypeWasm, mediaTypeWasmLayer:
			return readAllClose(layer.Compressed())
		}
	}
	for _, layer := range layers {
		code, err := wasmFromLayer(layer)
		if err != nil {
			return nil, err
		}
		if code != nil {
			return code, nil
		}
	}
	return nil, fmt.Errorf("%s: image carries no wasm module", refName)
}

// wasmFromLayer scans a file system layer for the first .wasm entry.
func wasmFromLayer(layer v1.Layer) ([]byte, error) {
	r, err := layer.Uncompressed()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	reader := tar.NewReader(r)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if header.Typeflag == tar.TypeReg && strings.HasSuffix(header.Name, ".wasm") {
			return io.ReadAll(reader)
		}
	}
}

func readAllClose(r io.ReadCloser, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
