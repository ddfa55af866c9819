package warden

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wardenrun/warden/internal/virtfs"
	"gopkg.in/yaml.v3"
)

// DeployConfigPath is the well-known path of the deployment configuration
// inside a workload's file system.
const DeployConfigPath = "config.yaml"

// DeployConfig is the declarative per-workload configuration, resolved from
// the bundle's file system once per execution and immutable afterwards.
type DeployConfig struct {
	Stdio StdioPolicy `yaml:"stdio" json:"stdio"`
}

// StdioPolicy declares where each standard stream of the workload comes from
// or goes to. The zero value discards everything.
type StdioPolicy struct {
	Stdin  InputPolicy  `yaml:"stdin" json:"stdin"`
	Stdout OutputPolicy `yaml:"stdout" json:"stdout"`
	Stderr OutputPolicy `yaml:"stderr" json:"stderr"`
}

// StreamKind enumerates the sources and sinks a standard stream can bind to.
type StreamKind int8

const (
	// StreamNull discards output and presents an immediate end-of-stream on
	// input. This is the default for all three streams.
	StreamNull StreamKind = iota
	// StreamInherit connects the stream to the corresponding stream of the
	// host process.
	StreamInherit
	// StreamBundle reads input from a file of the workload's file system.
	StreamBundle
	// StreamFile connects the stream to a host file, created and truncated
	// first when the stream is an output.
	StreamFile
)

// InputPolicy declares the source of the workload's stdin.
//
// The textual form is one of "null", "inherit", "bundle:<path>", or
// "file:<path>"; the type implements flag.Value so command line flags and
// configuration files share the syntax.
type InputPolicy struct {
	Kind StreamKind
	Path string
}

// OutputPolicy declares the destination of the workload's stdout or stderr.
// The textual form is one of "null", "inherit", or "file:<path>".
type OutputPolicy struct {
	Kind StreamKind
	Path string
}

func (p InputPolicy) String() string  { return policyString(p.Kind, p.Path) }
func (p OutputPolicy) String() string { return policyString(p.Kind, p.Path) }

func (p *InputPolicy) Set(value string) error {
	kind, path, err := parsePolicy(value, true)
	if err != nil {
		return err
	}
	p.Kind, p.Path = kind, path
	return nil
}

func (p *OutputPolicy) Set(value string) error {
	kind, path, err := parsePolicy(value, false)
	if err != nil {
		return err
	}
	p.Kind, p.Path = kind, path
	return nil
}

func (p *InputPolicy) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalPolicy(node, p.Set)
}

func (p *OutputPolicy) UnmarshalYAML(node *yaml.Node) error {
	return unmarshalPolicy(node, p.Set)
}

func (p InputPolicy) MarshalYAML() (any, error)  { return marshalPolicy(p.Kind, p.Path) }
func (p OutputPolicy) MarshalYAML() (any, error) { return marshalPolicy(p.Kind, p.Path) }

func (p InputPolicy) MarshalJSON() ([]byte, error)  { return marshalPolicyJSON(p.Kind, p.Path) }
func (p OutputPolicy) MarshalJSON() ([]byte, error) { return marshalPolicyJSON(p.Kind, p.Path) }

func policyString(kind StreamKind, path string) string {
	switch kind {
	case StreamInherit:
		return "inherit"
	case StreamBundle:
		return "bundle:" + path
	case StreamFile:
		return "file:" + path
	default:
		return "null"
	}
}

func parsePolicy(value string, input bool) (StreamKind, string, error) {
	switch value {
	case "", "null":
		return StreamNull, "", nil
	case "inherit":
		return StreamInherit, "", nil
	}
	scheme, path, ok := strings.Cut(value, ":")
	if ok && path != "" {
		switch scheme {
		case "bundle":
			if input {
				return StreamBundle, path, nil
			}
			return 0, "", fmt.Errorf("invalid stdio policy %q: bundle sources only apply to stdin", value)
		case "file":
			return StreamFile, path, nil
		}
	}
	return 0, "", fmt.Errorf("invalid stdio policy %q", value)
}

func unmarshalPolicy(node *yaml.Node, set func(string) error) error {
	if node.Tag == "!!null" {
		return set("")
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return set(s)
}

func marshalPolicy(kind StreamKind, path string) (any, error) {
	if kind == StreamNull {
		return nil, nil
	}
	return policyString(kind, path), nil
}

func marshalPolicyJSON(kind StreamKind, path string) ([]byte, error) {
	if kind == StreamNull {
		return []byte("null"), nil
	}
	return []byte(`"` + policyString(kind, path) + `"`), nil
}

// ResolveDeployConfig reads the deployment configuration from its well-known
// path in the given file system. A missing configuration yields the default
// where all streams are discarded; a configuration that is a directory or
// does not deserialize is an instantiation failure.
func ResolveDeployConfig(fsys *virtfs.FS) (DeployConfig, error) {
	var config DeployConfig
	node, ok := fsys.Lookup(DeployConfigPath)
	if !ok {
		return config, nil
	}
	file, ok := node.(*virtfs.File)
	if !ok {
		return config, fmt.Errorf("%w: %s is a directory", ErrInstantiation, DeployConfigPath)
	}
	dec := yaml.NewDecoder(bytes.NewReader(file.Data()))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return DeployConfig{}, fmt.Errorf("%w: %s: %v", ErrInstantiation, DeployConfigPath, err)
	}
	return config, nil
}
