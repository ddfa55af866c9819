package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"

	wasmbundle "github.com/wardenrun/warden/internal/bundle"
	"github.com/wardenrun/warden/internal/human"
	"github.com/wardenrun/warden/internal/warden"
	"gopkg.in/yaml.v3"
)

const describeUsage = `
Usage:	warden describe [options] [--] <bundle>

   The describe command prints the layout of a workload bundle: the sections
   of the module container, the files carried by its archive, and the stdio
   policy its configuration declares. The bundle argument is a file path, or
   the name of a bundle previously fetched with 'warden pull'.

Example:

   $ warden describe app.wasm
   Name:  app.wasm
   Size:  1.17 MiB
   Stdin: bundle:input.txt
   ...

Options:
   -c, --config path    Path to the warden configuration file (overrides WARDENCONFIG)
   -h, --help           Show this usage information
   -o, --output format  Output format, one of: text, json, yaml
`

// bundleDescription is the document printed by the describe command.
type bundleDescription struct {
	Name     string               `json:"name"     yaml:"name"`
	Size     human.Bytes          `json:"size"     yaml:"size"`
	Stdio    warden.StdioPolicy   `json:"stdio"    yaml:"stdio"`
	Sections []sectionDescription `json:"sections" yaml:"sections"`
	Files    []fileDescription    `json:"files"    yaml:"files"`
}

type sectionDescription struct {
	Section string      `json:"section"        yaml:"section"`
	Name    string      `json:"name,omitempty" yaml:"name,omitempty"`
	Offset  int64       `json:"offset"         yaml:"offset"`
	Size    human.Bytes `json:"size"           yaml:"size"`
}

type fileDescription struct {
	Path string      `json:"path" yaml:"path"`
	Size human.Bytes `json:"size" yaml:"size"`
}

func describe(ctx context.Context, args []string) error {
	output := outputFormat("text")

	flagSet := newFlagSet("warden describe", describeUsage)
	customVar(flagSet, &output, "o", "output")

	args = parseFlags(flagSet, args)
	if len(args) != 1 {
		return errors.New("expected exactly one bundle argument")
	}

	code, err := loadBundle(args[0])
	if err != nil {
		return err
	}
	desc, err := describeBundle(filepath.Base(args[0]), code)
	if err != nil {
		return err
	}

	switch output {
	case "json":
		e := json.NewEncoder(os.Stdout)
		e.SetEscapeHTML(false)
		e.SetIndent("", "  ")
		return e.Encode(desc)
	case "yaml":
		e := yaml.NewEncoder(os.Stdout)
		e.SetIndent(2)
		defer e.Close()
		return e.Encode(desc)
	default:
		return printDescription(desc)
	}
}

func describeBundle(name string, code []byte) (*bundleDescription, error) {
	sections, err := wasmbundle.Sections(code)
	if err != nil {
		return nil, err
	}
	workload, err := warden.Load(name, code)
	if err != nil {
		return nil, err
	}

	desc := &bundleDescription{
		Name:  name,
		Size:  human.Bytes(len(code)),
		Stdio: workload.Deploy.Stdio,
	}
	for _, s := range sections {
		desc.Sections = append(desc.Sections, sectionDescription{
			Section: sectionName(s.ID),
			Name:    s.Name,
			Offset:  s.Offset,
			Size:    human.Bytes(s.Size),
		})
	}
	err = fs.WalkDir(workload.FS(), ".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		desc.Files = append(desc.Files, fileDescription{
			Path: path,
			Size: human.Bytes(info.Size()),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return desc, nil
}

func printDescription(desc *bundleDescription) error {
	fmt.Printf("Name:   %s\n", desc.Name)
	fmt.Printf("Size:   %s\n", desc.Size)
	fmt.Printf("Stdin:  %s\n", desc.Stdio.Stdin)
	fmt.Printf("Stdout: %s\n", desc.Stdio.Stdout)
	fmt.Printf("Stderr: %s\n", desc.Stdio.Stderr)

	fmt.Println("---")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tNAME\tOFFSET\tSIZE")
	for _, s := range desc.Sections {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Section, s.Name, s.Offset, s.Size)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(desc.Files) > 0 {
		fmt.Println("---")
		w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tSIZE")
		for _, f := range desc.Files {
			fmt.Fprintf(w, "%s\t%s\n", f.Path, f.Size)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// sectionName returns the name of a section id of the WebAssembly binary
// format.
func sectionName(id byte) string {
	names := [...]string{
		"custom", "type", "import", "function", "table", "memory",
		"global", "export", "start", "element", "code", "data", "datacount",
	}
	if int(id) < len(names) {
		return names[id]
	}
	return fmt.Sprintf("unknown(%d)", id)
}
