// Command npz inspects, packs and unpacks NumPy NPY files and NPZ archives.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/docker/go-units"
	"github.com/moby/sys/atomicwriter"

	"github.com/FocuswithJustin/npyz/core/npy"
	"github.com/FocuswithJustin/npyz/core/npz"
	"github.com/FocuswithJustin/npyz/internal/logging"
	"github.com/FocuswithJustin/npyz/internal/validation"
)

const version = "0.1.0"

// stdout is where command output goes; tests replace it.
var stdout io.Writer = os.Stdout

// cli defines the command-line interface for npz.
type cli struct {
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)"`

	List    ListCmd    `cmd:"" help:"List the arrays in an archive"`
	Inspect InspectCmd `cmd:"" help:"Show dtype and shape of an archive's arrays or of a single .npy file"`
	Show    ShowCmd    `cmd:"" help:"Print the leading values of an array"`
	Pack    PackCmd    `cmd:"" help:"Pack .npy files into an archive"`
	Unpack  UnpackCmd  `cmd:"" help:"Extract every array of an archive as .npy files"`
	Digest  DigestCmd  `cmd:"" help:"Print BLAKE3 digests of archive members"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// CLI holds the parsed command line.
var CLI cli

// configureLogging applies the global log flags.
func (c *cli) configureLogging() error {
	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(c.LogFormat)
	if err != nil {
		return err
	}
	logging.InitLogger(level, format)
	return nil
}

// ListCmd prints array names in archive order.
type ListCmd struct {
	Archive string `arg:"" help:"Path to .npz archive" type:"existingfile"`
}

func (c *ListCmd) Run() error {
	r, err := npz.Open(c.Archive, npz.Options{})
	if err != nil {
		return err
	}
	defer r.Close()

	names, err := r.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(stdout, name)
	}
	return nil
}

// InspectCmd reads headers only.
type InspectCmd struct {
	Path string `arg:"" help:"Path to .npz archive or .npy file (optionally .gz, .xz, .zst or .lz4)" type:"existingfile"`
	JSON bool   `name:"json" help:"Print JSON instead of a table"`
}

// inspectRecord is one row of inspect output.
type inspectRecord struct {
	Name    string `json:"name"`
	Descr   string `json:"descr"`
	Kind    string `json:"kind"`
	Shape   []int  `json:"shape"`
	Version string `json:"version"`
	Method  string `json:"method,omitempty"`
	Size    uint64 `json:"size,omitempty"`
}

func recordOf(name string, h npy.Header) inspectRecord {
	kind, _ := h.Kind()
	return inspectRecord{
		Name:    name,
		Descr:   h.Descr(),
		Kind:    kind.String(),
		Shape:   h.Shape,
		Version: fmt.Sprintf("%d.%d", h.Major, h.Minor),
	}
}

func (c *InspectCmd) Run() error {
	ctx := logging.WithArchive(context.Background(), c.Path)
	isArchive, err := isArchive(c.Path)
	if err != nil {
		return err
	}

	var records []inspectRecord
	if isArchive {
		r, err := npz.Open(c.Path, npz.Options{})
		if err != nil {
			return err
		}
		defer r.Close()

		entries, err := r.Introspect()
		if err != nil {
			return err
		}
		for _, e := range entries {
			rec := recordOf(e.Name, e.Header)
			rec.Method = e.Method
			rec.Size = e.Size
			records = append(records, rec)
		}
	} else {
		h, err := npy.ReadFileHeader(c.Path)
		if err != nil {
			return err
		}
		if _, err := h.Kind(); err != nil {
			logging.WarnContext(ctx, "unsupported dtype", "descr", h.Descr(), "error", err)
		}
		records = append(records, recordOf(filepath.Base(c.Path), h))
	}

	if c.JSON {
		output, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(output))
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDTYPE\tKIND\tSHAPE\tVERSION\tMETHOD\tSIZE")
	for _, rec := range records {
		size := "-"
		if rec.Size > 0 {
			size = units.HumanSize(float64(rec.Size))
		}
		method := rec.Method
		if method == "" {
			method = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", rec.Name, rec.Descr, rec.Kind, npy.FormatShape(rec.Shape), rec.Version, method, size)
	}
	return tw.Flush()
}

// ShowCmd prints an array's header and leading values.
type ShowCmd struct {
	Path  string `arg:"" help:"Path to .npz archive or .npy file" type:"existingfile"`
	Name  string `arg:"" optional:"" help:"Array name (required for archives)"`
	Limit int    `name:"limit" short:"n" default:"20" help:"Maximum number of values to print (0 for all)"`
}

func (c *ShowCmd) Run() error {
	isArchive, err := isArchive(c.Path)
	if err != nil {
		return err
	}

	var a *npy.Array
	if isArchive {
		if c.Name == "" {
			return fmt.Errorf("array name required for archive %s", c.Path)
		}
		r, err := npz.Open(c.Path, npz.Options{})
		if err != nil {
			return err
		}
		defer r.Close()
		if a, err = r.Get(c.Name); err != nil {
			return err
		}
	} else {
		if a, err = npy.ReadFile(c.Path, npy.Options{}); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "kind: %s\nshape: %s\n", a.Kind(), npy.FormatShape(a.Shape()))
	values := reflect.ValueOf(a.Data())
	n := values.Len()
	if c.Limit > 0 && n > c.Limit {
		fmt.Fprintf(stdout, "values: %v ... (%d more)\n", values.Slice(0, c.Limit).Interface(), n-c.Limit)
		return nil
	}
	fmt.Fprintf(stdout, "values: %v\n", values.Interface())
	return nil
}

// PackCmd builds an archive from .npy files. Each array is named after its
// file with the .npy and compression suffixes removed.
type PackCmd struct {
	Output    string   `arg:"" help:"Output .npz archive path"`
	Files     []string `arg:"" help:"Input .npy files (optionally .gz, .xz, .zst or .lz4)" type:"existingfile"`
	Compress  string   `name:"compress" short:"c" default:"stored" enum:"stored,deflate,zstd" help:"Member compression (stored, deflate, zstd)"`
	ChunkSize int      `name:"chunk-size" default:"65536" help:"Streaming buffer size in bytes"`
}

func (c *PackCmd) Run() error {
	compression, err := npz.ParseCompression(c.Compress)
	if err != nil {
		return err
	}
	ctx := logging.WithArchive(context.Background(), c.Output)

	names := make([]string, len(c.Files))
	arrays := make([]*npy.Array, len(c.Files))
	for i, path := range c.Files {
		if names[i], err = arrayName(path); err != nil {
			return err
		}
		if arrays[i], err = npy.ReadFile(path, npy.Options{ChunkSize: c.ChunkSize}); err != nil {
			return err
		}
	}

	w, err := npz.Create(c.Output, npz.Options{Compression: compression, ChunkSize: c.ChunkSize})
	if err != nil {
		return err
	}
	for i, name := range names {
		if err := w.Write(name, arrays[i]); err != nil {
			logging.ErrorContext(ctx, "pack failed, archive discarded", "name", name, "source", c.Files[i], "error", err)
			w.Abort()
			return err
		}
		logging.DebugContext(ctx, "packed array", "name", name, "source", c.Files[i])
	}
	if err := w.Close(); err != nil {
		return err
	}

	logging.InfoContext(ctx, "archive written", "arrays", len(c.Files), "compression", compression.String())
	return nil
}

// arrayName derives an array name from a file path.
func arrayName(path string) (string, error) {
	base := filepath.Base(path)
	for _, suffix := range []string{".gz", ".xz", ".zst", ".lz4"} {
		base = strings.TrimSuffix(base, suffix)
	}
	base = strings.TrimSuffix(base, npz.Suffix)
	return validation.SanitizeFilename(base)
}

// UnpackCmd writes every member to <dir>/<name>.npy.
type UnpackCmd struct {
	Archive string `arg:"" help:"Path to .npz archive" type:"existingfile"`
	Dir     string `arg:"" help:"Destination directory"`
}

func (c *UnpackCmd) Run() error {
	ctx := logging.WithArchive(context.Background(), c.Archive)

	r, err := npz.Open(c.Archive, npz.Options{})
	if err != nil {
		return err
	}
	defer r.Close()

	names, err := r.List()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", c.Dir, err)
	}

	for _, name := range names {
		rel, err := validation.SanitizePath(c.Dir, name+npz.Suffix)
		if err != nil {
			return fmt.Errorf("refusing to extract %q: %w", name, err)
		}
		dest := filepath.Join(c.Dir, rel)
		if err := extract(r, name, dest); err != nil {
			return err
		}
		fmt.Fprintln(stdout, dest)
	}

	logging.InfoContext(ctx, "archive extracted", "arrays", len(names), "dir", c.Dir)
	return nil
}

func extract(r *npz.Reader, name, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
	}
	src, err := r.Raw(name)
	if err != nil {
		return err
	}
	defer src.Close()

	// The member is read in full first so a checksum failure never
	// reaches dest.
	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", name, err)
	}
	if err := atomicwriter.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

// DigestCmd prints "<blake3>  <name>" lines.
type DigestCmd struct {
	Archive string   `arg:"" help:"Path to .npz archive" type:"existingfile"`
	Names   []string `arg:"" optional:"" help:"Arrays to digest (default: all)"`
}

func (c *DigestCmd) Run() error {
	r, err := npz.Open(c.Archive, npz.Options{})
	if err != nil {
		return err
	}
	defer r.Close()

	names := c.Names
	if len(names) == 0 {
		if names, err = r.List(); err != nil {
			return err
		}
	}
	for _, name := range names {
		sum, err := r.Digest(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s  %s\n", sum, name)
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Fprintf(stdout, "npz version %s\n", version)
	return nil
}

// isArchive reports whether path holds a zip archive rather than an NPY stream.
func isArchive(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	fileType, err := validation.ValidateFileType(f, path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", path, err)
	}
	return fileType == validation.FileTypeNPZ, nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("npz"),
		kong.Description("Inspect and build NumPy .npy files and .npz archives"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	ctx.FatalIfErrorf(CLI.configureLogging())
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
