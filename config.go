package crosspack

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/adrg/xdg"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/mitchellh/go-homedir"
	"github.com/n0rad/go-erlog/data"
	"github.com/n0rad/go-erlog/errs"
)

const ConfigFileName = "crosspack.hcl"

type Config struct {
	Source      string   // directory the compiler runs in
	Name        string   // executable name, without platform suffix
	Package     string   // package given to the compiler
	Output      string   // relative paths are resolved against Source
	Version     string   // stamped with -X main.Version when set
	Compiler    string   // compiler command, "go" when empty
	LdFlags     []string // linker flags
	Tags        []string // build tags
	Parallelism int
	FailFast    bool
	Compression string // tar compression: none, gzip or zstd
	Layout      string // entry path layout inside archives
	Checksum    string // checksum manifest algorithm, none when empty
	Matrix      Matrix
	Targets     []string // os-arch selectors restricting the matrix
}

func DefaultConfig(source string) Config {
	return Config{
		Source:      source,
		Package:     "./",
		Output:      "build",
		LdFlags:     []string{"-s", "-w"},
		Parallelism: 1,
		FailFast:    true,
		Compression: CompressionNone,
		Layout:      LayoutTarget,
		Matrix:      DefaultMatrix(),
	}
}

// Resolve expands ~ and makes Source and Output absolute. Name defaults to the
// base name of the source directory.
func (c *Config) Resolve() error {
	source, err := homedir.Expand(c.Source)
	if err != nil {
		return errs.WithEF(err, data.WithField("source", c.Source), "Failed to expand source directory")
	}
	if c.Source, err = filepath.Abs(source); err != nil {
		return errs.WithEF(err, data.WithField("source", source), "Failed to get absolute source directory")
	}

	output, err := homedir.Expand(c.Output)
	if err != nil {
		return errs.WithEF(err, data.WithField("output", c.Output), "Failed to expand output directory")
	}
	if !filepath.IsAbs(output) {
		output = filepath.Join(c.Source, output)
	}
	c.Output = filepath.Clean(output)

	if c.Name == "" {
		c.Name = filepath.Base(c.Source)
	}
	return nil
}

func (c Config) Validate() error {
	if c.Name == "" {
		return errs.With("Program name must be set")
	}
	if c.Parallelism < 1 {
		return errs.WithF(data.WithField("parallelism", c.Parallelism), "Parallelism must be at least 1")
	}
	if !slices.Contains([]string{CompressionNone, CompressionGzip, CompressionZstd}, c.Compression) {
		return errs.WithF(data.WithField("compression", c.Compression), "Unknown compression")
	}
	if !slices.Contains([]string{LayoutTarget, LayoutFlat, LayoutLegacy}, c.Layout) {
		return errs.WithF(data.WithField("layout", c.Layout), "Unknown archive layout")
	}
	if c.Checksum != "" && checksumFileName(c.Checksum) == "" {
		return errs.WithF(data.WithField("checksum", c.Checksum), "Unknown checksum algorithm")
	}
	if len(c.Matrix.OS) == 0 || len(c.Matrix.Arch) == 0 {
		return errs.With("Matrix needs at least one os and one arch")
	}
	targets, err := c.Matrix.Filter(c.Targets)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errs.With("Matrix has no target left after exclusions")
	}
	return nil
}

// EffectiveLdFlags returns LdFlags plus the version stamp.
func (c Config) EffectiveLdFlags() []string {
	flags := slices.Clone(c.LdFlags)
	if c.Version != "" {
		flags = append(flags, "-X", "main.Version="+c.Version)
	}
	return flags
}

// ArtifactPath is where the executable of a target is built.
func (c Config) ArtifactPath(t Target) string {
	return filepath.Join(c.Output, t.String(), t.Executable(c.Name))
}

// FindConfig looks for crosspack.hcl in the source directory, then in the XDG
// config directories. It returns an empty path when there is none.
func FindConfig(source string) string {
	local := filepath.Join(source, ConfigFileName)
	if _, err := os.Stat(local); err == nil {
		return local
	}
	if path, err := xdg.SearchConfigFile(filepath.Join("crosspack", ConfigFileName)); err == nil {
		return path
	}
	return ""
}

type fileConfig struct {
	Name        *string          `hcl:"name,optional"`
	Package     *string          `hcl:"package,optional"`
	Output      *string          `hcl:"output,optional"`
	Version     *string          `hcl:"version,optional"`
	Compiler    *string          `hcl:"compiler,optional"`
	LdFlags     []string         `hcl:"ldflags,optional"`
	Tags        []string         `hcl:"tags,optional"`
	Parallelism *int             `hcl:"parallelism,optional"`
	FailFast    *bool            `hcl:"fail_fast,optional"`
	Compression *string          `hcl:"compression,optional"`
	Layout      *string          `hcl:"layout,optional"`
	Checksum    *string          `hcl:"checksum,optional"`
	OS          []string         `hcl:"os,optional"`
	Arch        []string         `hcl:"arch,optional"`
	Excludes    []exclusionBlock `hcl:"exclude,block"`
}

type exclusionBlock struct {
	OS   []string `hcl:"os,optional"`
	Arch []string `hcl:"arch,optional"`
}

// LoadConfig reads an HCL configuration file over config.
func LoadConfig(path string, config *Config) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fsError("read", path, err)
	}
	return ParseConfig(src, path, config)
}

// ParseConfig decodes HCL source over config, attributes absent from the source
// keep their current value. Once a file declares os, arch or exclude, its
// exclude blocks replace the default exclusions entirely.
func ParseConfig(src []byte, filename string, config *Config) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return errs.WithEF(diags, data.WithField("path", filename), "Failed to parse configuration")
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &fc); diags.HasErrors() {
		return errs.WithEF(diags, data.WithField("path", filename), "Failed to decode configuration")
	}

	fc.applyTo(config)
	return nil
}

func (fc fileConfig) applyTo(c *Config) {
	setString(&c.Name, fc.Name)
	setString(&c.Package, fc.Package)
	setString(&c.Output, fc.Output)
	setString(&c.Version, fc.Version)
	setString(&c.Compiler, fc.Compiler)
	setString(&c.Compression, fc.Compression)
	setString(&c.Layout, fc.Layout)
	setString(&c.Checksum, fc.Checksum)
	if fc.LdFlags != nil {
		c.LdFlags = fc.LdFlags
	}
	if fc.Tags != nil {
		c.Tags = fc.Tags
	}
	if fc.Parallelism != nil {
		c.Parallelism = *fc.Parallelism
	}
	if fc.FailFast != nil {
		c.FailFast = *fc.FailFast
	}

	if fc.OS == nil && fc.Arch == nil && len(fc.Excludes) == 0 {
		return
	}
	if fc.OS != nil {
		c.Matrix.OS = fc.OS
	}
	if fc.Arch != nil {
		c.Matrix.Arch = fc.Arch
	}
	c.Matrix.Exclude = nil
	for _, e := range fc.Excludes {
		c.Matrix.Exclude = append(c.Matrix.Exclude, Exclusion{OS: e.OS, Arch: e.Arch})
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
