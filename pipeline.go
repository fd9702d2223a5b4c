package crosspack

import (
	"context"
	"errors"
	"os"

	"github.com/n0rad/go-erlog/data"
	"github.com/n0rad/go-erlog/errs"
	"github.com/n0rad/go-erlog/logs"
)

const runLabel = "crosspack"

// Pipeline builds every target of the matrix, then packages every target.
// Packaging never starts unless all builds succeeded.
type Pipeline struct {
	config    Config
	compiler  Compiler
	packager  Packager
	stopwatch *Stopwatch
}

type Option func(*Pipeline)

func WithCompiler(compiler Compiler) Option {
	return func(p *Pipeline) {
		p.compiler = compiler
	}
}

func WithPackager(packager Packager) Option {
	return func(p *Pipeline) {
		p.packager = packager
	}
}

func WithStopwatch(stopwatch *Stopwatch) Option {
	return func(p *Pipeline) {
		p.stopwatch = stopwatch
	}
}

func NewPipeline(config Config, options ...Option) (*Pipeline, error) {
	if err := config.Resolve(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, errs.WithE(err, "Invalid configuration")
	}

	p := &Pipeline{
		config:   config,
		compiler: GoCompiler{Command: config.Compiler},
		packager: ArchivePackager{
			Output:      config.Output,
			Name:        config.Name,
			Compression: config.Compression,
			Layout:      config.Layout,
		},
		stopwatch: NewStopwatch(),
	}
	for _, option := range options {
		option(p)
	}
	return p, nil
}

func (p *Pipeline) Config() Config {
	return p.config
}

func (p *Pipeline) Targets() ([]Target, error) {
	return p.config.Matrix.Filter(p.config.Targets)
}

// Run builds then packages every target, and writes the checksum manifest when
// configured. The returned report holds the results of each phase that ran.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	p.stopwatch.Start(runLabel)
	defer p.stopwatch.Stop(runLabel)

	build, err := p.Build(ctx)
	if err != nil {
		return build, err
	}

	pack, err := p.Package(ctx)
	report := &Report{Results: append(build.Results, pack.Results...)}
	if err != nil {
		return report, err
	}

	if p.config.Checksum != "" {
		path, err := WriteChecksums(p.config.Output, p.config.Checksum, pack.Artifacts())
		if err != nil {
			return report, errs.WithE(err, "Failed to write checksums")
		}
		logs.WithField("path", path).Info("Checksums written")
	}
	return report, nil
}

// Build compiles every target into <output>/<os>-<arch>/.
func (p *Pipeline) Build(ctx context.Context) (*Report, error) {
	targets, err := p.Targets()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(p.config.Output, 0755); err != nil {
		return nil, fsError("mkdir", p.config.Output, err)
	}

	logs.WithField("targets", len(targets)).
		WithField("output", p.config.Output).
		WithField("parallelism", p.config.Parallelism).
		Info("Building")

	report := forEachTarget(ctx, PhaseBuild, targets, p.config.Parallelism, p.config.FailFast, p.stopwatch,
		func(ctx context.Context, t Target) (string, error) {
			output := p.config.ArtifactPath(t)
			err := p.compiler.Compile(ctx, Invocation{
				Target:    t,
				SourceDir: p.config.Source,
				Package:   p.config.Package,
				Output:    output,
				LdFlags:   p.config.EffectiveLdFlags(),
				Tags:      p.config.Tags,
			})
			if err != nil {
				if cancelled(err) {
					return "", err
				}
				fields := data.WithField("target", t.String())
				var toolchainErr *ToolchainError
				if errors.As(err, &toolchainErr) {
					fields = fields.WithField("exitCode", toolchainErr.ExitCode)
				}
				logs.WithEF(err, fields).Error("Build failed")
				return "", err
			}
			return output, nil
		})
	return report, phaseError(ctx, report)
}

// Package wraps the executable of every target into its archive.
// Executables are expected to exist, a missing one fails with a FilesystemError.
func (p *Pipeline) Package(ctx context.Context) (*Report, error) {
	targets, err := p.Targets()
	if err != nil {
		return nil, err
	}

	logs.WithField("targets", len(targets)).Info("Packaging")

	report := forEachTarget(ctx, PhasePackage, targets, p.config.Parallelism, p.config.FailFast, p.stopwatch,
		func(ctx context.Context, t Target) (string, error) {
			archive, err := p.packager.Package(ctx, t)
			if err != nil {
				if cancelled(err) {
					return "", err
				}
				logs.WithEF(err, data.WithField("target", t.String())).Error("Packaging failed")
				return "", err
			}
			logs.WithField("target", t.String()).WithField("path", archive).Debug("Packaged")
			return archive, nil
		})
	return report, phaseError(ctx, report)
}

// Clean removes the output directory.
func (p *Pipeline) Clean() error {
	logs.WithField("path", p.config.Output).Info("Cleaning output")
	if err := os.RemoveAll(p.config.Output); err != nil {
		return fsError("remove", p.config.Output, err)
	}
	return nil
}

func phaseError(ctx context.Context, report *Report) error {
	if ctx.Err() != nil {
		return ErrInterrupted
	}
	return report.Err()
}
