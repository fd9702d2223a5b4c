package main

import (
	"context"

	"github.com/mitchellh/go-homedir"
	"github.com/n0rad/crosspack"
	"github.com/n0rad/go-erlog/data"
	"github.com/n0rad/go-erlog/errs"
	"github.com/n0rad/go-erlog/logs"
	"github.com/spf13/cobra"
)

// pipelineCommand builds the pipeline from configuration and flags, then runs f
// until it returns or the process is interrupted.
func pipelineCommand(opts *options, f func(ctx context.Context, cmd *cobra.Command, p *crosspack.Pipeline) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cmd, opts)
		if err != nil {
			return err
		}

		pipeline, err := crosspack.NewPipeline(config)
		if err != nil {
			return err
		}

		// the root command is timed by Pipeline.Run
		if cmd.HasParent() {
			sw := crosspack.NewStopwatch()
			sw.Start(cmd.CommandPath())
			defer sw.Stop(cmd.CommandPath())
		}

		return crosspack.RunInterruptible(cmd.Context(), func(ctx context.Context) error {
			return f(ctx, cmd, pipeline)
		})
	}
}

// loadConfig starts from defaults, applies the configuration file if any, then
// the flags explicitly set on the command line.
func loadConfig(cmd *cobra.Command, opts *options) (crosspack.Config, error) {
	source, err := homedir.Expand(opts.source)
	if err != nil {
		return crosspack.Config{}, errs.WithEF(err, data.WithField("source", opts.source), "Failed to expand source directory")
	}
	config := crosspack.DefaultConfig(source)

	path := opts.configPath
	if path == "" {
		path = crosspack.FindConfig(source)
	} else if path, err = homedir.Expand(path); err != nil {
		return config, errs.WithEF(err, data.WithField("config", opts.configPath), "Failed to expand configuration path")
	}
	if path != "" {
		logs.WithField("path", path).Debug("Loading configuration")
		if err := crosspack.LoadConfig(path, &config); err != nil {
			return config, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		config.Output = opts.output
	}
	if flags.Changed("name") {
		config.Name = opts.name
	}
	if flags.Changed("release-version") {
		config.Version = opts.version
	}
	if flags.Changed("parallel") {
		config.Parallelism = opts.parallel
	}
	if flags.Changed("keep-going") {
		config.FailFast = !opts.keepGoing
	}
	if flags.Changed("target") {
		config.Targets = opts.targets
	}
	if flags.Changed("compression") {
		config.Compression = opts.compression
	}
	if flags.Changed("layout") {
		config.Layout = opts.layout
	}
	if flags.Changed("checksum") {
		config.Checksum = opts.checksum
	}
	return config, nil
}
