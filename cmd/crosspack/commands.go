package main

import (
	"context"
	"fmt"

	"github.com/n0rad/crosspack"
	"github.com/n0rad/go-erlog/logs"
	"github.com/spf13/cobra"
)

type options struct {
	logLevel    string
	debug       bool
	configPath  string
	source      string
	output      string
	name        string
	version     string
	parallel    int
	keepGoing   bool
	targets     []string
	compression string
	layout      string
	checksum    string
}

func rootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "crosspack",
		Short:         "cross-compile a go program for every platform and package each release",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.debug {
				logs.SetLevel(logs.DEBUG)
			}
			if opts.logLevel != "" {
				level, err := logs.ParseLevel(opts.logLevel)
				if err != nil {
					return err
				}
				logs.SetLevel(level)
			}
			return nil
		},
		RunE: pipelineCommand(opts, func(ctx context.Context, cmd *cobra.Command, p *crosspack.Pipeline) error {
			_, err := p.Run(ctx)
			return err
		}),
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.logLevel, "log-level", "L", "", "Set log level")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logs")
	flags.StringVarP(&opts.configPath, "config", "c", "", "Configuration file (default <source>/"+crosspack.ConfigFileName+")")
	flags.StringVarP(&opts.source, "source", "s", ".", "Source directory of the program")
	flags.StringVarP(&opts.output, "output", "o", "", "Output directory (default build)")
	flags.StringVarP(&opts.name, "name", "n", "", "Executable name (default source directory name)")
	flags.StringVar(&opts.version, "release-version", "", "Version stamped into main.Version")
	flags.IntVarP(&opts.parallel, "parallel", "p", 0, "Number of targets processed concurrently (default 1)")
	flags.BoolVarP(&opts.keepGoing, "keep-going", "k", false, "Continue with other targets after a failure")
	flags.StringSliceVarP(&opts.targets, "target", "t", nil, "Only process these os-arch targets")
	flags.StringVar(&opts.compression, "compression", "", "Tar compression: none, gzip or zstd")
	flags.StringVar(&opts.layout, "layout", "", "Archive entry layout: target, flat or legacy")
	flags.StringVar(&opts.checksum, "checksum", "", "Write a checksum manifest: sha256, sha512 or blake2b")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "build",
			Short: "build every target without packaging",
			RunE: pipelineCommand(opts, func(ctx context.Context, cmd *cobra.Command, p *crosspack.Pipeline) error {
				_, err := p.Build(ctx)
				return err
			}),
		},
		&cobra.Command{
			Use:   "package",
			Short: "package previously built targets",
			RunE: pipelineCommand(opts, func(ctx context.Context, cmd *cobra.Command, p *crosspack.Pipeline) error {
				_, err := p.Package(ctx)
				return err
			}),
		},
		&cobra.Command{
			Use:   "clean",
			Short: "remove the output directory",
			RunE: pipelineCommand(opts, func(ctx context.Context, cmd *cobra.Command, p *crosspack.Pipeline) error {
				return p.Clean()
			}),
		},
		&cobra.Command{
			Use:   "targets",
			Short: "list the targets of the matrix",
			RunE: pipelineCommand(opts, func(ctx context.Context, cmd *cobra.Command, p *crosspack.Pipeline) error {
				targets, err := p.Targets()
				if err != nil {
					return err
				}
				for _, t := range targets {
					fmt.Fprintln(cmd.OutOrStdout(), t)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "print crosspack version",
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(cmd.OutOrStdout(), "crosspack")
				fmt.Fprintln(cmd.OutOrStdout(), "version : ", Version)
				return nil
			},
		},
	)
	return cmd
}
