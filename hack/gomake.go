package main

import "github.com/n0rad/gomake"

func main() {
	gomake.ProjectBuilder().
		WithStep(&gomake.StepBuild{
			Programs: []gomake.Program{
				{
					BinaryName: "crosspack",
					Package:    "./cmd/crosspack",
				},
			},
		}).
		WithStep(&gomake.StepRelease{
			OsArchRelease: []string{"linux-amd64", "linux-arm64", "darwin-amd64", "darwin-arm64"},
		}).
		MustBuild().MustExecute()
}
