package main

import (
	"os"

	"github.com/n0rad/go-erlog/logs"
	_ "github.com/n0rad/go-erlog/register"
)

var Version = ""

func main() {
	if err := execute(os.Args[1:]); err != nil {
		logs.WithE(err).Fatal("Command failed")
	}
}

func execute(args []string) error {
	cmd := rootCommand(&options{})
	cmd.SetArgs(args)
	return cmd.Execute()
}
