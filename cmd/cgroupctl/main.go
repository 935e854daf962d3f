// +build linux

package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const usage = "cgroupctl applies per-component cgroup resource limits and freezes/thaws component process trees"

func main() {
	app := cli.NewApp()
	app.Name = "cgroupctl"
	app.Version = "0.1"
	app.Usage = usage

	app.Commands = []cli.Command{
		limitCommand,
		resetCommand,
		removeCommand,
		addCommand,
		pauseCommand,
		resumeCommand,
		statsCommand,
	}

	app.Before = func(context *cli.Context) error {
		log.SetFormatter(&log.JSONFormatter{})
		log.SetOutput(os.Stdout)
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
