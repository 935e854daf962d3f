// +build linux

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"cgroupctl"

	"github.com/urfave/cli"
)

func controller() cgroupctl.Controller {
	return cgroupctl.New(cgroupctl.NewLinuxPlatform(), cgroupctl.NewTimerScheduler())
}

func componentArg(context *cli.Context) (string, error) {
	if len(context.Args()) < 1 {
		return "", fmt.Errorf("missing component name")
	}
	return context.Args().First(), nil
}

var limitCommand = cli.Command{
	Name:  "limit",
	Usage: "apply memory/cpu limits to a component",
	Flags: []cli.Flag{
		cli.Int64Flag{Name: "memory", Usage: "memory limit in KiB"},
		cli.Float64Flag{Name: "cpus", Usage: "cpu fraction of one period, e.g. 0.5"},
	},
	Action: func(context *cli.Context) error {
		component, err := componentArg(context)
		if err != nil {
			return err
		}
		limits := map[string]interface{}{}
		if context.IsSet("memory") {
			limits[cgroupctl.MemoryKey] = context.Int64("memory")
		}
		if context.IsSet("cpus") {
			limits[cgroupctl.CPUsKey] = context.Float64("cpus")
		}
		return controller().UpdateResourceLimits(component, limits)
	},
}

var resetCommand = cli.Command{
	Name:  "reset",
	Usage: "clear a component's resource limits",
	Action: func(context *cli.Context) error {
		component, err := componentArg(context)
		if err != nil {
			return err
		}
		return controller().ResetResourceLimits(component)
	},
}

var removeCommand = cli.Command{
	Name:  "remove",
	Usage: "delete a component's cgroups (processes must have exited)",
	Action: func(context *cli.Context) error {
		component, err := componentArg(context)
		if err != nil {
			return err
		}
		return controller().RemoveResourceController(component)
	},
}

var addCommand = cli.Command{
	Name:  "add",
	Usage: "enroll a process tree into a component's cgroups",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "pid", Usage: "root pid of the component process tree"},
	},
	Action: func(context *cli.Context) error {
		component, err := componentArg(context)
		if err != nil {
			return err
		}
		pid := context.Int("pid")
		if pid <= 0 {
			return fmt.Errorf("missing --pid")
		}
		return controller().AddComponentProcess(component, cgroupctl.ProcessFromPid(pid))
	},
}

var pauseCommand = cli.Command{
	Name:  "pause",
	Usage: "freeze a component's process tree",
	Flags: []cli.Flag{
		cli.IntSliceFlag{Name: "pid", Usage: "pid to enroll before freezing (repeatable)"},
	},
	Action: func(context *cli.Context) error {
		component, err := componentArg(context)
		if err != nil {
			return err
		}
		var procs []cgroupctl.Process
		for _, pid := range context.IntSlice("pid") {
			procs = append(procs, cgroupctl.ProcessFromPid(pid))
		}
		return controller().PauseComponentProcesses(component, procs)
	},
}

var resumeCommand = cli.Command{
	Name:  "resume",
	Usage: "thaw a frozen component",
	Action: func(context *cli.Context) error {
		component, err := componentArg(context)
		if err != nil {
			return err
		}
		return controller().ResumeComponentProcesses(component)
	},
}

var statsCommand = cli.Command{
	Name:  "stats",
	Usage: "print a component's cpu throttling and memory usage",
	Action: func(context *cli.Context) error {
		component, err := componentArg(context)
		if err != nil {
			return err
		}
		stats, err := controller().Stats(component)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}
