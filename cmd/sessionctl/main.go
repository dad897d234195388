// Command sessionctl drives an authsession Manager from the shell: log in,
// inspect and refresh the persisted session, make authenticated requests,
// keep the session alive, and run the mock backend for local testing.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kochabx/authsession/log"
)

const name = "sessionctl"

var (
	version = "dev"
	commit  = "000000000000"
)

// commands holds constructors so every newApp gets fresh command values.
var commands []func() *cli.Command

func register(cmds ...func() *cli.Command) {
	commands = append(commands, cmds...)
}

func newApp() *cli.App {
	cmds := make([]*cli.Command, 0, len(commands))
	for _, mk := range commands {
		cmds = append(cmds, mk())
	}
	return &cli.App{
		Name:     name,
		Usage:    "Session and request authentication manager",
		Version:  fmt.Sprintf("%s-%s", version, commit),
		Compiled: time.Now(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file path",
				Value:   "sessionctl.yaml",
				EnvVars: []string{"AUTHSESSION_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "API root, overrides base_url from the config file",
				EnvVars: []string{"AUTHSESSION_BASE_URL"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "overrides log.level",
			},
		},
		Commands: cmds,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Error().Err(err).Msg(name + " failed")
		os.Exit(1)
	}
}
