// Copyright © 2024 The portofcall Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// ────────────────────────────────────────────────────────────────────────────
//
//  ██████╗  ██████╗ ██████╗ ████████╗ ██████╗ ███████╗ ██████╗ █████╗ ██╗     ██╗
//  ██╔══██╗██╔═══██╗██╔══██╗╚══██╔══╝██╔═══██╗██╔════╝██╔════╝██╔══██╗██║     ██║
//  ██████╔╝██║   ██║██████╔╝   ██║   ██║   ██║█████╗  ██║     ███████║██║     ██║
//  ██╔═══╝ ██║   ██║██╔══██╗   ██║   ██║   ██║██╔══╝  ██║     ██╔══██║██║     ██║
//  ██║     ╚██████╔╝██║  ██║   ██║   ╚██████╔╝██║     ╚██████╗██║  ██║███████╗███████╗
//  ╚═╝      ╚═════╝ ╚═╝  ╚═╝   ╚═╝    ╚═════╝ ╚═╝      ╚═════╝╚═╝  ╚═╝╚══════╝╚══════╝
//
// ────────────────────────────────────────────────────────────────────────────

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kris-nova/logger"
	"github.com/urfave/cli/v2"

	portofcall "github.com/pocc/portofcall"
	"github.com/pocc/portofcall/rtmp"
	"github.com/pocc/portofcall/simple"
)

func main() {
	portofcall.PrintBanner()
	err := Run()
	if err != nil {
		logger.Critical("%v", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// Global Flags
var (

	// verbose sets log verbosity
	verbose bool

	// configPath is an optional config file to merge defaults from
	configPath string

	// timeoutMS bounds every probe, dial to close
	timeoutMS uint

	globalFlags = []cli.Flag{
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Value:       false,
			Usage:       "toggle verbose mode for logger",
			Destination: &verbose,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "",
			Usage:       "path to a config file",
			Destination: &configPath,
		},
		&cli.UintFlag{
			Name:        "timeout",
			Aliases:     []string{"t"},
			Value:       uint(portofcall.DefaultTimeoutMS),
			Usage:       "whole-operation timeout in milliseconds",
			Destination: &timeoutMS,
		},
	}
)

func Run() error {

	// cli assumes "-v" for version.
	// override that here
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "Print the version",
	}

	// ********************************************************
	// [ Portofcall Application ]
	// ********************************************************

	app := &cli.App{
		Name:      "portofcall",
		Usage:     "Wire-protocol clients built from scratch: RTMP and the small text-era TCP services.",
		UsageText: ``,
		Version:   portofcall.Version,
		Action: func(c *cli.Context) error {
			cli.ShowSubcommandHelp(c)
			return nil
		},
		Flags: globalFlags,
		Commands: []*cli.Command{

			// ********************************************************
			// [ rtmp ]
			// ********************************************************

			{
				Name:      "rtmp",
				Aliases:   []string{"r"},
				Usage:     "RTMP client operations: connect, publish, play.",
				UsageText: ``,
				Flags:     allFlags([]cli.Flag{}),
				Action: func(c *cli.Context) error {
					cli.ShowSubcommandHelp(c)
					return nil
				},
				Subcommands: []*cli.Command{
					{
						Name:      "connect",
						Usage:     "Handshake and exchange the connect command with an RTMP server.",
						UsageText: `portofcall rtmp connect rtmp://host:1935/app`,
						Flags:     allFlags([]cli.Flag{}),
						Action: func(c *cli.Context) error {
							allInit()
							req, err := requestFromArgs(c)
							if err != nil {
								return err
							}
							out, err := rtmp.NewSession(req).Connect()
							if err != nil {
								return err
							}
							logger.Always("Success!")
							logger.Always(" Handshake: %v", out.HandshakeComplete)
							logger.Always(" Connect:   %dms", out.ConnectTimeMS)
							return nil
						},
					},
					{
						Name:      "publish",
						Usage:     "Connect, create a stream, and publish against a stream key.",
						UsageText: `portofcall rtmp publish rtmp://host:1935/app/stream-key`,
						Flags:     allFlags([]cli.Flag{}),
						Action: func(c *cli.Context) error {
							allInit()
							req, err := requestFromArgs(c)
							if err != nil {
								return err
							}
							sess := rtmp.NewSession(req)
							out, err := sess.Publish()
							if err != nil {
								return err
							}
							logger.Always("Success!")
							logger.Always(" Stream ID:        %d", out.StreamID)
							logger.Always(" Publish started:  %v", out.PublishStarted)
							for _, r := range out.ObservedServerResponses {
								logger.Info(" Server said: %s", r)
							}
							fmt.Print(sess.Counters())
							return nil
						},
					},
					{
						Name:      "play",
						Usage:     "Connect, create a stream, and play a named stream.",
						UsageText: `portofcall rtmp play rtmp://host:1935/app/stream-name`,
						Flags:     allFlags([]cli.Flag{}),
						Action: func(c *cli.Context) error {
							allInit()
							req, err := requestFromArgs(c)
							if err != nil {
								return err
							}
							sess := rtmp.NewSession(req)
							out, err := sess.Play()
							if err != nil {
								return err
							}
							logger.Always("Success!")
							logger.Always(" Stream ID:     %d", out.StreamID)
							logger.Always(" Play started:  %v", out.PlayStarted)
							if out.CapturedMetaData != nil {
								logger.Always(" Metadata:      %v", out.CapturedMetaData)
							}
							fmt.Print(sess.Counters())
							return nil
						},
					},
				},
			},

			// ********************************************************
			// [ probe ]
			// ********************************************************

			{
				Name:      "probe",
				Aliases:   []string{"p"},
				Usage:     "Probe the small TCP services: echo, discard, daytime, chargen, time, finger.",
				UsageText: `portofcall probe <host>`,
				Flags:     allFlags([]cli.Flag{}),
				Action: func(c *cli.Context) error {
					allInit()
					args := c.Args()
					if args.Len() != 1 {
						return fmt.Errorf("usage: portofcall probe <host>")
					}
					host := args.Get(0)
					results, err := simple.ProbeAll(host, time.Duration(timeoutMS)*time.Millisecond)
					for _, r := range results {
						logger.Always("%v", r)
					}
					return err
				},
			},
		},
	}

	app.Flags = globalFlags
	return app.Run(os.Args)
}

// requestFromArgs builds an RTMP session request from the one positional
// connection string, merged over the optional config file.
func requestFromArgs(c *cli.Context) (rtmp.Request, error) {
	args := c.Args()
	if args.Len() != 1 {
		return rtmp.Request{}, fmt.Errorf("usage: %s <rtmp://host:port/app/key>", c.Command.HelpName)
	}
	cfg, err := portofcall.LoadConfig(configPath)
	if err != nil {
		return rtmp.Request{}, err
	}
	addr, err := rtmp.ParseURLAddr(args.Get(0))
	if err != nil {
		return rtmp.Request{}, err
	}
	logger.Info("Connecting %s...", addr.SafeURL())
	req := addr.Request(uint32(timeoutMS))
	if req.TimeoutMS == 0 {
		req.TimeoutMS = uint32(cfg.TimeoutMS)
	}
	if cfg.StreamKey != "" && req.StreamKey == "" {
		req.StreamKey = cfg.StreamKey
	}
	return req, nil
}

func allInit() {
	if verbose {
		logger.BitwiseLevel = logger.LogEverything
		logger.Info("VERBOSE MODE ENABLED")
	} else {
		logger.BitwiseLevel = logger.LogAlways | logger.LogCritical | logger.LogDeprecated | logger.LogSuccess | logger.LogWarning
	}
}

func allFlags(flags []cli.Flag) []cli.Flag {
	return append(globalFlags, flags...)
}
