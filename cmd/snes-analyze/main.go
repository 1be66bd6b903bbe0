package main

import (
	"fmt"
	"os"

	cli "github.com/urfave/cli/v2"

	snesanalyze "snes-analyze"
)

func openAnalysis(path string) (*snesanalyze.Analysis, error) {
	rom, err := snesanalyze.LoadROM(path)
	if err != nil {
		return nil, err
	}
	return snesanalyze.NewAnalysis(rom), nil
}

func main() {
	app := cli.NewApp()
	app.Name = "snes-analyze"
	app.Usage = "Interactive disassembler and control-flow analyzer for 65c816 ROM images"
	app.ArgsUsage = "rom"
	app.Action = func(c *cli.Context) error {
		if c.Args().Len() < 1 {
			return cli.Exit("Insufficient arguments: expected a ROM path", 1)
		}

		analysis, err := openAnalysis(c.Args().First())
		if err != nil {
			return cli.Exit(fmt.Sprintf("Could not open ROM: %s", err), 1)
		}

		NewApp(analysis).Run()
		return nil
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
