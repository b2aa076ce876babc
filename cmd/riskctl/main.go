package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	name    = "riskctl"
	version = "v0.0.1-default"
	commit  = ""

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}

	modelDirFlag = &cli.StringFlag{
		Name:    "models",
		Usage:   "Directory holding the <model>_predictor.yaml and <model>_scaler.yaml artifacts",
		Value:   "./models",
		EnvVars: []string{"MODEL_DIR"},
	}
)

func main() {
	initLogging(os.Stderr)

	if err := newApp().Run(os.Args); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            name,
		Version:         fmt.Sprintf("%s - (commit: %s)", version, commit),
		Compiled:        time.Now(),
		Usage:           "Inspect, train and exercise the clinic risk models",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			debugFlag,
			formatFlag,
		},
		Commands: []*cli.Command{
			schemaCmd,
			inspectCmd,
			scoreCmd,
			trainCmd,
		},
		Before: func(c *cli.Context) error {
			if c.Bool(debugFlag.Name) {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
	}
}

func initLogging(w io.Writer) {
	log.SetOutput(w)
	log.SetLevel(log.InfoLevel)
	log.SetReportCaller(false)
	log.SetFormatter(&log.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
		PadLevelText:           true,
	})
}

func printOutput(c *cli.Context, v interface{}) error {
	w := c.App.Writer
	if w == nil {
		w = os.Stdout
	}
	switch c.String(formatFlag.Name) {
	case formatYAML, "yml":
		return yaml.NewEncoder(w).Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
