package main

import (
	"github.com/urfave/cli/v2"

	"github.com/Skufu/clinicrisk/internal/features"
)

var (
	schemaIDFlag = &cli.StringFlag{
		Name:  "id",
		Usage: "Print a single schema, e.g. diabetes.basic",
	}

	schemaCmd = &cli.Command{
		Name:    "schema",
		Aliases: []string{"s"},
		Usage:   "Prints the feature order every model head expects",
		Action:  cmdSchema,
		Flags:   []cli.Flag{schemaIDFlag},
	}
)

type SchemaInfo struct {
	ID       features.SchemaID  `json:"id" yaml:"id"`
	Features []features.Feature `json:"features" yaml:"features"`
	Defaults []float64          `json:"defaults" yaml:"defaults"`
}

func cmdSchema(c *cli.Context) error {
	ids := features.AllSchemas()
	if id := c.String(schemaIDFlag.Name); id != "" {
		ids = []features.SchemaID{features.SchemaID(id)}
	}

	out := make([]SchemaInfo, 0, len(ids))
	for _, id := range ids {
		s, err := features.Lookup(id)
		if err != nil {
			return err
		}
		out = append(out, SchemaInfo{ID: id, Features: s.Features(), Defaults: s.Defaults()})
	}
	return printOutput(c, out)
}
