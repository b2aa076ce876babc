package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Skufu/clinicrisk/internal/features"
	"github.com/Skufu/clinicrisk/internal/training"
)

var (
	trainSchemaFlag = &cli.StringFlag{
		Name:     "schema",
		Usage:    "Schema to train, e.g. diabetes.full",
		Required: true,
	}

	dataFileFlag = &cli.StringFlag{
		Name:     "data",
		Usage:    "Path to the CSV dataset (header row required)",
		Required: true,
	}

	labelFlag = &cli.StringFlag{
		Name:     "label",
		Usage:    "Outcome column, e.g. Outcome, target or No-show",
		Required: true,
	}

	outDirFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Directory the artifacts are written to (existing heads are kept)",
		Value: "./models",
	}

	fillMissingFlag = &cli.BoolFlag{
		Name:  "fill-missing",
		Usage: "Use population defaults for feature columns the dataset lacks",
	}

	epochsFlag = &cli.IntFlag{
		Name:  "epochs",
		Usage: "Passes over the training rows",
		Value: training.DefaultOptions().Train.Epochs,
	}

	learningRateFlag = &cli.Float64Flag{
		Name:  "learning-rate",
		Usage: "Gradient descent step size",
		Value: training.DefaultOptions().Train.LearningRate,
	}

	holdoutFlag = &cli.Float64Flag{
		Name:  "holdout",
		Usage: "Share of rows held out for the accuracy report",
		Value: training.DefaultOptions().Holdout,
	}

	trainCmd = &cli.Command{
		Name:    "train",
		Aliases: []string{"t"},
		Usage:   "Fits one model head from a CSV dataset and writes it into the artifacts",
		Action:  cmdTrain,
		Flags: []cli.Flag{
			trainSchemaFlag,
			dataFileFlag,
			labelFlag,
			outDirFlag,
			fillMissingFlag,
			epochsFlag,
			learningRateFlag,
			holdoutFlag,
		},
	}
)

func cmdTrain(c *cli.Context) error {
	id := features.SchemaID(c.String(trainSchemaFlag.Name))
	if _, err := features.Lookup(id); err != nil {
		return err
	}

	ds, err := training.ReadFile(c.String(dataFileFlag.Name), id, training.ReadOptions{
		Label:       c.String(labelFlag.Name),
		FillMissing: c.Bool(fillMissingFlag.Name),
	})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"schema":  id,
		"rows":    ds.Len(),
		"dropped": ds.Dropped,
	}).Debug("dataset loaded")

	opts := training.DefaultOptions()
	opts.Train.Epochs = c.Int(epochsFlag.Name)
	opts.Train.LearningRate = c.Float64(learningRateFlag.Name)
	opts.Holdout = c.Float64(holdoutFlag.Name)

	h, err := training.Fit(ds, opts)
	if err != nil {
		return err
	}
	if err := training.Save(c.String(outDirFlag.Name), h, log.StandardLogger()); err != nil {
		return err
	}
	return printOutput(c, h.Report)
}
