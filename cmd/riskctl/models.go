package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/Skufu/clinicrisk/internal/features"
	"github.com/Skufu/clinicrisk/internal/predictor"
	"github.com/Skufu/clinicrisk/internal/record"
	"github.com/Skufu/clinicrisk/internal/registry"
	"github.com/Skufu/clinicrisk/internal/tier"
)

var (
	modelNameFlag = &cli.StringFlag{
		Name:     "model",
		Usage:    "Model to score [noshow, diabetes, heart]",
		Required: true,
	}

	recordFileFlag = &cli.StringFlag{
		Name:     "file",
		Usage:    "Path to a YAML (or JSON) clinical record",
		Required: true,
	}

	localeFlag = &cli.StringFlag{
		Name:    "locale",
		Usage:   "Label locale [uz, en, ru]",
		Value:   string(tier.DefaultLocale),
		EnvVars: []string{"RISK_LOCALE"},
	}

	overrideFlag = &cli.StringSliceFlag{
		Name:  "set",
		Usage: "Fresh measurement as feature=value, e.g. --set glucose=182 (repeatable)",
	}

	inspectCmd = &cli.Command{
		Name:    "inspect",
		Aliases: []string{"i"},
		Usage:   "Loads the model artifacts and reports what would be served",
		Action:  cmdInspect,
		Flags:   []cli.Flag{modelDirFlag},
	}

	scoreCmd = &cli.Command{
		Name:   "score",
		Usage:  "Scores one clinical record file",
		Action: cmdScore,
		Flags: []cli.Flag{
			modelDirFlag,
			modelNameFlag,
			recordFileFlag,
			localeFlag,
			overrideFlag,
		},
	}
)

func cmdInspect(c *cli.Context) error {
	reg := registry.LoadAll(c.String(modelDirFlag.Name), log.StandardLogger())
	if err := printOutput(c, reg.Status()); err != nil {
		return err
	}
	if !reg.Loaded() {
		return errors.Wrap(reg.Err(), "models degraded")
	}
	return nil
}

func cmdScore(c *cli.Context) error {
	m, err := features.ParseModel(c.String(modelNameFlag.Name))
	if err != nil {
		return err
	}

	rec, err := readRecord(c.String(recordFileFlag.Name))
	if err != nil {
		return err
	}

	ov, err := parseOverrides(c.StringSlice(overrideFlag.Name))
	if err != nil {
		return err
	}
	if err := features.CheckOverrides(m, ov); err != nil {
		return err
	}

	reg := registry.LoadAll(c.String(modelDirFlag.Name), log.StandardLogger())
	p := predictor.New(reg, log.StandardLogger())

	return printOutput(c, p.Assess(m, rec, ov, tier.ParseLocale(c.String(localeFlag.Name))))
}

// readRecord accepts YAML, which also covers JSON documents.
func readRecord(path string) (record.ClinicalRecord, error) {
	var rec record.ClinicalRecord
	b, err := os.ReadFile(path)
	if err != nil {
		return rec, errors.Wrapf(err, "error reading record: %s", path)
	}
	if err := yaml.Unmarshal(b, &rec); err != nil {
		return rec, errors.Wrapf(err, "error decoding record: %s", path)
	}
	return rec, nil
}

func parseOverrides(pairs []string) (features.Overrides, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	ov := make(features.Overrides, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, errors.Errorf("invalid override %q, expected feature=value", p)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid override value for %s", k)
		}
		ov[features.Feature(strings.TrimSpace(k))] = f
	}
	return ov, nil
}
