package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/wishlist-tracker/tools/dashgen/dashboards"
	"github.com/donaldgifford/wishlist-tracker/tools/dashgen/rules"
	"github.com/donaldgifford/wishlist-tracker/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by tools/dashgen. DO NOT EDIT.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	ruleFormat := flag.String("rule-format", RuleFormatOperator, "rule output format: operator or file")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	cfg.RuleFormat = *ruleFormat

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *validateOnly, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// artifact is a generated file relative to the output directory.
type artifact struct {
	path string
	data []byte
}

func run(cfg Config, validateOnly bool, out io.Writer) error {
	var files []artifact

	if cfg.DashboardEnabled {
		f, err := dashboardArtifact()
		if err != nil {
			return err
		}
		files = append(files, f)
	}

	if cfg.RulesEnabled {
		fs, err := ruleArtifacts(cfg.RuleFormat)
		if err != nil {
			return err
		}
		files = append(files, fs...)
	}

	if validateOnly {
		fmt.Fprintln(out, "validation passed")
		return nil
	}

	for _, f := range files {
		path := filepath.Join(cfg.OutputDir, f.path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.path, err)
		}
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", f.path, err)
		}
		fmt.Fprintf(out, "dashgen: wrote %s\n", path)
	}
	return nil
}

func dashboardArtifact() (artifact, error) {
	dash, err := dashboards.BuildOverview().Build()
	if err != nil {
		return artifact{}, fmt.Errorf("building overview dashboard: %w", err)
	}

	res := validate.Dashboard(dash, KnownMetrics)
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !res.Ok() {
		return artifact{}, fmt.Errorf("dashboard validation failed: %w", joinErrors(res.Errors))
	}

	data, err := json.MarshalIndent(dash, "", "  ")
	if err != nil {
		return artifact{}, fmt.Errorf("marshaling dashboard: %w", err)
	}
	data = append(data, '\n')

	return artifact{path: filepath.Join("grafana", "data", "wlt-overview.json"), data: data}, nil
}

func ruleArtifacts(format string) ([]artifact, error) {
	crs := []struct {
		file string
		cr   rules.PrometheusRule
	}{
		{file: "wlt-recording-rules.yaml", cr: rules.RecordingRules()},
		{file: "wlt-alerts.yaml", cr: rules.AlertRules()},
	}

	files := make([]artifact, 0, len(crs))
	for _, c := range crs {
		res := validate.Rules(c.cr, KnownMetrics)
		if !res.Ok() {
			return nil, fmt.Errorf("%s validation failed: %w", c.file, joinErrors(res.Errors))
		}

		var doc any = c.cr
		if format == RuleFormatFile {
			doc = c.cr.File()
		}
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s: %w", c.file, err)
		}
		files = append(files, artifact{
			path: filepath.Join("prometheus", c.file),
			data: append([]byte(generatedHeader), data...),
		})
	}
	return files, nil
}

func joinErrors(msgs []string) error {
	errs := make([]error, 0, len(msgs))
	for _, m := range msgs {
		errs = append(errs, errors.New(m))
	}
	return errors.Join(errs...)
}
