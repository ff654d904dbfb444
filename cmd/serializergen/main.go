package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/goliatone/go-serializergen/internal/logging"
	pkgopenapi "github.com/goliatone/go-serializergen/pkg/openapi"
	"github.com/goliatone/go-serializergen/pkg/orchestrator"
	"github.com/goliatone/go-serializergen/pkg/registry"
	"github.com/goliatone/go-serializergen/pkg/synth"

	serializergen "github.com/goliatone/go-serializergen"
)

var setupLogging = logging.Setup

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			return
		case errors.Is(err, terminal.InterruptErr):
			os.Exit(130)
		}
		log.Fatal(err)
	}
}

// run executes the command. Every failure is returned so the log file is
// closed before the process exits.
func run(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("serializergen", flag.ContinueOnError)
	source := flags.String("source", "openapi.yaml", "OpenAPI document path or URL")
	models := flags.String("model", "", "comma separated component models (all when empty)")
	interactive := flags.Bool("interactive", false, "pick models from a prompt")
	format := flags.String("format", "json", "output format: json, yaml, markdown or jsonschema")
	title := flags.String("title", "", "document title for formats that print one")
	preset := flags.String("config", "", "YAML file of per-model config overlays")
	labels := flags.Bool("labels", false, "derive labels from field names")
	sanitize := flags.Bool("sanitize", true, "strip HTML from descriptions and titles")
	precision := flags.Int("decimal-precision", 0, "max_digits/decimal_places for unconstrained decimals")
	skipValidation := flags.Bool("skip-validation", false, "skip OpenAPI document validation")
	timeout := flags.Duration("timeout", 10*time.Second, "HTTP timeout for URL sources")
	output := flags.String("output", "", "output file (stdout if empty)")
	logLevel := flags.String("log-level", "warn", "log level: debug, info, warn or error")
	logFile := flags.String("log-file", "", "write logs to a rotated file instead of stderr")
	if err := flags.Parse(args); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = *logLevel
	logCfg.FilePath = *logFile
	logger, closeLog, err := setupLogging(logCfg)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer closeLog()

	ctx := context.Background()

	src, err := pkgopenapi.ParseSource(*source)
	if err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}

	builderOptions := []synth.BuilderOption{synth.WithLogger(logger)}
	if *labels {
		builderOptions = append(builderOptions, synth.WithLabeler(synth.FieldLabel))
	}
	if *sanitize {
		builderOptions = append(builderOptions, synth.WithHelpTextSanitizer(synth.StripMarkup))
	}
	if *precision > 0 {
		builderOptions = append(builderOptions, synth.WithDecimalPrecision(*precision))
	}

	loader := serializergen.NewLoader(pkgopenapi.WithHTTPFallback(*timeout))
	options := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithLoader(loader),
		orchestrator.WithParser(serializergen.NewParser(pkgopenapi.WithDocumentValidation(!*skipValidation))),
		orchestrator.WithRegistry(registry.New(
			registry.WithLogger(logger),
			registry.WithBuilderOptions(builderOptions...),
		)),
	}
	if *preset != "" {
		data, err := os.ReadFile(*preset)
		if err != nil {
			return fmt.Errorf("failed to read config preset: %w", err)
		}
		option, err := serializergen.WithConfigPreset(data)
		if err != nil {
			return fmt.Errorf("failed to parse config preset: %w", err)
		}
		options = append(options, option)
	}

	gen := serializergen.NewOrchestrator(options...)

	req := orchestrator.Request{
		Source: src,
		Models: splitList(*models),
		Format: *format,
		Title:  *title,
	}

	if *interactive {
		doc, err := loader.Load(ctx, src)
		if err != nil {
			return fmt.Errorf("failed to load document: %w", err)
		}
		req.Document = &doc
		selected, err := pickModels(ctx, gen, req)
		if err != nil {
			return fmt.Errorf("failed to select models: %w", err)
		}
		req.Models = selected
	}

	out, err := gen.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to generate serializers: %w", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, out, 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Fprintf(stdout, "Serializers written to %s\n", *output)
		return nil
	}
	_, err = stdout.Write(out)
	return err
}

// pickModels prompts for the models to generate, preselecting any named on
// the command line.
func pickModels(ctx context.Context, gen *orchestrator.Orchestrator, req orchestrator.Request) ([]string, error) {
	parsed, err := gen.Models(ctx, req)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(parsed))
	for name := range parsed {
		names = append(names, name)
	}
	sort.Strings(names)

	prompt := &survey.MultiSelect{
		Message:  "Models to generate",
		Options:  names,
		Help:     "Nested models are included automatically.",
		PageSize: 15,
	}
	if len(req.Models) > 0 {
		prompt.Default = req.Models
	}
	var selected []string
	if err := survey.AskOne(prompt, &selected, survey.WithValidator(survey.MinItems(1))); err != nil {
		return nil, err
	}
	return selected, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
