package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/swaggen/internal/contract"
	"github.com/mark3labs/swaggen/internal/emitter"
	"github.com/mark3labs/swaggen/internal/spec"
)

// generateRunner is swapped in tests to capture the resolved config.
var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write endpoint contracts for a Swagger/OpenAPI document",
		Long: "Write endpoint contracts for a Swagger/OpenAPI document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  swaggen generate --input spec.yaml --out ./contracts
  swaggen --config swaggen.yaml generate --format yaml --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the Swagger/OpenAPI document")
	flags.String("out", "", "Output directory (defaults to ./contracts)")
	flags.String("format", "", "Output encoding (json|yaml); defaults to json")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include these HTTP methods")
	flags.StringSlice("paths", nil, "Only include paths matching one of these regular expressions")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Write into a non-empty output directory")
	flags.Bool("strict", false, "Exit with an error when any endpoint fails to build")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig, out, errOut io.Writer) error {
	log := newReporter(errOut, cfg.Verbose)

	log.Infof("loading %s", cfg.Input)
	raw, err := spec.Load(ctx, cfg.Input)
	if err != nil {
		return specUsageError(err)
	}

	doc, err := spec.BuildDocument(ctx, raw, buildOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("build document: %w", err)
	}
	log.Infof("normalized %d endpoints, %d component schemas", len(doc.Endpoints), doc.Registry.Len())

	res := contract.BuildAll(doc)
	failed := log.Build(res)
	if failed > 0 && cfg.Strict {
		return fmt.Errorf("generate: %d endpoint(s) failed to build", failed)
	}

	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}

	emitted, err := emitter.Emit(ctx, doc, res, emitter.Options{
		OutDir: cfg.Out,
		Format: emitter.Format(cfg.Format),
		Force:  cfg.Force,
		DryRun: cfg.DryRun,
	})
	if err != nil {
		return wrapOutputError(err, absOut)
	}

	paths := make([]string, 0, len(emitted.Planned))
	for _, p := range emitted.Planned {
		paths = append(paths, p.RelPath)
	}
	if cfg.DryRun {
		printPlan(out, absOut, paths)
		return nil
	}
	fmt.Fprintf(out, "Wrote %d files to %s (manifest %s)\n", len(paths), absOut, emitted.Manifest)
	return nil
}

func buildOptions(cfg *GenerateConfig) []spec.BuildOption {
	opts := []spec.BuildOption{
		spec.WithIncludeTags(cfg.IncludeTags),
		spec.WithExcludeTags(cfg.ExcludeTags),
	}
	if len(cfg.Methods) > 0 {
		methods := make([]spec.HttpMethod, 0, len(cfg.Methods))
		for _, m := range cfg.Methods {
			methods = append(methods, spec.HttpMethod(m))
		}
		opts = append(opts, spec.WithMethods(methods))
	}
	if len(cfg.Paths) > 0 {
		opts = append(opts, spec.WithPathPatterns(cfg.Paths))
	}
	return opts
}

func printPlan(w io.Writer, outDir string, relPaths []string) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, len(relPaths))
	for _, p := range relPaths {
		fmt.Fprintf(w, "- %s\n", p)
	}
}

func wrapOutputError(err error, outDir string) error {
	lower := strings.ToLower(err.Error())
	for _, hint := range []string{"permission", "read-only", "mkdir", "rename", "output directory"} {
		if strings.Contains(lower, hint) {
			return newUsageError(fmt.Sprintf("output error for %s: %v\nHint: choose a different --out or use --force when appropriate.", outDir, err))
		}
	}
	return err
}
