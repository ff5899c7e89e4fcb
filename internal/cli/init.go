package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "swaggen.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample swaggen configuration file",
		Long:  "Scaffold a commented swaggen configuration file that documents the generate options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			out, err := flags.GetString("out")
			if err != nil {
				return err
			}
			force, err := flags.GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := flags.GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{OutputPath: out, Force: force, Verbose: verbose}
			return initRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig, w io.Writer) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force && st.Mode().IsRegular() {
		return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(absPath)+".tmp-*")
	if err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	tmpName := tmp.Name()
	_, werr := tmp.WriteString(strings.TrimSpace(sampleConfigYAML) + "\n")
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmpName)
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v", firstErr(werr, cerr)))
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("init: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		_ = os.Remove(tmpName)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	if cfg.Verbose {
		fmt.Fprintf(w, "[INFO] sample config has %d documented options\n", len(generateFileFields))
	}
	fmt.Fprintf(w, "Wrote sample config to %s\n", absPath)
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// sampleConfigYAML documents every key generate accepts from a config file.
const sampleConfigYAML = `# swaggen configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Path or URL to the Swagger 2.0 / OpenAPI 3.x document (http/https or local file).
# input: ./openapi.yaml

# Output directory for contracts.<ext> and endpoints/*.
# out: ./contracts

# Output encoding (json|yaml). Defaults to json.
# format: json

# Only include operations with these tags (comma-separated or list).
# includeTags: [public,read]

# Exclude operations with these tags (comma-separated or list).
# excludeTags: [internal]

# Only include these HTTP methods.
# methods: [get,post]

# Only include paths matching one of these regular expressions.
# paths: ["^/users"]

# Preview planned outputs without writing files.
# dryRun: false

# Write into a non-empty output directory.
# force: false

# Exit non-zero when any endpoint fails to build.
# strict: false

# Enable verbose logging.
# verbose: false
`
