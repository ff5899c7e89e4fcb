package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swaggen/internal/naming"
	"github.com/mark3labs/swaggen/internal/spec"
)

// NamesConfig selects either a single path/verb pair or a whole document.
type NamesConfig struct {
	Input       string
	Path        string
	Verb        string
	OperationID string
	HasQuery    bool
	Format      string
}

// nameRow is one derived naming set with the operation it belongs to.
type nameRow struct {
	Path         string `json:"path" yaml:"path"`
	Verb         string `json:"verb" yaml:"verb"`
	naming.Names `yaml:",inline"`
}

var namesRunner = runNames

func newNamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Print the identifiers derived for an endpoint",
		Long: "Print the entity, method, type and file names derived for a path and verb, " +
			"or for every operation of a document when --input is given.",
		Example: strings.TrimSpace(`  swaggen names --path /users/{userId} --verb get
  swaggen names --input spec.yaml --format json`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveNamesConfig(cmd)
			if err != nil {
				return err
			}
			return namesRunner(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to a Swagger/OpenAPI document")
	flags.String("path", "", "Endpoint path template, e.g. /users/{userId}")
	flags.String("verb", "", "HTTP verb for --path")
	flags.String("operation-id", "", "Operation id used for request/response type names")
	flags.Bool("query", false, "Treat the operation as having query parameters")
	flags.String("format", "text", "Output format (text|json|yaml)")

	return cmd
}

func resolveNamesConfig(cmd *cobra.Command) (*NamesConfig, error) {
	flags := cmd.Flags()
	cfg := &NamesConfig{}
	for name, dst := range map[string]*string{
		"input":        &cfg.Input,
		"path":         &cfg.Path,
		"verb":         &cfg.Verb,
		"operation-id": &cfg.OperationID,
		"format":       &cfg.Format,
	} {
		v, err := flags.GetString(name)
		if err != nil {
			return nil, err
		}
		*dst = strings.TrimSpace(v)
	}
	q, err := flags.GetBool("query")
	if err != nil {
		return nil, err
	}
	cfg.HasQuery = q
	cfg.Verb = strings.ToLower(cfg.Verb)
	cfg.Format = strings.ToLower(cfg.Format)

	switch {
	case cfg.Input != "" && cfg.Path != "":
		return nil, newUsageError("names: use either --input or --path, not both")
	case cfg.Input == "" && cfg.Path == "":
		return nil, newUsageError("names: --path (with --verb) or --input is required")
	case cfg.Path != "" && cfg.Verb == "":
		return nil, newUsageError("names: --verb is required with --path")
	}
	switch cfg.Format {
	case "", "text":
		cfg.Format = "text"
	case "json", "yaml":
	default:
		return nil, newUsageError(fmt.Sprintf("names: unsupported --format %q (expected text, json or yaml)", cfg.Format))
	}
	return cfg, nil
}

func runNames(ctx context.Context, cfg *NamesConfig, out io.Writer) error {
	var rows []nameRow
	if cfg.Path != "" {
		rows = append(rows, nameRow{
			Path: cfg.Path,
			Verb: cfg.Verb,
			Names: naming.Derive(naming.Input{
				Path:        cfg.Path,
				Verb:        cfg.Verb,
				OperationID: cfg.OperationID,
				HasQuery:    cfg.HasQuery,
			}),
		})
	} else {
		raw, err := spec.Load(ctx, cfg.Input)
		if err != nil {
			return specUsageError(err)
		}
		doc, err := spec.BuildDocument(ctx, raw)
		if err != nil {
			return fmt.Errorf("build document: %w", err)
		}
		rows = documentNames(doc)
	}
	return writeNames(out, cfg.Format, rows)
}

func documentNames(doc *spec.Document) []nameRow {
	rows := []nameRow{}
	for _, ep := range doc.Endpoints {
		for _, verb := range ep.Verbs() {
			op := ep.Operations[verb]
			rows = append(rows, nameRow{
				Path: ep.Path,
				Verb: verb,
				Names: naming.Derive(naming.Input{
					Path:        ep.Path,
					Verb:        verb,
					OperationID: op.OperationID,
					HasQuery:    len(op.QueryParameters()) > 0,
				}),
			})
		}
	}
	return rows
}

func writeNames(out io.Writer, format string, rows []nameRow) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "%s\n", data)
		return err
	case "yaml":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
		_, err := out.Write(buf.Bytes())
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tVERB\tMETHOD\tREQUEST\tRESPONSE\tQUERY\tFILE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Path, strings.ToUpper(r.Verb), r.Method, dash(r.Request), r.Response, dash(r.QueryParams), r.FileStem)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
