package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swaggen/internal/emitter"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input       string
	Out         string
	Format      string
	IncludeTags []string
	ExcludeTags []string
	Methods     []string
	Paths       []string
	ConfigPath  string
	DryRun      bool
	Force       bool
	Strict      bool
	Verbose     bool
}

const defaultOutDir = "contracts"

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Out: defaultOutDir, Format: string(emitter.FormatJSON)}
}

var knownMethods = map[string]bool{
	"get": true, "post": true, "put": true, "patch": true, "delete": true,
	"head": true, "options": true, "trace": true,
}

// fileSetter applies one config file value.
type fileSetter func(cfg *GenerateConfig, v any) error

// generateFileFields maps normalized config keys to their setters.
var generateFileFields = map[string]fileSetter{
	"input":       stringField(func(c *GenerateConfig) *string { return &c.Input }),
	"out":         stringField(func(c *GenerateConfig) *string { return &c.Out }),
	"format":      stringField(func(c *GenerateConfig) *string { return &c.Format }),
	"includetags": listField(func(c *GenerateConfig) *[]string { return &c.IncludeTags }),
	"excludetags": listField(func(c *GenerateConfig) *[]string { return &c.ExcludeTags }),
	"methods":     listField(func(c *GenerateConfig) *[]string { return &c.Methods }),
	"paths":       listField(func(c *GenerateConfig) *[]string { return &c.Paths }),
	"dryrun":      boolField(func(c *GenerateConfig) *bool { return &c.DryRun }),
	"force":       boolField(func(c *GenerateConfig) *bool { return &c.Force }),
	"strict":      boolField(func(c *GenerateConfig) *bool { return &c.Strict }),
	"verbose":     boolField(func(c *GenerateConfig) *bool { return &c.Verbose }),
}

func stringField(get func(*GenerateConfig) *string) fileSetter {
	return func(cfg *GenerateConfig, v any) error {
		s, err := valueAsString(v)
		if err != nil {
			return err
		}
		*get(cfg) = s
		return nil
	}
}

func listField(get func(*GenerateConfig) *[]string) fileSetter {
	return func(cfg *GenerateConfig, v any) error {
		list, err := valueAsStringSlice(v)
		if err != nil {
			return err
		}
		*get(cfg) = sanitizeList(list)
		return nil
	}
}

func boolField(get func(*GenerateConfig) *bool) fileSetter {
	return func(cfg *GenerateConfig, v any) error {
		b, err := valueAsBool(v)
		if err != nil {
			return err
		}
		*get(cfg) = b
		return nil
	}
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		set, ok := generateFileFields[normalizeKey(key)]
		if !ok {
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err := set(cfg, value); err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}
	return nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"input", &cfg.Input},
		{"out", &cfg.Out},
		{"format", &cfg.Format},
	}
	for _, f := range strs {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetString(f.name)
		if err != nil {
			return err
		}
		*f.dst = strings.TrimSpace(v)
	}

	lists := []struct {
		name string
		dst  *[]string
	}{
		{"include-tags", &cfg.IncludeTags},
		{"exclude-tags", &cfg.ExcludeTags},
		{"methods", &cfg.Methods},
		{"paths", &cfg.Paths},
	}
	for _, f := range lists {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetStringSlice(f.name)
		if err != nil {
			return err
		}
		*f.dst = sanitizeList(v)
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"dry-run", &cfg.DryRun},
		{"force", &cfg.Force},
		{"strict", &cfg.Strict},
		{"verbose", &cfg.Verbose},
	}
	for _, f := range bools {
		if !flags.Changed(f.name) {
			continue
		}
		v, err := flags.GetBool(f.name)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	if c.Out == "" {
		c.Out = defaultOutDir
	}
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.IncludeTags = sanitizeList(c.IncludeTags)
	c.ExcludeTags = sanitizeList(c.ExcludeTags)
	c.Paths = sanitizeList(c.Paths)
	methods := sanitizeList(c.Methods)
	for i, m := range methods {
		methods[i] = strings.ToLower(m)
	}
	c.Methods = sanitizeList(methods)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}

	f, err := emitter.ParseFormat(c.Format)
	if err != nil {
		return newUsageError(fmt.Sprintf("generate: %v", err))
	}
	c.Format = string(f)

	for _, m := range c.Methods {
		if !knownMethods[m] {
			return newUsageError(fmt.Sprintf("generate: unsupported method %q in --methods", m))
		}
	}
	for _, p := range c.Paths {
		if _, err := regexp.Compile(p); err != nil {
			return newUsageError(fmt.Sprintf("generate: invalid --paths pattern %q: %v", p, err))
		}
	}

	if overlap := intersect(c.IncludeTags, c.ExcludeTags); len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}
	return nil
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

// normalizeKey folds "includeTags", "include-tags" and "include_tags" together.
func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	return strings.NewReplacer("-", "", "_", "").Replace(lowered)
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case nil:
		return false, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean value %q", val)
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	var cleaned []string
	for _, part := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
