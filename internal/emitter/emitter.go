// Package emitter writes derived contract models to disk as the files
// downstream renderers read: a manifest plus one document per endpoint.
package emitter

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swaggen/internal/contract"
	"github.com/mark3labs/swaggen/internal/spec"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported format %q (expected json or yaml)", s)
}

// Options controls how contracts are written.
type Options struct {
	OutDir string // required; target directory
	Format Format // json (default) or yaml
	Force  bool   // write into a non-empty directory
	DryRun bool   // plan only
}

// PlannedFile describes a file the emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Result lists the planned files in write order.
type Result struct {
	Manifest string
	Planned  []PlannedFile
}

// Manifest is the top-level index of one generation run.
type Manifest struct {
	Title      string             `json:"title,omitempty" yaml:"title,omitempty"`
	Version    string             `json:"version,omitempty" yaml:"version,omitempty"`
	Models     []ManifestEntry    `json:"models" yaml:"models"`
	Referenced []string           `json:"referenced" yaml:"referenced"`
	Failures   []contract.Failure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// ManifestEntry points at one endpoint document.
type ManifestEntry struct {
	Path        string   `json:"path" yaml:"path"`
	Entity      string   `json:"entity" yaml:"entity"`
	File        string   `json:"file" yaml:"file"`
	Methods     []string `json:"methods" yaml:"methods"`
	Diagnostics int      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Emit encodes res and, unless DryRun is set, writes it under opts.OutDir.
func Emit(ctx context.Context, doc *spec.Document, res contract.BuildResult, opts Options) (*Result, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("emitter: OutDir is required")
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	ext := "." + string(opts.Format)

	files := map[string][]byte{}
	manifest := Manifest{Referenced: res.Referenced(), Failures: res.Failures, Models: []ManifestEntry{}}
	if doc != nil {
		manifest.Title, manifest.Version = doc.Title, doc.Version
	}

	stems := map[string]bool{}
	for _, m := range res.Models {
		rel := filepath.ToSlash(filepath.Join("endpoints", uniqueStem(stems, m.FileStem)+ext))
		data, err := encode(opts.Format, m)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", m.Path, err)
		}
		files[rel] = data

		entry := ManifestEntry{Path: m.Path, Entity: m.Entity, File: rel, Diagnostics: len(m.Diagnostics)}
		for _, op := range m.Operations {
			entry.Methods = append(entry.Methods, op.Method)
		}
		manifest.Models = append(manifest.Models, entry)
	}

	manifestRel := "contracts" + ext
	data, err := encode(opts.Format, manifest)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	files[manifestRel] = data

	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(files[rel]), Mode: 0o644})
	}

	if !opts.DryRun {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := writeFiles(opts.OutDir, rels, files, opts.Force); err != nil {
			return nil, err
		}
	}
	return &Result{Manifest: manifestRel, Planned: planned}, nil
}

// uniqueStem returns stem, or the first of stem_2, stem_3, ... that no
// earlier endpoint has claimed.
func uniqueStem(taken map[string]bool, stem string) string {
	candidate := stem
	for n := 2; taken[candidate]; n++ {
		candidate = stem + "_" + strconv.Itoa(n)
	}
	taken[candidate] = true
	return candidate
}

func encode(f Format, v any) ([]byte, error) {
	switch f {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatJSON:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
	return nil, fmt.Errorf("unsupported format %q", f)
}

func writeFiles(outDir string, rels []string, files map[string][]byte, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return fmt.Errorf("resolve out dir: %w", err)
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		if entries, rerr := os.ReadDir(abs); rerr == nil && len(entries) > 0 {
			return fmt.Errorf("emitter: output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for _, rel := range rels {
		if err := writeAtomic(filepath.Join(abs, filepath.FromSlash(rel)), files[rel]); err != nil {
			return fmt.Errorf("write %s: %w", rel, err)
		}
	}
	return nil
}

// writeAtomic writes content next to p and renames it into place.
func writeAtomic(p string, content []byte) error {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, p); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}
