package emitter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/swaggen/internal/contract"
	"github.com/mark3labs/swaggen/internal/spec"
)

func sampleBuild() (*spec.Document, contract.BuildResult) {
	user := &spec.SchemaDefinition{Kind: spec.KindObject, Properties: map[string]*spec.SchemaDefinition{
		"id": {Kind: spec.KindPrimitive, Type: "string"},
	}}
	userRef := &spec.SchemaDefinition{Kind: spec.KindReference, Ref: "User"}
	ok := []spec.ResponseModel{{Status: "200", Content: []spec.Media{{Mime: "application/json", Schema: userRef}}}}
	doc := &spec.Document{
		Title:    "Sample API",
		Version:  "1.0.0",
		Registry: spec.NewRegistry(map[string]*spec.SchemaDefinition{"User": user}),
		Endpoints: []spec.EndpointSpec{
			{Path: "/users", Operations: map[string]*spec.OperationSpec{"get": {Responses: ok}, "post": {Responses: ok}}},
			{Path: "/users/{userId}", Operations: map[string]*spec.OperationSpec{"get": {Responses: ok}}},
			{Path: "/users/{userID}", Operations: map[string]*spec.OperationSpec{"delete": {}}},
			{Path: "/broken", Operations: map[string]*spec.OperationSpec{"get": {}, "READ": {}}},
		},
	}
	return doc, contract.BuildAll(doc)
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yaml": FormatYAML, "yml": FormatYAML}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; expected %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("toml"); err == nil {
		t.Errorf("expected error for toml")
	}
}

func TestEmit_DryRun_Plan(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	doc, res := sampleBuild()

	out, err := Emit(context.Background(), doc, res, Options{OutDir: dir, DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	want := []string{
		"contracts.json",
		"endpoints/users.json",
		"endpoints/users_userid.json",
		"endpoints/users_userid_2.json",
	}
	if len(out.Planned) != len(want) {
		t.Fatalf("planned: got %+v", out.Planned)
	}
	for i, p := range want {
		if out.Planned[i].RelPath != p {
			t.Fatalf("planned[%d]: got %s, expected %s", i, out.Planned[i].RelPath, p)
		}
		if out.Planned[i].Size == 0 || out.Planned[i].Mode != 0o644 {
			t.Fatalf("planned[%d]: bad size/mode %+v", i, out.Planned[i])
		}
	}
	if out.Manifest != "contracts.json" {
		t.Fatalf("manifest: got %q", out.Manifest)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Fatalf("expected no files written on dry-run")
	}
}

func TestEmit_WriteJSON(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "out")
	doc, res := sampleBuild()

	if _, err := Emit(context.Background(), doc, res, Options{OutDir: dir}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "contracts.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("decode manifest: %v", err)
	}
	if manifest.Title != "Sample API" || len(manifest.Models) != 3 {
		t.Fatalf("manifest: got %+v", manifest)
	}
	if len(manifest.Referenced) != 1 || manifest.Referenced[0] != "User" {
		t.Fatalf("manifest referenced: got %v", manifest.Referenced)
	}
	if len(manifest.Failures) != 1 || manifest.Failures[0].Code != contract.NamingCollision {
		t.Fatalf("manifest failures: got %+v", manifest.Failures)
	}
	if m := manifest.Models[0]; m.File != "endpoints/users.json" || strings.Join(m.Methods, ",") != "readUser,createUser" {
		t.Fatalf("manifest entry: got %+v", m)
	}

	raw, err = os.ReadFile(filepath.Join(dir, "endpoints", "users_userid.json"))
	if err != nil {
		t.Fatalf("read endpoint: %v", err)
	}
	var model contract.Model
	if err := json.Unmarshal(raw, &model); err != nil {
		t.Fatalf("decode endpoint: %v", err)
	}
	if model.Entity != "User" || len(model.Operations) != 1 || model.Operations[0].Method != "readUserByUserId" {
		t.Fatalf("endpoint model: got %+v", model)
	}
	if model.Operations[0].Response.Origin != "User" {
		t.Fatalf("response origin: got %+v", model.Operations[0].Response)
	}

	// no temp files left behind
	entries, _ := os.ReadDir(filepath.Join(dir, "endpoints"))
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestEmit_WriteYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	doc, res := sampleBuild()

	out, err := Emit(context.Background(), doc, res, Options{OutDir: dir, Format: FormatYAML, Force: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if out.Manifest != "contracts.yaml" {
		t.Fatalf("manifest: got %q", out.Manifest)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "endpoints", "users.yaml"))
	if err != nil {
		t.Fatalf("read endpoint: %v", err)
	}
	var model contract.Model
	if err := yaml.Unmarshal(raw, &model); err != nil {
		t.Fatalf("decode endpoint: %v", err)
	}
	if model.Path != "/users" || len(model.Operations) != 2 || model.Operations[1].Request == nil {
		t.Fatalf("endpoint model: got %+v", model)
	}
	if model.Operations[1].Request.Name != "PostUserRequest" {
		t.Fatalf("request name: got %q", model.Operations[1].Request.Name)
	}
}

func TestEmit_NonEmptyDirRequiresForce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	doc, res := sampleBuild()
	if _, err := Emit(context.Background(), doc, res, Options{OutDir: dir}); err == nil || !strings.Contains(err.Error(), "not empty") {
		t.Fatalf("expected non-empty dir error, got %v", err)
	}
	if _, err := Emit(context.Background(), doc, res, Options{OutDir: dir, Force: true}); err != nil {
		t.Fatalf("emit with force: %v", err)
	}
}

func TestEmit_RequiresOutDir(t *testing.T) {
	t.Parallel()
	doc, res := sampleBuild()
	if _, err := Emit(context.Background(), doc, res, Options{}); err == nil {
		t.Fatalf("expected error for empty OutDir")
	}
}

func TestEmit_SuffixedStemDoesNotShadowRealStem(t *testing.T) {
	t.Parallel()
	res := contract.BuildResult{Models: []*contract.Model{
		{Path: "/a/b", Entity: "B", FileStem: "a_b"},
		{Path: "/a/{b}", Entity: "A", FileStem: "a_b"},
		{Path: "/a/b/2", Entity: "Two", FileStem: "a_b_2"},
	}}
	out, err := Emit(context.Background(), &spec.Document{}, res, Options{OutDir: t.TempDir(), DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	planned := map[string]bool{}
	for _, p := range out.Planned {
		planned[p.RelPath] = true
	}
	for _, want := range []string{"endpoints/a_b.json", "endpoints/a_b_2.json", "endpoints/a_b_2_2.json"} {
		if !planned[want] {
			t.Errorf("missing planned file %s in %+v", want, out.Planned)
		}
	}
	if len(out.Planned) != 4 {
		t.Fatalf("expected manifest plus 3 endpoint files, got %+v", out.Planned)
	}
}

func TestUniqueStem(t *testing.T) {
	t.Parallel()
	taken := map[string]bool{}
	var got []string
	for _, stem := range []string{"a_b", "a_b", "a_b_2", "a_b", "root"} {
		got = append(got, uniqueStem(taken, stem))
	}
	want := "a_b,a_b_2,a_b_2_2,a_b_3,root"
	if strings.Join(got, ",") != want {
		t.Fatalf("got %v, expected %s", got, want)
	}
}
