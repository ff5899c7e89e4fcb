package e2e

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/mark3labs/swaggen/internal/cli"
	"github.com/mark3labs/swaggen/internal/contract"
	"github.com/mark3labs/swaggen/internal/emitter"
	"github.com/mark3labs/swaggen/internal/spec"
)

// OpenAPI v3 document with refs, composition and a query parameter
const v3Spec = "" +
	"openapi: 3.0.0\n" +
	"info:\n" +
	"  title: E2E Sample\n" +
	"  version: '1.0.0'\n" +
	"paths:\n" +
	"  /pets:\n" +
	"    get:\n" +
	"      tags: [read]\n" +
	"      parameters:\n" +
	"        - name: limit\n" +
	"          in: query\n" +
	"          schema:\n" +
	"            type: integer\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n" +
	"          content:\n" +
	"            application/json:\n" +
	"              schema:\n" +
	"                type: array\n" +
	"                items:\n" +
	"                  $ref: '#/components/schemas/Pet'\n" +
	"    post:\n" +
	"      requestBody:\n" +
	"        content:\n" +
	"          application/json:\n" +
	"            schema:\n" +
	"              $ref: '#/components/schemas/NewPet'\n" +
	"      responses:\n" +
	"        '201':\n" +
	"          description: created\n" +
	"          content:\n" +
	"            application/json:\n" +
	"              schema:\n" +
	"                $ref: '#/components/schemas/Pet'\n" +
	"components:\n" +
	"  schemas:\n" +
	"    NewPet:\n" +
	"      type: object\n" +
	"      required: [name]\n" +
	"      properties:\n" +
	"        name:\n" +
	"          type: string\n" +
	"        status:\n" +
	"          type: string\n" +
	"          enum: [available, sold]\n" +
	"    Pet:\n" +
	"      allOf:\n" +
	"        - $ref: '#/components/schemas/NewPet'\n" +
	"        - type: object\n" +
	"          required: [id]\n" +
	"          properties:\n" +
	"            id:\n" +
	"              type: integer\n" +
	"    Unused:\n" +
	"      type: object\n"

// Swagger 2.0 document with a shared definition
const v2Spec = `{
  "swagger": "2.0",
  "info": {"title": "Legacy", "version": "0.1"},
  "paths": {
    "/stores/{storeId}": {
      "get": {
        "operationId": "getStore",
        "produces": ["application/json"],
        "parameters": [{"name": "storeId", "in": "path", "required": true, "type": "string"}],
        "responses": {"200": {"description": "ok", "schema": {"$ref": "#/definitions/Store"}}}
      }
    }
  },
  "definitions": {
    "Store": {"type": "object", "properties": {"name": {"type": "string"}}}
  }
}
`

func writeTempSpec(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write spec: %v", err)
	}
	return p
}

func runCLI(t *testing.T, args ...string) {
	t.Helper()
	root := cli.NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("cli execute %v: %v", args, err)
	}
}

func digestDir(t *testing.T, dir string) (files []string, sum string) {
	t.Helper()
	h := sha256.New()
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(dir, path)
		if rerr != nil {
			return rerr
		}
		rel = filepath.ToSlash(rel)
		files = append(files, rel)
		// hash path + contents
		_, _ = h.Write([]byte(rel))
		b, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		_, _ = h.Write(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	sort.Strings(files)
	return files, hex.EncodeToString(h.Sum(nil))
}

func TestE2E_Generate_Deterministic(t *testing.T) {
	t.Parallel()
	specPath := writeTempSpec(t, "spec.yaml", v3Spec)

	for _, format := range []string{"json", "yaml"} {
		dir1 := t.TempDir()
		dir2 := t.TempDir()
		runCLI(t, "generate", "--input", specPath, "--format", format, "--out", dir1, "--force")
		runCLI(t, "generate", "--input", specPath, "--format", format, "--out", dir2, "--force")

		files1, sum1 := digestDir(t, dir1)
		files2, sum2 := digestDir(t, dir2)
		if !slicesEqual(files1, files2) || sum1 != sum2 {
			t.Fatalf("%s outputs differ between runs\nfiles1=%v\nfiles2=%v\nsum1=%s\nsum2=%s", format, files1, files2, sum1, sum2)
		}
		want := []string{"contracts." + format, "endpoints/pets." + format}
		if !slicesEqual(files1, want) {
			t.Fatalf("%s files: got %v", format, files1)
		}
	}
}

func TestE2E_Generate_Contracts(t *testing.T) {
	t.Parallel()
	specPath := writeTempSpec(t, "spec.yaml", v3Spec)
	dir := t.TempDir()
	runCLI(t, "generate", "--input", specPath, "--out", dir, "--force")

	var manifest emitter.Manifest
	readJSON(t, filepath.Join(dir, "contracts.json"), &manifest)
	if !slicesEqual(manifest.Referenced, []string{"NewPet", "Pet"}) {
		t.Fatalf("referenced: got %v", manifest.Referenced)
	}
	if len(manifest.Models) != 1 || !slicesEqual(manifest.Models[0].Methods, []string{"readPet", "createPet"}) {
		t.Fatalf("models: got %+v", manifest.Models)
	}

	var model contract.Model
	readJSON(t, filepath.Join(dir, "endpoints", "pets.json"), &model)
	list := model.Operation("get")
	if list == nil || list.QueryParams == nil || list.QueryParams.Name != "ReadPetQueryParams" {
		t.Fatalf("list operation: got %+v", list)
	}
	if f := list.QueryParams.Shape.Field("limit"); f == nil || f.Required || f.Shape.Kind != contract.KindNumber {
		t.Fatalf("limit param: got %+v", f)
	}
	items := list.Response.Shape.Items
	if list.Response.Shape.Kind != contract.KindArray || items == nil {
		t.Fatalf("list response: got %+v", list.Response.Shape)
	}
	if items.Kind != contract.KindNamed || items.Name != "Pet" {
		t.Fatalf("list items: got %+v", items)
	}

	create := model.Operation("post")
	if create == nil || create.Request == nil || create.Request.Origin != "NewPet" {
		t.Fatalf("create operation: got %+v", create)
	}
}

func TestE2E_Generate_Swagger2(t *testing.T) {
	t.Parallel()
	specPath := writeTempSpec(t, "legacy.json", v2Spec)
	dir := t.TempDir()
	runCLI(t, "generate", "--input", specPath, "--out", dir, "--force")

	var model contract.Model
	readJSON(t, filepath.Join(dir, "endpoints", "stores_storeid.json"), &model)
	op := model.Operation("get")
	if op == nil || op.Method != "readStoreByStoreId" || op.Response.Name != "GetStoreResponse" {
		t.Fatalf("operation: got %+v", op)
	}
	if op.Response.Origin != "Store" || op.Response.Shape.Kind != contract.KindNamed {
		t.Fatalf("response: got %+v", op.Response)
	}
}

// one dangling ref and one multi-encoding body next to a healthy endpoint
const degradedSpec = "" +
	"openapi: 3.0.0\n" +
	"info:\n" +
	"  title: Degraded\n" +
	"  version: '1.0.0'\n" +
	"paths:\n" +
	"  /orders/{orderId}:\n" +
	"    get:\n" +
	"      parameters:\n" +
	"        - { name: orderId, in: path, required: true, schema: { type: string } }\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n" +
	"          content:\n" +
	"            application/json:\n" +
	"              schema: { $ref: '#/components/schemas/Order' }\n" +
	"  /pets:\n" +
	"    post:\n" +
	"      requestBody:\n" +
	"        content:\n" +
	"          application/json:\n" +
	"            schema: { $ref: '#/components/schemas/Pet' }\n" +
	"          application/x-www-form-urlencoded:\n" +
	"            schema: { $ref: '#/components/schemas/Pet' }\n" +
	"      responses:\n" +
	"        '201':\n" +
	"          description: created\n" +
	"          content:\n" +
	"            application/json:\n" +
	"              schema: { $ref: '#/components/schemas/Pet' }\n" +
	"  /health:\n" +
	"    get:\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n" +
	"          content:\n" +
	"            application/json:\n" +
	"              schema: { type: object, properties: { status: { type: string } } }\n" +
	"components:\n" +
	"  schemas:\n" +
	"    Pet:\n" +
	"      type: object\n" +
	"      properties:\n" +
	"        name: { type: string }\n"

func TestE2E_Pipeline_DegradesPerEndpoint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	raw, err := spec.Load(ctx, writeTempSpec(t, "degraded.yaml", degradedSpec))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	doc, err := spec.BuildDocument(ctx, raw)
	if err != nil {
		t.Fatalf("build document: %v", err)
	}
	res := contract.BuildAll(doc)
	if len(res.Failures) != 0 {
		t.Fatalf("failures: got %+v", res.Failures)
	}
	if len(res.Models) != 3 {
		t.Fatalf("models: got %d", len(res.Models))
	}

	codes := map[string]contract.Code{}
	for _, m := range res.Models {
		for _, d := range m.Diagnostics {
			if d.Code == contract.UnknownReference || d.Code == contract.UnsupportedContentEncoding {
				codes[m.Path] = d.Code
			}
		}
	}
	if codes["/orders/{orderId}"] != contract.UnknownReference {
		t.Errorf("orders: expected UnknownReference, got %v", codes)
	}
	if codes["/pets"] != contract.UnsupportedContentEncoding {
		t.Errorf("pets: expected UnsupportedContentEncoding, got %v", codes)
	}
	if _, ok := codes["/health"]; ok {
		t.Errorf("health: unexpected diagnostics %v", codes)
	}

	var pets *contract.Model
	for _, m := range res.Models {
		if m.Path == "/pets" {
			pets = m
		}
	}
	if op := pets.Operation("post"); op == nil || op.Request == nil || op.Request.Origin != "Pet" {
		t.Fatalf("pets post: got %+v", op)
	}

	out, err := emitter.Emit(ctx, doc, res, emitter.Options{OutDir: t.TempDir(), DryRun: true})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(out.Planned) != 4 {
		t.Fatalf("planned: got %+v", out.Planned)
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
