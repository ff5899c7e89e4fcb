package spec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	openapi2 "github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	json "github.com/goccy/go-json"
	invopopyaml "github.com/invopop/yaml"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// SpecError is a structured loader error with an optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// AllowFileRefs permits file-based external refs when the root document
	// was fetched over http(s). Local roots always allow them.
	AllowFileRefs bool
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option             { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option  { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option     { return func(s *Settings) { s.AllowFileRefs = allow } }

// source is a fetched root document.
type source struct {
	location string
	raw      []byte
	uri      *url.URL // nil for local files
}

func (s source) isFile() bool { return s.uri == nil }

// base is the URL relative refs resolve against.
func (s source) base() *url.URL {
	if s.isFile() {
		return &url.URL{Path: filepath.ToSlash(s.location)}
	}
	return s.uri
}

// Load reads, validates, and returns an OpenAPI v3 document. Swagger 2.0
// input is converted with openapi2conv.
//
// input may be a filesystem path or an http/https URL. file:// URLs are
// rejected.
func Load(ctx context.Context, input string, opts ...Option) (*openapi3.T, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	src, err := readSource(ctx, input, settings)
	if err != nil {
		return nil, err
	}

	version, err := detectSpecVersion(src.raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: src.location, Cause: err}
	}

	loader := newLoader(settings, src.isFile())
	var doc *openapi3.T
	switch version {
	case 3:
		doc, err = loadV3(loader, src)
		if err != nil {
			return nil, err
		}
	case 2:
		doc, err = loadV2(loader, src)
		if err != nil {
			return nil, err
		}
	default:
		return nil, &SpecError{Code: ParseError, Message: "spec: unknown or unsupported OpenAPI/Swagger version", Location: src.location}
	}

	if err := doc.Validate(ctx); err != nil && !canProceedDespiteValidation(err) {
		return nil, mapValidateOrParseErr(err, src.location)
	}
	return doc, nil
}

func readSource(ctx context.Context, input string, settings Settings) (source, error) {
	u, uerr := url.Parse(input)
	if uerr == nil && u.Scheme != "" && u.Host != "" {
		switch scheme := strings.ToLower(u.Scheme); scheme {
		case "http", "https":
		case "file":
			return source{}, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked", Location: input}
		default:
			return source{}, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return source{}, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return source{location: input, raw: raw, uri: u}, nil
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return source{}, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return source{}, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return source{location: abs, raw: raw}, nil
}

func loadV3(loader *openapi3.Loader, src source) (*openapi3.T, error) {
	doc := &openapi3.T{}
	if err := invopopyaml.Unmarshal(src.raw, doc); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse spec: %v", err), Location: src.location, Cause: err}
	}
	if err := resolveRefs(loader, doc, src.raw, src.base()); err != nil && !canProceedDespiteValidation(err) {
		return nil, mapValidateOrParseErr(err, src.location)
	}
	return doc, nil
}

func loadV2(loader *openapi3.Loader, src source) (*openapi3.T, error) {
	raw := src.raw
	if fixed, changed, _ := preprocessV2ForCompatibility(raw); changed {
		raw = fixed
	}
	doc, err := convertV2ToV3(raw)
	if err != nil {
		return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: src.location, Cause: err}
	}
	converted, err := json.Marshal(doc)
	if err != nil {
		return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: src.location, Cause: err}
	}
	if err := resolveRefs(loader, doc, converted, src.base()); err != nil && !canProceedDespiteValidation(err) {
		return nil, mapValidateOrParseErr(err, src.location)
	}
	return doc, nil
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: settings.HTTPTimeout}
	allowFile := settings.AllowFileRefs || rootIsFile
	loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			if !allowFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			resp, err := client.Get(uri.String())
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectSpecVersion returns 3 for OpenAPI v3, 2 for Swagger v2, else error.
func detectSpecVersion(data []byte) (int, error) {
	var root struct {
		OpenAPI string `yaml:"openapi"`
		Swagger string `yaml:"swagger"`
	}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse spec: %w", err)
	}
	switch {
	case strings.HasPrefix(strings.TrimSpace(root.OpenAPI), "3."):
		return 3, nil
	case strings.HasPrefix(strings.TrimSpace(root.Swagger), "2."):
		return 2, nil
	}
	return 0, errors.New("spec: missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

// convertV2ToV3 converts a Swagger 2.0 document. Dangling #/definitions refs
// are converted against empty placeholders that are dropped afterwards.
func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var v2 openapi2.T
	if err := yaml.Unmarshal(data, &v2); err != nil {
		return nil, err
	}
	missing := danglingRefs(data, definitionRefPrefix, func(name string) bool {
		_, ok := v2.Definitions[name]
		return ok
	})
	if len(missing) > 0 && v2.Definitions == nil {
		v2.Definitions = map[string]*openapi3.SchemaRef{}
	}
	for _, name := range missing {
		v2.Definitions[name] = &openapi3.SchemaRef{Value: &openapi3.Schema{}}
	}
	doc, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return nil, err
	}
	for _, name := range missing {
		delete(doc.Components.Schemas, name)
	}
	return doc, nil
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		body, retry, err := fetchOnce(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, lastErr
}

// fetchOnce performs one GET. retry reports whether the failure is transient.
func fetchOnce(ctx context.Context, client *http.Client, rawURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode < 300:
		body, err = io.ReadAll(resp.Body)
		return body, false, err
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
}

func mapValidateOrParseErr(err error, location string) error {
	code := ValidationError
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "parse") || strings.Contains(msg, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: extractJSONPointer(err), Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok && len(me) > 0 {
		return extractJSONPointer(me[0])
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	return jsonPtrRe.FindString(err.Error())
}

// canProceedDespiteValidation reports whether a validation failure still
// leaves a document good enough for best-effort derivation. Dangling local
// schema refs never reach here; resolveRefs binds them to placeholders.
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unresolved ref")
}
