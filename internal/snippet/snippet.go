// Package snippet renders example client code for catalog endpoints.
package snippet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"text/template"

	"github.com/bcnelson/sandbox-console/internal/domain"
	"github.com/gosimple/slug"
)

// Languages lists the supported snippet languages in display order.
var Languages = []string{"curl", "go", "python", "javascript"}

// Context carries the environment-specific values substituted into a snippet.
type Context struct {
	BaseURL string
	APIKey  string
}

// BaseURL returns the sandbox base URL for an environment name.
func BaseURL(envName string) string {
	s := slug.Make(envName)
	if s == "" {
		s = "sandbox"
	}
	return "https://" + s + ".sandbox.local/v1"
}

type view struct {
	Method  string
	URL     string
	APIKey  string
	Auth    bool
	Body    string
	HasBody bool
}

var templates = template.Must(template.New("snippets").Funcs(template.FuncMap{
	"indent": func(prefix, s string) string {
		return strings.ReplaceAll(s, "\n", "\n"+prefix)
	},
}).Parse(`
{{- define "curl" -}}
curl -X {{.Method}} "{{.URL}}" \
{{- if .Auth}}
  -H "Authorization: Bearer {{.APIKey}}" \
{{- end}}
  -H "Content-Type: application/json"
{{- if .HasBody}} \
  -d '{{.Body}}'
{{- end}}
{{end}}

{{- define "go" -}}
package main

import (
	"fmt"
	"io"
	"net/http"
{{- if .HasBody}}
	"strings"
{{- end}}
)

func main() {
{{- if .HasBody}}
	body := strings.NewReader(` + "`{{.Body}}`" + `)
	req, err := http.NewRequest("{{.Method}}", "{{.URL}}", body)
{{- else}}
	req, err := http.NewRequest("{{.Method}}", "{{.URL}}", nil)
{{- end}}
	if err != nil {
		panic(err)
	}
{{- if .Auth}}
	req.Header.Set("Authorization", "Bearer {{.APIKey}}")
{{- end}}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()

	out, _ := io.ReadAll(resp.Body)
	fmt.Println(resp.Status, string(out))
}
{{end}}

{{- define "python" -}}
import json
import requests

headers = {
{{- if .Auth}}
    "Authorization": "Bearer {{.APIKey}}",
{{- end}}
    "Content-Type": "application/json",
}
{{- if .HasBody}}
payload = json.loads("""
{{.Body}}
""")
response = requests.request("{{.Method}}", "{{.URL}}", headers=headers, json=payload)
{{- else}}
response = requests.request("{{.Method}}", "{{.URL}}", headers=headers)
{{- end}}
print(response.status_code, response.text)
{{end}}

{{- define "javascript" -}}
const response = await fetch("{{.URL}}", {
  method: "{{.Method}}",
  headers: {
{{- if .Auth}}
    "Authorization": "Bearer {{.APIKey}}",
{{- end}}
    "Content-Type": "application/json",
  },
{{- if .HasBody}}
  body: JSON.stringify({{indent "  " .Body}}),
{{- end}}
});
console.log(response.status, await response.text());
{{end}}
`))

// Render produces a snippet calling endpoint in lang.
func Render(lang string, endpoint domain.Endpoint, ctx Context) (string, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !slices.Contains(Languages, lang) {
		return "", fmt.Errorf("unsupported language %q: %w", lang, domain.ErrInvalidInput)
	}

	v := view{
		Method: strings.ToUpper(endpoint.Method),
		URL:    strings.TrimRight(ctx.BaseURL, "/") + examplePath(endpoint.Path),
		APIKey: ctx.APIKey,
		Auth:   endpoint.RequiresAuth,
	}
	if v.APIKey == "" {
		v.APIKey = "YOUR_API_KEY"
	}
	if len(endpoint.RequestSchema) > 0 {
		body, err := json.MarshalIndent(exampleBody(endpoint.RequestSchema), "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding example body: %w", err)
		}
		v.Body, v.HasBody = string(body), true
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, lang, v); err != nil {
		return "", fmt.Errorf("rendering %s snippet: %w", lang, err)
	}
	return buf.String(), nil
}

// RenderAll renders endpoint in every supported language.
func RenderAll(endpoint domain.Endpoint, ctx Context) (map[string]string, error) {
	out := make(map[string]string, len(Languages))
	for _, lang := range Languages {
		s, err := Render(lang, endpoint, ctx)
		if err != nil {
			return nil, err
		}
		out[lang] = s
	}
	return out, nil
}

// examplePath substitutes a sample value for every {param} segment.
func examplePath(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			segs[i] = "example_" + strings.Trim(s, "{}")
		}
	}
	return strings.Join(segs, "/")
}

func exampleBody(schema map[string]string) map[string]any {
	out := make(map[string]any, len(schema))
	for _, field := range slices.Sorted(maps.Keys(schema)) {
		switch schema[field] {
		case "email":
			out[field] = "jane@example.com"
		case "number":
			out[field] = 19.99
		case "integer":
			out[field] = 1
		case "boolean":
			out[field] = true
		case "array":
			out[field] = []any{}
		case "object":
			out[field] = map[string]any{}
		case "id":
			out[field] = "example_" + field
		default:
			out[field] = "example " + field
		}
	}
	return out
}
