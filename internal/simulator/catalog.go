package simulator

import (
	"maps"
	"slices"
	"strings"

	"github.com/bcnelson/sandbox-console/internal/domain"
)

var (
	userSchema = map[string]string{
		"id":        "id",
		"name":      "string",
		"email":     "email",
		"role":      "string",
		"active":    "boolean",
		"createdAt": "datetime",
	}
	orderSchema = map[string]string{
		"id":        "id",
		"userId":    "id",
		"total":     "number",
		"items":     "array",
		"status":    "string",
		"createdAt": "datetime",
	}
	productSchema = map[string]string{
		"id":      "id",
		"name":    "string",
		"price":   "number",
		"inStock": "boolean",
		"tags":    "array",
	}
)

var defaultCatalog = []domain.Endpoint{
	{
		Method: "GET", Path: "/users", Description: "List users",
		RequiresAuth: true, ResponseSchema: userSchema, Tags: []string{"users"},
	},
	{
		Method: "POST", Path: "/users", Description: "Create a user",
		RequiresAuth:   true,
		RequestSchema:  map[string]string{"name": "string", "email": "email", "role": "string"},
		ResponseSchema: userSchema, Tags: []string{"users"},
	},
	{
		Method: "GET", Path: "/users/{id}", Description: "Get a user by id",
		RequiresAuth: true, ResponseSchema: userSchema, Tags: []string{"users"},
	},
	{
		Method: "PUT", Path: "/users/{id}", Description: "Replace a user",
		RequiresAuth:   true,
		RequestSchema:  map[string]string{"name": "string", "email": "email", "role": "string"},
		ResponseSchema: userSchema, Tags: []string{"users"},
	},
	{
		Method: "DELETE", Path: "/users/{id}", Description: "Delete a user",
		RequiresAuth: true, Tags: []string{"users"},
	},
	{
		Method: "POST", Path: "/orders", Description: "Place an order",
		RequiresAuth:   true,
		RequestSchema:  map[string]string{"userId": "id", "items": "array"},
		ResponseSchema: orderSchema, Tags: []string{"orders"},
	},
	{
		Method: "GET", Path: "/orders/{id}", Description: "Get an order by id",
		RequiresAuth: true, ResponseSchema: orderSchema, Tags: []string{"orders"},
	},
	{
		Method: "GET", Path: "/products", Description: "List products",
		ResponseSchema: productSchema, Tags: []string{"products", "public"},
	},
	{
		Method: "GET", Path: "/products/{id}", Description: "Get a product by id",
		ResponseSchema: productSchema, Tags: []string{"products", "public"},
	},
	{
		Method: "GET", Path: "/health", Description: "Service health",
		ResponseSchema: map[string]string{"status": "string"}, Tags: []string{"system", "public"},
	},
}

// DefaultCatalog returns a copy of the built-in mock endpoint catalog.
func DefaultCatalog() []domain.Endpoint {
	out := make([]domain.Endpoint, len(defaultCatalog))
	for i, e := range defaultCatalog {
		e.RequestSchema = maps.Clone(e.RequestSchema)
		e.ResponseSchema = maps.Clone(e.ResponseSchema)
		e.Tags = slices.Clone(e.Tags)
		out[i] = e
	}
	return out
}

// FindEndpoint returns the catalog entry with the given method and path template.
func FindEndpoint(catalog []domain.Endpoint, method, path string) (domain.Endpoint, bool) {
	for _, e := range catalog {
		if e.Method == strings.ToUpper(method) && e.Path == path {
			return e, true
		}
	}
	return domain.Endpoint{}, false
}

// lookup returns the entries registered for path. Exact paths win over
// templates; among templates, the first one in catalog order that matches
// selects the set. params holds the template's bound segments.
func lookup(catalog []domain.Endpoint, path string) (entries []domain.Endpoint, params map[string]string) {
	for _, e := range catalog {
		if e.Path == path {
			entries = append(entries, e)
		}
	}
	if len(entries) > 0 {
		return entries, nil
	}

	var template string
	for _, e := range catalog {
		if !e.HasIDParam() {
			continue
		}
		if p, ok := matchTemplate(e.Path, path); ok {
			template, params = e.Path, p
			break
		}
	}
	if template == "" {
		return nil, nil
	}
	for _, e := range catalog {
		if e.Path == template {
			entries = append(entries, e)
		}
	}
	return entries, params
}

// matchTemplate matches path against a template where each {name} segment
// binds exactly one non-empty segment.
func matchTemplate(template, path string) (map[string]string, bool) {
	tSegs := strings.Split(strings.Trim(template, "/"), "/")
	pSegs := strings.Split(strings.Trim(path, "/"), "/")
	if len(tSegs) != len(pSegs) {
		return nil, false
	}
	params := make(map[string]string)
	for i, t := range tSegs {
		p := pSegs[i]
		if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
			if p == "" {
				return nil, false
			}
			params[t[1:len(t)-1]] = p
			continue
		}
		if t != p {
			return nil, false
		}
	}
	return params, true
}
