package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
)

// requestValidator checks request bodies against the OpenAPI document.
type requestValidator struct {
	doc *openapi3.T
	// messages overrides the 400 body per path.
	messages map[string]string
}

func newRequestValidator(spec []byte, messages map[string]string) (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI document: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	return &requestValidator{doc: doc, messages: messages}, nil
}

// route resolves the documented operation for r, or nil.
func (v *requestValidator) route(r *http.Request) *routers.Route {
	item := v.doc.Paths.Find(r.URL.Path)
	if item == nil {
		return nil
	}
	op := item.GetOperation(r.Method)
	if op == nil {
		return nil
	}
	return &routers.Route{
		Spec:      v.doc,
		Path:      r.URL.Path,
		PathItem:  item,
		Method:    r.Method,
		Operation: op,
	}
}

func (v *requestValidator) middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := v.route(r)
			if route == nil {
				next.ServeHTTP(w, r)
				return
			}
			err := openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
				Request: r,
				Route:   route,
				Options: &openapi3filter.Options{ExcludeResponseBody: true},
			})
			if err != nil {
				msg, ok := v.messages[route.Path]
				if !ok {
					msg = "Invalid request: " + err.Error()
				}
				http.Error(w, msg, http.StatusBadRequest)
				logger.Warn("Request failed validation", "path", route.Path, "error", err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
