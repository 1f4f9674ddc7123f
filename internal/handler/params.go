package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

// pathParam binds the chi URL parameter name into dest using the simple
// path style of OpenAPI parameters.
func pathParam(r *http.Request, name string, dest any) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}

func sessionID(r *http.Request) (uuid.UUID, error) {
	var id uuid.UUID
	err := pathParam(r, "id", &id)
	return id, err
}

func imageID(r *http.Request) (int64, error) {
	var id int64
	if err := pathParam(r, "imageId", &id); err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("invalid format for parameter imageId: must be positive")
	}
	return id, nil
}

// decodeBody decodes a JSON request body into dst. Unknown members are
// rejected. An empty body is accepted when optional is set.
func decodeBody(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
