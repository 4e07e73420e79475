package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
)

const maxBodySize = 1 << 20

var validate = validator.New()

type wrapper[Request, Response any] struct {
	method  string
	handler HandlerFunc[Request, Response]
	befores []MiddlewareFunc
	afters  []CloserFunc
}

func (h *wrapper[Request, Response]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx = xcontext.WithHTTPRequest(ctx, r)
	ctx = xcontext.WithHTTPWriter(ctx, w)

	ctx, err := h.serve(ctx, r)
	ctx = xcontext.WithError(ctx, err)

	handleResponse(ctx)
	for _, closer := range h.afters {
		closer(ctx)
	}
}

func (h *wrapper[Request, Response]) serve(ctx context.Context, r *http.Request) (context.Context, error) {
	if r.Method != h.method {
		return ctx, errorx.New(errorx.MethodNotAllowed, "Method %s is not allowed", r.Method)
	}

	for _, middleware := range h.befores {
		next, err := middleware(ctx)
		if err != nil {
			return ctx, err
		}

		ctx = next
	}

	req := new(Request)
	if err := parseRequest(r, req); err != nil {
		xcontext.Logger(ctx).Debugf("Cannot parse request: %v", err)
		return ctx, errorx.New(errorx.BadRequest, "Invalid request: %v", err)
	}

	if err := validate.Struct(req); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); !ok {
			return ctx, errorx.New(errorx.BadRequest, "Invalid request: %v", err)
		}
	}

	resp, err := h.handler(ctx, req)
	if err != nil {
		return ctx, err
	}

	// A nil response means the handler wrote the body itself.
	if resp != nil {
		ctx = xcontext.WithResponse(ctx, resp)
	}

	return ctx, nil
}

func parseRequest(r *http.Request, req any) error {
	if r.Method == http.MethodGet {
		return decodeQuery(r.URL.Query(), req)
	}

	if r.Body == nil {
		return nil
	}

	// An empty body leaves every field zero.
	err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize)).Decode(req)
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}

// decodeQuery fills req from query parameters named after its json tags.
// Repeated parameters decode into slices.
func decodeQuery(query url.Values, req any) error {
	input := map[string]any{}
	for key, values := range query {
		if len(values) == 1 {
			input[key] = values[0]
		} else {
			input[key] = values
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           req,
	})
	if err != nil {
		return err
	}

	return decoder.Decode(input)
}
