package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/questx-lab/luckydraw/pkg/errorx"
	"github.com/questx-lab/luckydraw/pkg/xcontext"
)

type response struct {
	Code  int64  `json:"code"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func newResponse(data any) response {
	return response{
		Code: 0,
		Data: data,
	}
}

func newErrorResponse(err error) response {
	errx := errorx.Error{}
	if errors.As(err, &errx) {
		return response{
			Code:  int64(errx.Code),
			Error: errx.Message,
		}
	}

	return response{
		Code:  int64(errorx.Unknown.Code),
		Error: errorx.Unknown.Message,
	}
}

// StatusCode maps an error to the http status sent with it.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch errorx.CodeOf(err) {
	case errorx.BadRequest, errorx.ConfigInvalid, errorx.InvalidQuantity:
		return http.StatusBadRequest
	case errorx.Unauthenticated:
		return http.StatusUnauthorized
	case errorx.PermissionDenied:
		return http.StatusForbidden
	case errorx.NotFound:
		return http.StatusNotFound
	case errorx.MethodNotAllowed:
		return http.StatusMethodNotAllowed
	case errorx.AlreadyExists, errorx.InvalidTransition, errorx.DrawFinalized, errorx.DrawNotLocked,
		errorx.NoEligibleEntries, errorx.NoWinnersSelected, errorx.WinnerAlreadySelected:
		return http.StatusConflict
	case errorx.TooManyRequests:
		return http.StatusTooManyRequests
	case errorx.NotImplemented:
		return http.StatusNotImplemented
	case errorx.Unavailable, errorx.WheelUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func handleResponse(ctx context.Context) {
	w := xcontext.HTTPWriter(ctx)
	err := xcontext.Error(ctx)
	if err == nil {
		resp := xcontext.Response(ctx)
		if resp == nil {
			return
		}

		if err = WriteJson(w, http.StatusOK, newResponse(resp)); err == nil {
			return
		}

		xcontext.Logger(ctx).Errorf("Cannot write the response: %v", err)
		err = errorx.New(errorx.BadResponse, "Cannot write the response")
	}

	if err := WriteJson(w, StatusCode(err), newErrorResponse(err)); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot write the response: %v", err)
	}
}

func WriteJson(w http.ResponseWriter, status int, resp any) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		return err
	}

	return nil
}
