package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"asset-tokenization-kit/internal/apperr"
	"asset-tokenization-kit/internal/assets"
	"asset-tokenization-kit/internal/auth"
	"asset-tokenization-kit/internal/documents"
	"asset-tokenization-kit/internal/exchangerate"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/storage"
	"asset-tokenization-kit/internal/txwatch"
	"asset-tokenization-kit/internal/validate"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    apperr.Code    `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	TraceID string         `json:"traceId,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := toAPIError(err)
	log := logging.FromContext(r.Context(), s.log).WithError(err).WithField("status", e.Status)
	if e.Status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Debug("request rejected")
	}
	writeJSON(w, e.Status, errorBody{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		TraceID: logging.TraceID(r.Context()),
	})
}

// sentinels maps package errors to API codes. The first match wins.
var sentinels = []struct {
	err  error
	code apperr.Code
}{
	{auth.ErrInvalidCredentials, apperr.CodeUnauthorized},
	{auth.ErrInvalidToken, apperr.CodeUnauthorized},
	{auth.ErrSessionExpired, apperr.CodeUnauthorized},
	{auth.ErrUserBanned, apperr.CodeForbidden},
	{auth.ErrEmailTaken, apperr.CodeConflict},
	{auth.ErrAlreadyEnabled, apperr.CodeConflict},
	{auth.ErrNotEnabled, apperr.CodeBadRequest},
	{auth.ErrInvalidCode, apperr.CodeBadRequest},
	{auth.ErrCodesNotStored, apperr.CodeBadRequest},

	{assets.ErrAssetNotFound, apperr.CodeNotFound},
	{assets.ErrTransactionNotFound, apperr.CodeNotFound},
	{assets.ErrForbidden, apperr.CodeForbidden},
	{assets.ErrUnsupportedOperation, apperr.CodeBadRequest},
	{assets.ErrAlreadyPaused, apperr.CodeConflict},
	{assets.ErrNotPaused, apperr.CodeConflict},
	{assets.ErrNotMatured, apperr.CodeBadRequest},
	{assets.ErrInsufficientUnderlying, apperr.CodeBadRequest},
	{assets.ErrNoYieldSchedule, apperr.CodeBadRequest},
	{assets.ErrTransactionReverted, apperr.CodeBadRequest},

	{documents.ErrForbidden, apperr.CodeForbidden},
	{documents.ErrNotFound, apperr.CodeNotFound},
	{documents.ErrTooLarge, apperr.CodeBadRequest},
	{documents.ErrContentType, apperr.CodeBadRequest},
	{documents.ErrInvalidFileName, apperr.CodeBadRequest},

	{validate.ErrAmountPrecision, apperr.CodeBadRequest},
	{validate.ErrAmountNotPositive, apperr.CodeBadRequest},
	{validate.ErrMaturityInPast, apperr.CodeBadRequest},
	{validate.ErrNotYetMature, apperr.CodeBadRequest},
	{validate.ErrAlreadyMatured, apperr.CodeConflict},
	{validate.ErrScheduleWindow, apperr.CodeBadRequest},
	{validate.ErrScheduleInterval, apperr.CodeBadRequest},
	{validate.ErrRateOutOfRange, apperr.CodeBadRequest},

	{exchangerate.ErrRateUnavailable, apperr.CodeNotFound},
	{storage.ErrNotFound, apperr.CodeNotFound},
	{storage.ErrDuplicateKey, apperr.CodeConflict},
	{storage.ErrInvalidInput, apperr.CodeBadRequest},
}

// toAPIError converts any error returned by a service into an *apperr.Error.
func toAPIError(err error) *apperr.Error {
	if e, ok := apperr.As(err); ok {
		return e
	}

	var verrs validate.Errors
	if errors.As(err, &verrs) {
		return apperr.Wrap(apperr.CodeBadRequest, "validation failed", err).WithDetails("fields", verrs.Fields())
	}

	if assets.IsVerificationError(err) {
		return apperr.Wrap(apperr.CodeUnauthorized, "verification failed", err)
	}
	if errors.Is(err, txwatch.ErrReceiptTimeout) {
		return apperr.Wrap(apperr.CodeInternal, "transaction receipt not available yet", err)
	}

	for _, m := range sentinels {
		if errors.Is(err, m.err) {
			return apperr.Wrap(m.code, err.Error(), err)
		}
	}
	return apperr.Internal(err)
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	if err := decodeBody(r, v); err != nil {
		return err
	}
	return validate.Struct(v)
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.BadRequest("request body is required")
		}
		return apperr.Wrap(apperr.CodeBadRequest, "invalid JSON body", err)
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.BadRequest("invalid query parameter").WithDetails("field", name)
	}
	return n, nil
}

func queryPage(r *http.Request) (assets.Page, error) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return assets.Page{}, err
	}
	if limit > assets.MaxPageLimit {
		return assets.Page{}, apperr.BadRequest(fmt.Sprintf("limit must be at most %d", assets.MaxPageLimit)).WithDetails("field", "limit")
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		return assets.Page{}, err
	}
	return assets.Page{Limit: limit, Offset: offset}, nil
}
