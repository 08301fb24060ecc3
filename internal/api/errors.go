// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ManuGH/capturerelay/internal/api/problem"
	"github.com/ManuGH/capturerelay/internal/log"
	psnauth "github.com/ManuGH/capturerelay/internal/psn/auth"
	"github.com/ManuGH/capturerelay/internal/psn/catalog"
	"github.com/ManuGH/capturerelay/internal/psn/media"
)

// retryAfterSeconds is advertised when the vendor rate limits the caller.
const retryAfterSeconds = 60

// apiError is the boundary representation of a core failure.
type apiError struct {
	Status int
	Code   string
	Detail string
}

var errInternal = apiError{Status: http.StatusInternalServerError, Code: "InternalError", Detail: "unexpected server error"}

// classify maps a typed core error onto an HTTP status and taxonomy code.
func classify(err error) apiError {
	switch {
	// credential flow
	case errors.Is(err, psnauth.ErrRateLimited):
		return apiError{http.StatusTooManyRequests, "RateLimited", "vendor rate limit reached, retry later"}
	case errors.Is(err, psnauth.ErrAuthCodeFailed):
		return apiError{http.StatusUnauthorized, "AuthCodeFailed", "session token was not accepted"}
	case errors.Is(err, psnauth.ErrNoAuthCode):
		return apiError{http.StatusUnauthorized, "NoAuthCode", "authorization code missing from redirect"}
	case errors.Is(err, psnauth.ErrRefreshFailed):
		return apiError{http.StatusUnauthorized, "RefreshFailed", "refresh token was not accepted"}
	case errors.Is(err, psnauth.ErrTokenExchangeFailed):
		return apiError{http.StatusBadGateway, "TokenExchangeFailed", "token exchange rejected upstream"}
	case errors.Is(err, psnauth.ErrMissingTokens):
		return apiError{http.StatusBadGateway, "MissingTokens", "token response incomplete"}
	case errors.Is(err, psnauth.ErrNetwork):
		return apiError{http.StatusBadGateway, "NetworkError", "identity provider unreachable"}

	// catalog
	case errors.Is(err, catalog.ErrInvalidToken):
		return apiError{http.StatusUnauthorized, "InvalidToken", "access token lacks gallery scope"}
	case errors.Is(err, catalog.ErrFetchFailed):
		if catalog.StatusOf(err) == http.StatusUnauthorized {
			return apiError{http.StatusUnauthorized, "CapturesFetchFailed", "access token rejected upstream"}
		}
		return apiError{http.StatusBadGateway, "CapturesFetchFailed", "capture listing failed upstream"}
	case errors.Is(err, catalog.ErrNetwork):
		return apiError{http.StatusBadGateway, "CapturesNetworkError", "capture service unreachable"}
	case errors.Is(err, catalog.ErrParse):
		return apiError{http.StatusBadGateway, "CapturesParseError", "unexpected capture payload"}

	// relay
	case errors.Is(err, media.ErrInvalidURL):
		return apiError{http.StatusBadRequest, "InvalidUrl", "url is not a valid media url"}
	case errors.Is(err, media.ErrHostNotAllowed):
		return apiError{http.StatusForbidden, "HostNotAllowed", "media host is not allowed"}
	case errors.Is(err, media.ErrMissingCookie):
		return apiError{http.StatusUnauthorized, "MissingCookie", "CDN cookie missing, list captures first"}
	case errors.Is(err, media.ErrPreviewFetchFailed):
		status := media.StatusOf(err)
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		return apiError{status, "PreviewFetchFailed", "preview fetch failed"}
	case errors.Is(err, media.ErrStreamFetchFailed):
		return apiError{http.StatusBadGateway, "StreamFetchFailed", "media fetch failed"}
	}
	return errInternal
}

// writeError renders err as a problem document and logs it once.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ae := classify(err)
	extra := map[string]any{}
	if s := upstreamStatus(err); s > 0 {
		extra["upstreamStatus"] = s
	}
	if ae.Status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	ev := logger.Warn()
	if ae.Status >= 500 && ae.Status != http.StatusBadGateway {
		ev = logger.Error()
	}
	ev.Err(err).
		Str(log.FieldEvent, "api.request_failed").
		Str("code", ae.Code).
		Int(log.FieldStatus, ae.Status).
		Msg("request failed")

	problem.Write(w, r, ae.Status, ae.Code, ae.Detail, extra)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	problem.Write(w, r, status, code, detail, nil)
}

// writeBadRequest reports a missing or malformed request parameter.
func writeBadRequest(w http.ResponseWriter, r *http.Request, code, detail string) {
	writeProblem(w, r, http.StatusBadRequest, code, detail)
}

func writeNotFound(w http.ResponseWriter, r *http.Request) {
	problem.Write(w, r, http.StatusNotFound, "NotFound", "", nil)
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem.Write(w, r, http.StatusMethodNotAllowed, "MethodNotAllowed", "", nil)
}

func upstreamStatus(err error) int {
	if s := psnauth.StatusOf(err); s > 0 {
		return s
	}
	if s := catalog.StatusOf(err); s > 0 {
		return s
	}
	return media.StatusOf(err)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}
