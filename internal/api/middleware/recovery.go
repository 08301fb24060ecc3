// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/ManuGH/capturerelay/internal/api/problem"
	"github.com/ManuGH/capturerelay/internal/log"
)

// Recoverer turns a handler panic into a logged 500 problem.
// http.ErrAbortHandler is re-raised so the server drops the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			logPanic(r, rec)
			problem.Write(w, r, http.StatusInternalServerError, "InternalError", "An unexpected error occurred.", nil)
		}()
		next.ServeHTTP(w, r)
	})
}

func logPanic(r *http.Request, rec any) {
	logger := log.WithComponentFromContext(r.Context(), "recoverer")
	logger.Error().
		Str(log.FieldEvent, "panic.recovered").
		Str(log.FieldMethod, r.Method).
		Str(log.FieldPath, r.URL.Path).
		Interface("panic_value", rec).
		Bytes("stack", debug.Stack()).
		Msg("panic in HTTP handler")
}
