package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/xenking/littlelemon/internal/domain/auth"
)

type principalKey struct{}

// PrincipalFromContext returns the principal set by RequireUser.
func PrincipalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

// bearerToken extracts the credential from "Authorization: Bearer <t>" or
// "Authorization: Token <t>".
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok {
		return "", false
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type authResultKey struct{}

// authResult is the outcome of checking a request's bearer token.
type authResult struct {
	principal auth.Principal
	err       error
	present   bool
}

// Authenticate verifies the bearer token once per request and keeps the
// outcome in the request context for Identify and RequireUser.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := h.authenticate(r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authResultKey{}, res)))
	})
}

func (h *Handler) authenticate(r *http.Request) authResult {
	if res, ok := r.Context().Value(authResultKey{}).(authResult); ok {
		return res
	}
	raw, ok := bearerToken(r)
	if !ok {
		return authResult{}
	}
	p, err := h.auth.Authenticate(r.Context(), raw)
	return authResult{principal: p, err: err, present: true}
}

// RequireUser rejects requests without a valid token and stores the
// principal in the request context.
func (h *Handler) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := h.authenticate(r)
		if !res.present {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeAPIError(w, apiError{
				Code:    http.StatusUnauthorized,
				Message: "Authentication credentials were not provided.",
			})
			return
		}
		if res.err != nil {
			writeError(w, r, res.err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, res.principal)))
	}
}

// Identify returns a throttling key for requests carrying a valid token.
func (h *Handler) Identify(r *http.Request) (string, bool) {
	res := h.authenticate(r)
	if !res.present || res.err != nil {
		return "", false
	}
	return "user:" + strconv.FormatInt(res.principal.UserID, 10), true
}

func principal(r *http.Request) auth.Principal {
	p, _ := PrincipalFromContext(r.Context())
	return p
}
