package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
)

// IssueToken exchanges a username and password for a bearer token.
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, k := range []string{"username", "password"} {
		if f[k] == "" {
			writeError(w, r, &badRequestError{Field: k, Reason: "This field is required."})
			return
		}
	}

	tok, err := h.auth.IssueToken(r.Context(), f.str("username"), f["password"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("token")
		e.Str(tok.Value)
		e.FieldStart("expires_at")
		e.Str(tok.ExpiresAt.UTC().Format(time.RFC3339))
		e.ObjEnd()
	})
}
