package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"clinicq/queue-service/internal/store"
)

type authContextKey struct{}

// AuthMiddleware resolves the caller's session so staff actions carry an
// explicit acting identity. Patient-facing reads stay public.
func AuthMiddleware(st store.BookingStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		session, err := st.GetSession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (store.Session, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return store.Session{}, false
	}
	session, ok := value.(store.Session)
	return session, ok
}

func requireStaff(w http.ResponseWriter, r *http.Request) (store.Session, bool) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
		return store.Session{}, false
	}
	if session.Role != "staff" && session.Role != "admin" {
		writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "staff role required")
		return store.Session{}, false
	}
	return session, true
}

func requireAdmin(w http.ResponseWriter, r *http.Request) (store.Session, bool) {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
		return store.Session{}, false
	}
	if session.Role != "admin" {
		writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "admin role required")
		return store.Session{}, false
	}
	return session, true
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func requestIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch {
	case r.URL.Path == "/healthz" || r.URL.Path == "/metrics":
		return true
	case r.URL.Path == "/api/bookings" && r.Method == http.MethodPost:
		return true
	case r.URL.Path == "/api/centers" && r.Method == http.MethodGet:
		return true
	case r.URL.Path == "/api/doctors" && r.Method == http.MethodGet:
		return true
	case strings.HasPrefix(r.URL.Path, "/api/bookings/") && strings.HasSuffix(r.URL.Path, "/queue-status") && r.Method == http.MethodGet:
		return true
	case strings.HasPrefix(r.URL.Path, "/api/bookings/") && strings.HasSuffix(r.URL.Path, "/actions/cancel") && r.Method == http.MethodPost:
		// Patients may cancel their own booking without a staff session.
		return true
	default:
		return r.Method == http.MethodOptions
	}
}
