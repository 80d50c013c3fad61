package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/wipecert/internal/common"
	"github.com/dmitrijs2005/wipecert/internal/server/auth"
)

type ctxKey int

const stationIDKey ctxKey = 0

// withAuth requires a valid bearer token and stores the authenticated
// station ID in the request context.
func (s *Server) withAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AccessTokenHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		stationID, err := auth.GetStationIDFromToken(token, s.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), stationIDKey, stationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func stationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(stationIDKey).(string)
	return id
}
