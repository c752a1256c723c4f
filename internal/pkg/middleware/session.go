package middleware

import (
	"net/http"
	"strings"

	"github.com/ticketbay/tb-marketplace/internal/pkg/jwt"
	"github.com/ticketbay/tb-marketplace/internal/pkg/session"
	"github.com/ticketbay/tb-marketplace/pkg/response"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

// CustomerSession verifies the bearer token and resolves the customer's
// session before a protected route runs.
type CustomerSession struct {
	jsonWebToken *jwt.JSONWebToken
	store        session.Store
}

func NewCustomerSessionMiddleware(jsonWebToken *jwt.JSONWebToken, store session.Store) *CustomerSession {
	return &CustomerSession{
		jsonWebToken: jsonWebToken,
		store:        store,
	}
}

func bearerToken(r *http.Request) string {
	authorization := r.Header.Get("Authorization")
	if !strings.HasPrefix(authorization, "Bearer ") {
		return ""
	}

	return strings.TrimPrefix(authorization, "Bearer ")
}

func (m *CustomerSession) Verify(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "authorization token is missing",
			})
			return
		}

		claims, err := m.jsonWebToken.Parse(token)
		if err != nil {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "authorization token is not valid",
			})
			return
		}

		account, err := m.store.Get(ctx, claims.Subject)
		if err != nil {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "session is not found or has expired",
			})
			return
		}

		next(w, r.WithContext(session.ContextWithAccount(ctx, account)))
	}
}

// AdminSession is the admin app's counterpart of CustomerSession; it
// additionally requires the admin role.
type AdminSession struct {
	jsonWebToken *jwt.JSONWebToken
	store        session.Store
}

func NewAdminSessionMiddleware(jsonWebToken *jwt.JSONWebToken, store session.Store) *AdminSession {
	return &AdminSession{
		jsonWebToken: jsonWebToken,
		store:        store,
	}
}

func (m *AdminSession) Verify(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "authorization token is missing",
			})
			return
		}

		claims, err := m.jsonWebToken.Parse(token)
		if err != nil {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "authorization token is not valid",
			})
			return
		}

		account, err := m.store.Get(ctx, claims.Subject)
		if err != nil {
			response.JSON(w, http.StatusUnauthorized, response.RESTEnvelope{
				Status:  status.UNAUTHORIZED,
				Message: "session is not found or has expired",
			})
			return
		}

		if account.Role != "ADMIN" {
			response.JSON(w, http.StatusForbidden, response.RESTEnvelope{
				Status:  status.FORBIDDEN,
				Message: "admin role is required",
			})
			return
		}

		next(w, r.WithContext(session.ContextWithAccount(ctx, account)))
	}
}
