package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

type userIDKey struct{}

// AuthenticatedUser lê o id do usuário gravado pelo proxy de autenticação no
// cabeçalho informado. Valores ausentes ou inválidos deixam a requisição anônima.
func AuthenticatedUser(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(header)), 10, 64)
			if err != nil || id <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext devolve 0 para visitantes anônimos.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey{}).(int64)
	return id
}
