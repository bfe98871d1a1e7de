// Package middleware содержит HTTP middleware сервиса закупок.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const userIDKey contextKey = "userID"

const (
	authCookieName = "auth_token"
	authCookieTTL  = 365 * 24 * time.Hour
)

// AuthMiddleware проверяет подписанный cookie с идентификатором пользователя.
// Значение cookie имеет вид "{id}.{hex(hmac-sha256(id))}".
type AuthMiddleware struct {
	secretKey []byte
}

// NewAuthMiddleware создаёт AuthMiddleware. При пустом secret ключ генерируется
// случайно, и выданные ранее cookie перестают действовать после перезапуска.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			key = []byte("procurement-fallback-key")
		}
	}
	return &AuthMiddleware{secretKey: key}
}

// Middleware пропускает запрос дальше только с действительным cookie
// и кладёт идентификатор пользователя в контекст. Иначе отвечает 401 с JSON-ошибкой.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}

		userID, ok := a.verify(cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SetAuthCookie выдаёт пользователю userID подписанный cookie.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, userID int64) {
	id := strconv.FormatInt(userID, 10)
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    id + "." + a.sign(id),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) sign(id string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) verify(value string) (int64, bool) {
	id, signature, found := strings.Cut(value, ".")
	if !found || strings.Contains(signature, ".") {
		return 0, false
	}
	if !hmac.Equal([]byte(signature), []byte(a.sign(id))) {
		return 0, false
	}

	userID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// writeError отвечает JSON-объектом с ключом Error, как и обработчики API.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"Error": msg})
}
