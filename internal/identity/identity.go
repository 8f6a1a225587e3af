// Package identity provides anonymous per-device participant identity.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

const (
	// ParticipantCookieName carries the anonymous participant ID.
	ParticipantCookieName = "soup_participant"
	// ParticipantHeaderName lets non-browser clients pass an ID directly.
	ParticipantHeaderName = "X-Soup-Participant"

	participantCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const participantKey contextKey = iota

var participantPattern = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)

// ParticipantFromContext extracts the participant ID from the request context.
func ParticipantFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(participantKey).(string); ok {
		return v
	}
	return ""
}

func generateParticipantID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate participant id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidParticipantID(id string) bool {
	return participantPattern.MatchString(id)
}

// Middleware assigns each device a stable anonymous participant ID via
// cookie, falling back to the header for non-browser clients.
func Middleware(secureCookies bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""

			if header := r.Header.Get(ParticipantHeaderName); isValidParticipantID(header) {
				id = header
			}
			if id == "" {
				if cookie, err := r.Cookie(ParticipantCookieName); err == nil && isValidParticipantID(cookie.Value) {
					id = cookie.Value
				}
			}

			if id == "" {
				generated, err := generateParticipantID()
				if err != nil {
					http.Error(w, "failed to assign identity", http.StatusInternalServerError)
					return
				}
				id = generated
				http.SetCookie(w, &http.Cookie{
					Name:     ParticipantCookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(participantCookieMaxAge.Seconds()),
					HttpOnly: true,
					Secure:   secureCookies,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), participantKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
