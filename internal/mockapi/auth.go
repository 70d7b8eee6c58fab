package mockapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/russianllm/ruterm/internal/apierr"
	"github.com/russianllm/ruterm/internal/forms"
	"github.com/russianllm/ruterm/internal/model"
)

var errInvalidToken = errors.New("invalid reset token")

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Server) payload(sess session) model.SessionPayload {
	return model.SessionPayload{Username: sess.username, SessionExpire: sess.expireAt.UnixMilli()}
}

// currentSession resolves the session cookie of the request.
func (s *Server) currentSession(c *gin.Context) (session, bool) {
	id, err := c.Cookie(SessionCookie)
	if err != nil || id == "" {
		return session{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return session{}, false
	}
	if !sess.expireAt.After(s.clock.Now()) {
		delete(s.sessions, id)
		return session{}, false
	}
	return sess, true
}

func (s *Server) requireSession(c *gin.Context) {
	if _, ok := s.currentSession(c); !ok {
		fail(c, http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) handleCheckLoginStatus(c *gin.Context) {
	sess, ok := s.currentSession(c)
	if !ok {
		fail(c, http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	respond(c, http.StatusOK, s.payload(sess))
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, gin.H{"message": "Email and password are required"})
		return
	}

	s.mu.Lock()
	u := s.users[strings.ToLower(strings.TrimSpace(req.Email))]
	s.mu.Unlock()
	if u == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(req.Password)) != nil {
		s.logger.Info("login rejected", "email", req.Email)
		fail(c, http.StatusUnprocessableEntity, gin.H{"message": "Invalid credentials"})
		return
	}

	id := newSessionID()
	sess := session{username: u.username, expireAt: s.clock.Now().Add(s.cfg.SessionTTL)}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, int(s.cfg.SessionTTL/time.Second), "/", "", false, true)
	s.logger.Info("login accepted", "username", u.username)
	respond(c, http.StatusOK, s.payload(sess))
}

func (s *Server) handleLogout(c *gin.Context) {
	if id, err := c.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
	}
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req forms.ForgotPassword
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, nil)
		return
	}
	if err := forms.Validate(req); err != nil {
		fail(c, http.StatusUnprocessableEntity, gin.H{"message": firstMessage(err)})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	s.mu.Lock()
	u := s.users[email]
	s.mu.Unlock()
	if u != nil {
		token, err := s.issueResetToken(u.email)
		if err != nil {
			fail(c, http.StatusInternalServerError, nil)
			return
		}
		s.mu.Lock()
		s.lastReset = token
		s.mu.Unlock()
		s.logger.Info("password reset requested", "email", u.email, "link", "/password-reset?token="+token)
	}
	// Unknown addresses get the same answer.
	c.Status(http.StatusNoContent)
}

func (s *Server) handleValidateToken(c *gin.Context) {
	if _, err := s.checkResetToken(c.Query("token")); err != nil {
		failInvalidToken(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePasswordReset(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, nil)
		return
	}
	claims, err := s.checkResetToken(req.Token)
	if err != nil {
		failInvalidToken(c)
		return
	}
	if err := forms.Validate(forms.PasswordReset{Password: req.Password, RepeatPassword: req.Password}); err != nil {
		fail(c, http.StatusUnprocessableEntity, gin.H{"message": firstMessage(err)})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, nil)
		return
	}

	s.mu.Lock()
	if u := s.users[claims.Subject]; u != nil {
		u.hash = hash
		for id, sess := range s.sessions {
			if sess.username == u.username {
				delete(s.sessions, id)
			}
		}
	}
	s.usedTokens[claims.ID] = claims.ExpiresAt.Time
	s.mu.Unlock()

	s.logger.Info("password reset", "email", claims.Subject)
	c.Status(http.StatusNoContent)
}

// LastResetToken returns the most recently issued reset token.
func (s *Server) LastResetToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReset
}

func (s *Server) issueResetToken(email string) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		ID:        newSessionID(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ResetTokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func (s *Server) checkResetToken(raw string) (*jwt.RegisteredClaims, error) {
	if raw == "" {
		return nil, errInvalidToken
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, used := s.usedTokens[claims.ID]; used {
		return nil, errInvalidToken
	}
	return claims, nil
}

func failInvalidToken(c *gin.Context) {
	fail(c, http.StatusUnprocessableEntity, gin.H{
		"code":    apierr.CodeInvalidToken,
		"token":   "invalid",
		"message": "Invalid or expired token",
	})
}

func firstMessage(err error) string {
	fe := forms.FieldErrors(err)
	for _, field := range []string{"email", "newPassword", "repeatPassword"} {
		if msg, ok := fe[field]; ok {
			return msg
		}
	}
	return "Validation Error"
}
