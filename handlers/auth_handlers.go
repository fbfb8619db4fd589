// api/handlers/auth_handlers.go
package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"livewave/api/models"
	"livewave/api/store"
	"livewave/api/utils"
)

const resetTokenTTL = time.Hour

// ResetSender delivers password reset links.
type ResetSender interface {
	SendReset(ctx context.Context, user *models.User, link string) error
}

// LogResetSender writes reset links to the log, for development setups
// without a mail service.
type LogResetSender struct{}

func (LogResetSender) SendReset(_ context.Context, user *models.User, link string) error {
	log.Printf("Password reset requested for %s: %s", user.Email, link)
	return nil
}

type AuthHandlers struct {
	Users    UserRepository
	Tokens   *utils.TokenManager
	Reset    ResetSender
	ResetURL string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	now        func() time.Time
}

func NewAuthHandlers(users UserRepository, tokens *utils.TokenManager, reset ResetSender, resetURL string) *AuthHandlers {
	if reset == nil {
		reset = LogResetSender{}
	}
	return &AuthHandlers{
		Users:      users,
		Tokens:     tokens,
		Reset:      reset,
		ResetURL:   resetURL,
		BcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func (h *AuthHandlers) hash(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), h.BcryptCost)
}

func (h *AuthHandlers) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 1. Check if the user's email already exists in the database.
	_, err := h.Users.GetUserByEmail(c.Request.Context(), email)
	if err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		return
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		log.Printf("ERROR: Database error during signup email check: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check user existence"})
		return
	}

	// 2. Hash the password.
	hashedPassword, err := h.hash(req.Password)
	if err != nil {
		log.Printf("ERROR: Failed to hash password for %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	// 3. Store the user.
	user, err := h.Users.CreateUser(c.Request.Context(), email, strings.TrimSpace(req.Name), hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		log.Printf("ERROR: Failed to create user in DB for email %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}

	log.Printf("User registered successfully via DB: ID=%d, Email=%s", user.ID, user.Email)
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user_email": user.Email})
}

// Login handles user authentication and JWT token creation.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := h.Users.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			log.Printf("ERROR: Database error during login for %s: %v", email, err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		log.Printf("Login failed for email %s: password mismatch", email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := h.Tokens.GenerateJWT(user)
	if err != nil {
		log.Printf("ERROR: Failed to generate JWT for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetCookie(
		"jwt_token",
		tokenString,
		int(h.Tokens.TTL()/time.Second),
		"/",
		"",
		false,
		true,
	)

	log.Printf("User logged in: ID=%d, Email=%s. JWT issued.", user.ID, user.Email)
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user_email": user.Email,
		"user_name":  user.Name,
		"token":      tokenString,
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	// MaxAge -1 expires the cookie immediately.
	c.SetCookie(
		"jwt_token",
		"",
		-1,
		"/",
		"",
		false,
		true,
	)

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// ForgotPassword always answers 202 so the endpoint cannot be used to probe
// which emails are registered.
func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	accepted := gin.H{"message": "If the account exists, a reset link has been sent"}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	ctx := c.Request.Context()

	user, err := h.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			log.Printf("ERROR: Database error during password reset for %s: %v", email, err)
		}
		c.JSON(http.StatusAccepted, accepted)
		return
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		log.Printf("ERROR: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start password reset"})
		return
	}
	if err := h.Users.CreateResetToken(ctx, user.ID, utils.HashToken(token), h.now().Add(resetTokenTTL)); err != nil {
		log.Printf("ERROR: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start password reset"})
		return
	}

	if err := h.Reset.SendReset(ctx, user, h.resetLink(token)); err != nil {
		log.Printf("ERROR: Failed to send reset link to %s: %v", email, err)
	}
	c.JSON(http.StatusAccepted, accepted)
}

func (h *AuthHandlers) resetLink(token string) string {
	u, err := url.Parse(h.ResetURL)
	if err != nil {
		return h.ResetURL + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	hashedPassword, err := h.hash(req.Password)
	if err != nil {
		log.Printf("ERROR: Failed to hash password during reset: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	if _, err := h.Users.ResetPassword(c.Request.Context(), utils.HashToken(req.Token), hashedPassword, h.now()); err != nil {
		if errors.Is(err, store.ErrInvalidResetToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Reset link is invalid or has expired"})
			return
		}
		log.Printf("ERROR: Failed to reset password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *AuthHandlers) Profile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := h.Users.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("ERROR: Failed to load profile for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    user.ID,
		"user_email": user.Email,
		"user_name":  user.Name,
	})
}
