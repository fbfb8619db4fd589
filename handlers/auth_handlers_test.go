package handlers

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"livewave/api/models"
	"livewave/api/store"
	"livewave/api/utils"
)

type resetRow struct {
	userID    int
	expiresAt time.Time
}

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[int]*models.User
	resets map[string]resetRow
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int]*models.User{}, resets: map[string]resetRow{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, email, name string, hash []byte) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return nil, store.ErrUserExists
		}
	}
	u := &models.User{ID: len(f.byID) + 1, Email: email, Name: name, HashedPassword: hash}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUsers) CreateResetToken(_ context.Context, userID int, tokenHash string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[tokenHash] = resetRow{userID: userID, expiresAt: expiresAt}
	return nil
}

func (f *fakeUsers) ResetPassword(_ context.Context, tokenHash string, hash []byte, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.resets[tokenHash]
	if !ok || now.After(row.expiresAt) {
		return 0, store.ErrInvalidResetToken
	}
	delete(f.resets, tokenHash)
	f.byID[row.userID].HashedPassword = hash
	return row.userID, nil
}

type capturedReset struct {
	links []string
}

func (s *capturedReset) SendReset(_ context.Context, _ *models.User, link string) error {
	s.links = append(s.links, link)
	return nil
}

func newAuthRouter(users *fakeUsers, sender ResetSender) (*gin.Engine, *AuthHandlers) {
	h := NewAuthHandlers(users, utils.NewTokenManager("s3cret", time.Hour), sender, "http://app.test/reset")
	h.BcryptCost = bcrypt.MinCost

	r := gin.New()
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/logout", h.Logout)
	r.POST("/password/forgot", h.ForgotPassword)
	r.POST("/password/reset", h.ResetPassword)
	r.GET("/profile", asUser(1), h.Profile)
	r.GET("/profile/missing", asUser(99), h.Profile)
	return r, h
}

func TestSignupAndLogin(t *testing.T) {
	r, h := newAuthRouter(newFakeUsers(), nil)

	rec := do(t, r, http.MethodPost, "/signup", gin.H{"email": "Ana@Example.com", "name": "Ana", "password": "password1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/signup", gin.H{"email": "ana@example.com", "password": "password2"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/login", gin.H{"email": "ana@example.com", "password": "password1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Ana", body["user_name"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt_token", cookies[0].Name)
	assert.Equal(t, int(time.Hour/time.Second), cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)

	claims, err := h.Tokens.ValidateJWT(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.UserID)
}

func TestSignupValidation(t *testing.T) {
	r, _ := newAuthRouter(newFakeUsers(), nil)

	rec := do(t, r, http.MethodPost, "/signup", gin.H{"email": "not-an-email", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/signup", gin.H{"email": "a@b.co", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, _ := newAuthRouter(newFakeUsers(), nil)
	do(t, r, http.MethodPost, "/signup", gin.H{"email": "a@b.co", "password": "password1"})

	rec := do(t, r, http.MethodPost, "/login", gin.H{"email": "a@b.co", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, r, http.MethodPost, "/login", gin.H{"email": "nobody@b.co", "password": "password1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutExpiresCookie(t *testing.T) {
	r, _ := newAuthRouter(newFakeUsers(), nil)
	rec := do(t, r, http.MethodPost, "/logout", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestProfile(t *testing.T) {
	r, _ := newAuthRouter(newFakeUsers(), nil)
	do(t, r, http.MethodPost, "/signup", gin.H{"email": "a@b.co", "name": "Ana", "password": "password1"})

	rec := do(t, r, http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@b.co", decode[map[string]any](t, rec)["user_email"])

	rec = do(t, r, http.MethodGet, "/profile/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	users := newFakeUsers()
	sender := &capturedReset{}
	r, _ := newAuthRouter(users, sender)
	do(t, r, http.MethodPost, "/signup", gin.H{"email": "a@b.co", "password": "password1"})

	rec := do(t, r, http.MethodPost, "/password/forgot", gin.H{"email": "nobody@b.co"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, sender.links, "unknown emails get the same answer but no link")

	rec = do(t, r, http.MethodPost, "/password/forgot", gin.H{"email": "a@b.co"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, sender.links, 1)

	link, err := url.Parse(sender.links[0])
	require.NoError(t, err)
	assert.Equal(t, "/reset", link.Path)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)

	rec = do(t, r, http.MethodPost, "/password/reset", gin.H{"token": "forged", "password": "password2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/password/reset", gin.H{"token": token, "password": "password2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/password/reset", gin.H{"token": token, "password": "password3"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "tokens are single use")

	rec = do(t, r, http.MethodPost, "/login", gin.H{"email": "a@b.co", "password": "password2"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetLinkKeepsQuery(t *testing.T) {
	h := &AuthHandlers{ResetURL: "http://app.test/reset?lang=es"}
	link, err := url.Parse(h.resetLink("abc"))
	require.NoError(t, err)
	assert.Equal(t, "es", link.Query().Get("lang"))
	assert.Equal(t, "abc", link.Query().Get("token"))
}
