package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/tharuncoder676/CWS/internal/models"
	"github.com/tharuncoder676/CWS/internal/store"
)

type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: map[string]*models.User{}} }

func (f *fakeUsers) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, errors.New("duplicate key")
		}
	}
	c := *u
	c.ID = "u" + string(rune('0'+len(f.users)+1))
	f.users[c.ID] = &c
	out := c
	out.Password = ""
	return &out, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id string, p models.ProfileRequest) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Username, u.Year, u.Department = p.Username, p.Year, p.Department
	c := *u
	return &c, nil
}

type fakeSessions struct {
	mu       sync.Mutex
	sessions map[string]string
}

func (f *fakeSessions) Create(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = map[string]string{}
	}
	sid := "sid-" + userID
	f.sessions[sid] = userID
	return sid, nil
}

func (f *fakeSessions) Get(_ context.Context, sid string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[sid], nil
}

func (f *fakeSessions) Delete(_ context.Context, sid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sid)
	return nil
}

func newTestHandler() (*Handler, *fakeUsers, *fakeSessions) {
	users, sessions := newFakeUsers(), &fakeSessions{}
	h := NewHandler(users, sessions, regexp.MustCompile(DefaultEmailPattern), nil)
	h.now = func() time.Time { return time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC) }
	return h, users, sessions
}

func do(ctx context.Context, h http.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", strings.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegisterValidation(t *testing.T) {
	h, _, _ := newTestHandler()
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{`, "invalid request body"},
		{"missing", `{"email":""}`, "email and password are required"},
		{"foreign email", `{"email":"a@gmail.com","password":"secret1"}`, "institutional email"},
		{"short password", `{"email":"192211001.simats@saveetha.com","password":"abc"}`, "at least 6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(context.Background(), h.Register, http.MethodPost, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestRegisterDerivesStudentID(t *testing.T) {
	h, users, _ := newTestHandler()
	rec := do(context.Background(), h.Register, http.MethodPost,
		`{"username":"Asha","email":"221234567.SIMATS@saveetha.com","password":"secret1","department":"CSE"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "221234567", got["student_id"])
	assert.Equal(t, "IV", got["academic_year"])
	assert.Equal(t, false, got["profile_complete"])
	assert.NotContains(t, rec.Body.String(), "password")

	stored, err := users.GetUserByEmail(context.Background(), "221234567.simats@saveetha.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret1")))

	rec = do(context.Background(), h.Register, http.MethodPost, `{"email":"221234567.simats@saveetha.com","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginAndProfile(t *testing.T) {
	h, _, sessions := newTestHandler()
	require.Equal(t, http.StatusCreated, do(context.Background(), h.Register, http.MethodPost,
		`{"email":"231234567.simats@saveetha.com","password":"secret1"}`).Code)

	rec := do(context.Background(), h.Login, http.MethodPost, `{"email":"231234567.simats@saveetha.com","password":"wrong!!"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(context.Background(), h.Login, http.MethodPost, `{"email":"231234567.simats@saveetha.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	userID, _ := sessions.Get(context.Background(), cookies[0].Value)
	require.NotEmpty(t, userID)

	ctx := WithUserID(context.Background(), userID)
	rec = do(ctx, h.UpdateProfile, http.MethodPut, `{"username":"  ","year":"III","department":"CSE"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(ctx, h.UpdateProfile, http.MethodPut, `{"username":"Ravi","year":"III","department":"CSE"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(ctx, h.Me, http.MethodGet, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "Ravi", me["username"])
	assert.Equal(t, "III", me["academic_year"])
	assert.Equal(t, true, me["profile_complete"])
}

func TestMeRequiresUser(t *testing.T) {
	h, _, _ := newTestHandler()
	assert.Equal(t, http.StatusUnauthorized, do(context.Background(), h.Me, http.MethodGet, "").Code)
	assert.Equal(t, http.StatusNotFound, do(WithUserID(context.Background(), "ghost"), h.Me, http.MethodGet, "").Code)
}

func TestLogoutClearsSession(t *testing.T) {
	h, _, sessions := newTestHandler()
	sid, _ := sessions.Create(context.Background(), "u1")

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sid})
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	got, _ := sessions.Get(context.Background(), sid)
	assert.Empty(t, got)
}
