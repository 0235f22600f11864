package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"notesync/internal/profile"
	"notesync/internal/session"
)

type fakeIdentity struct {
	users     map[string]string // email -> password
	calls     int
	err       error
	createErr error
	deleteErr error
	deleted   []string
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (*User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if pw, ok := f.users[email]; !ok || pw != password {
		return nil, ErrInvalidCredentials
	}
	return &User{UID: "uid-" + email, Email: email}, nil
}

func (f *fakeIdentity) CreateUser(_ context.Context, email, password string) (*User, error) {
	f.calls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.users[email]; ok {
		return nil, ErrEmailTaken
	}
	f.users[email] = password
	return &User{UID: "uid-" + email, Email: email}, nil
}

func (f *fakeIdentity) DeleteUser(_ context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for email := range f.users {
		if "uid-"+email == uid {
			delete(f.users, email)
		}
	}
	return nil
}

type fakeProfiles struct {
	created []*profile.Profile
	err     error
}

func (f *fakeProfiles) Create(_ context.Context, p *profile.Profile) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, p)
	return nil
}

func newTestGateway() (*Gateway, *fakeIdentity, *fakeProfiles) {
	idp := &fakeIdentity{users: map[string]string{"ana@example.com": "secret123"}}
	profiles := &fakeProfiles{}
	gw := NewGateway(idp, profiles, NewTokens("test-secret", time.Hour), slog.New(slog.NewTextHandler(io.Discard, nil)))
	gw.now = func() time.Time { return today }
	return gw, idp, profiles
}

func TestSignIn(t *testing.T) {
	gw, _, _ := newTestGateway()

	sess, err := gw.SignIn(context.Background(), " ana@example.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "uid-ana@example.com", sess.UserID)
	assert.Equal(t, "ana@example.com", sess.DisplayName)
	assert.NotEmpty(t, sess.Token)

	again, err := gw.Authenticate(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.UserID, again.UserID)
}

func TestSignInFailures(t *testing.T) {
	gw, idp, _ := newTestGateway()

	sess, err := gw.SignIn(context.Background(), "ana@example.com", "wrong")
	assert.Nil(t, sess)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "invalid email or password", err.Error())

	_, err = gw.SignIn(context.Background(), "", "x")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	idp.err = errors.New("unreachable")
	_, err = gw.SignIn(context.Background(), "ana@example.com", "secret123")
	assert.ErrorContains(t, err, "unreachable")
}

func TestSignUpValidationMakesNoRemoteCall(t *testing.T) {
	gw, idp, profiles := newTestGateway()
	in := validInput()
	in.Year = "2011"

	_, err := gw.SignUp(context.Background(), in)
	assert.Equal(t, MsgUnderAge, messageOf(t, err))
	assert.Zero(t, idp.calls)
	assert.Empty(t, profiles.created)
}

func TestSignUpCreatesProfile(t *testing.T) {
	gw, _, profiles := newTestGateway()
	in := validInput()
	in.Email = "new@example.com"

	sess, err := gw.SignUp(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "uid-new@example.com", sess.UserID)

	require.Len(t, profiles.created, 1)
	p := profiles.created[0]
	assert.Equal(t, sess.UserID, p.UserID)
	assert.Equal(t, "Ana Pérez", p.FullName)
	assert.Equal(t, "12/14/2000", p.DateOfBirth)
	assert.Equal(t, today, p.CreatedAt)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	gw, _, profiles := newTestGateway()

	_, err := gw.SignUp(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Empty(t, profiles.created)
}

func TestSignUpPasswordTooLong(t *testing.T) {
	gw, idp, _ := newTestGateway()
	in := validInput()
	in.Email = "new@example.com"
	in.Password = strings.Repeat("p", MaxPasswordBytes+1)

	_, err := gw.SignUp(context.Background(), in)
	assert.Equal(t, MsgPasswordLong, messageOf(t, err))
	assert.Zero(t, idp.calls)

	// The provider's own bcrypt limit maps to the same message.
	idp.createErr = fmt.Errorf("hash password: %w", bcrypt.ErrPasswordTooLong)
	in.Password = "secret123"
	_, err = gw.SignUp(context.Background(), in)
	assert.Equal(t, MsgPasswordLong, messageOf(t, err))
}

func TestSignUpRollsBackAccountWithoutProfile(t *testing.T) {
	gw, idp, profiles := newTestGateway()
	profiles.err = errors.New("profiles unavailable")
	in := validInput()
	in.Email = "new@example.com"

	sess, err := gw.SignUp(context.Background(), in)
	assert.Nil(t, sess)
	assert.ErrorContains(t, err, "profiles unavailable")
	assert.Equal(t, []string{"uid-new@example.com"}, idp.deleted)
	assert.NotContains(t, idp.users, "new@example.com")

	// The email can register once profiles are back.
	profiles.err = nil
	_, err = gw.SignUp(context.Background(), in)
	require.NoError(t, err)
}

func TestSignUpLogsOrphanedAccount(t *testing.T) {
	gw, idp, profiles := newTestGateway()
	var buf bytes.Buffer
	gw.log = slog.New(slog.NewTextHandler(&buf, nil))
	profiles.err = errors.New("profiles unavailable")
	idp.deleteErr = errors.New("accounts unavailable")
	in := validInput()
	in.Email = "new@example.com"

	_, err := gw.SignUp(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "orphaned account without profile")
	assert.Contains(t, buf.String(), "user_id=uid-new@example.com")
}

func TestSignOutRevokes(t *testing.T) {
	gw, _, _ := newTestGateway()
	sess, err := gw.SignIn(context.Background(), "ana@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, gw.SignOut(context.Background(), sess))
	_, err = gw.Authenticate(sess.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	assert.ErrorIs(t, gw.SignOut(context.Background(), nil), session.ErrNoSession)
}

func TestHandlerSignInAndOut(t *testing.T) {
	gw, _, _ := newTestGateway()
	var purged []string
	h := NewHandler(gw, slog.New(slog.NewTextHandler(io.Discard, nil)), func(_ context.Context, owner string) error {
		purged = append(purged, owner)
		return nil
	})
	mux := http.NewServeMux()
	h.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signin", strings.NewReader(`{"email":"ana@example.com","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signin", strings.NewReader(`{"email":"ana@example.com","password":"secret123"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	req.Header.Set("Authorization", "Bearer "+cookies[0].Value)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"uid-ana@example.com"}, purged)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlerSignUpValidation(t *testing.T) {
	gw, _, _ := newTestGateway()
	mux := http.NewServeMux()
	NewHandler(gw, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"fullName":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgRequiredFields)
}

func TestMiddlewareOptional(t *testing.T) {
	gw, _, _ := newTestGateway()
	var seen bool
	h := gw.Middleware(func(w http.ResponseWriter, r *http.Request) {
		_, seen = session.FromContext(r.Context())
	}, false)

	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, seen)

	sess, err := gw.SignIn(context.Background(), "ana@example.com", "secret123")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: sess.Token})
	h(httptest.NewRecorder(), req)
	assert.True(t, seen)
}

func TestMiddlewareRequireWritesJSON(t *testing.T) {
	gw, _, _ := newTestGateway()
	h := gw.Require(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler reached without a session")
	})

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{name: "missing token", want: `{"error":"unauthorized"}`},
		{name: "bad token", token: "garbage", want: `{"error":"invalid token"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/notes", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}
