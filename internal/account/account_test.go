package account

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/parley/internal/apperr"
	"github.com/jason-s-yu/parley/internal/auth"
	"github.com/jason-s-yu/parley/internal/chat"
	"github.com/jason-s-yu/parley/internal/database/dbtest"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	mu    sync.Mutex
	users []chat.User
	err   error
}

func (f *fakeSyncer) UpsertUser(ctx context.Context, u chat.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.users = append(f.users, u)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newService(t *testing.T) (*Service, *dbtest.Store, *fakeSyncer) {
	t.Helper()
	store := dbtest.New()
	dir := &fakeSyncer{}
	svc := NewService(store, dir, quietLogger(), 0)
	svc.avatar = func() string { return "https://avatar.test/7.png" }
	return svc, store, dir
}

func TestSignupCreatesHashedUser(t *testing.T) {
	svc, store, dir := newService(t)
	ctx := context.Background()

	u, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Password: "secret1", FullName: " Ana "})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, u.ID)
	assert.Equal(t, "Ana", u.FullName)
	assert.Equal(t, "https://avatar.test/7.png", u.ProfilePic)
	assert.False(t, u.IsOnboarded)

	stored, err := store.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.Password)
	ok, err := auth.ComparePassword(stored.Password, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, dir.users, 1)
	assert.Equal(t, chat.User{ID: u.ID.String(), Name: "Ana", Image: "https://avatar.test/7.png"}, dir.users[0])
}

func TestSignupValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   SignupInput
		msg  string
	}{
		{"missing email", SignupInput{Password: "secret1", FullName: "Ana"}, "All fields are required"},
		{"missing name", SignupInput{Email: "a@b.co", Password: "secret1", FullName: "  "}, "All fields are required"},
		{"short password", SignupInput{Email: "a@b.co", Password: "12345", FullName: "Ana"}, "Password must be at least 6 characters long"},
		{"short multibyte password", SignupInput{Email: "a@b.co", Password: "ééé", FullName: "Ana"}, "Password must be at least 6 characters long"},
		{"bad email", SignupInput{Email: "not-an-email", Password: "secret1", FullName: "Ana"}, "Invalid email format"},
		{"email without tld", SignupInput{Email: "a@b", Password: "secret1", FullName: "Ana"}, "Invalid email format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tc.in)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.Equal(t, tc.msg, err.Error())
		})
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Password: "secret1", FullName: "Ana"})
	require.NoError(t, err)

	_, err = svc.Signup(ctx, SignupInput{Email: "ana@example.com", Password: "secret2", FullName: "Other"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSignupSurvivesDirectoryFailure(t *testing.T) {
	svc, store, dir := newService(t)
	dir.err = errors.New("chat down")

	u, err := svc.Signup(context.Background(), SignupInput{Email: "ana@example.com", Password: "secret1", FullName: "Ana"})
	require.NoError(t, err)

	_, err = store.GetUserByID(context.Background(), u.ID)
	assert.NoError(t, err)
}

func TestSignupWithoutDirectory(t *testing.T) {
	svc := NewService(dbtest.New(), nil, quietLogger(), 0)
	_, err := svc.Signup(context.Background(), SignupInput{Email: "ana@example.com", Password: "secret1", FullName: "Ana"})
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	created, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Password: "secret1", FullName: "Ana"})
	require.NoError(t, err)

	u, err := svc.Login(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)

	_, err = svc.Login(ctx, "ana@example.com", "wrong-pass")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))
	assert.Equal(t, "Invalid credentials", err.Error())

	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))
	assert.Equal(t, "Invalid credentials", err.Error())

	_, err = svc.Login(ctx, "", "secret1")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestLoginStoreFailureIsInternal(t *testing.T) {
	svc, store, _ := newService(t)
	store.FailOn("GetUserByEmail", errors.New("connection reset"))

	_, err := svc.Login(context.Background(), "ana@example.com", "secret1")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestSignupCountsPasswordCharacters(t *testing.T) {
	svc, _, _ := newService(t)

	// six characters, twelve bytes
	_, err := svc.Signup(context.Background(), SignupInput{Email: "ana@example.com", Password: "éééééé", FullName: "Ana"})
	assert.NoError(t, err)
}

func TestOnboard(t *testing.T) {
	svc, _, dir := newService(t)
	ctx := context.Background()
	u, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Password: "secret1", FullName: "Ana"})
	require.NoError(t, err)

	_, err = svc.Onboard(ctx, u.ID, OnboardInput{FullName: "Ana", Bio: "hi"})
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Equal(t, []string{"location", "nativeLanguage", "learningLanguage"}, appErr.MissingFields)

	done, err := svc.Onboard(ctx, u.ID, OnboardInput{
		FullName: "Ana María", Bio: "hola", Location: "Madrid",
		NativeLanguage: "spanish", LearningLanguage: "english",
	})
	require.NoError(t, err)
	assert.True(t, done.IsOnboarded)
	assert.Equal(t, "Ana María", done.FullName)
	assert.Equal(t, "english", done.LearningLanguage)

	require.Len(t, dir.users, 2)
	assert.Equal(t, "Ana María", dir.users[1].Name)
}

func TestOnboardMissingUser(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Onboard(context.Background(), uuid.New(), OnboardInput{
		FullName: "x", Bio: "x", Location: "x", NativeLanguage: "x", LearningLanguage: "x",
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	u, err := svc.Signup(ctx, SignupInput{Email: "ana@example.com", Password: "secret1", FullName: "Ana"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, "wrong-pass", "secret2")
	assert.True(t, apperr.Is(err, apperr.KindAuthentication))

	err = svc.ChangePassword(ctx, u.ID, "secret1", "123")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = svc.ChangePassword(ctx, u.ID, "secret1", "ééé")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "secret1", "secret2"))

	_, err = svc.Login(ctx, "ana@example.com", "secret1")
	assert.Error(t, err)
	_, err = svc.Login(ctx, "ana@example.com", "secret2")
	assert.NoError(t, err)
}
