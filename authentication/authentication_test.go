package authentication_test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/vidtube/authentication"
	authcontext "github.com/nasermirzaei89/vidtube/authentication/context"
	"github.com/nasermirzaei89/vidtube/database/sqlite3"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentOTP struct {
	otp     string
	purpose authentication.OTPPurpose
}

type otpOutbox struct {
	mu   sync.Mutex
	sent map[string]sentOTP
}

func (o *otpOutbox) SendOTP(_ context.Context, email, otp string, purpose authentication.OTPPurpose) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sent[email] = sentOTP{otp: otp, purpose: purpose}

	return nil
}

func (o *otpOutbox) last(email string) sentOTP {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.sent[email]
}

type groupRecorder struct {
	mu     sync.Mutex
	groups map[string][]string
	err    error
}

func (g *groupRecorder) AddToGroup(_ context.Context, sub string, group ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return g.err
	}

	for _, name := range group {
		if !slices.Contains(g.groups[sub], name) {
			g.groups[sub] = append(g.groups[sub], name)
		}
	}

	return nil
}

func (g *groupRecorder) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.err = err
}

func (g *groupRecorder) forget(sub string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.groups, sub)
}

func (g *groupRecorder) of(sub string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return slices.Clone(g.groups[sub])
}

// hookStore runs onPut before storing, standing in for requests that land
// while an upload is in flight.
type hookStore struct {
	*storage.MemoryStore

	onPut func(ctx context.Context)
}

func (s *hookStore) Put(ctx context.Context, name string, file storage.File) (string, error) {
	if s.onPut != nil {
		s.onPut(ctx)
	}

	return s.MemoryStore.Put(ctx, name, file)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fixture struct {
	svc     *authentication.Service
	users   *sqlite3.UserRepository
	outbox  *otpOutbox
	groups  *groupRecorder
	objects *storage.MemoryStore
	store   *hookStore
	clock   *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()

	db, err := sqlite3.NewDB(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })

	err = sqlite3.MigrateUp(ctx, db)
	require.NoError(t, err)

	f := &fixture{
		users:   sqlite3.NewUserRepository(db),
		outbox:  &otpOutbox{sent: make(map[string]sentOTP)},
		groups:  &groupRecorder{groups: make(map[string][]string)},
		objects: storage.NewMemoryStore("http://objects.test"),
		clock:   &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}

	f.store = &hookStore{MemoryStore: f.objects}

	f.svc = authentication.NewService(
		f.users,
		sqlite3.NewPurgeRepository(db),
		sqlite3.NewTransactor(db),
		authentication.NewTokenIssuer([]byte("test-secret"), time.Hour),
		f.outbox,
		f.groups,
		f.store,
		authentication.WithClock(f.clock.Now),
	)

	return f
}

func (f *fixture) signup(t *testing.T, email string) *authentication.User {
	t.Helper()

	user, err := f.svc.Signup(context.Background(), authentication.SignupRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Password:  "secret123",
	})
	require.NoError(t, err)

	return user
}

// verified signs up and verifies a user and returns its token.
func (f *fixture) verified(t *testing.T, email string) (*authentication.User, string) {
	t.Helper()

	user := f.signup(t, email)

	token, err := f.svc.VerifyAccount(context.Background(), email, f.outbox.last(email).otp)
	require.NoError(t, err)

	return user, token
}

func TestSignup(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	user := f.signup(t, "Jane@Example.com")

	assert.Equal(t, "jane@example.com", user.Email)
	assert.True(t, strings.HasPrefix(user.Username, "@jane"))
	assert.Len(t, user.Username, len("@jane")+8)
	assert.False(t, user.IsVerified)
	assert.Empty(t, user.PasswordHash)
	assert.Empty(t, user.OTP)

	sent := f.outbox.last("jane@example.com")
	assert.Len(t, sent.otp, 6)
	assert.Equal(t, authentication.OTPPurposeVerifyAccount, sent.purpose)

	stored, err := f.users.Find(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, sent.otp, stored.OTP)
	require.NotNil(t, stored.OTPExpiresAt)
	assert.WithinDuration(t, f.clock.Now().Add(authentication.OTPValidity), *stored.OTPExpiresAt, time.Second)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.svc.Signup(ctx, authentication.SignupRequest{
			FirstName: "Other",
			LastName:  "Doe",
			Email:     "jane@example.com",
			Password:  "secret123",
		})

		var conflictErr *failure.ConflictError
		require.ErrorAs(t, err, &conflictErr)
		assert.Equal(t, "email", conflictErr.Field)
	})
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name  string
		req   authentication.SignupRequest
		field string
	}{
		{
			name:  "empty first name",
			req:   authentication.SignupRequest{LastName: "Doe", Email: "a@x.com", Password: "p"},
			field: "firstName",
		},
		{
			name: "long last name",
			req: authentication.SignupRequest{
				FirstName: "Jane",
				LastName:  strings.Repeat("d", 41),
				Email:     "a@x.com",
				Password:  "p",
			},
			field: "lastName",
		},
		{
			name: "long password",
			req: authentication.SignupRequest{
				FirstName: "Jane",
				LastName:  "Doe",
				Email:     "a@x.com",
				Password:  strings.Repeat("p", 21),
			},
			field: "password",
		},
		{
			name:  "bad email",
			req:   authentication.SignupRequest{FirstName: "Jane", LastName: "Doe", Email: "not-an-email", Password: "p"},
			field: "email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Signup(context.Background(), tt.req)

			var validationErr *failure.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestVerifyAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("valid otp", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user, token := f.verified(t, "a@x.com")

		require.NotEmpty(t, token)

		stored, err := f.users.Find(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsVerified)
		assert.Empty(t, stored.OTP)
		assert.Nil(t, stored.OTPExpiresAt)

		assert.Equal(t, []string{authcontext.Authenticated}, f.groups.of(user.ID))

		authenticated, err := f.svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, authenticated.ID)

		// verification cancels the purge
		f.clock.Advance(time.Hour)

		deleted, err := f.svc.PurgeUnverified(ctx)
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("wrong otp", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.signup(t, "a@x.com")

		otp := f.outbox.last("a@x.com").otp

		wrong := "000000"
		if otp == wrong {
			wrong = "111111"
		}

		_, err := f.svc.VerifyAccount(ctx, "a@x.com", wrong)

		var invalidOTPErr *authentication.InvalidOTPError
		require.ErrorAs(t, err, &invalidOTPErr)
	})

	t.Run("expired otp", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.signup(t, "a@x.com")

		f.clock.Advance(authentication.OTPValidity + time.Second)

		_, err := f.svc.VerifyAccount(ctx, "a@x.com", f.outbox.last("a@x.com").otp)

		var expiredErr *authentication.OTPExpiredError
		require.ErrorAs(t, err, &expiredErr)
	})

	t.Run("grouping failure keeps the otp usable", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		user := f.signup(t, "a@x.com")
		otp := f.outbox.last("a@x.com").otp

		f.groups.fail(errors.New("policy store unavailable"))

		_, err := f.svc.VerifyAccount(ctx, "a@x.com", otp)
		require.Error(t, err)

		stored, err := f.users.Find(ctx, user.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsVerified)
		assert.Equal(t, otp, stored.OTP)

		f.groups.fail(nil)

		_, err = f.svc.VerifyAccount(ctx, "a@x.com", otp)
		require.NoError(t, err)
		assert.Equal(t, []string{authcontext.Authenticated}, f.groups.of(user.ID))
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)

		_, err := f.svc.VerifyAccount(ctx, "nobody@x.com", "123456")

		var notFoundErr *failure.NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
	})
}

func TestPurgeUnverified(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	pending := f.signup(t, "pending@x.com")
	verified, _ := f.verified(t, "verified@x.com")

	deleted, err := f.svc.PurgeUnverified(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted, "nothing is due before the otp window closes")

	f.clock.Advance(authentication.OTPValidity)

	deleted, err = f.svc.PurgeUnverified(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = f.users.Find(ctx, pending.ID)

	var notFoundErr *failure.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)

	_, err = f.users.Find(ctx, verified.ID)
	require.NoError(t, err)

	// the purge row is gone so a second pass is a no-op
	deleted, err = f.svc.PurgeUnverified(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.signup(t, "pending@x.com")
	user, _ := f.verified(t, "a@x.com")

	t.Run("success", func(t *testing.T) {
		token, err := f.svc.Login(ctx, "a@x.com", "secret123")
		require.NoError(t, err)

		authenticated, err := f.svc.Authenticate(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, authenticated.ID)
		assert.Empty(t, authenticated.PasswordHash)
	})

	t.Run("restores a missing grouping", func(t *testing.T) {
		f.groups.forget(user.ID)

		_, err := f.svc.Login(ctx, "a@x.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, []string{authcontext.Authenticated}, f.groups.of(user.ID))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "a@x.com", "wrong")
		require.ErrorIs(t, err, authentication.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "nobody@x.com", "secret123")
		require.ErrorIs(t, err, authentication.ErrInvalidCredentials)
	})

	t.Run("not verified", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "pending@x.com", "secret123")

		var notVerifiedErr *authentication.AccountNotVerifiedError
		require.ErrorAs(t, err, &notVerifiedErr)
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := f.svc.Login(ctx, "", "")

		var validationErr *failure.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})
}

func TestResetPassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.verified(t, "a@x.com")

	err := f.svc.ForgotPassword(ctx, "a@x.com")
	require.NoError(t, err)

	sent := f.outbox.last("a@x.com")
	assert.Equal(t, authentication.OTPPurposeResetPassword, sent.purpose)

	err = f.svc.ResetPassword(ctx, authentication.ResetPasswordRequest{
		Email:    "a@x.com",
		OTP:      sent.otp,
		Password: "newsecret",
	})
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "a@x.com", "secret123")
	require.ErrorIs(t, err, authentication.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "a@x.com", "newsecret")
	require.NoError(t, err)

	// the otp is single use
	err = f.svc.ResetPassword(ctx, authentication.ResetPasswordRequest{
		Email:    "a@x.com",
		OTP:      sent.otp,
		Password: "another",
	})

	var invalidOTPErr *authentication.InvalidOTPError
	require.ErrorAs(t, err, &invalidOTPErr)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	user, _ := f.verified(t, "a@x.com")

	updated, err := f.svc.UpdateProfile(ctx, authentication.UpdateProfileRequest{
		UserID:    user.ID,
		FirstName: "Janet",
		Image: &storage.File{
			Name:        "me.png",
			ContentType: "image/png",
			Size:        3,
			Body:        bytes.NewReader([]byte("png")),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Janet", updated.FirstName)
	assert.Equal(t, "Doe", updated.LastName)
	assert.True(t, strings.HasPrefix(updated.Profile, "http://objects.test/profiles/"+user.ID+"-"))
	assert.True(t, strings.HasSuffix(updated.Profile, ".png"))
	assert.Equal(t, 1, f.objects.Len())

	t.Run("not an image", func(t *testing.T) {
		_, err := f.svc.UpdateProfile(ctx, authentication.UpdateProfileRequest{
			UserID: user.ID,
			Image:  &storage.File{Name: "a.txt", ContentType: "text/plain", Body: strings.NewReader("x")},
		})

		var validationErr *failure.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "profile", validationErr.Field)
	})

	t.Run("image too large", func(t *testing.T) {
		_, err := f.svc.UpdateProfile(ctx, authentication.UpdateProfileRequest{
			UserID: user.ID,
			Image:  &storage.File{Name: "a.png", ContentType: "image/png", Size: 6 << 20, Body: strings.NewReader("x")},
		})

		var validationErr *failure.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})
}

func TestUpdateProfile_KeepsConcurrentListWrites(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	user, _ := f.verified(t, "a@x.com")

	f.store.onPut = func(ctx context.Context) {
		current, err := f.users.Find(ctx, user.ID)
		require.NoError(t, err)

		current.LikedVideos.Add("v1")
		current.Notifications.Add("n1")

		require.NoError(t, f.users.Update(ctx, current))
	}

	updated, err := f.svc.UpdateProfile(ctx, authentication.UpdateProfileRequest{
		UserID:   user.ID,
		LastName: "Roe",
		Image:    &storage.File{Name: "me.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Roe", updated.LastName)
	assert.True(t, updated.LikedVideos.Has("v1"))

	stored, err := f.users.Find(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Roe", stored.LastName)
	assert.True(t, stored.LikedVideos.Has("v1"))
	assert.True(t, stored.Notifications.Has("n1"))

	t.Run("password reset", func(t *testing.T) {
		require.NoError(t, f.svc.ForgotPassword(ctx, "a@x.com"))

		err := f.svc.ResetPassword(ctx, authentication.ResetPasswordRequest{
			Email:    "a@x.com",
			OTP:      f.outbox.last("a@x.com").otp,
			Password: "newsecret",
		})
		require.NoError(t, err)

		stored, err := f.users.Find(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, stored.LikedVideos.Has("v1"))
		assert.True(t, stored.Notifications.Has("n1"))
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Authenticate(ctx, "garbage")

	var invalidTokenErr *authentication.InvalidTokenError
	require.ErrorAs(t, err, &invalidTokenErr)

	// a token for a user that no longer exists
	token, err := authentication.NewTokenIssuer([]byte("test-secret"), time.Hour).Issue(uuid.NewString())
	require.NoError(t, err)

	_, err = f.svc.Authenticate(ctx, token)
	require.ErrorAs(t, err, &invalidTokenErr)
}

func TestGetCurrentUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetCurrentUser(ctx)
	require.ErrorIs(t, err, authentication.ErrCurrentUserNotFound)

	user, _ := f.verified(t, "a@x.com")

	current, err := f.svc.GetCurrentUser(authcontext.WithSubject(ctx, user.ID))
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)
}

func TestLoadBloomFilter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.signup(t, "a@x.com")

	err := f.svc.LoadBloomFilter(ctx, 100, 0.01)
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, authentication.SignupRequest{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "a@x.com",
		Password:  "secret123",
	})

	var conflictErr *failure.ConflictError
	require.ErrorAs(t, err, &conflictErr)

	f.signup(t, "b@x.com")
}
