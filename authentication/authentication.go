package authentication

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	authcontext "github.com/nasermirzaei89/vidtube/authentication/context"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/random"
	"github.com/nasermirzaei89/vidtube/storage"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpLength           = 6
	OTPValidity         = 10 * time.Minute
	maxProfileImageSize = 5 << 20
)

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OTPPurpose tells the recipient what a one-time password is for.
type OTPPurpose string

const (
	OTPPurposeVerifyAccount OTPPurpose = "verify-account"
	OTPPurposeResetPassword OTPPurpose = "reset-password"
)

type OTPSender interface {
	SendOTP(ctx context.Context, email string, otp string, purpose OTPPurpose) error
}

type GroupManager interface {
	AddToGroup(ctx context.Context, sub string, group ...string) error
}

type Service struct {
	userRepo    UserRepository
	purgeRepo   PurgeRepository
	transactor  Transactor
	tokens      *TokenIssuer
	otpSender   OTPSender
	groups      GroupManager
	objects     storage.ObjectStore
	bloomFilter *BloomFilter
	now         func() time.Time
}

type Option func(svc *Service)

// WithClock replaces the time source used for OTP expiry and purge scheduling.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

func NewService(
	userRepo UserRepository,
	purgeRepo PurgeRepository,
	transactor Transactor,
	tokens *TokenIssuer,
	otpSender OTPSender,
	groups GroupManager,
	objects storage.ObjectStore,
	opts ...Option,
) *Service {
	svc := &Service{
		userRepo:   userRepo,
		purgeRepo:  purgeRepo,
		transactor: transactor,
		tokens:     tokens,
		otpSender:  otpSender,
		groups:     groups,
		objects:    objects,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

func (svc *Service) LoadBloomFilter(ctx context.Context, minCapacity uint, falsePositiveRate float64) error {
	emails, err := svc.userRepo.ListEmails(ctx)
	if err != nil {
		return fmt.Errorf("failed to list emails for bloom filter: %w", err)
	}

	capacity := max(uint(len(emails)), minCapacity)

	bf := NewBloomFilter(capacity, falsePositiveRate)
	for _, email := range emails {
		bf.Add(email)
	}

	svc.bloomFilter = bf

	return nil
}

func HashPassword(password string) (string, error) {
	bcryptHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(bcryptHash), nil
}

// emailMayExist reports false only when email is certainly not registered.
func (svc *Service) emailMayExist(email Email) bool {
	return svc.bloomFilter == nil || svc.bloomFilter.Test(string(email))
}

func (svc *Service) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	input, err := req.parse()
	if err != nil {
		return nil, err
	}

	if svc.emailMayExist(input.email) {
		_, err = svc.userRepo.FindByEmail(ctx, string(input.email))
		if err == nil {
			return nil, &failure.ConflictError{Entity: "user", Field: "email", Value: string(input.email)}
		}

		var notFoundErr *failure.NotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to check if email already exists: %w", err)
		}
	}

	passwordHash, err := HashPassword(string(input.password))
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	timeNow := svc.now()
	otpExpiresAt := timeNow.Add(OTPValidity)

	user := &User{
		ID:           uuid.NewString(),
		FirstName:    string(input.firstName),
		LastName:     string(input.lastName),
		Email:        string(input.email),
		Username:     "@" + strings.ToLower(string(input.firstName)) + uuid.NewString()[:8],
		PasswordHash: passwordHash,
		IsVerified:   false,
		OTP:          random.Digits(otpLength),
		OTPExpiresAt: &otpExpiresAt,
		RegisteredAt: timeNow,
	}

	err = svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		err := svc.userRepo.Insert(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}

		err = svc.purgeRepo.Schedule(ctx, &AccountPurge{UserID: user.ID, DueAt: otpExpiresAt})
		if err != nil {
			return fmt.Errorf("failed to schedule account purge: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to signup user: %w", err)
	}

	if svc.bloomFilter != nil {
		svc.bloomFilter.Add(user.Email)
	}

	// the purge cleans up the account if the email never arrives
	err = svc.otpSender.SendOTP(ctx, user.Email, user.OTP, OTPPurposeVerifyAccount)
	if err != nil {
		slog.ErrorContext(ctx, "failed to send verification otp", "userId", user.ID, "error", err)
	}

	user.redact()

	return user, nil
}

func (svc *Service) checkOTP(user *User, otp string) error {
	if user.OTP == "" || subtle.ConstantTimeCompare([]byte(user.OTP), []byte(otp)) != 1 {
		return &InvalidOTPError{Email: user.Email}
	}

	if user.OTPExpiresAt == nil || !svc.now().Before(*user.OTPExpiresAt) {
		var expiredAt time.Time
		if user.OTPExpiresAt != nil {
			expiredAt = *user.OTPExpiresAt
		}

		return &OTPExpiredError{Email: user.Email, ExpiredAt: expiredAt}
	}

	return nil
}

// VerifyAccount confirms the signup OTP and returns a bearer token.
func (svc *Service) VerifyAccount(ctx context.Context, email, otp string) (string, error) {
	if otp == "" {
		return "", &failure.ValidationError{Field: "otp", Reason: "must not be empty"}
	}

	parsedEmail, err := ParseEmail(email)
	if err != nil {
		return "", err
	}

	user, err := svc.userRepo.FindByEmail(ctx, string(parsedEmail))
	if err != nil {
		return "", fmt.Errorf("failed to find user by email: %w", err)
	}

	err = svc.checkOTP(user, otp)
	if err != nil {
		return "", err
	}

	// Grouping comes first so a failure here leaves the OTP usable for a retry.
	err = svc.groups.AddToGroup(ctx, user.ID, authcontext.Authenticated)
	if err != nil {
		return "", fmt.Errorf("failed to add user to authenticated group: %w", err)
	}

	user.IsVerified = true
	user.OTP = ""
	user.OTPExpiresAt = nil

	err = svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
		err := svc.userRepo.UpdateAccount(ctx, user)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}

		err = svc.purgeRepo.Cancel(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to cancel account purge: %w", err)
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to verify account: %w", err)
	}

	token, err := svc.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	return token, nil
}

func (svc *Service) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", &failure.ValidationError{Reason: "please provide email and password"}
	}

	parsedEmail, err := ParseEmail(email)
	if err != nil {
		return "", err
	}

	user, err := svc.userRepo.FindByEmail(ctx, string(parsedEmail))
	if err != nil {
		var notFoundErr *failure.NotFoundError
		if errors.As(err, &notFoundErr) {
			return "", ErrInvalidCredentials
		}

		return "", fmt.Errorf("failed to find user by email: %w", err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", ErrInvalidCredentials
		}

		return "", fmt.Errorf("failed to compare password hash: %w", err)
	}

	if !user.IsVerified {
		return "", &AccountNotVerifiedError{Email: user.Email}
	}

	// Adding an existing grouping is a no-op.
	err = svc.groups.AddToGroup(ctx, user.ID, authcontext.Authenticated)
	if err != nil {
		return "", fmt.Errorf("failed to add user to authenticated group: %w", err)
	}

	token, err := svc.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	return token, nil
}

// ForgotPassword issues a fresh OTP for a password reset and emails it.
func (svc *Service) ForgotPassword(ctx context.Context, email string) error {
	parsedEmail, err := ParseEmail(email)
	if err != nil {
		return err
	}

	user, err := svc.userRepo.FindByEmail(ctx, string(parsedEmail))
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}

	otpExpiresAt := svc.now().Add(OTPValidity)
	user.OTP = random.Digits(otpLength)
	user.OTPExpiresAt = &otpExpiresAt

	err = svc.userRepo.UpdateAccount(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to store reset otp: %w", err)
	}

	err = svc.otpSender.SendOTP(ctx, user.Email, user.OTP, OTPPurposeResetPassword)
	if err != nil {
		return fmt.Errorf("failed to send reset otp: %w", err)
	}

	return nil
}

type ResetPasswordRequest struct {
	Email    string
	OTP      string
	Password string
}

func (svc *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if req.OTP == "" {
		return &failure.ValidationError{Field: "otp", Reason: "must not be empty"}
	}

	email, err := ParseEmail(req.Email)
	if err != nil {
		return err
	}

	password, err := ParsePassword(req.Password)
	if err != nil {
		return err
	}

	user, err := svc.userRepo.FindByEmail(ctx, string(email))
	if err != nil {
		return fmt.Errorf("failed to find user by email: %w", err)
	}

	err = svc.checkOTP(user, req.OTP)
	if err != nil {
		return err
	}

	passwordHash, err := HashPassword(string(password))
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = passwordHash
	user.OTP = ""
	user.OTPExpiresAt = nil

	err = svc.userRepo.UpdateAccount(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

type UpdateProfileRequest struct {
	UserID    string
	FirstName string
	LastName  string
	Image     *storage.File
}

// UpdateProfile replaces the names that are set in req and uploads a new
// profile image when one is given.
func (svc *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	user, err := svc.userRepo.Find(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if req.FirstName != "" {
		firstName, err := ParseName("firstName", req.FirstName)
		if err != nil {
			return nil, err
		}

		user.FirstName = string(firstName)
	}

	if req.LastName != "" {
		lastName, err := ParseName("lastName", req.LastName)
		if err != nil {
			return nil, err
		}

		user.LastName = string(lastName)
	}

	if req.Image != nil {
		if !strings.HasPrefix(req.Image.ContentType, "image/") {
			return nil, &failure.ValidationError{Field: "profile", Reason: "please upload images only"}
		}

		if req.Image.Size > maxProfileImageSize {
			return nil, &failure.ValidationError{Field: "profile", Reason: "image should be at most 5MB"}
		}

		objectName := "profiles/" + user.ID + "-" + uuid.NewString() + path.Ext(req.Image.Name)

		url, err := svc.objects.Put(ctx, objectName, *req.Image)
		if err != nil {
			return nil, fmt.Errorf("failed to upload profile image: %w", err)
		}

		user.Profile = url
	}

	err = svc.userRepo.UpdateAccount(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	user, err = svc.userRepo.Find(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find updated user: %w", err)
	}

	user.redact()

	return user, nil
}

// PurgeUnverified deletes the accounts whose verification window has passed.
// It returns the number of deleted accounts.
func (svc *Service) PurgeUnverified(ctx context.Context) (int, error) {
	purges, err := svc.purgeRepo.ListDue(ctx, svc.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list due purges: %w", err)
	}

	deleted := 0

	for _, purge := range purges {
		err = svc.transactor.WithinTx(ctx, func(ctx context.Context) error {
			user, err := svc.userRepo.Find(ctx, purge.UserID)
			if err != nil {
				var notFoundErr *failure.NotFoundError
				if !errors.As(err, &notFoundErr) {
					return fmt.Errorf("failed to find user: %w", err)
				}
			}

			if user != nil && !user.IsVerified {
				err = svc.userRepo.Delete(ctx, user.ID)
				if err != nil {
					return fmt.Errorf("failed to delete user: %w", err)
				}

				deleted++
			}

			err = svc.purgeRepo.Cancel(ctx, purge.UserID)
			if err != nil {
				return fmt.Errorf("failed to drop purge: %w", err)
			}

			return nil
		})
		if err != nil {
			return deleted, fmt.Errorf("failed to purge user %q: %w", purge.UserID, err)
		}
	}

	return deleted, nil
}

// Authenticate resolves a bearer token to its user.
func (svc *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	userID, err := svc.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := svc.GetUser(ctx, userID)
	if err != nil {
		var notFoundErr *failure.NotFoundError
		if errors.As(err, &notFoundErr) {
			return nil, &InvalidTokenError{Reason: err}
		}

		return nil, fmt.Errorf("failed to get token user: %w", err)
	}

	return user, nil
}

func (svc *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := svc.userRepo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	user.redact()

	return user, nil
}

func (svc *Service) GetCurrentUser(ctx context.Context) (*User, error) {
	sub := authcontext.GetSubject(ctx)
	if sub == authcontext.Anonymous {
		return nil, ErrCurrentUserNotFound
	}

	user, err := svc.GetUser(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return user, nil
}
