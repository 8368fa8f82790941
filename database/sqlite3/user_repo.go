package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/vidtube/authentication"
	"github.com/nasermirzaei89/vidtube/failure"
	"github.com/nasermirzaei89/vidtube/idset"
)

const tableUsers = "users"

type UserRepository struct {
	db *sql.DB
}

var _ authentication.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const (
	userFieldID           = "id"
	userFieldFirstName    = "first_name"
	userFieldLastName     = "last_name"
	userFieldEmail        = "email"
	userFieldUsername     = "username"
	userFieldPasswordHash = "password_hash"
	userFieldProfile      = "profile"
	userFieldIsVerified   = "is_verified"
	userFieldOTP          = "otp"
	userFieldOTPExpiresAt = "otp_expires_at"
	userFieldRegisteredAt = "registered_at"
)

func userColumns() []string {
	return []string{
		userFieldID,
		userFieldFirstName,
		userFieldLastName,
		userFieldEmail,
		userFieldUsername,
		userFieldPasswordHash,
		userFieldProfile,
		userFieldIsVerified,
		userFieldOTP,
		userFieldOTPExpiresAt,
		userFieldRegisteredAt,
	}
}

func scanUser(row sq.RowScanner) (*authentication.User, error) {
	var (
		user         authentication.User
		otpExpiresAt sql.NullTime
	)

	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Profile,
		&user.IsVerified,
		&user.OTP,
		&otpExpiresAt,
		&user.RegisteredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if otpExpiresAt.Valid {
		user.OTPExpiresAt = &otpExpiresAt.Time
	}

	return &user, nil
}

func userListsOf(user *authentication.User) map[string][]string {
	lists := make(map[string][]string)

	for _, name := range authentication.UserLists() {
		lists[string(name)] = user.List(name).IDs()
	}

	return lists
}

func (repo *UserRepository) loadLists(ctx context.Context, user *authentication.User) error {
	lists, err := loadLists(ctx, runner(ctx, repo.db), user.ID)
	if err != nil {
		return fmt.Errorf("failed to load user lists: %w", err)
	}

	for _, name := range authentication.UserLists() {
		*user.List(name) = idset.New(lists[string(name)]...)
	}

	return nil
}

func (repo *UserRepository) Insert(ctx context.Context, user *authentication.User) error {
	run := runner(ctx, repo.db)

	q := sq.Insert(tableUsers).
		Columns(userColumns()...).
		Values(
			user.ID,
			user.FirstName,
			user.LastName,
			user.Email,
			user.Username,
			user.PasswordHash,
			user.Profile,
			user.IsVerified,
			user.OTP,
			otpExpiresAtValue(user),
			user.RegisteredAt,
		).
		RunWith(run)

	_, err := q.ExecContext(ctx)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "UNIQUE constraint failed: users.email"):
			return &failure.ConflictError{Entity: "user", Field: "email", Value: user.Email}
		case strings.Contains(err.Error(), "UNIQUE constraint failed: users.username"):
			return &failure.ConflictError{Entity: "user", Field: "username", Value: user.Username}
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	err = replaceLists(ctx, run, user.ID, userListsOf(user))
	if err != nil {
		return fmt.Errorf("failed to insert user lists: %w", err)
	}

	return nil
}

func otpExpiresAtValue(user *authentication.User) any {
	if user.OTPExpiresAt == nil {
		return nil
	}

	return *user.OTPExpiresAt
}

func (repo *UserRepository) findBy(ctx context.Context, field, value string) (*authentication.User, error) {
	q := sq.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{field: value}).
		RunWith(runner(ctx, repo.db))

	user, err := scanUser(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &failure.NotFoundError{Entity: "user", ID: value}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	err = repo.loadLists(ctx, user)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (repo *UserRepository) Find(ctx context.Context, userID string) (*authentication.User, error) {
	return repo.findBy(ctx, userFieldID, userID)
}

func (repo *UserRepository) FindByEmail(ctx context.Context, email string) (*authentication.User, error) {
	return repo.findBy(ctx, userFieldEmail, strings.ToLower(email))
}

func (repo *UserRepository) Update(ctx context.Context, user *authentication.User) error {
	run := runner(ctx, repo.db)

	err := updateUserColumns(ctx, run, user)
	if err != nil {
		return err
	}

	err = replaceLists(ctx, run, user.ID, userListsOf(user))
	if err != nil {
		return fmt.Errorf("failed to update user lists: %w", err)
	}

	return nil
}

func (repo *UserRepository) UpdateAccount(ctx context.Context, user *authentication.User) error {
	return updateUserColumns(ctx, runner(ctx, repo.db), user)
}

func updateUserColumns(ctx context.Context, run sq.StdSqlCtx, user *authentication.User) error {
	q := sq.Update(tableUsers).
		SetMap(map[string]any{
			userFieldFirstName:    user.FirstName,
			userFieldLastName:     user.LastName,
			userFieldEmail:        user.Email,
			userFieldUsername:     user.Username,
			userFieldPasswordHash: user.PasswordHash,
			userFieldProfile:      user.Profile,
			userFieldIsVerified:   user.IsVerified,
			userFieldOTP:          user.OTP,
			userFieldOTPExpiresAt: otpExpiresAtValue(user),
		}).
		Where(sq.Eq{userFieldID: user.ID}).
		RunWith(run)

	res, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec update: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if affected == 0 {
		return &failure.NotFoundError{Entity: "user", ID: user.ID}
	}

	return nil
}

func (repo *UserRepository) Delete(ctx context.Context, userID string) error {
	run := runner(ctx, repo.db)

	_, err := sq.Delete(tableUsers).
		Where(sq.Eq{userFieldID: userID}).
		RunWith(run).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	err = deleteLists(ctx, run, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user lists: %w", err)
	}

	return nil
}

func (repo *UserRepository) PullFromAll(ctx context.Context, lists []authentication.UserList, ids []string) error {
	names := make([]string, 0, len(lists))
	for _, list := range lists {
		names = append(names, string(list))
	}

	return pullFromLists(ctx, runner(ctx, repo.db), names, ids)
}

func (repo *UserRepository) ListEmails(ctx context.Context) ([]string, error) {
	q := sq.Select(userFieldEmail).From(tableUsers).RunWith(runner(ctx, repo.db))

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close email rows", "error", err)
		}
	}()

	var emails []string

	for rows.Next() {
		var email string

		err := rows.Scan(&email)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}

		emails = append(emails, email)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate emails: %w", err)
	}

	return emails, nil
}
