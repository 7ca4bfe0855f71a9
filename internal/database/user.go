package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/parley/internal/models"
)

const userColumns = `
	id, email, password, full_name, profile_pic, bio, location,
	native_language, learning_language, is_onboarded, created_at, updated_at`

const publicUserColumns = `u.id, u.full_name, u.profile_pic, u.native_language, u.learning_language`

// OnboardFields are the profile values written when a user completes onboarding.
type OnboardFields struct {
	FullName         string
	Bio              string
	Location         string
	NativeLanguage   string
	LearningLanguage string
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Password, &u.FullName, &u.ProfilePic, &u.Bio, &u.Location,
		&u.NativeLanguage, &u.LearningLanguage, &u.IsOnboarded, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// CreateUser inserts user. user.Password must already hold a hash. A taken email
// returns ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate user id: %w", err)
		}
		user.ID = id
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `INSERT INTO users (id, email, password, full_name, profile_pic)
	      VALUES ($1, $2, $3, $4, $5)
	      RETURNING created_at, updated_at`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q,
			user.ID, user.Email, user.Password, user.FullName, user.ProfilePic,
		).Scan(&user.CreatedAt, &user.UpdatedAt)
	})
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", mapError(err))
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UpdateOnboarding writes the profile fields, marks the user onboarded and returns the
// updated row.
func (s *Store) UpdateOnboarding(ctx context.Context, id uuid.UUID, f OnboardFields) (*models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `
	UPDATE users
	SET full_name = $2, bio = $3, location = $4,
	    native_language = $5, learning_language = $6,
	    is_onboarded = TRUE, updated_at = NOW()
	WHERE id = $1
	RETURNING ` + userColumns
	return scanUser(s.pool.QueryRow(ctx, q,
		id, f.FullName, f.Bio, f.Location, f.NativeLanguage, f.LearningLanguage,
	))
}

// UpdatePassword stores a new password hash.
func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, q, id, hash)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListRecommended returns onboarded users other than userID who are not in userID's
// friend set, newest first.
func (s *Store) ListRecommended(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `
	SELECT ` + userColumns + `
	FROM users u
	WHERE u.id <> $1
	  AND u.is_onboarded
	  AND NOT EXISTS (
	      SELECT 1 FROM user_friends f WHERE f.user_id = $1 AND f.friend_id = u.id
	  )
	ORDER BY u.created_at DESC
	`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListFriends returns the public projection of everyone in userID's friend set.
func (s *Store) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.PublicUser, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `
	SELECT ` + publicUserColumns + `
	FROM user_friends f
	JOIN users u ON u.id = f.friend_id
	WHERE f.user_id = $1
	ORDER BY f.created_at
	`
	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := []models.PublicUser{}
	for rows.Next() {
		var p models.PublicUser
		if err := rows.Scan(&p.ID, &p.FullName, &p.ProfilePic, &p.NativeLanguage, &p.LearningLanguage); err != nil {
			return nil, err
		}
		friends = append(friends, p)
	}
	return friends, rows.Err()
}

// HasFriend reports whether friendID is in userID's friend set.
func (s *Store) HasFriend(ctx context.Context, userID, friendID uuid.UUID) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM user_friends WHERE user_id = $1 AND friend_id = $2)`
	if err := s.pool.QueryRow(ctx, q, userID, friendID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
