// internal/database/friend.go

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/parley/internal/models"
)

const friendRequestColumns = `fr.id, fr.sender_id, fr.recipient_id, fr.status, fr.created_at, fr.updated_at`

func scanFriendRequest(row pgx.Row) (*models.FriendRequest, error) {
	var fr models.FriendRequest
	var status string
	if err := row.Scan(&fr.ID, &fr.SenderID, &fr.RecipientID, &status, &fr.CreatedAt, &fr.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	fr.Status = models.FriendRequestStatus(status)
	return &fr, nil
}

// InsertFriendRequest creates a pending request from sender to recipient. The pair index
// rejects a second request between the same two users in either direction with ErrDuplicate.
func (s *Store) InsertFriendRequest(ctx context.Context, sender, recipient uuid.UUID) (*models.FriendRequest, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `
		INSERT INTO friend_requests AS fr (id, sender_id, recipient_id, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING ` + friendRequestColumns
	var fr *models.FriendRequest
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var scanErr error
		fr, scanErr = scanFriendRequest(tx.QueryRow(ctx, q, id, sender, recipient))
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert friend request: %w", mapError(err))
	}
	return fr, nil
}

func (s *Store) GetFriendRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return scanFriendRequest(s.pool.QueryRow(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests fr WHERE fr.id = $1`, id))
}

// FindFriendRequestBetween returns the request between a and b in either direction.
func (s *Store) FindFriendRequestBetween(ctx context.Context, a, b uuid.UUID) (*models.FriendRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := `
		SELECT ` + friendRequestColumns + `
		FROM friend_requests fr
		WHERE (fr.sender_id = $1 AND fr.recipient_id = $2)
		   OR (fr.sender_id = $2 AND fr.recipient_id = $1)
		LIMIT 1
	`
	return scanFriendRequest(s.pool.QueryRow(ctx, q, a, b))
}

// AcceptFriendRequest marks the request accepted and adds each party to the other's
// friend set in a single transaction. Running it again on an accepted request re-applies
// the friend rows without duplicating them.
func (s *Store) AcceptFriendRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	updateQ := `
		UPDATE friend_requests AS fr
		SET status = 'accepted',
		    updated_at = CASE WHEN fr.status = 'accepted' THEN fr.updated_at ELSE NOW() END
		WHERE fr.id = $1
		RETURNING ` + friendRequestColumns
	friendQ := `
		INSERT INTO user_friends (user_id, friend_id)
		VALUES ($1, $2), ($2, $1)
		ON CONFLICT (user_id, friend_id) DO NOTHING
	`

	var fr *models.FriendRequest
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var err error
		fr, err = scanFriendRequest(tx.QueryRow(ctx, updateQ, id))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, friendQ, fr.SenderID, fr.RecipientID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept friend request: %w", mapError(err))
	}
	return fr, nil
}

// ListIncoming returns requests sent to recipient with the given status, sender populated.
func (s *Store) ListIncoming(ctx context.Context, recipient uuid.UUID, status models.FriendRequestStatus) ([]models.FriendRequest, error) {
	q := `
		SELECT ` + friendRequestColumns + `, ` + publicUserColumns + `
		FROM friend_requests fr
		JOIN users u ON u.id = fr.sender_id
		WHERE fr.recipient_id = $1 AND fr.status = $2
		ORDER BY fr.created_at DESC
	`
	return s.listRequests(ctx, q, recipient, status, func(fr *models.FriendRequest, p *models.PublicUser) {
		fr.Sender = p
	})
}

// ListOutgoing returns requests sent by sender with the given status, recipient populated.
func (s *Store) ListOutgoing(ctx context.Context, sender uuid.UUID, status models.FriendRequestStatus) ([]models.FriendRequest, error) {
	q := `
		SELECT ` + friendRequestColumns + `, ` + publicUserColumns + `
		FROM friend_requests fr
		JOIN users u ON u.id = fr.recipient_id
		WHERE fr.sender_id = $1 AND fr.status = $2
		ORDER BY fr.created_at DESC
	`
	return s.listRequests(ctx, q, sender, status, func(fr *models.FriendRequest, p *models.PublicUser) {
		fr.Recipient = p
	})
}

func (s *Store) listRequests(
	ctx context.Context,
	q string,
	userID uuid.UUID,
	status models.FriendRequestStatus,
	attach func(*models.FriendRequest, *models.PublicUser),
) ([]models.FriendRequest, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, q, userID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := []models.FriendRequest{}
	for rows.Next() {
		var fr models.FriendRequest
		var st string
		var p models.PublicUser
		err := rows.Scan(
			&fr.ID, &fr.SenderID, &fr.RecipientID, &st, &fr.CreatedAt, &fr.UpdatedAt,
			&p.ID, &p.FullName, &p.ProfilePic, &p.NativeLanguage, &p.LearningLanguage,
		)
		if err != nil {
			return nil, err
		}
		fr.Status = models.FriendRequestStatus(st)
		attach(&fr, &p)
		reqs = append(reqs, fr)
	}
	return reqs, rows.Err()
}
