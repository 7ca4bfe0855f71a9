// Package social implements the friend request state machine and the friend graph reads.
//
// Per unordered pair of users the relation moves NoRelation -> Pending(sender) -> Friends.
// There is no decline transition. Accepting writes the request status and both friend set
// entries in one transaction.
package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/parley/internal/apperr"
	"github.com/jason-s-yu/parley/internal/database"
	"github.com/jason-s-yu/parley/internal/metrics"
	"github.com/jason-s-yu/parley/internal/models"
	"github.com/jason-s-yu/parley/internal/notify"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the social service needs.
type Store interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListRecommended(ctx context.Context, userID uuid.UUID) ([]models.User, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]models.PublicUser, error)
	HasFriend(ctx context.Context, userID, friendID uuid.UUID) (bool, error)

	InsertFriendRequest(ctx context.Context, sender, recipient uuid.UUID) (*models.FriendRequest, error)
	GetFriendRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error)
	FindFriendRequestBetween(ctx context.Context, a, b uuid.UUID) (*models.FriendRequest, error)
	AcceptFriendRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error)
	ListIncoming(ctx context.Context, recipient uuid.UUID, status models.FriendRequestStatus) ([]models.FriendRequest, error)
	ListOutgoing(ctx context.Context, sender uuid.UUID, status models.FriendRequestStatus) ([]models.FriendRequest, error)
}

type Service struct {
	store    Store
	notifier notify.Publisher
	logger   *logrus.Logger
	now      func() time.Time
}

// NewService builds the social service. A nil notifier discards events.
func NewService(store Store, notifier notify.Publisher, logger *logrus.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// ListRecommended returns onboarded users other than userID that are not already friends.
func (s *Service) ListRecommended(ctx context.Context, userID uuid.UUID) ([]models.Profile, error) {
	users, err := s.store.ListRecommended(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list recommended: %w", err)
	}
	profiles := make([]models.Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Profile())
	}
	return profiles, nil
}

func (s *Service) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.PublicUser, error) {
	friends, err := s.store.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

// SendRequest creates a pending request from senderID to recipientID.
func (s *Service) SendRequest(ctx context.Context, senderID, recipientID uuid.UUID) (*models.FriendRequest, error) {
	fr, err := s.sendRequest(ctx, senderID, recipientID)
	metrics.ObserveFriendRequest("send", outcome(err))
	return fr, err
}

func (s *Service) sendRequest(ctx context.Context, senderID, recipientID uuid.UUID) (*models.FriendRequest, error) {
	if senderID == recipientID {
		return nil, apperr.Validation("You cannot send a friend request to yourself")
	}

	sender, err := s.store.GetUserByID(ctx, senderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.Unauthenticated("Unauthorized - user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load sender: %w", err)
	}

	if _, err := s.store.GetUserByID(ctx, recipientID); errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("Recipient not found")
	} else if err != nil {
		return nil, fmt.Errorf("load recipient: %w", err)
	}

	friends, err := s.store.HasFriend(ctx, recipientID, senderID)
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if friends {
		return nil, apperr.Conflict("You are already friends with this user")
	}

	if _, err := s.store.FindFriendRequestBetween(ctx, senderID, recipientID); err == nil {
		return nil, apperr.Conflict("Friend request already sent")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("check existing request: %w", err)
	}

	fr, err := s.store.InsertFriendRequest(ctx, senderID, recipientID)
	if errors.Is(err, database.ErrDuplicate) {
		// lost a race with a concurrent request for the same pair
		return nil, apperr.Conflict("Friend request already sent")
	}
	if err != nil {
		return nil, fmt.Errorf("insert friend request: %w", err)
	}

	s.publish(ctx, recipientID, notify.Event{
		Type:      notify.FriendRequestReceived,
		RequestID: fr.ID,
		From:      sender.Public(),
		At:        s.now().UTC(),
	})
	return fr, nil
}

// AcceptRequest accepts requestID on behalf of its recipient. Accepting an already
// accepted request is allowed and re-applies the friend set entries.
func (s *Service) AcceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error) {
	fr, err := s.acceptRequest(ctx, userID, requestID)
	metrics.ObserveFriendRequest("accept", outcome(err))
	return fr, err
}

func (s *Service) acceptRequest(ctx context.Context, userID, requestID uuid.UUID) (*models.FriendRequest, error) {
	fr, err := s.store.GetFriendRequest(ctx, requestID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("Friend request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load friend request: %w", err)
	}
	if fr.RecipientID != userID {
		return nil, apperr.Forbidden("You can only accept friend requests sent to you")
	}

	wasPending := fr.Status == models.FriendRequestPending
	accepted, err := s.store.AcceptFriendRequest(ctx, requestID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("Friend request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("accept friend request: %w", err)
	}

	if wasPending {
		if recipient, err := s.store.GetUserByID(ctx, userID); err == nil {
			s.publish(ctx, fr.SenderID, notify.Event{
				Type:      notify.FriendRequestAccepted,
				RequestID: fr.ID,
				From:      recipient.Public(),
				At:        s.now().UTC(),
			})
		}
	}
	return accepted, nil
}

// ListIncomingPending returns pending requests addressed to userID with their senders.
func (s *Service) ListIncomingPending(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	reqs, err := s.store.ListIncoming(ctx, userID, models.FriendRequestPending)
	if err != nil {
		return nil, fmt.Errorf("list incoming requests: %w", err)
	}
	return reqs, nil
}

// ListOutgoingAccepted returns userID's sent requests that were accepted, with their recipients.
func (s *Service) ListOutgoingAccepted(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	reqs, err := s.store.ListOutgoing(ctx, userID, models.FriendRequestAccepted)
	if err != nil {
		return nil, fmt.Errorf("list accepted requests: %w", err)
	}
	return reqs, nil
}

// ListOutgoingPending returns userID's sent requests still awaiting an answer.
func (s *Service) ListOutgoingPending(ctx context.Context, userID uuid.UUID) ([]models.FriendRequest, error) {
	reqs, err := s.store.ListOutgoing(ctx, userID, models.FriendRequestPending)
	if err != nil {
		return nil, fmt.Errorf("list outgoing requests: %w", err)
	}
	return reqs, nil
}

type RequestsOverview struct {
	Incoming         []models.FriendRequest `json:"incoming"`
	OutgoingAccepted []models.FriendRequest `json:"outgoingAccepted"`
}

// FriendRequests bundles the incoming pending and outgoing accepted lists.
func (s *Service) FriendRequests(ctx context.Context, userID uuid.UUID) (RequestsOverview, error) {
	incoming, err := s.ListIncomingPending(ctx, userID)
	if err != nil {
		return RequestsOverview{}, err
	}
	accepted, err := s.ListOutgoingAccepted(ctx, userID)
	if err != nil {
		return RequestsOverview{}, err
	}
	return RequestsOverview{Incoming: incoming, OutgoingAccepted: accepted}, nil
}

func (s *Service) publish(ctx context.Context, userID uuid.UUID, ev notify.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.notifier.Publish(ctx, userID, ev); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"event":   ev.Type,
		}).Warn("failed to publish notification")
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.KindOf(err).String()
}
