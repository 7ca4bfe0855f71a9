// Package dbtest provides an in-memory implementation of the database.Store method set
// for service and handler tests. It enforces the same uniqueness rules as the schema.
package dbtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/parley/internal/database"
	"github.com/jason-s-yu/parley/internal/models"
)

type Store struct {
	mu sync.Mutex

	users    map[uuid.UUID]*models.User
	byEmail  map[string]uuid.UUID
	order    []uuid.UUID
	friends  map[uuid.UUID]map[uuid.UUID]time.Time
	requests map[uuid.UUID]*models.FriendRequest
	pairs    map[[2]uuid.UUID]uuid.UUID
	failures map[string]error
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*models.User),
		byEmail:  make(map[string]uuid.UUID),
		friends:  make(map[uuid.UUID]map[uuid.UUID]time.Time),
		requests: make(map[uuid.UUID]*models.FriendRequest),
		pairs:    make(map[[2]uuid.UUID]uuid.UUID),
		failures: make(map[string]error),
	}
}

// FailOn makes every call to the named method return err until cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, method)
		return
	}
	s.failures[method] = err
}

func (s *Store) fail(method string) error {
	return s.failures[method]
}

// AddFriend inserts only the one-way friend row userID -> friendID, for tests that need
// an asymmetric friend set.
func (s *Store) AddFriend(userID, friendID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addFriendLocked(userID, friendID)
}

func (s *Store) addFriendLocked(userID, friendID uuid.UUID) {
	set, ok := s.friends[userID]
	if !ok {
		set = make(map[uuid.UUID]time.Time)
		s.friends[userID] = set
	}
	if _, exists := set[friendID]; !exists {
		set[friendID] = time.Now()
	}
}

// RemoveFriend deletes the one-way friend row userID -> friendID.
func (s *Store) RemoveFriend(userID, friendID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.friends[userID], friendID)
}

// DeleteUser removes a user, simulating an account that disappeared mid-session.
func (s *Store) DeleteUser(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		delete(s.byEmail, u.Email)
		delete(s.users, id)
	}
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateUser"); err != nil {
		return err
	}
	if _, taken := s.byEmail[user.Email]; taken {
		return fmt.Errorf("failed to insert user: %w: users_email_key", database.ErrDuplicate)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now

	stored := *user
	s.users[user.ID] = &stored
	s.byEmail[user.Email] = user.ID
	s.order = append(s.order, user.ID)
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetUserByEmail"); err != nil {
		return nil, err
	}
	id, ok := s.byEmail[email]
	if !ok {
		return nil, database.ErrNotFound
	}
	u := *s.users[id]
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UpdateOnboarding(ctx context.Context, id uuid.UUID, f database.OnboardFields) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateOnboarding"); err != nil {
		return nil, err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	u.FullName = f.FullName
	u.Bio = f.Bio
	u.Location = f.Location
	u.NativeLanguage = f.NativeLanguage
	u.LearningLanguage = f.LearningLanguage
	u.IsOnboarded = true
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (s *Store) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdatePassword"); err != nil {
		return err
	}
	u, ok := s.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.Password = hash
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ListRecommended(ctx context.Context, userID uuid.UUID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListRecommended"); err != nil {
		return nil, err
	}
	users := []models.User{}
	for i := len(s.order) - 1; i >= 0; i-- {
		u, ok := s.users[s.order[i]]
		if !ok || u.ID == userID || !u.IsOnboarded {
			continue
		}
		if _, friend := s.friends[userID][u.ID]; friend {
			continue
		}
		users = append(users, *u)
	}
	return users, nil
}

func (s *Store) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListFriends"); err != nil {
		return nil, err
	}
	type entry struct {
		at time.Time
		u  *models.User
	}
	var entries []entry
	for id, at := range s.friends[userID] {
		if u, ok := s.users[id]; ok {
			entries = append(entries, entry{at, u})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })

	friends := []models.PublicUser{}
	for _, e := range entries {
		friends = append(friends, e.u.Public())
	}
	return friends, nil
}

func (s *Store) HasFriend(ctx context.Context, userID, friendID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("HasFriend"); err != nil {
		return false, err
	}
	_, ok := s.friends[userID][friendID]
	return ok, nil
}

func (s *Store) InsertFriendRequest(ctx context.Context, sender, recipient uuid.UUID) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertFriendRequest"); err != nil {
		return nil, err
	}
	key := models.PairKey(sender, recipient)
	if _, exists := s.pairs[key]; exists {
		return nil, fmt.Errorf("failed to insert friend request: %w: friend_requests_pair_idx", database.ErrDuplicate)
	}
	now := time.Now()
	fr := &models.FriendRequest{
		ID:          uuid.New(),
		SenderID:    sender,
		RecipientID: recipient,
		Status:      models.FriendRequestPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.requests[fr.ID] = fr
	s.pairs[key] = fr.ID
	cp := *fr
	return &cp, nil
}

func (s *Store) GetFriendRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetFriendRequest"); err != nil {
		return nil, err
	}
	fr, ok := s.requests[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *fr
	return &cp, nil
}

func (s *Store) FindFriendRequestBetween(ctx context.Context, a, b uuid.UUID) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("FindFriendRequestBetween"); err != nil {
		return nil, err
	}
	id, ok := s.pairs[models.PairKey(a, b)]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *s.requests[id]
	return &cp, nil
}

func (s *Store) AcceptFriendRequest(ctx context.Context, id uuid.UUID) (*models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("AcceptFriendRequest"); err != nil {
		return nil, err
	}
	fr, ok := s.requests[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if fr.Status != models.FriendRequestAccepted {
		fr.Status = models.FriendRequestAccepted
		fr.UpdatedAt = time.Now()
	}
	s.addFriendLocked(fr.SenderID, fr.RecipientID)
	s.addFriendLocked(fr.RecipientID, fr.SenderID)
	cp := *fr
	return &cp, nil
}

func (s *Store) ListIncoming(ctx context.Context, recipient uuid.UUID, status models.FriendRequestStatus) ([]models.FriendRequest, error) {
	return s.list("ListIncoming", func(fr *models.FriendRequest) (bool, uuid.UUID) {
		return fr.RecipientID == recipient && fr.Status == status, fr.SenderID
	}, func(fr *models.FriendRequest, p *models.PublicUser) { fr.Sender = p })
}

func (s *Store) ListOutgoing(ctx context.Context, sender uuid.UUID, status models.FriendRequestStatus) ([]models.FriendRequest, error) {
	return s.list("ListOutgoing", func(fr *models.FriendRequest) (bool, uuid.UUID) {
		return fr.SenderID == sender && fr.Status == status, fr.RecipientID
	}, func(fr *models.FriendRequest, p *models.PublicUser) { fr.Recipient = p })
}

func (s *Store) list(
	method string,
	match func(*models.FriendRequest) (bool, uuid.UUID),
	attach func(*models.FriendRequest, *models.PublicUser),
) ([]models.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(method); err != nil {
		return nil, err
	}
	reqs := []models.FriendRequest{}
	for _, fr := range s.requests {
		ok, otherID := match(fr)
		if !ok {
			continue
		}
		other, exists := s.users[otherID]
		if !exists {
			continue
		}
		cp := *fr
		p := other.Public()
		attach(&cp, &p)
		reqs = append(reqs, cp)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs, nil
}
