package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubChatRepo records writes; seq assignment mimics the real repository.
type stubChatRepo struct {
	mu       sync.Mutex
	seq      map[string]int64
	saved    []models.Message
	saveErr  error
	markRead map[string]int64
}

func newStubChatRepo() *stubChatRepo {
	return &stubChatRepo{
		seq:      make(map[string]int64),
		markRead: make(map[string]int64),
	}
}

func (s *stubChatRepo) SaveMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.seq[msg.ChatRoomID]++
	msg.Seq = s.seq[msg.ChatRoomID]
	if msg.ID == "" {
		msg.ID = "stub"
	}
	s.saved = append(s.saved, *msg)
	return nil
}

func (s *stubChatRepo) MarkReadExceptSender(_ context.Context, roomID, _ string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markRead[roomID]++
	return 2, nil
}

func (s *stubChatRepo) GetRoom(context.Context, string) (*models.ChatRoom, error) {
	return nil, repository.ErrNotFound
}

func (s *stubChatRepo) GetOrCreateRoomForOrder(context.Context, *models.Order) (*models.ChatRoom, bool, error) {
	return nil, false, repository.ErrNotFound
}

func (s *stubChatRepo) AssignAdmin(context.Context, string, string) error { return nil }

func (s *stubChatRepo) CloseRoom(context.Context, string) error { return nil }

func (s *stubChatRepo) ListRoomsForCustomer(context.Context, string) ([]models.ChatRoom, error) {
	return nil, nil
}

func (s *stubChatRepo) ListActiveRooms(context.Context, repository.ChatRoomFilter) ([]models.ChatRoom, error) {
	return nil, nil
}

func (s *stubChatRepo) History(context.Context, string, int) ([]models.Message, error) {
	return nil, nil
}

func (s *stubChatRepo) UnreadFromRole(context.Context, string, models.Role) (int64, error) {
	return 0, nil
}

func TestPersisterAssignsSequentialSeq(t *testing.T) {
	repo := newStubChatRepo()
	persist, err := NewPersister(repo, zap.NewNop())
	require.NoError(t, err)
	defer persist.Shutdown()

	first, err := persist.SaveMessage("room-a", "u1", "hello")
	require.NoError(t, err)
	second, err := persist.SaveMessage("room-a", "u1", "again")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, "hello", first.Content)
}

func TestPersisterSerializesConcurrentSaves(t *testing.T) {
	repo := newStubChatRepo()
	persist, err := NewPersister(repo, zap.NewNop())
	require.NoError(t, err)
	defer persist.Shutdown()

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := persist.SaveMessage("room-a", "u1", "x")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Every write landed with a unique, gap-free seq.
	seen := make(map[int64]bool)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Len(t, repo.saved, writers)
	for _, msg := range repo.saved {
		assert.False(t, seen[msg.Seq])
		seen[msg.Seq] = true
	}
	assert.Equal(t, int64(writers), repo.seq["room-a"])
}

func TestPersisterPropagatesSaveError(t *testing.T) {
	repo := newStubChatRepo()
	repo.saveErr = errors.New("db down")
	persist, err := NewPersister(repo, zap.NewNop())
	require.NoError(t, err)
	defer persist.Shutdown()

	_, err = persist.SaveMessage("room-a", "u1", "hello")
	require.Error(t, err)
	assert.Equal(t, "db down", err.Error())
}

func TestPersisterMarkRead(t *testing.T) {
	repo := newStubChatRepo()
	persist, err := NewPersister(repo, zap.NewNop())
	require.NoError(t, err)
	defer persist.Shutdown()

	require.NoError(t, persist.MarkRead("room-a", "u1"))
	assert.Equal(t, int64(1), repo.markRead["room-a"])
}
