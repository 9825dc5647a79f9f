package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

// Messages handled by the persistence actor.
type SaveMessage struct {
	RoomID   string
	SenderID string
	Content  string
}

type SaveMessageResult struct {
	Message *models.Message
	Err     error
}

type MarkRead struct {
	RoomID   string
	ReaderID string
}

type MarkReadResult struct {
	Updated int64
	Err     error
}

// persistActor owns every chat database write. One mailbox serializes writes,
// which also keeps per-room sequence numbers in persistence order.
type persistActor struct {
	repo   repository.ChatRepository
	logger *zap.Logger
}

func (a *persistActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *SaveMessage:
		dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		m := &models.Message{
			ChatRoomID: msg.RoomID,
			SenderID:   msg.SenderID,
			Content:    msg.Content,
			CreatedAt:  time.Now(),
		}
		err := a.repo.SaveMessage(dbCtx, m)
		cancel()
		if err != nil {
			a.logger.Error("Failed to save chat message",
				zap.String("room_id", msg.RoomID), zap.Error(err))
			ctx.Respond(&SaveMessageResult{Err: err})
			return
		}
		ctx.Respond(&SaveMessageResult{Message: m})

	case *MarkRead:
		dbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		updated, err := a.repo.MarkReadExceptSender(dbCtx, msg.RoomID, msg.ReaderID)
		cancel()
		if err != nil {
			a.logger.Error("Failed to mark messages read",
				zap.String("room_id", msg.RoomID), zap.Error(err))
		}
		ctx.Respond(&MarkReadResult{Updated: updated, Err: err})

	case *actor.Started:
		a.logger.Info("Chat persistence actor started")

	case *actor.Stopped:
		a.logger.Info("Chat persistence actor stopped")
	}
}

// Persister is the synchronous facade over the persistence actor that socket
// pumps call.
type Persister struct {
	system  *actor.ActorSystem
	pid     *actor.PID
	timeout time.Duration
}

// NewPersister spawns the persistence actor on its own mailbox.
func NewPersister(repo repository.ChatRepository, logger *zap.Logger) (*Persister, error) {
	system := actor.NewActorSystem()

	props := actor.PropsFromProducer(func() actor.Actor {
		return &persistActor{repo: repo, logger: logger.Named("chat-persist")}
	})
	pid, err := system.Root.SpawnNamed(props, "chat-persist")
	if err != nil {
		return nil, fmt.Errorf("failed to spawn chat persistence actor: %w", err)
	}

	return &Persister{
		system:  system,
		pid:     pid,
		timeout: 10 * time.Second,
	}, nil
}

func (p *Persister) SaveMessage(roomID, senderID, content string) (*models.Message, error) {
	future := p.system.Root.RequestFuture(p.pid, &SaveMessage{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
	}, p.timeout)

	result, err := future.Result()
	if err != nil {
		return nil, err
	}
	res, ok := result.(*SaveMessageResult)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", result)
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Message, nil
}

func (p *Persister) MarkRead(roomID, readerID string) error {
	future := p.system.Root.RequestFuture(p.pid, &MarkRead{
		RoomID:   roomID,
		ReaderID: readerID,
	}, p.timeout)

	result, err := future.Result()
	if err != nil {
		return err
	}
	res, ok := result.(*MarkReadResult)
	if !ok {
		return fmt.Errorf("unexpected response type %T", result)
	}
	return res.Err
}

// Shutdown stops the actor system, draining in-flight writes.
func (p *Persister) Shutdown() {
	p.system.Root.Stop(p.pid)
	p.system.Shutdown()
}
