package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/messaging"
)

type messageRepository struct {
	db *messageTable
}

var _ messaging.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *DB) *messageRepository {
	return &messageRepository{db: db.message}
}

func (repo *messageRepository) withReplies(msg messaging.Message) messaging.Message {
	replies := repo.db.replies[msg.ID]
	msg.Replies = make([]messaging.Reply, len(replies))
	copy(msg.Replies, replies)
	return msg
}

func (repo *messageRepository) CreateMessage(_ context.Context, msg messaging.Message) (messaging.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	msg.ID = uuid.New().String()
	repo.db.table[msg.ID] = &msg
	return repo.withReplies(msg), nil
}

func (repo *messageRepository) GetMessageByID(_ context.Context, id string) (messaging.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if msg, ok := repo.db.table[id]; ok {
		return repo.withReplies(*msg), nil
	}
	return messaging.Message{}, messaging.ErrMessageNotFound
}

func (repo *messageRepository) QueryMessagesByAccount(_ context.Context, accountID string) ([]messaging.Message, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	msgs := make([]messaging.Message, 0)
	for _, msg := range repo.db.table {
		if msg.SenderID == accountID || msg.RecipientID == accountID {
			msgs = append(msgs, repo.withReplies(*msg))
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	return msgs, nil
}

func (repo *messageRepository) AppendReply(_ context.Context, reply messaging.Reply) (messaging.Reply, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[reply.MessageID]; !ok {
		return messaging.Reply{}, messaging.ErrMessageNotFound
	}
	reply.ID = uuid.New().String()
	repo.db.replies[reply.MessageID] = append(repo.db.replies[reply.MessageID], reply)
	return reply, nil
}
