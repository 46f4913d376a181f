package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/messaging"
)

type messageRepository struct {
	db *sqlx.DB
}

var _ messaging.Repository = (*messageRepository)(nil) // interface compliance check

func NewMessageRepository(db *sqlx.DB) *messageRepository {
	return &messageRepository{db: db}
}

type messageRow struct {
	ID          string    `db:"id"`
	SenderID    string    `db:"sender_id"`
	RecipientID string    `db:"recipient_id"`
	Category    string    `db:"category"`
	Body        string    `db:"body"`
	CreatedAt   time.Time `db:"created_at"`
}

type replyRow struct {
	ID        string    `db:"id"`
	MessageID string    `db:"message_id"`
	SenderID  string    `db:"sender_id"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

func (r messageRow) toMessage() messaging.Message {
	return messaging.Message{
		ID:          r.ID,
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		Category:    r.Category,
		Body:        r.Body,
		Timestamp:   r.CreatedAt.UTC(),
		Replies:     []messaging.Reply{},
	}
}

func (r replyRow) toReply() messaging.Reply {
	return messaging.Reply{
		ID:        r.ID,
		MessageID: r.MessageID,
		SenderID:  r.SenderID,
		Body:      r.Body,
		Timestamp: r.CreatedAt.UTC(),
	}
}

func (repo *messageRepository) CreateMessage(ctx context.Context, msg messaging.Message) (messaging.Message, error) {
	msg.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO message (id, sender_id, recipient_id, category, body, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.SenderID, msg.RecipientID, msg.Category, msg.Body, msg.Timestamp.UTC(),
	)
	if err != nil {
		return messaging.Message{}, errors.Wrap(err, "inserting message")
	}
	if msg.Replies == nil {
		msg.Replies = []messaging.Reply{}
	}
	return msg, nil
}

func (repo *messageRepository) GetMessageByID(ctx context.Context, id string) (messaging.Message, error) {
	var row messageRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, sender_id, recipient_id, category, body, created_at FROM message WHERE id = $1`, id)
	if err != nil {
		return messaging.Message{}, trapNoRowsErr(err, messaging.ErrMessageNotFound, "getting message")
	}
	msg := row.toMessage()
	if err = repo.loadReplies(ctx, map[string]*messaging.Message{msg.ID: &msg}); err != nil {
		return messaging.Message{}, err
	}
	return msg, nil
}

func (repo *messageRepository) QueryMessagesByAccount(ctx context.Context, accountID string) ([]messaging.Message, error) {
	var rows []messageRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, sender_id, recipient_id, category, body, created_at FROM message
WHERE sender_id = $1 OR recipient_id = $1 ORDER BY created_at`, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "querying messages")
	}

	msgs := make([]messaging.Message, 0, len(rows))
	byID := make(map[string]*messaging.Message, len(rows))
	for _, r := range rows {
		msgs = append(msgs, r.toMessage())
	}
	for i := range msgs {
		byID[msgs[i].ID] = &msgs[i]
	}
	if err = repo.loadReplies(ctx, byID); err != nil {
		return nil, err
	}
	return msgs, nil
}

// loadReplies attaches replies to their parent messages, in arrival order.
func (repo *messageRepository) loadReplies(ctx context.Context, byID map[string]*messaging.Message) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	q, args, err := sqlx.In(
		`SELECT id, message_id, sender_id, body, created_at FROM reply WHERE message_id IN (?) ORDER BY created_at`, ids)
	if err != nil {
		return errors.Wrap(err, "building replies query")
	}
	var rows []replyRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "querying replies")
	}
	for _, r := range rows {
		if msg, ok := byID[r.MessageID]; ok {
			msg.Replies = append(msg.Replies, r.toReply())
		}
	}
	return nil
}

func (repo *messageRepository) AppendReply(ctx context.Context, reply messaging.Reply) (messaging.Reply, error) {
	reply.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO reply (id, message_id, sender_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
		reply.ID, reply.MessageID, reply.SenderID, reply.Body, reply.Timestamp.UTC(),
	)
	if err != nil {
		return messaging.Reply{}, errors.Wrap(err, "inserting reply")
	}
	return reply, nil
}
