package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

type notificationRow struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
	Read      bool      `db:"read"`
}

type newsRow struct {
	ID        string    `db:"id"`
	AuthorID  string    `db:"author_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

func (r notificationRow) toNotification() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		AccountID: r.AccountID,
		Title:     r.Title,
		Message:   r.Message,
		Timestamp: r.CreatedAt.UTC(),
		Read:      r.Read,
	}
}

func (r newsRow) toNews() notification.News {
	return notification.News{
		ID:        r.ID,
		AuthorID:  r.AuthorID,
		Title:     r.Title,
		Content:   r.Content,
		Timestamp: r.CreatedAt.UTC(),
	}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	notif.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO notification (id, account_id, title, message, created_at, read) VALUES ($1, $2, $3, $4, $5, $6)`,
		notif.ID, notif.AccountID, notif.Title, notif.Message, notif.Timestamp.UTC(), notif.Read,
	)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return notif, nil
}

func (repo *notificationRepository) GetNotificationByID(ctx context.Context, id string) (notification.Notification, error) {
	var row notificationRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT id, account_id, title, message, created_at, read FROM notification WHERE id = $1`, id)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "getting notification")
	}
	return row.toNotification(), nil
}

func (repo *notificationRepository) QueryNotificationsByAccount(ctx context.Context, accountID string) ([]notification.Notification, error) {
	var rows []notificationRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, account_id, title, message, created_at, read FROM notification
WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.toNotification())
	}
	return notifs, nil
}

func (repo *notificationRepository) UpdateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE notification SET read = $1 WHERE id = $2`, notif.Read, notif.ID)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return notif, nil
}

func (repo *notificationRepository) DeleteNotificationsByAccount(ctx context.Context, accountID string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM notification WHERE account_id = $1`, accountID)
	return errors.Wrap(err, "deleting notifications")
}

func (repo *notificationRepository) CreateNews(ctx context.Context, news notification.News) (notification.News, error) {
	news.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO news (id, author_id, title, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		news.ID, news.AuthorID, news.Title, news.Content, news.Timestamp.UTC(),
	)
	if err != nil {
		return notification.News{}, errors.Wrap(err, "inserting news")
	}
	return news, nil
}

func (repo *notificationRepository) QueryAllNews(ctx context.Context) ([]notification.News, error) {
	var rows []newsRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT id, author_id, title, content, created_at FROM news ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying news")
	}
	news := make([]notification.News, 0, len(rows))
	for _, r := range rows {
		news = append(news, r.toNews())
	}
	return news, nil
}
