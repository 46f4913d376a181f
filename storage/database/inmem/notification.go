package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/notification"
)

type notificationRepository struct {
	notifs *notificationTable
	news   *newsTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{notifs: db.notification, news: db.news}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, notif notification.Notification) (notification.Notification, error) {
	repo.notifs.Lock()
	defer repo.notifs.Unlock()

	notif.ID = uuid.New().String()
	repo.notifs.table[notif.ID] = &notif
	return notif, nil
}

func (repo *notificationRepository) GetNotificationByID(_ context.Context, id string) (notification.Notification, error) {
	repo.notifs.RLock()
	defer repo.notifs.RUnlock()

	if n, ok := repo.notifs.table[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryNotificationsByAccount(_ context.Context, accountID string) ([]notification.Notification, error) {
	repo.notifs.RLock()
	defer repo.notifs.RUnlock()

	notifs := make([]notification.Notification, 0)
	for _, n := range repo.notifs.table {
		if n.AccountID == accountID {
			notifs = append(notifs, *n)
		}
	}
	// newest first
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].Timestamp.After(notifs[j].Timestamp) })
	return notifs, nil
}

func (repo *notificationRepository) UpdateNotification(_ context.Context, notif notification.Notification) (notification.Notification, error) {
	repo.notifs.Lock()
	defer repo.notifs.Unlock()

	orig, ok := repo.notifs.table[notif.ID]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	orig.Read = notif.Read
	return *orig, nil
}

func (repo *notificationRepository) DeleteNotificationsByAccount(_ context.Context, accountID string) error {
	repo.notifs.Lock()
	defer repo.notifs.Unlock()

	for id, n := range repo.notifs.table {
		if n.AccountID == accountID {
			delete(repo.notifs.table, id)
		}
	}
	return nil
}

func (repo *notificationRepository) CreateNews(_ context.Context, news notification.News) (notification.News, error) {
	repo.news.Lock()
	defer repo.news.Unlock()

	news.ID = uuid.New().String()
	repo.news.table[news.ID] = &news
	return news, nil
}

func (repo *notificationRepository) QueryAllNews(_ context.Context) ([]notification.News, error) {
	repo.news.RLock()
	defer repo.news.RUnlock()

	news := make([]notification.News, 0, len(repo.news.table))
	for _, n := range repo.news.table {
		news = append(news, *n)
	}
	// newest first
	sort.Slice(news, func(i, j int) bool { return news[i].Timestamp.After(news[j].Timestamp) })
	return news, nil
}
