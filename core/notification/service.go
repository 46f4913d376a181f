package notification

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
	ErrNotOwner = errors.New("notification does not belong to this account")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, notif Notification) (Notification, error)
		GetNotificationByID(ctx context.Context, id string) (Notification, error)
		QueryNotificationsByAccount(ctx context.Context, accountID string) ([]Notification, error)
		UpdateNotification(ctx context.Context, notif Notification) (Notification, error)
		DeleteNotificationsByAccount(ctx context.Context, accountID string) error

		CreateNews(ctx context.Context, news News) (News, error)
		QueryAllNews(ctx context.Context) ([]News, error) // newest first
	}

	// RecipientDirectory lists broadcast recipients; implemented by the
	// account layer.
	RecipientDirectory interface {
		ListRecipients(ctx context.Context, excludeID string) ([]Recipient, error)
	}

	ServiceInterface interface {
		Notify(ctx context.Context, accountID, title, message string) error
		NotifyAndMail(ctx context.Context, accountID string, email mail.Address, title, message, htmlBody string) error
		BroadcastNews(ctx context.Context, authorID, title, content string) (News, error)
		QueryNews(ctx context.Context) ([]News, error)
		QueryByAccount(ctx context.Context, accountID string) ([]Notification, error)
		MarkRead(ctx context.Context, notificationID, requesterID string) (Notification, error)
		ClearAll(ctx context.Context, accountID string) error
	}

	service struct {
		repo      Repository
		directory RecipientDirectory
		mailSvc   core.EmailService
		conf      *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, directory RecipientDirectory, mailSvc core.EmailService, conf *core.Config) ServiceInterface {
	return &service{
		repo:      repo,
		directory: directory,
		mailSvc:   mailSvc,
		conf:      conf,
	}
}

// Notify appends an unread Notification for the account.
func (svc *service) Notify(ctx context.Context, accountID, title, message string) error {
	_, err := svc.repo.CreateNotification(ctx, Notification{
		AccountID: accountID,
		Title:     title,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	return pkgerrors.Wrap(err, "creating notification")
}

// NotifyAndMail appends a Notification and mirrors it to the account's email.
// The email is best-effort; only the notification write can fail the call.
func (svc *service) NotifyAndMail(ctx context.Context, accountID string, email mail.Address, title, message, htmlBody string) error {
	if err := svc.Notify(ctx, accountID, title, message); err != nil {
		return err
	}
	svc.mailSvc.SendMessages(core.NewEmailMessage(email, title, message, htmlBody))
	return nil
}

// BroadcastNews persists the News then fans out one Notification and one
// best-effort email per account except the author. Recipients are handled
// independently: a failure for one never aborts the others.
func (svc *service) BroadcastNews(ctx context.Context, authorID, title, content string) (News, error) {
	news, err := svc.repo.CreateNews(ctx, News{
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return News{}, pkgerrors.Wrap(err, "creating news")
	}

	recipients, err := svc.directory.ListRecipients(ctx, authorID)
	if err != nil {
		return News{}, pkgerrors.Wrap(err, "listing broadcast recipients")
	}

	messages := make([]*core.EmailMessage, 0, len(recipients))
	for _, r := range recipients {
		// notification failures are isolated per recipient
		_ = svc.Notify(ctx, r.ID, "New News", fmt.Sprintf("New news: %s", title))
		messages = append(messages, core.NewEmailMessage(
			mail.Address{Address: r.Email},
			"New News",
			fmt.Sprintf("%s\n\n%s\n\nRead more: %s/news", title, content, svc.conf.FrontendBaseURL),
			fmt.Sprintf("<h2>New News on %s</h2><p>%s</p><p>%s</p><p>Read more: <a href=%q>News</a></p>",
				svc.conf.AppName, title, content, svc.conf.FrontendBaseURL+"/news"),
		))
	}
	svc.mailSvc.SendMessages(messages...)
	return news, nil
}

func (svc *service) QueryNews(ctx context.Context) ([]News, error) {
	return svc.repo.QueryAllNews(ctx)
}

func (svc *service) QueryByAccount(ctx context.Context, accountID string) ([]Notification, error) {
	return svc.repo.QueryNotificationsByAccount(ctx, accountID)
}

// MarkRead flips the read flag; only the owner may do so.
func (svc *service) MarkRead(ctx context.Context, notificationID, requesterID string) (Notification, error) {
	notif, err := svc.repo.GetNotificationByID(ctx, notificationID)
	if err != nil {
		return Notification{}, err
	}
	if notif.AccountID != requesterID {
		return Notification{}, ErrNotOwner
	}
	notif.Read = true
	return svc.repo.UpdateNotification(ctx, notif)
}

// ClearAll deletes every notification owned by the account.
func (svc *service) ClearAll(ctx context.Context, accountID string) error {
	return svc.repo.DeleteNotificationsByAccount(ctx, accountID)
}
