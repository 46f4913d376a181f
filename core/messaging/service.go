package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/notification"
)

var (
	// errors
	ErrMessageNotFound   = errors.New("message not found")
	ErrRecipientNotFound = errors.New("recipient not found")
)

type (
	Repository interface {
		CreateMessage(ctx context.Context, msg Message) (Message, error)
		GetMessageByID(ctx context.Context, id string) (Message, error)
		// QueryMessagesByAccount returns messages where the account is sender
		// or recipient, replies included.
		QueryMessagesByAccount(ctx context.Context, accountID string) ([]Message, error)
		AppendReply(ctx context.Context, reply Reply) (Reply, error)
	}

	ServiceInterface interface {
		Send(ctx context.Context, senderID, recipientID, category, body string) (Message, error)
		Reply(ctx context.Context, messageID, replierID, body string) (Reply, error)
		ListMessages(ctx context.Context, accountID string) ([]Message, error)
	}

	service struct {
		repo     Repository
		acctSvc  account.ServiceInterface
		notifSvc notification.ServiceInterface
		conf     *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, acctSvc account.ServiceInterface, notifSvc notification.ServiceInterface, conf *core.Config) ServiceInterface {
	return &service{
		repo:     repo,
		acctSvc:  acctSvc,
		notifSvc: notifSvc,
		conf:     conf,
	}
}

// Send creates a Message between two existing accounts and fans out a
// confirmation to the sender plus an alert + email to the recipient.
func (svc *service) Send(ctx context.Context, senderID, recipientID, category, body string) (Message, error) {
	sender, err := svc.acctSvc.GetByID(ctx, senderID)
	if err != nil {
		return Message{}, err
	}
	recipient, err := svc.acctSvc.GetByID(ctx, recipientID)
	if err != nil {
		if pkgerrors.Cause(err) == account.ErrNotFound {
			return Message{}, ErrRecipientNotFound
		}
		return Message{}, pkgerrors.Wrap(err, "finding recipient")
	}

	msg, err := svc.repo.CreateMessage(ctx, Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Category:    category,
		Body:        body,
		Timestamp:   time.Now().UTC(),
		Replies:     []Reply{},
	})
	if err != nil {
		return Message{}, pkgerrors.Wrap(err, "creating message")
	}

	// side effects are best-effort; the message is already persisted
	_ = svc.notifSvc.Notify(ctx, sender.ID, "Message Sent", fmt.Sprintf("Your message to %s was sent.", recipient.DisplayName()))
	_ = svc.notifSvc.NotifyAndMail(ctx, recipient.ID,
		mail.Address{Name: recipient.DisplayName(), Address: recipient.Email},
		"New Message from "+sender.DisplayName(),
		fmt.Sprintf("%s sent you a message: %s", sender.DisplayName(), body),
		fmt.Sprintf("<p>Hello %s,</p><p><strong>%s</strong> sent you a message:</p><blockquote>%s</blockquote><p><a href=%q>Reply on %s</a></p>",
			recipient.DisplayName(), sender.DisplayName(), body, svc.conf.FrontendBaseURL+"/messages", svc.conf.AppName),
	)
	return msg, nil
}

// Reply appends to the target Message and alerts the original sender only.
// Other repliers in the thread are not notified.
func (svc *service) Reply(ctx context.Context, messageID, replierID, body string) (Reply, error) {
	msg, err := svc.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return Reply{}, err
	}
	replier, err := svc.acctSvc.GetByID(ctx, replierID)
	if err != nil {
		return Reply{}, err
	}

	reply, err := svc.repo.AppendReply(ctx, Reply{
		MessageID: msg.ID,
		SenderID:  replierID,
		Body:      body,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return Reply{}, pkgerrors.Wrap(err, "appending reply")
	}

	sender, err := svc.acctSvc.GetByID(ctx, msg.SenderID)
	if err != nil {
		// original sender gone (expired guest); the reply still stands
		return reply, nil
	}
	_ = svc.notifSvc.NotifyAndMail(ctx, sender.ID,
		mail.Address{Name: sender.DisplayName(), Address: sender.Email},
		"New Reply from "+replier.DisplayName(),
		fmt.Sprintf("%s replied to your message: %s", replier.DisplayName(), body),
		fmt.Sprintf("<p>Hello %s,</p><p><strong>%s</strong> replied to your message:</p><blockquote>%s</blockquote><p><a href=%q>View the conversation on %s</a></p>",
			sender.DisplayName(), replier.DisplayName(), body, svc.conf.FrontendBaseURL+"/messages", svc.conf.AppName),
	)
	return reply, nil
}

// ListMessages returns every Message the account sent or received,
// all categories included.
func (svc *service) ListMessages(ctx context.Context, accountID string) ([]Message, error) {
	return svc.repo.QueryMessagesByAccount(ctx, accountID)
}
