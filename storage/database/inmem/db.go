// Package inmemdb provides mutex-guarded in-memory repositories, used in
// tests and local hacking where a real database is overkill.
package inmemdb

import (
	"sync"

	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/formation"
	"github.com/trezcool/shule/core/messaging"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/taxonomy"
)

type (
	DB struct {
		account      *accountTable
		grade        *gradeTable
		department   *departmentTable
		message      *messageTable
		notification *notificationTable
		news         *newsTable
		formation    *formationTable
	}

	accountTable struct {
		sync.RWMutex
		table map[string]*account.Account
	}
	gradeTable struct {
		sync.RWMutex
		table map[string]*taxonomy.Grade
	}
	departmentTable struct {
		sync.RWMutex
		table map[string]*taxonomy.Department
	}
	messageTable struct {
		sync.RWMutex
		table   map[string]*messaging.Message
		replies map[string][]messaging.Reply // keyed by message ID, arrival order
	}
	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
	}
	newsTable struct {
		sync.RWMutex
		table map[string]*notification.News
	}
	formationTable struct {
		sync.RWMutex
		table map[string]*formation.Formation
	}
)

func Open() (*DB, error) {
	db := &DB{
		account:      &accountTable{table: make(map[string]*account.Account)},
		grade:        &gradeTable{table: make(map[string]*taxonomy.Grade)},
		department:   &departmentTable{table: make(map[string]*taxonomy.Department)},
		message:      &messageTable{table: make(map[string]*messaging.Message), replies: make(map[string][]messaging.Reply)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
		news:         &newsTable{table: make(map[string]*notification.News)},
		formation:    &formationTable{table: make(map[string]*formation.Formation)},
	}
	return db, nil
}
