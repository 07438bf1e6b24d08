package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:             "test-secret",
		AccessTokenTTL:        time.Hour,
		RefreshTokenTTL:       24 * time.Hour,
		AppURL:                "http://localhost:8080",
		AppName:               "GC Forum",
		DefaultPageSize:       12,
		MaxPageSize:           48,
		CacheTTL:              time.Minute,
		PasswordUpdateTimeout: 12 * time.Second,
		MutationTimeout:       5 * time.Second,
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// privilegedBackend has only a service handle, which also serves reads.
func privilegedBackend(t *testing.T) (*database.Backend, *gorm.DB) {
	db := openTestDB(t)
	return database.New(nil, db), db
}

type sentMail struct {
	Kind string
	To   string
	Arg  string
}

// recordingMailer implements Mailer and keeps every message.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) record(kind, to, arg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{kind, to, arg})
	return m.err
}

func (m *recordingMailer) SendInvite(to, name, token string) error {
	return m.record("invite", to, token)
}

func (m *recordingMailer) SendMagicLink(to, token string) error {
	return m.record("magic", to, token)
}

func (m *recordingMailer) SendPasswordReset(to, name, link string) error {
	return m.record("reset", to, link)
}

func (m *recordingMailer) SendApplicationReceived(to, name string) error {
	return m.record("received", to, name)
}

func (m *recordingMailer) SendApplicationRejected(to, name string) error {
	return m.record("rejected", to, name)
}

func (m *recordingMailer) last(kind string) (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].Kind == kind {
			return m.sent[i], true
		}
	}
	return sentMail{}, false
}

func date(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func seedAuthor(t *testing.T, db *gorm.DB, name string, order int) models.Partner {
	t.Helper()
	p := models.Partner{Name: name, OrderIndex: order, IsAuthor: true, ShowOnTeam: true}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func seedCategory(t *testing.T, db *gorm.DB, slug, name string) models.Category {
	t.Helper()
	c := models.Category{Slug: slug, Name: name}
	require.NoError(t, db.Create(&c).Error)
	return c
}
