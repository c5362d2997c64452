package service

import (
	"strings"
	"testing"
	"time"

	"comparte/internal/models"
	"comparte/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database per test and migrates the
// schema. TranslateError is on, same as production, so unique-index conflicts
// surface as gorm.ErrDuplicatedKey.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Donation{},
		&models.DonationImage{},
		&models.Notification{},
		&models.Conversation{},
		&models.ConversationUnread{},
		&models.Message{},
	))
	return db
}

type fixture struct {
	db           *gorm.DB
	userRepo     *repository.UserRepository
	donationRepo *repository.DonationRepository
	notifRepo    *repository.NotificationRepository
	chatRepo     *repository.ChatRepository
	notifSvc     *NotificationService
	requestSvc   *RequestService
	chatSvc      *ChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:           db,
		userRepo:     repository.NewUserRepository(db),
		donationRepo: repository.NewDonationRepository(db),
		notifRepo:    repository.NewNotificationRepository(db),
		chatRepo:     repository.NewChatRepository(db),
	}
	f.notifSvc = NewNotificationService(f.notifRepo, nil)
	f.requestSvc = NewRequestService(f.donationRepo, f.userRepo, f.notifSvc)
	f.chatSvc = NewChatService(f.chatRepo, f.donationRepo, f.userRepo, f.notifSvc, nil, nil)
	return f
}

func (f *fixture) createUser(t *testing.T, name, email string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, PasswordHash: "x"}
	require.NoError(t, f.userRepo.Create(u))
	return u
}

func (f *fixture) createDonation(t *testing.T, ownerID uint, expiration *time.Time) *models.Donation {
	t.Helper()
	d := &models.Donation{
		OwnerID:        ownerID,
		Type:           "vegetables",
		Description:    "Fresh tomatoes",
		Quantity:       5,
		Unit:           "kg",
		Status:         "AVAILABLE",
		ExpirationDate: expiration,
	}
	require.NoError(t, f.donationRepo.Create(d))
	return d
}

// submitRequest files a contact request and returns the donor's notification.
func (f *fixture) submitRequest(t *testing.T, requester, donor *models.User, donationID uint, message string) *models.Notification {
	t.Helper()
	require.NoError(t, f.requestSvc.Submit(requester.ID, donor.ID, donationID, message))
	list, err := f.notifSvc.ListForUser(donor.ID, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	return &list[0]
}
