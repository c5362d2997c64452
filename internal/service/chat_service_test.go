package service

import (
	"testing"
	"time"

	"comparte/internal/domain"
	"comparte/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestChatID(t *testing.T) {
	assert.Equal(t, "7_2_3", ChatID(7, 2, 3))
	// Same triple, same id; swapped parties, different id.
	assert.Equal(t, ChatID(7, 2, 3), ChatID(7, 2, 3))
	assert.NotEqual(t, ChatID(7, 2, 3), ChatID(7, 3, 2))
	assert.NotEqual(t, ChatID(7, 2, 3), ChatID(8, 2, 3))
}

func TestAcceptRequestProvisionsConversation(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "Hola, ¿sigue disponible?")

	conv, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "Sí, claro. ¿Cuándo puedes pasar?")
	require.NoError(t, err)
	assert.Equal(t, ChatID(donation.ID, requester.ID, donor.ID), conv.ChatID)
	assert.Equal(t, "Dora", conv.DonorName)
	assert.Equal(t, "Rita", conv.RequesterName)

	// Two seed messages: requester's original text first, donor's reply second.
	msgs, err := f.chatSvc.ListMessages(conv.ChatID, donor.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, requester.ID, msgs[0].SenderID)
	assert.Equal(t, "Hola, ¿sigue disponible?", msgs[0].Content)
	assert.Equal(t, donor.ID, msgs[1].SenderID)
	assert.Equal(t, "Sí, claro. ¿Cuándo puedes pasar?", msgs[1].Content)

	// Only the requester starts unread; the donor was looking at the thread.
	unread, err := f.chatRepo.IsUnreadFor(conv.ID, requester.ID)
	require.NoError(t, err)
	assert.True(t, unread)
	unread, err = f.chatRepo.IsUnreadFor(conv.ID, donor.ID)
	require.NoError(t, err)
	assert.False(t, unread)

	// The request notification ends up read.
	refreshed, err := f.notifRepo.GetByID(notif.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.IsRead)
}

func TestAcceptRequestSeedFallsBackToContent(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	donation := f.createDonation(t, donor.ID, nil)

	reqID, donID := requester.ID, donation.ID
	notif, err := f.notifSvc.Create(donor.ID, NotificationInput{
		Type:        domain.NotificationTypeRequest,
		Content:     "Rita wants to contact you about your donation",
		RequesterID: &reqID,
		DonationID:  &donID,
	})
	require.NoError(t, err)

	conv, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "ok")
	require.NoError(t, err)
	msgs, err := f.chatSvc.ListMessages(conv.ChatID, donor.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Rita wants to contact you about your donation", msgs[0].Content)
}

func TestAcceptRequestIsIdempotent(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "first message")

	conv1, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "reply one")
	require.NoError(t, err)
	conv2, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "reply two")
	require.NoError(t, err)
	assert.Equal(t, conv1.ChatID, conv2.ChatID)
	assert.Equal(t, conv1.ID, conv2.ID)

	// No duplicate seeds from the second accept.
	msgs, err := f.chatSvc.ListMessages(conv1.ChatID, donor.ID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestCreateWithSeedConflictSurfacesDuplicatedKey(t *testing.T) {
	// Two writers racing on the same chat_id: the second insert must come back
	// as gorm.ErrDuplicatedKey so the accept path can re-fetch the winner.
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	chatID := ChatID(donation.ID, requester.ID, donor.ID)

	mk := func() *models.Conversation {
		return &models.Conversation{
			ChatID:        chatID,
			DonationID:    donation.ID,
			RequesterID:   requester.ID,
			DonorID:       donor.ID,
			RequesterName: "Rita",
			DonorName:     "Dora",
			LastActivity:  time.Now(),
		}
	}
	require.NoError(t, f.chatRepo.CreateWithSeed(mk(), []models.Message{
		{SenderID: requester.ID, Content: "hi"},
		{SenderID: donor.ID, Content: "hello"},
	}, requester.ID))

	err := f.chatRepo.CreateWithSeed(mk(), []models.Message{
		{SenderID: requester.ID, Content: "hi"},
		{SenderID: donor.ID, Content: "hello again"},
	}, requester.ID)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// The losing transaction rolled back completely.
	var convCount, msgCount int64
	f.db.Model(&models.Conversation{}).Count(&convCount)
	f.db.Model(&models.Message{}).Count(&msgCount)
	assert.EqualValues(t, 1, convCount)
	assert.EqualValues(t, 2, msgCount)
}

func TestAcceptRequestValidation(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	stranger := f.createUser(t, "Sam", "sam@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "hi")

	// Blank response text.
	_, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Someone else's notification reads as not found.
	_, err = f.chatSvc.AcceptRequest(stranger.ID, notif.ID, "mine now")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Non-request notifications cannot be accepted.
	info, err := f.notifSvc.Create(donor.ID, NotificationInput{Content: "welcome"})
	require.NoError(t, err)
	_, err = f.chatSvc.AcceptRequest(donor.ID, info.ID, "ok")
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Unknown notification id.
	_, err = f.chatSvc.AcceptRequest(donor.ID, 9999, "ok")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRejectRequestMarksReadOnly(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "hi")

	require.NoError(t, f.chatSvc.RejectRequest(donor.ID, notif.ID))

	refreshed, err := f.notifRepo.GetByID(notif.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.IsRead)

	// No conversation came out of the rejection.
	var count int64
	f.db.Model(&models.Conversation{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestSendMessageFlipsUnreadFlags(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "hi")
	conv, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "hello")
	require.NoError(t, err)

	// Requester replies: donor becomes unread, requester's own flag clears.
	_, err = f.chatSvc.SendMessage(conv.ChatID, requester.ID, "thanks!")
	require.NoError(t, err)
	unread, err := f.chatRepo.IsUnreadFor(conv.ID, donor.ID)
	require.NoError(t, err)
	assert.True(t, unread)
	unread, err = f.chatRepo.IsUnreadFor(conv.ID, requester.ID)
	require.NoError(t, err)
	assert.False(t, unread)

	// Donor answers back: flags swap again.
	_, err = f.chatSvc.SendMessage(conv.ChatID, donor.ID, "any time")
	require.NoError(t, err)
	unread, err = f.chatRepo.IsUnreadFor(conv.ID, requester.ID)
	require.NoError(t, err)
	assert.True(t, unread)
	unread, err = f.chatRepo.IsUnreadFor(conv.ID, donor.ID)
	require.NoError(t, err)
	assert.False(t, unread)
}

func TestSendMessageValidation(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	stranger := f.createUser(t, "Sam", "sam@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "hi")
	conv, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "hello")
	require.NoError(t, err)

	_, err = f.chatSvc.SendMessage(conv.ChatID, requester.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.chatSvc.SendMessage(conv.ChatID, stranger.ID, "let me in")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.chatSvc.SendMessage("1_2_3", requester.ID, "ghost thread")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMessageOrdering(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "m0")
	conv, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "m1")
	require.NoError(t, err)

	for i, text := range []string{"m2", "m3", "m4"} {
		sender := requester.ID
		if i%2 == 1 {
			sender = donor.ID
		}
		_, err := f.chatSvc.SendMessage(conv.ChatID, sender, text)
		require.NoError(t, err)
	}

	msgs, err := f.chatSvc.ListMessages(conv.ChatID, requester.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
		assert.Greater(t, msgs[i].ID, msgs[i-1].ID)
	}
	assert.Equal(t, "m0", msgs[0].Content)
	assert.Equal(t, "m4", msgs[4].Content)
}

func TestMarkSeenClearsUnread(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "hi")
	conv, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "hello")
	require.NoError(t, err)

	require.NoError(t, f.chatSvc.MarkSeen(conv.ChatID, requester.ID))
	unread, err := f.chatRepo.IsUnreadFor(conv.ID, requester.ID)
	require.NoError(t, err)
	assert.False(t, unread)

	// Idempotent.
	require.NoError(t, f.chatSvc.MarkSeen(conv.ChatID, requester.ID))

	// Non-participants cannot mark.
	stranger := f.createUser(t, "Sam", "sam@example.com")
	err = f.chatSvc.MarkSeen(conv.ChatID, stranger.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestHasUnread(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "hi")
	conv, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "hello")
	require.NoError(t, err)

	has, err := f.chatSvc.HasUnread(requester.ID)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = f.chatSvc.HasUnread(donor.ID)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, f.chatSvc.MarkSeen(conv.ChatID, requester.ID))
	has, err = f.chatSvc.HasUnread(requester.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestListConversationsEnrichment(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	donor.PhotoURL = "https://cdn.example.com/dora.jpg"
	require.NoError(t, f.userRepo.Update(donor))
	requester := f.createUser(t, "Rita", "rita@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "hi")
	conv, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "hello")
	require.NoError(t, err)

	list, err := f.chatSvc.ListConversationsForUser(requester.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, conv.ChatID, list[0].ChatID)
	assert.Equal(t, "Fresh tomatoes", list[0].DonationName)
	assert.Equal(t, "Dora", list[0].DonorName)
	assert.Equal(t, "https://cdn.example.com/dora.jpg", list[0].DonorPhoto)
	assert.True(t, list[0].HasUnread)

	// The donor sees the same thread without the unread marker.
	list, err = f.chatSvc.ListConversationsForUser(donor.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].HasUnread)
}

func TestListConversationsSortedByActivity(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	d1 := f.createDonation(t, donor.ID, nil)
	d2 := f.createDonation(t, donor.ID, nil)

	n1 := f.submitRequest(t, requester, donor, d1.ID, "first")
	c1, err := f.chatSvc.AcceptRequest(donor.ID, n1.ID, "ok")
	require.NoError(t, err)
	n2 := f.submitRequest(t, requester, donor, d2.ID, "second")
	c2, err := f.chatSvc.AcceptRequest(donor.ID, n2.ID, "ok")
	require.NoError(t, err)

	// Fresh activity in the first thread moves it to the top.
	require.NoError(t, f.db.Model(&models.Conversation{}).Where("id = ?", c1.ID).
		Update("last_activity", time.Now().Add(time.Hour)).Error)

	list, err := f.chatSvc.ListConversationsForUser(requester.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, c1.ChatID, list[0].ChatID)
	assert.Equal(t, c2.ChatID, list[1].ChatID)
}

func TestExpiredDonationChatIsGarbageCollected(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	future := time.Now().Add(24 * time.Hour)
	donation := f.createDonation(t, donor.ID, &future)
	notif := f.submitRequest(t, requester, donor, donation.ID, "hi")
	conv, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "hello")
	require.NoError(t, err)

	// Donation expires.
	past := time.Now().Add(-time.Hour)
	donation.ExpirationDate = &past
	require.NoError(t, f.donationRepo.Update(donation, false))

	list, err := f.chatSvc.ListConversationsForUser(requester.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	// The thread and its rows are gone, not just hidden.
	_, err = f.chatRepo.GetByChatID(conv.ChatID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	var msgCount, unreadCount int64
	f.db.Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&msgCount)
	f.db.Model(&models.ConversationUnread{}).Where("conversation_id = ?", conv.ID).Count(&unreadCount)
	assert.EqualValues(t, 0, msgCount)
	assert.EqualValues(t, 0, unreadCount)
}

func TestListMessagesNonParticipant(t *testing.T) {
	f := newFixture(t)
	donor := f.createUser(t, "Dora", "dora@example.com")
	requester := f.createUser(t, "Rita", "rita@example.com")
	stranger := f.createUser(t, "Sam", "sam@example.com")
	donation := f.createDonation(t, donor.ID, nil)
	notif := f.submitRequest(t, requester, donor, donation.ID, "hi")
	conv, err := f.chatSvc.AcceptRequest(donor.ID, notif.ID, "hello")
	require.NoError(t, err)

	_, err = f.chatSvc.ListMessages(conv.ChatID, stranger.ID, 50, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
