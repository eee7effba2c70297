package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wardrobe/internal/events"
	"wardrobe/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockTelegramSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *mockTelegramSender) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}

func (m *mockTelegramSender) GetSelf() tgbotapi.User {
	args := m.Called()
	return args.Get(0).(tgbotapi.User)
}

func (m *mockTelegramSender) StopReceivingUpdates() {
	m.Called()
}

func TestTelegramService(t *testing.T) {
	mockSender := new(mockTelegramSender)
	svc := NewTelegramService(mockSender, []int64{10, 20}, nil)

	t.Run("SendMarkdown", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ParseMode == tgbotapi.ModeMarkdown && msg.ChatID == 123
		})).Return(tgbotapi.Message{}, nil).Once()

		_, err := svc.SendMarkdown(123, "*bold*")
		assert.NoError(t, err)
		mockSender.AssertExpectations(t)
	})

	t.Run("NotifyDeskTriesEveryChat", func(t *testing.T) {
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ChatID == 10
		})).Return(tgbotapi.Message{}, errors.New("blocked")).Once()
		mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
			msg, ok := c.(tgbotapi.MessageConfig)
			return ok && msg.ChatID == 20
		})).Return(tgbotapi.Message{}, nil).Once()

		err := svc.NotifyDesk(context.Background(), "hello desk")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "chat 10")
		mockSender.AssertExpectations(t)
	})
}

func TestTelegramServiceDisputeEvents(t *testing.T) {
	mockSender := new(mockTelegramSender)
	svc := NewTelegramService(mockSender, []int64{10}, nil)
	bus := events.NewEventBus()
	svc.Subscribe(bus)

	mockSender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && strings.Contains(msg.Text, "Return #5") && strings.Contains(msg.Text, "/resolve 5")
	})).Return(tgbotapi.Message{}, nil).Once()

	ret := &models.Return{ID: 5, BookingID: 4, OwnerID: 1, Status: models.ReturnStatusDisputed}
	require.NoError(t, bus.PublishJSON(events.EventReturnDisputed, events.NewReturnPayload(ret, "owner", 1)))
	require.NoError(t, bus.PublishJSON(events.EventReturnApproved, events.NewReturnPayload(ret, "owner", 1)))

	mockSender.AssertExpectations(t)
}
