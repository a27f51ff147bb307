package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	tele "gopkg.in/telebot.v3"

	"multibot/internal/botkit"
	"multibot/internal/domain"
	"multibot/internal/retrieval"
	"multibot/internal/service"
	"multibot/internal/telegram"
	"multibot/internal/testutil"
)

type fakeNotifier struct {
	mu    sync.Mutex
	sends []int64
}

func (f *fakeNotifier) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if chat, ok := to.(*tele.Chat); ok {
		f.sends = append(f.sends, chat.ID)
	}
	return &tele.Message{}, nil
}

func (f *fakeNotifier) sentTo() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.sends...)
}

func newSweepEnv(t *testing.T) (*testutil.MockUserRepository, *testutil.MockProjectRepository, *fakeNotifier, *Scheduler) {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	t.Cleanup(backend.Close)

	logger := testutil.NewTestLogger()
	users := new(testutil.MockUserRepository)
	projects := new(testutil.MockProjectRepository)

	webhooks := telegram.NewWebhookManager("https://bots.example.com")
	webhooks.SetAPIBase(backend.URL)

	registry := botkit.NewRegistry(func(token string) (*botkit.Runtime, error) {
		return &botkit.Runtime{States: botkit.NewStateStore()}, nil
	})

	projectSvc := service.NewProjectService(
		projects, registry, webhooks,
		retrieval.NewVectorizer("", logger),
		retrieval.NewQdrant(backend.URL, "", logger),
		nil,
		logger,
	)

	bot := &fakeNotifier{}
	s := New(users, projectSvc, bot, time.Hour, 7, logger)
	return users, projects, bot, s
}

func TestScheduler_ExpiredTrialSuspendsWithoutDeleting(t *testing.T) {
	users, projects, bot, s := newSweepEnv(t)

	expired := *testutil.NewTestUser(1, 10)
	project := testutil.NewTestProject("p-1", 1)

	users.On("GetUsersWithExpiredTrial", 7).Return([]domain.User{expired}, nil)
	users.On("GetUsersWithExpiredPaidMonth").Return([]domain.User{}, nil)
	users.On("SetTrialNotified", int64(1), true).Return(nil)
	projects.On("GetProjectsByUser", int64(1)).Return([]domain.Project{*project}, nil)

	s.Sweep(context.Background())

	assert.Equal(t, []int64{1}, bot.sentTo())
	users.AssertExpectations(t)
	// webhooks go away, the tenant's data does not
	projects.AssertNotCalled(t, "DeleteProject", mock.Anything)
}

func TestScheduler_UserWithoutProjectsMarkedButNotNotified(t *testing.T) {
	users, projects, bot, s := newSweepEnv(t)

	expired := *testutil.NewTestUser(1, 10)

	users.On("GetUsersWithExpiredTrial", 7).Return([]domain.User{expired}, nil)
	users.On("GetUsersWithExpiredPaidMonth").Return([]domain.User{}, nil)
	users.On("SetTrialNotified", int64(1), true).Return(nil)
	projects.On("GetProjectsByUser", int64(1)).Return([]domain.Project{}, nil)

	s.Sweep(context.Background())

	assert.Empty(t, bot.sentTo())
	users.AssertExpectations(t)
}

func TestScheduler_OneFailureDoesNotStopTheBatch(t *testing.T) {
	users, projects, bot, s := newSweepEnv(t)

	first := *testutil.NewTestUser(1, 10)
	second := *testutil.NewTestUser(2, 10)
	project := testutil.NewTestProject("p-2", 2)

	users.On("GetUsersWithExpiredTrial", 7).Return([]domain.User{first, second}, nil)
	users.On("GetUsersWithExpiredPaidMonth").Return([]domain.User{}, nil)
	users.On("SetTrialNotified", int64(2), true).Return(nil)
	projects.On("GetProjectsByUser", int64(1)).Return(nil, errors.New("db down"))
	projects.On("GetProjectsByUser", int64(2)).Return([]domain.Project{*project}, nil)

	s.Sweep(context.Background())

	assert.Equal(t, []int64{2}, bot.sentTo(), "second user is processed despite the first failing")
}

func TestScheduler_ExpiredPaidDowngraded(t *testing.T) {
	users, _, bot, s := newSweepEnv(t)

	paid := *testutil.NewTestUser(5, 60)
	paid.Paid = true

	users.On("GetUsersWithExpiredTrial", 7).Return([]domain.User{}, nil)
	users.On("GetUsersWithExpiredPaidMonth").Return([]domain.User{paid}, nil)
	users.On("SetPaid", int64(5), false).Return(nil)

	s.Sweep(context.Background())

	assert.Equal(t, []int64{5}, bot.sentTo())
	users.AssertExpectations(t)
}

func TestScheduler_SkipsOverlappingSweep(t *testing.T) {
	users, _, _, s := newSweepEnv(t)

	users.On("GetUsersWithExpiredTrial", mock.Anything).Return([]domain.User{}, nil)
	users.On("GetUsersWithExpiredPaidMonth").Return([]domain.User{}, nil)

	s.running.Lock()
	s.Sweep(context.Background())
	s.running.Unlock()

	users.AssertNotCalled(t, "GetUsersWithExpiredTrial", mock.Anything)
}