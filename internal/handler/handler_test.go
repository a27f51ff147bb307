package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"multibot/internal/analytics"
	"multibot/internal/botkit"
	"multibot/internal/config"
	"multibot/internal/domain"
	"multibot/internal/llm"
	"multibot/internal/retrieval"
	"multibot/internal/service"
	"multibot/internal/telegram"
	"multibot/internal/testutil"
)

// telegramStub fakes the Bot API and records every text the bot sends
type telegramStub struct {
	srv *httptest.Server

	mu    sync.Mutex
	texts []string
}

func newTelegramStub(t *testing.T) *telegramStub {
	t.Helper()

	stub := &telegramStub{}
	stub.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.Text != "" {
			stub.mu.Lock()
			stub.texts = append(stub.texts, payload.Text)
			stub.mu.Unlock()
		}

		if strings.Contains(r.URL.Path, "answerCallbackQuery") {
			w.Write([]byte(`{"ok":true,"result":true}`))
			return
		}
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":1}}}`))
	}))
	t.Cleanup(stub.srv.Close)
	return stub
}

func (s *telegramStub) lastText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[len(s.texts)-1]
}

type settingsEnv struct {
	bot      *tele.Bot
	states   *botkit.StateStore
	router   *botkit.Router
	stub     *telegramStub
	users    *testutil.MockUserRepository
	projects *testutil.MockProjectRepository
	forms    *testutil.MockFormRepository
	billing  *testutil.MockBillingRepository
}

func newSettingsEnv(t *testing.T) *settingsEnv {
	t.Helper()

	stub := newTelegramStub(t)

	bot, err := tele.NewBot(tele.Settings{
		Token:   "42:TEST",
		URL:     stub.srv.URL,
		Offline: true,
	})
	require.NoError(t, err)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	t.Cleanup(backend.Close)

	logger := testutil.NewTestLogger()
	users := new(testutil.MockUserRepository)
	projects := new(testutil.MockProjectRepository)
	forms := new(testutil.MockFormRepository)
	billingRepo := new(testutil.MockBillingRepository)

	webhooks := telegram.NewWebhookManager("https://bots.example.com")
	webhooks.SetAPIBase(backend.URL)

	registry := botkit.NewRegistry(func(token string) (*botkit.Runtime, error) {
		return &botkit.Runtime{States: botkit.NewStateStore()}, nil
	})

	projectSvc := service.NewProjectService(
		projects, registry, webhooks,
		retrieval.NewVectorizer("", logger),
		retrieval.NewQdrant(backend.URL, "", logger),
		llm.New("key", backend.URL, "model", logger),
		logger,
	)
	billingSvc := service.NewBillingService(users, billingRepo, config.Billing{
		TrialDays:         7,
		TrialProjectLimit: 1,
		PaidProjectLimit:  5,
		PaymentAmount:     990,
		PaymentCard:       "2200 0000 0000 0000",
	})
	formSvc := service.NewFormService(forms)

	states := botkit.NewStateStore()
	router := botkit.NewRouter()
	h := NewSettingsHandler(bot, states, billingSvc, projectSvc, formSvc,
		analytics.NewTracker("", logger), logger, 999)
	h.Register(router)

	return &settingsEnv{
		bot:      bot,
		states:   states,
		router:   router,
		stub:     stub,
		users:    users,
		projects: projects,
		forms:    forms,
		billing:  billingRepo,
	}
}

func (e *settingsEnv) sendText(t *testing.T, userID int64, text string) {
	t.Helper()

	c := e.bot.NewContext(tele.Update{Message: &tele.Message{
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID},
		Text:   text,
	}})
	require.NoError(t, e.router.Dispatch(c, e.states))
}

func (e *settingsEnv) sendCallback(t *testing.T, userID int64, data string) {
	t.Helper()

	c := e.bot.NewContext(tele.Update{Callback: &tele.Callback{
		Sender: &tele.User{ID: userID},
		Message: &tele.Message{
			Sender: &tele.User{ID: userID},
			Chat:   &tele.Chat{ID: userID},
		},
		Data: "\f" + data,
	}})
	require.NoError(t, e.router.Dispatch(c, e.states))
}

func TestSettingsHandler_ShowData(t *testing.T) {
	env := newSettingsEnv(t)

	project := testutil.NewTestProject("p-1", 7)
	project.BusinessInfo = "Мы продаём кофе. Работаем с 9 до 18."
	env.projects.On("GetProjectByID", "p-1").Return(project, nil)

	env.sendCallback(t, 7, "prj_show|p-1")

	assert.Contains(t, env.stub.lastText(), "Мы продаём кофе")
	env.projects.AssertExpectations(t)
}

func TestSettingsHandler_ShowData_ForeignProjectHidden(t *testing.T) {
	env := newSettingsEnv(t)

	project := testutil.NewTestProject("p-1", 99)
	env.projects.On("GetProjectByID", "p-1").Return(project, nil)

	env.sendCallback(t, 7, "prj_show|p-1")

	assert.Contains(t, env.stub.lastText(), "Проект не найден")
}

func TestSettingsHandler_ProjectNameStep(t *testing.T) {
	env := newSettingsEnv(t)

	env.states.SetState(7, domain.StateWaitingProjectName)
	env.states.Update(7, func(d *domain.ConvData) {
		d.ProjectDraft = &domain.ProjectDraft{}
	})

	env.sendText(t, 7, "Кофейня на Лесной")

	assert.Equal(t, domain.StateWaitingToken, env.states.State(7))
	sess := env.states.Get(7)
	assert.Equal(t, "Кофейня на Лесной", sess.Data.ProjectDraft.Name)
	assert.Contains(t, env.stub.lastText(), "токен")
}

func TestSettingsHandler_TokenStepRejectsGarbage(t *testing.T) {
	env := newSettingsEnv(t)

	env.states.SetState(7, domain.StateWaitingToken)
	env.states.Update(7, func(d *domain.ConvData) {
		d.ProjectDraft = &domain.ProjectDraft{Name: "Кофейня"}
	})

	env.sendText(t, 7, "это не токен")

	assert.Equal(t, domain.StateWaitingToken, env.states.State(7), "invalid token keeps the flow in place")
	assert.Contains(t, env.stub.lastText(), "не похоже на токен")
}

func TestSettingsHandler_DuplicateFieldRejected(t *testing.T) {
	env := newSettingsEnv(t)

	env.states.SetState(7, domain.StateWaitingFieldName)
	env.states.Update(7, func(d *domain.ConvData) {
		d.SelectedProjectID = "p-1"
		d.FormDraft = &domain.FormDraft{
			Fields: []domain.FormFieldDraft{{Name: "Телефон", Type: domain.FieldPhone}},
		}
	})

	env.sendText(t, 7, "телефон")

	sess := env.states.Get(7)
	assert.Len(t, sess.Data.FormDraft.Fields, 1, "duplicate must not be added")
	assert.Equal(t, domain.StateWaitingFieldName, env.states.State(7), "flow stays on the name step")
	assert.Contains(t, env.stub.lastText(), "уже есть")
}

func TestSettingsHandler_CommandInterruptsFieldFlow(t *testing.T) {
	env := newSettingsEnv(t)

	env.states.SetState(7, domain.StateWaitingFieldName)

	env.sendText(t, 7, "/menu")

	assert.Equal(t, domain.StateIdle, env.states.State(7))
	assert.Contains(t, env.stub.lastText(), "Главное меню")
}

func TestAskHandler_FormFill(t *testing.T) {
	env := newSettingsEnv(t)

	logger := testutil.NewTestLogger()
	formSvc := service.NewFormService(env.forms)

	states := botkit.NewStateStore()
	router := botkit.NewRouter()
	ask := NewAskHandler("p-1", states, nil, nil, formSvc, nil,
		analytics.NewTracker("", logger), logger)
	ask.Register(router)

	env.forms.On("SaveSubmission", "f-1", int64(7),
		map[string]string{"Телефон": "+79123456789"}).Return(nil)

	states.SetState(7, domain.StateFillingForm)
	states.Update(7, func(d *domain.ConvData) {
		d.FormFill = &domain.FormFill{
			FormID:    "f-1",
			Fields:    []domain.FormField{{Name: "Телефон", Type: domain.FieldPhone}},
			Collected: map[string]string{},
		}
	})

	send := func(text string) {
		c := env.bot.NewContext(tele.Update{Message: &tele.Message{
			Sender: &tele.User{ID: 7},
			Chat:   &tele.Chat{ID: 7},
			Text:   text,
		}})
		require.NoError(t, router.Dispatch(c, states))
	}

	send("не номер")
	assert.Equal(t, domain.StateFillingForm, states.State(7), "invalid value keeps the fill going")

	send("+79123456789")
	assert.Equal(t, domain.StateIdle, states.State(7))
	assert.Contains(t, env.stub.lastText(), "Заявка принята")
	env.forms.AssertExpectations(t)
}

func TestAskHandler_RatingPersistedAndTracked(t *testing.T) {
	env := newSettingsEnv(t)

	events := make(chan analytics.Event, 1)
	trackerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev analytics.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		events <- ev
	}))
	t.Cleanup(trackerSrv.Close)

	logger := testutil.NewTestLogger()
	billingSvc := service.NewBillingService(env.users, env.billing, config.Billing{})

	states := botkit.NewStateStore()
	router := botkit.NewRouter()
	ask := NewAskHandler("p-1", states, nil, nil, service.NewFormService(env.forms), billingSvc,
		analytics.NewTracker(trackerSrv.URL, logger), logger)
	ask.Register(router)

	env.billing.On("AddResponseRating", "p-1", int64(7), true).Return(nil)

	c := env.bot.NewContext(tele.Update{Callback: &tele.Callback{
		Sender: &tele.User{ID: 7},
		Message: &tele.Message{
			Sender: &tele.User{ID: 7},
			Chat:   &tele.Chat{ID: 7},
		},
		Data: "\frate_up|p-1",
	}})
	require.NoError(t, router.Dispatch(c, states))

	env.billing.AssertExpectations(t)
	select {
	case ev := <-events:
		assert.Equal(t, "response_rated", ev.Event)
		assert.Equal(t, "p-1", ev.ProjectID)
	case <-time.After(2 * time.Second):
		t.Fatal("rating event was not tracked")
	}
}

func TestSettingsHandler_FeedbackFlow(t *testing.T) {
	env := newSettingsEnv(t)

	env.billing.On("AddFeedback", int64(7), 5, "всё отлично").Return(nil)

	env.states.SetState(7, domain.StateWaitingFeedbackText)
	env.states.Update(7, func(d *domain.ConvData) {
		d.FeedbackDraft = &domain.FeedbackDraft{Rating: 5}
	})

	env.sendText(t, 7, "всё отлично")

	assert.Equal(t, domain.StateIdle, env.states.State(7))
	env.billing.AssertExpectations(t)
}
