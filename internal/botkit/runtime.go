package botkit

import (
	"sync"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Runtime is one live bot: the Telegram client, its routing table and the
// conversation state of its users
type Runtime struct {
	Bot    *tele.Bot
	Router *Router
	States *StateStore

	logger *zap.Logger
	locks  keyedLocks
}

// NewRuntime assembles a runtime around an already constructed bot. The
// state store must be the same instance the bot's handlers read and write:
// dispatch consults it for the FSM routes.
func NewRuntime(bot *tele.Bot, router *Router, states *StateStore, logger *zap.Logger) *Runtime {
	return &Runtime{
		Bot:    bot,
		Router: router,
		States: states,
		logger: logger,
	}
}

// HandleUpdate routes one incoming update. Updates of the same user are
// processed strictly in order; updates of different users run concurrently.
func (rt *Runtime) HandleUpdate(u tele.Update) error {
	userID := updateSender(u)
	if userID != 0 {
		unlock := rt.locks.lock(userID)
		defer unlock()
	}

	c := rt.Bot.NewContext(u)
	if err := rt.Router.Dispatch(c, rt.States); err != nil {
		rt.logger.Error("update handling failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return err
	}
	return nil
}

func updateSender(u tele.Update) int64 {
	switch {
	case u.Message != nil && u.Message.Sender != nil:
		return u.Message.Sender.ID
	case u.Callback != nil && u.Callback.Sender != nil:
		return u.Callback.Sender.ID
	case u.EditedMessage != nil && u.EditedMessage.Sender != nil:
		return u.EditedMessage.Sender.ID
	}
	return 0
}

// keyedLocks serializes work per conversation key
type keyedLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func (k *keyedLocks) lock(key int64) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[int64]*sync.Mutex)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
