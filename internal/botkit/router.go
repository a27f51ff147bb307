package botkit

import (
	"sort"
	"strings"

	tele "gopkg.in/telebot.v3"

	"multibot/internal/domain"
)

// HandlerFunc handles a single routed update
type HandlerFunc func(c tele.Context) error

type prefixRoute struct {
	prefix  string
	handler HandlerFunc
}

// Router resolves an incoming update to exactly one handler.
//
// Resolution order:
//  1. a registered command always wins and clears the conversation state,
//     so a user typing /menu mid-flow abandons the flow instead of feeding
//     the command into it;
//  2. callbacks match by exact data first, then by the longest registered
//     prefix;
//  3. a non-idle conversation routes to the handler of its current state;
//  4. otherwise the fallback handler runs.
//
// An update that matches nothing is dropped without error.
type Router struct {
	commands       map[string]HandlerFunc
	states         map[domain.ConvState]HandlerFunc
	callbackExact  map[string]HandlerFunc
	callbackPrefix []prefixRoute
	fallback       HandlerFunc
}

// NewRouter creates an empty routing table
func NewRouter() *Router {
	return &Router{
		commands:      make(map[string]HandlerFunc),
		states:        make(map[domain.ConvState]HandlerFunc),
		callbackExact: make(map[string]HandlerFunc),
	}
}

// Command registers a handler for a slash command, e.g. "/start"
func (r *Router) Command(name string, h HandlerFunc) {
	r.commands[name] = h
}

// State registers the handler that receives updates while the
// conversation sits in the given flow step
func (r *Router) State(state domain.ConvState, h HandlerFunc) {
	r.states[state] = h
}

// Callback registers a handler for an exact callback data value
func (r *Router) Callback(data string, h HandlerFunc) {
	r.callbackExact[data] = h
}

// CallbackPrefix registers a handler for callback data starting with the
// given prefix. Longer prefixes take precedence over shorter ones.
func (r *Router) CallbackPrefix(prefix string, h HandlerFunc) {
	r.callbackPrefix = append(r.callbackPrefix, prefixRoute{prefix: prefix, handler: h})
	sort.SliceStable(r.callbackPrefix, func(i, j int) bool {
		return len(r.callbackPrefix[i].prefix) > len(r.callbackPrefix[j].prefix)
	})
}

// Fallback registers the handler for plain messages arriving while the
// conversation is idle
func (r *Router) Fallback(h HandlerFunc) {
	r.fallback = h
}

// Dispatch routes one update. Unmatched updates return nil.
func (r *Router) Dispatch(c tele.Context, store *StateStore) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	userID := sender.ID

	if cb := c.Callback(); cb != nil {
		data := CallbackData(cb)
		if h, ok := r.callbackExact[data]; ok {
			return h(c)
		}
		for _, route := range r.callbackPrefix {
			if strings.HasPrefix(data, route.prefix) {
				return route.handler(c)
			}
		}
		return nil
	}

	msg := c.Message()
	if msg == nil {
		return nil
	}

	if cmd, ok := commandName(msg.Text); ok {
		if h, ok := r.commands[cmd]; ok {
			store.Clear(userID)
			return h(c)
		}
	}

	if state := store.State(userID); state != domain.StateIdle {
		if h, ok := r.states[state]; ok {
			return h(c)
		}
		return nil
	}

	if r.fallback != nil {
		return r.fallback(c)
	}
	return nil
}

// CallbackData strips the legacy "\f" unique prefix and surrounding
// whitespace from raw callback data
func CallbackData(cb *tele.Callback) string {
	data := strings.TrimSpace(cb.Data)
	return strings.TrimPrefix(data, "\f")
}

func commandName(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	cmd := text
	if i := strings.IndexAny(cmd, " \n"); i >= 0 {
		cmd = cmd[:i]
	}
	// commands in groups arrive as /cmd@botname
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd, true
}
