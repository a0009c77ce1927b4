package dispatch

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/smith3v/tg-study-assistant/pkg/bot/compose"
	"github.com/smith3v/tg-study-assistant/pkg/bot/session"
	"github.com/smith3v/tg-study-assistant/pkg/llm"
	"github.com/smith3v/tg-study-assistant/pkg/logger"
	"github.com/smith3v/tg-study-assistant/pkg/store"
)

type Options struct {
	DefaultDrillCount int
}

// Dispatcher turns inbound commands and free text into store and session
// transitions and returns the reply text. It knows nothing about the chat
// transport. Messages of one user are handled one at a time.
type Dispatcher struct {
	store      *store.Store
	sessions   *session.Manager
	completer  llm.Completer
	drillCount int
	commands   map[string]commandFunc
	routes     []route
	locks      userLocks
}

// call carries one inbound message through the handlers.
type call struct {
	ctx    context.Context
	userID int64
	chatID int64
	key    string
	args   []string
	text   string
}

// route handles free text when it applies and reports whether it did.
type route func(c *call) (string, bool)

func New(st *store.Store, sessions *session.Manager, completer llm.Completer, opts Options) *Dispatcher {
	if opts.DefaultDrillCount <= 0 {
		opts.DefaultDrillCount = session.DefaultDrillCount
	}
	d := &Dispatcher{
		store:      st,
		sessions:   sessions,
		completer:  completer,
		drillCount: opts.DefaultDrillCount,
		locks:      userLocks{locks: make(map[int64]*userLock)},
	}
	d.commands = d.commandTable()
	d.routes = []route{d.routeConfirmation, d.routeDrill, d.routeConversation}
	return d
}

// HandleCommand runs the named command sent by userID in chatID. name is
// matched without the leading slash and case-insensitively.
func (d *Dispatcher) HandleCommand(ctx context.Context, userID, chatID int64, name string, args []string) string {
	unlock := d.locks.lock(userID)
	defer unlock()

	name = strings.ToLower(strings.TrimPrefix(name, "/"))
	fn, ok := d.commands[name]
	if !ok {
		logger.Debug("unknown command", "user_id", userID, "command", name)
		return compose.UnknownCommand
	}
	logger.Debug("handling command", "user_id", userID, "command", name, "args", len(args))
	return fn(d, newCall(ctx, userID, chatID, args, ""))
}

// HandleText routes free text through pending confirmation, then the
// active drill, then conversation.
func (d *Dispatcher) HandleText(ctx context.Context, userID, chatID int64, text string) string {
	unlock := d.locks.lock(userID)
	defer unlock()

	c := newCall(ctx, userID, chatID, nil, text)
	for _, r := range d.routes {
		if reply, ok := r(c); ok {
			return reply
		}
	}
	return ""
}

func newCall(ctx context.Context, userID, chatID int64, args []string, text string) *call {
	return &call{
		ctx:    ctx,
		userID: userID,
		chatID: chatID,
		key:    strconv.FormatInt(userID, 10),
		args:   args,
		text:   text,
	}
}

// notSaved logs a failed mutation and returns the user-facing notice.
func notSaved(op string, c *call, err error) string {
	logger.Error("failed to "+op, "user_id", c.userID, "error", err)
	return compose.NotSaved
}

// readErr tolerates getters whose lazy initialization could not be written.
// The returned data is still valid in that case.
func readErr(op string, c *call, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotPersisted) {
		logger.Warn("failed to persist lazy initialization", "op", op, "user_id", c.userID, "error", err)
		return nil
	}
	logger.Error("failed to "+op, "user_id", c.userID, "error", err)
	return err
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// userLocks hands out one mutex per user and drops it once nobody holds or
// waits for it.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()
	return func() {
		ul.mu.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
