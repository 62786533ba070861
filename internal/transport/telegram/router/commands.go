package router

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	rtsup "chorebot/internal/runtime/supervisor"
	kit "chorebot/internal/transport"
	logx "chorebot/pkg/logx"
)

type Access int

const (
	AccessEveryone Access = iota
	AccessOwnerOnly
)

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Access      Access
	// Timeout bounds one invocation; 0 means defaultTimeout.
	Timeout time.Duration
	Handle  HandlerFunc
}

type Request struct {
	Update       kit.Update
	Chat         kit.ChatTarget
	MessageID    int
	FromID       int64
	FromUsername string
	FromName     string
	IsGroup      bool

	Command string
	// Text is the positional part of the arguments joined by spaces.
	Text  string
	Args  []string
	Flags map[string]string

	ReqID  string
	Owner  bool
	Logger logx.Logger
}

// Flag returns the value of --name and whether it was given.
func (r *Request) Flag(name string) (string, bool) {
	v, ok := r.Flags[name]
	return strings.TrimSpace(v), ok
}

// Sender is the outbound surface the router needs for its own replies.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}

type (
	ReactionHandler func(ctx context.Context, r *kit.Reaction) error
	MessageHandler  func(ctx context.Context, m *kit.Message) error
	// ErrorHandler reports a failed command to the user.
	ErrorHandler func(ctx context.Context, req *Request, err error)
)

const (
	defaultTimeout = 30 * time.Second
	jobQueueSize   = 256
)

type CommandManager struct {
	log    logx.Logger
	sender Sender

	mu       sync.RWMutex
	commands map[string]*Command // name and aliases
	ordered  []*Command
	owners   []int64
	onReact  ReactionHandler
	onPlain  MessageHandler
	onErr    ErrorHandler

	jobs chan func(ctx context.Context)
}

func NewCommandManager(log logx.Logger, sender Sender, owners []int64) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &CommandManager{
		log:      log,
		sender:   sender,
		commands: map[string]*Command{},
		owners:   slices.Clone(owners),
		jobs:     make(chan func(ctx context.Context), jobQueueSize),
	}
}

// SetOwners replaces the owner list. An empty list makes everyone an owner.
func (m *CommandManager) SetOwners(owners []int64) {
	m.mu.Lock()
	m.owners = slices.Clone(owners)
	m.mu.Unlock()
}

func (m *CommandManager) IsOwner(id int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.owners) == 0 || slices.Contains(m.owners, id)
}

func (m *CommandManager) OnReaction(h ReactionHandler) {
	m.mu.Lock()
	m.onReact = h
	m.mu.Unlock()
}

// OnPlainMessage receives messages that are not commands.
func (m *CommandManager) OnPlainMessage(h MessageHandler) {
	m.mu.Lock()
	m.onPlain = h
	m.mu.Unlock()
}

// OnError replaces the default "Something went wrong." reply.
func (m *CommandManager) OnError(h ErrorHandler) {
	m.mu.Lock()
	m.onErr = h
	m.mu.Unlock()
}

// SetRegistry installs cmds plus a built-in /help and returns the menu
// entries for the platform command list.
func (m *CommandManager) SetRegistry(cmds []Command) []kit.BotCommand {
	cmds = append(slices.Clone(cmds), Command{
		Name:        "help",
		Aliases:     []string{"start"},
		Description: "show available commands",
		Usage:       "/help [command]",
		Handle: func(ctx context.Context, req *Request) error {
			_, err := m.sender.SendText(ctx, req.Chat, m.helpText(req.Text, req.Owner), &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
			return err
		},
	})

	table := map[string]*Command{}
	ordered := make([]*Command, 0, len(cmds))
	for i := range cmds {
		c := &cmds[i]
		name := sanitizeCommand(c.Name)
		if name == "" || c.Handle == nil {
			continue
		}
		c.Name = name
		if _, dup := table[name]; dup {
			m.log.Warn("duplicate command ignored", logx.String("cmd", name))
			continue
		}
		table[name] = c
		ordered = append(ordered, c)
	}
	for _, c := range ordered {
		for _, a := range c.Aliases {
			a = sanitizeCommand(a)
			if _, taken := table[a]; a == "" || taken {
				continue
			}
			table[a] = c
		}
	}

	m.mu.Lock()
	m.commands = table
	m.ordered = ordered
	m.mu.Unlock()
	return menuCommands(ordered)
}

// UpdateMenu pushes the command list to the platform when the sender
// supports it.
func (m *CommandManager) UpdateMenu(ctx context.Context, menu []kit.BotCommand) {
	up, ok := m.sender.(kit.CommandMenuUpdater)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := up.UpdateMenuCommands(ctx, menu); err != nil {
		m.log.Warn("command menu update failed", logx.Err(err))
	}
}

func (m *CommandManager) lookup(name string) (*Command, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.commands[name]
	return c, ok
}

// DispatchLoop consumes updates until ctx is done or updates closes.
// Handlers run on a small worker pool so a slow API call never stalls
// polling.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update, workers int) error {
	if workers < 1 {
		workers = 2
	}
	sup := rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(m.log.With(logx.String("comp", "router"))),
		rtsup.WithCancelOnError(false),
	)
	for i := range workers {
		sup.GoRestart("router.worker."+strconv.Itoa(i), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job := <-m.jobs:
					job(c)
				}
			}
		}, rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second))
	}
	m.log.Info("dispatcher started", logx.Int("workers", workers))
	defer func() {
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			m.Route(ctx, up)
		}
	}
}

// Route turns one update into a queued job. It never blocks on handlers.
func (m *CommandManager) Route(ctx context.Context, up kit.Update) {
	switch up.Kind {
	case kit.UpdateMessage:
		m.routeMessage(ctx, up)
	case kit.UpdateReaction:
		m.routeReaction(up)
	}
}

func (m *CommandManager) routeMessage(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	chat := kit.ChatTarget{ChatID: msg.ChatID, ThreadID: msg.ThreadID}
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		m.mu.RLock()
		h := m.onPlain
		m.mu.RUnlock()
		if h != nil {
			m.enqueue(ctx, chat, func(c context.Context) {
				defer recoverJob(m.log, "message")
				if err := h(c, msg); err != nil {
					m.log.Warn("message hook failed", logx.Int64("chat_id", msg.ChatID), logx.Err(err))
				}
			})
		}
		return
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return
	}
	name := commandWord(tokens[0])
	cmd, ok := m.lookup(name)
	if !ok {
		m.reply(ctx, chat, "Unknown command. Try /help")
		return
	}

	owner := m.IsOwner(msg.FromID)
	if cmd.Access == AccessOwnerOnly && !owner {
		m.reply(ctx, chat, "Only bot owners may use /"+cmd.Name+".")
		return
	}

	rid := uuid.NewString()[:8]
	argText, args, flags := parseArgs(tokens[1:])
	req := &Request{
		Update:       up,
		Chat:         chat,
		MessageID:    msg.ID,
		FromID:       msg.FromID,
		FromUsername: msg.FromUsername,
		FromName:     msg.FromName,
		IsGroup:      msg.IsGroup,
		Command:      cmd.Name,
		Text:         argText,
		Args:         args,
		Flags:        flags,
		ReqID:        rid,
		Owner:        owner,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.String("cmd", cmd.Name),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
		),
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	h := Chain(cmd.Handle, MWPanicRecover(m.log), MWRequestLog(m.log), MWTimeout(timeout))
	m.enqueue(ctx, chat, func(c context.Context) {
		if err := h(c, req); err != nil {
			m.replyError(c, req, err)
		}
	})
}

func (m *CommandManager) routeReaction(up kit.Update) {
	r := up.Reaction
	m.mu.RLock()
	h := m.onReact
	m.mu.RUnlock()
	if r == nil || h == nil || len(r.Added) == 0 {
		return
	}
	ok := m.tryEnqueue(func(c context.Context) {
		defer recoverJob(m.log, "reaction")
		if err := h(c, r); err != nil {
			m.log.Warn("reaction handler failed",
				logx.Int64("chat_id", r.ChatID),
				logx.Int("message_id", r.MessageID),
				logx.Int64("from_id", r.FromID),
				logx.Err(err))
		}
	})
	if !ok {
		m.log.Warn("reaction dropped: dispatcher busy", logx.Int("message_id", r.MessageID))
	}
}

func (m *CommandManager) enqueue(ctx context.Context, chat kit.ChatTarget, job func(c context.Context)) {
	if !m.tryEnqueue(job) {
		m.reply(ctx, chat, "Busy, try again in a moment.")
	}
}

func (m *CommandManager) tryEnqueue(job func(c context.Context)) bool {
	select {
	case m.jobs <- job:
		return true
	default:
		return false
	}
}

func (m *CommandManager) replyError(ctx context.Context, req *Request, err error) {
	m.mu.RLock()
	h := m.onErr
	m.mu.RUnlock()
	// The handler context may already be past its deadline.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	if h != nil {
		h(ctx, req, err)
		return
	}
	m.reply(ctx, req.Chat, "Something went wrong.")
}

func (m *CommandManager) reply(ctx context.Context, chat kit.ChatTarget, text string) {
	if _, err := m.sender.SendText(ctx, chat, text, nil); err != nil {
		m.log.Warn("reply failed", logx.Int64("chat_id", chat.ChatID), logx.Err(err))
	}
}
