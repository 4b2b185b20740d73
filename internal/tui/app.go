// Package tui is the interactive terminal client: home, login, register and
// the signed-in dashboard, with a navbar that follows the session.
//
// Network calls run as tea.Cmds and report back with messages; the store is
// only ever dispatched to from Update.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/cloudstudy/internal/api"
	"github.com/felixgeelhaar/cloudstudy/internal/auth"
	"github.com/felixgeelhaar/cloudstudy/internal/guard"
	"github.com/felixgeelhaar/cloudstudy/internal/log"
	"github.com/felixgeelhaar/cloudstudy/internal/nav"
	"github.com/felixgeelhaar/cloudstudy/internal/store"
)

// MessageLogoutClearFailed is shown when the session is signed out but the
// stored token could not be removed.
const MessageLogoutClearFailed = "Signed out, but the saved session could not be removed"

// App is the root Bubble Tea model.
type App struct {
	ctx       context.Context
	flow      *auth.Flow
	store     *store.Store
	nav       *nav.Navigator
	guard     *guard.Guard
	stopGuard func()
	logger    *log.Logger

	styles  Styles
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	// route is the view currently mounted; gen identifies this mount so
	// completions from an earlier mount can be recognized and dropped.
	route nav.Route
	gen   uint64

	reqCtx context.Context
	cancel context.CancelFunc

	login    *loginValues
	register *registerValues
	form     *huh.Form

	busy    string
	errText string
	notice  string

	width    int
	quitting bool
}

// Option configures an App.
type Option func(*settings)

type settings struct {
	start  nav.Route
	logger *log.Logger
	styles Styles
}

// WithStart sets the initial route.
func WithStart(r nav.Route) Option {
	return func(s *settings) { s.start = r }
}

// WithLogger sets the logger. The TUI owns the terminal, so it should not
// write to stderr.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithStyles replaces DefaultStyles.
func WithStyles(st Styles) Option {
	return func(s *settings) { s.styles = st }
}

// New creates the app and starts its route guard. Call Close when done.
func New(ctx context.Context, flow *auth.Flow, opts ...Option) (*App, error) {
	cfg := settings{
		start:  nav.RouteHome,
		logger: log.Discard(),
		styles: DefaultStyles(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	navigator := nav.New(cfg.start)
	g, err := guard.New(flow.Store(), navigator, guard.WithLogger(cfg.logger))
	if err != nil {
		return nil, fmt.Errorf("create route guard: %w", err)
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = cfg.styles.Highlighted

	m := &App{
		ctx:      ctx,
		flow:     flow,
		store:    flow.Store(),
		nav:      navigator,
		guard:    g,
		logger:   cfg.logger,
		styles:   cfg.styles,
		keys:     defaultKeys(),
		help:     help.New(),
		spinner:  sp,
		login:    &loginValues{},
		register: &registerValues{},
	}
	m.stopGuard = g.Start()
	return m, nil
}

// Close stops the guard and cancels any request in flight.
func (m *App) Close() {
	m.finishRequest()
	if m.stopGuard != nil {
		m.stopGuard()
		m.stopGuard = nil
	}
}

// Route returns the mounted view.
func (m *App) Route() nav.Route {
	return m.route
}

// Messages produced by commands.

type loginResultMsg struct {
	gen  uint64
	resp *api.LoginResponse
	err  error
}

type registerResultMsg struct {
	gen     uint64
	message string
	err     error
}

type redirectMsg struct {
	gen uint64
	to  nav.Route
}

// Init mounts the starting view.
func (m *App) Init() tea.Cmd {
	return m.mount()
}

// Update handles messages and updates the model state
func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		cmd = m.handleKeyPress(msg)

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loginResultMsg:
		cmd = m.handleLoginResult(msg)

	case registerResultMsg:
		cmd = m.handleRegisterResult(msg)

	case redirectMsg:
		if msg.gen == m.gen {
			m.nav.Push(msg.to)
		}

	default:
		cmd = m.updateForm(msg)
	}

	if m.quitting {
		return m, cmd
	}
	return m, tea.Batch(cmd, m.syncRoute())
}

func (m *App) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	m.keys.signedIn(m.store.State().Authenticated())

	if key.Matches(msg, m.keys.ForceQuit) {
		m.quitting = true
		return tea.Quit
	}

	if key.Matches(msg, m.keys.Back) {
		m.back()
		return nil
	}

	// Forms own the keyboard while mounted.
	if m.form != nil {
		return m.updateForm(msg)
	}
	if m.busy != "" {
		return nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Home):
		m.nav.Push(nav.RouteHome)
	case key.Matches(msg, m.keys.Login):
		m.nav.Push(nav.RouteLogin)
	case key.Matches(msg, m.keys.Register):
		m.nav.Push(nav.RouteRegister)
	case key.Matches(msg, m.keys.Dashboard):
		m.nav.Push(nav.RouteDashboard)
	case key.Matches(msg, m.keys.Profile):
		m.nav.Push(nav.RouteProfile)
	case key.Matches(msg, m.keys.Logout):
		return m.logout()
	}
	return nil
}

func (m *App) back() {
	if !m.nav.Back() && m.nav.Current() != nav.RouteHome {
		m.nav.Replace(nav.RouteHome)
	}
}

// logout signs out and remounts before reporting a clear failure, since the
// guard may already have moved the navigator and a remount resets errText.
func (m *App) logout() tea.Cmd {
	err := m.flow.Logout()
	cmd := m.syncRoute()
	if err != nil {
		m.logger.WithError(err).Warn("logout could not clear the stored session")
		m.errText = MessageLogoutClearFailed
	}
	return cmd
}

func (m *App) updateForm(msg tea.Msg) tea.Cmd {
	if m.form == nil || m.busy != "" {
		return nil
	}

	model, cmd := m.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return tea.Batch(cmd, m.submit())
	case huh.StateAborted:
		m.back()
		return nil
	}
	return cmd
}

// submit starts the request for the mounted form.
func (m *App) submit() tea.Cmd {
	m.finishRequest()
	m.errText, m.notice = "", ""
	m.form = nil

	ctx, cancel := context.WithCancel(m.ctx)
	m.reqCtx, m.cancel = ctx, cancel
	gen := m.gen
	flow := m.flow

	switch m.route {
	case nav.RouteLogin:
		m.busy = "Logging in..."
		email, password := m.login.email, m.login.password
		return tea.Batch(m.spinner.Tick, func() tea.Msg {
			resp, err := flow.Authenticate(ctx, email, password)
			return loginResultMsg{gen: gen, resp: resp, err: err}
		})

	case nav.RouteRegister:
		m.busy = "Registering..."
		in := auth.RegisterInput{
			Email:     m.register.email,
			Password:  m.register.password,
			ImagePath: expandImagePath(m.register.imagePath),
		}
		return tea.Batch(m.spinner.Tick, func() tea.Msg {
			message, err := flow.Register(ctx, in)
			return registerResultMsg{gen: gen, message: message, err: err}
		})
	}

	m.finishRequest()
	return nil
}

func (m *App) handleLoginResult(msg loginResultMsg) tea.Cmd {
	if msg.gen != m.gen {
		m.logger.Debug("dropping login result for a closed view")
		return nil
	}
	m.busy = ""

	ctx := m.reqCtx
	if ctx == nil {
		ctx = m.ctx
	}

	err := msg.err
	if err == nil {
		err = m.flow.Establish(ctx, msg.resp)
	}
	m.finishRequest()
	m.login.password = ""

	if err != nil {
		if msg.err == nil {
			m.logger.LogErrorContext(ctx, err)
		}
		m.errText = auth.ErrorMessage(err, auth.MessageLoginFailed)
		return m.rebuildForm()
	}

	m.nav.Push(nav.RouteHome)
	return nil
}

func (m *App) handleRegisterResult(msg registerResultMsg) tea.Cmd {
	if msg.gen != m.gen {
		m.logger.Debug("dropping register result for a closed view")
		return nil
	}
	m.busy = ""
	m.finishRequest()

	if msg.err != nil {
		m.errText = auth.ErrorMessage(msg.err, auth.MessageRegisterFailed)
		return m.rebuildForm()
	}

	m.notice = msg.message
	gen := m.gen
	return tea.Tick(auth.RedirectDelay, func(time.Time) tea.Msg {
		return redirectMsg{gen: gen, to: nav.RouteLogin}
	})
}

// syncRoute remounts when the navigator moved, whoever moved it.
func (m *App) syncRoute() tea.Cmd {
	if m.nav.Current() == m.route {
		return nil
	}
	return m.mount()
}

func (m *App) mount() tea.Cmd {
	m.finishRequest()
	m.route = m.nav.Current()
	m.gen++
	m.busy, m.errText, m.notice = "", "", ""
	m.form = nil

	switch m.route {
	case nav.RouteLogin:
		m.login = &loginValues{}
	case nav.RouteRegister:
		m.register = &registerValues{}
	}

	m.logger.Debug("view mounted", "route", string(m.route), "gen", m.gen)
	return m.rebuildForm()
}

// rebuildForm builds the mounted view's form over its current values.
func (m *App) rebuildForm() tea.Cmd {
	switch m.route {
	case nav.RouteLogin:
		m.form = newLoginForm(m.login)
	case nav.RouteRegister:
		m.form = newRegisterForm(m.register)
	default:
		m.form = nil
		return nil
	}
	return m.form.Init()
}

func (m *App) finishRequest() {
	if m.cancel != nil {
		m.cancel()
	}
	m.cancel = nil
	m.reqCtx = nil
}
