package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/adi-253/msglist/internal/models"
	"github.com/adi-253/msglist/internal/services"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

type focus int

const (
	focusInput focus = iota
	focusList
)

// App is the message list screen.
type App struct {
	ctl   *services.MessageListController
	input textinput.Model
	help  help.Model
	keys  keyMap

	state  models.ListState
	focus  focus
	cursor int
	width  int
	height int
	now    func() time.Time
}

// NewApp builds the screen on top of ctl. The caller keeps ownership of ctl.
func NewApp(ctl *services.MessageListController) *App {
	ti := textinput.New()
	ti.Placeholder = "Add a message here."
	ti.Prompt = "› "
	ti.Focus()

	return &App{
		ctl:   ctl,
		input: ti,
		help:  help.New(),
		keys:  defaultKeys(),
		state: ctl.State(),
		now:   time.Now,
	}
}

type stateChangedMsg struct{}

type controllerClosedMsg struct{}

// waitForChange turns the controller's change signal into a tea message.
func (a *App) waitForChange() tea.Cmd {
	changes := a.ctl.Changes()
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return controllerClosedMsg{}
		}
		return stateChangedMsg{}
	}
}

func (a *App) Init() tea.Cmd {
	a.ctl.LoadAll()
	return tea.Batch(textinput.Blink, a.waitForChange())
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(msg.Width-8, 10)
		a.help.Width = msg.Width
		return a, nil

	case stateChangedMsg:
		a.refresh()
		return a, a.waitForChange()

	case controllerClosedMsg:
		return a, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if key.Matches(msg, a.keys.Focus) {
			a.toggleFocus()
			return a, nil
		}
		if a.focus == focusInput {
			return a.updateInput(msg)
		}
		return a.updateList(msg)
	}

	if a.focus == focusInput {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Submit) {
		// Nothing to add while the draft is empty
		if _, ok := a.ctl.Add(a.input.Value()); ok {
			a.input.SetValue("")
			a.cursor = 0
			a.refresh()
		}
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	a.ctl.SetDraft(a.input.Value())
	return a, cmd
}

func (a *App) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, a.keys.Back):
		a.toggleFocus()
	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(msg, a.keys.Down):
		if a.cursor < len(a.state.Messages)-1 {
			a.cursor++
		}
	case key.Matches(msg, a.keys.View):
		if e, ok := a.selected(); ok {
			a.ctl.FetchOne(e.ID)
		}
	case key.Matches(msg, a.keys.Delete):
		if e, ok := a.selected(); ok {
			a.ctl.Remove(e.ID)
			a.refresh()
		}
	case key.Matches(msg, a.keys.Reload):
		a.ctl.LoadAll()
	}
	return a, nil
}

func (a *App) toggleFocus() {
	if a.focus == focusInput {
		a.focus = focusList
		a.input.Blur()
		return
	}
	a.focus = focusInput
	a.input.Focus()
}

// refresh pulls a new snapshot from the controller and keeps the cursor in range.
func (a *App) refresh() {
	a.state = a.ctl.State()
	if a.cursor >= len(a.state.Messages) {
		a.cursor = len(a.state.Messages) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a *App) selected() (models.Entry, bool) {
	if len(a.state.Messages) == 0 {
		return models.Entry{}, false
	}
	return a.state.Messages[a.cursor], true
}

func (a *App) View() string {
	inputStyle := InputStyle
	if a.focus == focusInput {
		inputStyle = FocusedInputStyle
	}

	addHint := HelpStyle.Render("type to enable add")
	if a.input.Value() != "" {
		addHint = HelpStyle.Render("enter: add message")
	}

	bindings := a.keys.listHelp()
	if a.focus == focusInput {
		bindings = a.keys.inputHelp()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Render("› message list"),
		"",
		inputStyle.Render(a.input.View()),
		addHint,
		"",
		a.renderList(),
		"",
		StatusStyle.Render(a.state.Status),
		a.help.ShortHelpView(bindings),
	)
}

func (a *App) renderList() string {
	if len(a.state.Messages) == 0 {
		return HelpStyle.Render("No messages yet.")
	}

	lines := make([]string, 0, len(a.state.Messages))
	for i, e := range a.state.Messages {
		lines = append(lines, a.renderEntry(e, i == a.cursor && a.focus == focusList))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderEntry(e models.Entry, selected bool) string {
	marker := " "
	switch e.Sync {
	case models.SyncPending:
		marker = PendingStyle.Render("…")
	case models.SyncFailed:
		marker = FailedStyle.Render("!")
	}

	text := ItemStyle.Render(e.Text)
	pointer := "  "
	if selected {
		text = SelectedStyle.Render(e.Text)
		pointer = SelectedStyle.Render("› ")
	}

	// Ids are millisecond timestamps, so they double as creation times
	age := humanize.RelTime(time.UnixMilli(e.ID), a.now(), "ago", "from now")

	return fmt.Sprintf("%s%s %s  %s  %s",
		pointer,
		marker,
		IDStyle.Render(fmt.Sprintf("%d", e.ID)),
		text,
		TimeStyle.Render(age),
	)
}
