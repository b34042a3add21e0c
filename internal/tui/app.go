package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/eventdesk/internal/config"
	"github.com/jask/eventdesk/internal/database/repository"
	"github.com/jask/eventdesk/internal/designer"
	"github.com/jask/eventdesk/internal/service"
)

// App is the terminal dashboard for one owner.
type App struct {
	ctx      context.Context
	services Services
	cfg      config.Config
	owner    string
	tz       *time.Location

	state     appState
	modal     modalState
	events    []repository.Event
	visible   []repository.Event
	tickets   []repository.TicketType
	cursor    int
	query     string
	container string
	designer  *designer.Status
	status    string
}

type Services struct {
	Events      *service.EventService
	Tickets     *service.TicketService
	Designer    *service.DesignerService
	Maintenance *service.MaintenanceService
}

type appState string

const (
	viewEvents appState = "events"
	viewSearch appState = "search"
)

type modalState string

const (
	modalNone         modalState = ""
	modalConfirmReset modalState = "confirmReset"
)

const pollInterval = 500 * time.Millisecond

func New(ctx context.Context, cfg config.Config, services Services, tz *time.Location) *App {
	if tz == nil {
		tz = time.Local
	}
	return &App{
		ctx:       ctx,
		services:  services,
		cfg:       cfg,
		owner:     cfg.UI.Owner,
		tz:        tz,
		state:     viewEvents,
		container: designer.NewContainerID(),
	}
}

type (
	eventsMsg   []repository.Event
	ticketsMsg  []repository.TicketType
	statusMsg   string
	errMsg      struct{ error }
	designerMsg struct {
		st  designer.Status
		err error
	}
	pollMsg struct{}
)

func (a *App) Init() tea.Cmd {
	return a.loadEvents()
}

func (a *App) loadEvents() tea.Cmd {
	return func() tea.Msg {
		list, err := a.services.Events.ListForOwner(a.ctx, a.owner)
		if err != nil {
			return errMsg{err}
		}
		return eventsMsg(list)
	}
}

func (a *App) loadTickets() tea.Cmd {
	ev, ok := a.selected()
	if !ok {
		return func() tea.Msg { return ticketsMsg(nil) }
	}
	return func() tea.Msg {
		list, err := a.services.Tickets.List(a.ctx, a.owner, ev.ID)
		if err != nil {
			return errMsg{err}
		}
		return ticketsMsg(list)
	}
}

func (a *App) openDesignerCmd(ev repository.Event) tea.Cmd {
	return func() tea.Msg {
		st, err := a.services.Designer.Open(a.ctx, a.owner, ev.ID, service.OpenDesignerInput{Container: a.container})
		return designerMsg{st: st, err: err}
	}
}

func (a *App) closeDesignerCmd(ev repository.Event) tea.Cmd {
	return func() tea.Msg {
		if err := a.services.Designer.Close(a.ctx, a.owner, ev.ID, a.container); err != nil {
			return errMsg{err}
		}
		return statusMsg("designer closed")
	}
}

func (a *App) pollDesigner() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func (a *App) resetCmd() tea.Cmd {
	return func() tea.Msg {
		if a.designer != nil {
			a.services.Designer.CloseAll()
		}
		if err := a.services.Maintenance.Reset(a.ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg("all events removed")
	}
}

func (a *App) selected() (repository.Event, bool) {
	if a.cursor < 0 || a.cursor >= len(a.visible) {
		return repository.Event{}, false
	}
	return a.visible[a.cursor], true
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if a.modal != modalNone {
			return a.handleModalKey(m)
		}
		if a.state == viewSearch {
			return a.handleSearchKey(m)
		}
		return a.handleKey(m)
	case eventsMsg:
		a.events = []repository.Event(m)
		a.applyFilter()
		return a, a.loadTickets()
	case ticketsMsg:
		a.tickets = []repository.TicketType(m)
	case statusMsg:
		a.status = string(m)
		if a.status == "designer closed" {
			a.designer = nil
		}
		if a.status == "all events removed" {
			a.designer = nil
			return a, a.loadEvents()
		}
	case errMsg:
		a.status = "error: " + m.Error()
	case designerMsg:
		st := m.st
		a.designer = &st
		switch {
		case m.err != nil:
			a.status = "designer: " + m.err.Error()
		case !st.Rendered:
			a.status = "designer loading..."
			return a, a.pollDesigner()
		default:
			a.status = fmt.Sprintf("designer ready (%s)", st.Region)
			return a, a.pollDesigner()
		}
	case pollMsg:
		if a.designer == nil {
			return a, nil
		}
		st, err := a.services.Designer.Status(a.owner, a.container)
		if err != nil {
			a.designer = nil
			return a, nil
		}
		a.designer = &st
		if st.Rendered {
			a.status = fmt.Sprintf("designer ready (%s)", st.Region)
		}
		// Keep polling for load progress and selection changes.
		if st.Open && st.Error == "" {
			return a, a.pollDesigner()
		}
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
			return a, a.loadTickets()
		}
	case "down", "j":
		if a.cursor < len(a.visible)-1 {
			a.cursor++
			return a, a.loadTickets()
		}
	case "/":
		a.state = viewSearch
		a.status = ""
	case "esc":
		a.query = ""
		a.applyFilter()
		return a, a.loadTickets()
	case "r":
		a.status = "refreshing..."
		return a, a.loadEvents()
	case "o":
		ev, ok := a.selected()
		if !ok {
			a.status = "no event selected"
			return a, nil
		}
		a.status = "opening designer for " + ev.Name + "..."
		return a, a.openDesignerCmd(ev)
	case "x":
		ev, ok := a.selected()
		if !ok || a.designer == nil {
			return a, nil
		}
		return a, a.closeDesignerCmd(ev)
	case "R":
		a.modal = modalConfirmReset
	}
	return a, nil
}

func (a *App) handleSearchKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEnter:
		a.state = viewEvents
		return a, a.loadTickets()
	case tea.KeyEsc:
		a.state = viewEvents
		a.query = ""
		a.applyFilter()
		return a, a.loadTickets()
	case tea.KeyBackspace:
		if a.query != "" {
			r := []rune(a.query)
			a.query = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		a.query += " "
	case tea.KeyRunes:
		a.query += string(m.Runes)
	case tea.KeyCtrlC:
		return a, tea.Quit
	}
	a.applyFilter()
	return a, nil
}

func (a *App) handleModalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(m.String()) {
	case "y":
		a.modal = modalNone
		a.status = "resetting..."
		return a, a.resetCmd()
	case "n", "esc":
		a.modal = modalNone
	}
	return a, nil
}

func (a *App) applyFilter() {
	a.visible = filterEvents(a.events, a.query)
	if a.cursor >= len(a.visible) {
		a.cursor = max(len(a.visible)-1, 0)
	}
}
