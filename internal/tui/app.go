package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tmahesh/ledgerkeep/internal/config"
	"github.com/tmahesh/ledgerkeep/internal/database/repository"
	"github.com/tmahesh/ledgerkeep/internal/service"
)

// App ties together views.
type App struct {
	ctx      context.Context
	repos    Repos
	services Services
	cfg      config.Config

	state      appState
	loans      []repository.Loan
	txs        []repository.Transaction
	reminders  []repository.Reminder
	summary    []service.PersonSummary
	loanCursor int
	txCursor   int
	remCursor  int
	alerts     []string
	status     string
	currency   string
	dateFormat string

	inputMode bool
	input     string
}

type Repos struct {
	Loans        *repository.LoanRepo
	Transactions *repository.TransactionRepo
	Reminders    *repository.ReminderRepo
}

type Services struct {
	Ledger    *service.Ledger
	Editor    *service.Editor
	People    *service.People
	Scheduler *service.Scheduler
}

type appState string

const (
	viewLoans        appState = "loans"
	viewTransactions appState = "transactions"
	viewReminders    appState = "reminders"
)

// maxAlertFeed bounds the on-screen alert history.
const maxAlertFeed = 6

func New(ctx context.Context, cfg config.Config, repos Repos, services Services) *App {
	return &App{
		ctx:        ctx,
		repos:      repos,
		services:   services,
		cfg:        cfg,
		state:      viewLoans,
		currency:   cfg.UI.CurrencySymbol,
		dateFormat: cfg.UI.DateFormat,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadLoans(), a.loadTransactions(), a.loadReminders(), a.loadSummary())
}

type (
	loansMsg     []repository.Loan
	txsMsg       []repository.Transaction
	remindersMsg []repository.Reminder
	summaryMsg   []service.PersonSummary
	errMsg       struct{ err error }
	statusMsg    string
	sweepDoneMsg struct{ err error }

	// refreshMsg and alertMsg arrive from the services through Dispatcher.
	refreshMsg struct{ event string }
	alertMsg   struct{ title, message string }
)

func (a *App) loadLoans() tea.Cmd {
	return func() tea.Msg {
		list, err := a.repos.Loans.List(a.ctx, repository.LoanFilters{})
		if err != nil {
			return errMsg{err}
		}
		return loansMsg(list)
	}
}

func (a *App) loadTransactions() tea.Cmd {
	return func() tea.Msg {
		list, err := a.repos.Transactions.List(a.ctx, repository.TransactionFilters{})
		if err != nil {
			return errMsg{err}
		}
		return txsMsg(list)
	}
}

func (a *App) loadReminders() tea.Cmd {
	return func() tea.Msg {
		list, err := a.repos.Reminders.List(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return remindersMsg(list)
	}
}

func (a *App) loadSummary() tea.Cmd {
	return func() tea.Msg {
		sum, err := a.services.Ledger.SummaryByPerson(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return summaryMsg(sum)
	}
}

func (a *App) toggleCollectedCmd(loan repository.Loan) tea.Cmd {
	return func() tea.Msg {
		if err := a.services.Ledger.SetCollected(a.ctx, loan.ID, !loan.Collected); err != nil {
			return errMsg{err}
		}
		return refreshMsg{event: service.EventLoansChanged}
	}
}

// collectSeriesCmd marks every member of the selected loan's series
// collected. Falls back to just this loan when it is standalone.
func (a *App) collectSeriesCmd(loan repository.Loan) tea.Cmd {
	return func() tea.Msg {
		collected := true
		err := a.services.Editor.ApplyEdit(a.ctx, loan.ID,
			service.LoanUpdates{Collected: &collected}, service.ScopeAll)
		if err != nil {
			return errMsg{err}
		}
		return refreshMsg{event: service.EventLoansChanged}
	}
}

// addLoanCmd parses "person type amount due [recurrence]" and adds the loan.
// A near-miss on an existing counterparty name is surfaced as a hint, not a
// block; typos are cheap to fix with an edit.
func (a *App) addLoanCmd(line string) tea.Cmd {
	return func() tea.Msg {
		in, err := parseLoanLine(line)
		if err != nil {
			return errMsg{err}
		}
		hint := ""
		if existing, ok, err := a.services.People.Suggest(a.ctx, in.Person); err == nil && ok {
			hint = fmt.Sprintf(" (note: %q already exists)", existing)
		}
		if _, err := a.services.Ledger.AddLoan(a.ctx, in); err != nil {
			return errMsg{err}
		}
		return statusMsg("added " + in.Person + hint)
	}
}

func parseLoanLine(line string) (service.LoanInput, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return service.LoanInput{}, fmt.Errorf("usage: person given|taken amount yyyy-mm-dd [recurrence]")
	}
	cents, err := service.AmountToCents(fields[2])
	if err != nil {
		return service.LoanInput{}, fmt.Errorf("amount: %w", err)
	}
	due, err := time.Parse("2006-01-02", fields[3])
	if err != nil {
		return service.LoanInput{}, fmt.Errorf("due date: %w", err)
	}
	in := service.LoanInput{
		Person:      fields[0],
		Type:        fields[1],
		AmountCents: cents,
		DueDate:     due,
	}
	if len(fields) > 4 {
		in.Recurrence = fields[4]
	}
	return in, nil
}

// deleteTxCmd removes a manually entered or imported transaction. Mirrors
// of collected loans are refused upstream; they go away by uncollecting.
func (a *App) deleteTxCmd(tx repository.Transaction) tea.Cmd {
	return func() tea.Msg {
		if err := a.repos.Transactions.Delete(a.ctx, tx.ID); err != nil {
			return errMsg{err}
		}
		return refreshMsg{event: service.EventTransactionsChanged}
	}
}

func (a *App) sweepCmd() tea.Cmd {
	return func() tea.Msg {
		return sweepDoneMsg{err: a.services.Scheduler.RunOnce(a.ctx)}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		if a.inputMode {
			return a, a.handleInputKey(m)
		}
		switch m.String() {
		case "q", "ctrl+c":
			return a, tea.Quit
		case "l":
			a.state = viewLoans
		case "t":
			a.state = viewTransactions
		case "m":
			a.state = viewReminders
		case "up", "k":
			a.moveCursor(-1)
		case "down", "j":
			a.moveCursor(1)
		case "a":
			a.inputMode = true
			a.input = ""
			a.status = ""
		case "c":
			if a.state == viewLoans && len(a.loans) > 0 {
				loan := a.loans[a.loanCursor]
				a.status = "updating..."
				return a, a.toggleCollectedCmd(loan)
			}
		case "d":
			if a.state == viewTransactions && len(a.txs) > 0 {
				tx := a.txs[a.txCursor]
				if tx.LinkedLoanID != nil {
					a.status = "mirrors a collected loan; uncollect it instead"
					break
				}
				a.status = "deleting..."
				return a, a.deleteTxCmd(tx)
			}
		case "C":
			if a.state == viewLoans && len(a.loans) > 0 {
				loan := a.loans[a.loanCursor]
				a.status = "collecting series..."
				return a, a.collectSeriesCmd(loan)
			}
		case "s":
			a.status = "sweeping..."
			return a, a.sweepCmd()
		}
	case loansMsg:
		a.loans = m
		if a.loanCursor >= len(a.loans) {
			a.loanCursor = max(0, len(a.loans)-1)
		}
	case txsMsg:
		a.txs = m
		if a.txCursor >= len(a.txs) {
			a.txCursor = max(0, len(a.txs)-1)
		}
	case remindersMsg:
		a.reminders = m
		if a.remCursor >= len(a.reminders) {
			a.remCursor = max(0, len(a.reminders)-1)
		}
	case summaryMsg:
		a.summary = m
	case statusMsg:
		a.status = string(m)
		return a, tea.Batch(a.loadLoans(), a.loadSummary())
	case refreshMsg:
		a.status = ""
		switch m.event {
		case service.EventTransactionsChanged:
			return a, a.loadTransactions()
		case service.EventRemindersChanged:
			return a, a.loadReminders()
		default:
			return a, tea.Batch(a.loadLoans(), a.loadTransactions(), a.loadSummary())
		}
	case alertMsg:
		a.alerts = append(a.alerts, fmt.Sprintf("%s — %s", m.title, m.message))
		if len(a.alerts) > maxAlertFeed {
			a.alerts = a.alerts[len(a.alerts)-maxAlertFeed:]
		}
	case sweepDoneMsg:
		if m.err != nil {
			a.status = "sweep failed: " + m.err.Error()
		} else {
			a.status = "sweep done"
		}
		return a, tea.Batch(a.loadLoans(), a.loadTransactions(), a.loadReminders(), a.loadSummary())
	case errMsg:
		a.status = m.err.Error()
	}
	return a, nil
}

func (a *App) handleInputKey(m tea.KeyMsg) tea.Cmd {
	switch m.String() {
	case "esc", "ctrl+c":
		a.inputMode = false
		a.input = ""
	case "enter":
		line := a.input
		a.inputMode = false
		a.input = ""
		if strings.TrimSpace(line) == "" {
			return nil
		}
		a.status = "adding..."
		return a.addLoanCmd(line)
	case "backspace":
		if len(a.input) > 0 {
			_, size := utf8.DecodeLastRuneInString(a.input)
			a.input = a.input[:len(a.input)-size]
		}
	default:
		switch m.Type {
		case tea.KeyRunes:
			a.input += string(m.Runes)
		case tea.KeySpace:
			a.input += " "
		}
	}
	return nil
}

func (a *App) moveCursor(delta int) {
	switch a.state {
	case viewLoans:
		a.loanCursor = clamp(a.loanCursor+delta, len(a.loans))
	case viewTransactions:
		a.txCursor = clamp(a.txCursor+delta, len(a.txs))
	case viewReminders:
		a.remCursor = clamp(a.remCursor+delta, len(a.reminders))
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	dimStyle      = lipgloss.NewStyle().Faint(true)
	alertStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func (a *App) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ledgerkeep") + "  ")
	b.WriteString(dimStyle.Render("[l]oans [t]ransactions re[m]inders [a]dd [c]ollect [C]ollect series [d]elete tx [s]weep [q]uit"))
	b.WriteString("\n\n")

	if a.inputMode {
		b.WriteString("add> " + a.input + "█\n")
		b.WriteString(dimStyle.Render("person given|taken amount yyyy-mm-dd [recurrence]") + "\n\n")
	}

	switch a.state {
	case viewLoans:
		b.WriteString(a.renderLoans())
	case viewTransactions:
		b.WriteString(a.renderTransactions())
	case viewReminders:
		b.WriteString(a.renderReminders())
	}

	if len(a.alerts) > 0 {
		b.WriteString("\n")
		for _, al := range a.alerts {
			b.WriteString(alertStyle.Render("• "+al) + "\n")
		}
	}
	if a.status != "" {
		b.WriteString("\n" + dimStyle.Render(a.status))
	}
	return b.String()
}

func (a *App) renderLoans() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Loans") + "\n")
	if len(a.loans) == 0 {
		b.WriteString(dimStyle.Render("no loans") + "\n")
	}
	for i, l := range a.loans {
		mark := " "
		if l.Collected {
			mark = "✓"
		}
		dir := "→"
		if l.Type == repository.LoanTaken {
			dir = "←"
		}
		line := fmt.Sprintf("%s %s %-16s %s%s due %s %s",
			mark, dir, l.Person, a.currency, formatCents(l.AmountCents),
			l.DueDate.Format(a.dateFormat), dimStyle.Render(l.Recurrence))
		if i == a.loanCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if len(a.summary) > 0 {
		b.WriteString("\n" + titleStyle.Render("Positions") + "\n")
		for _, s := range a.summary {
			b.WriteString(fmt.Sprintf("%-16s out %s%s  owed %s%s\n",
				s.Person, a.currency, formatCents(s.GivenCents), a.currency, formatCents(s.TakenCents)))
		}
	}
	return b.String()
}

func (a *App) renderTransactions() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Transactions") + "\n")
	if len(a.txs) == 0 {
		b.WriteString(dimStyle.Render("no transactions") + "\n")
	}
	for i, t := range a.txs {
		sign := "+"
		if t.Type == repository.TxOut {
			sign = "-"
		}
		line := fmt.Sprintf("%s %s%s%s  %s  %s",
			t.Date.Format(a.dateFormat), sign, a.currency, formatCents(t.AmountCents),
			t.Account, t.Note)
		if i == a.txCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (a *App) renderReminders() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Reminders") + "\n")
	if len(a.reminders) == 0 {
		b.WriteString(dimStyle.Render("no reminders") + "\n")
	}
	for i, r := range a.reminders {
		mark := " "
		if r.Completed {
			mark = "✓"
		}
		line := fmt.Sprintf("%s %s due %s %s", mark, r.Title,
			r.DueDate.Format(a.dateFormat), dimStyle.Render(r.Recurrence))
		if i == a.remCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func clamp(v, n int) int {
	if n == 0 {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > n-1 {
		return n - 1
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Dispatcher implements service.Events by forwarding into the running
// program's message loop. Attach is called once the program exists; events
// arriving before that are dropped, which only loses a cosmetic refresh.
type Dispatcher struct {
	mu sync.Mutex
	p  *tea.Program
}

func (d *Dispatcher) Attach(p *tea.Program) {
	d.mu.Lock()
	d.p = p
	d.mu.Unlock()
}

func (d *Dispatcher) program() *tea.Program {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.p
}

func (d *Dispatcher) Emit(event string, payload any) {
	if p := d.program(); p != nil {
		p.Send(refreshMsg{event: event})
	}
}

func (d *Dispatcher) Alert(title, message string) {
	if p := d.program(); p != nil {
		p.Send(alertMsg{title: title, message: message})
	}
}
