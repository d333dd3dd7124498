package pos

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"puntoventa/internal/alerts"
	"puntoventa/internal/catalog"
	"puntoventa/internal/checkout"
	"puntoventa/internal/session"
	"puntoventa/internal/storage"
	"puntoventa/pkg/api"
)

// POS TERMINAL

// API is the slice of the backend client the terminal calls directly.
// Catalog reads go through the catalog service instead.
type API interface {
	CreateSale(ctx context.Context, req api.SaleRequest) (*api.Sale, error)
	ListSales(ctx context.Context) ([]api.Sale, error)
	Dashboard(ctx context.Context) (*api.DashboardSummary, error)
}

// Journal is the slice of the local sales journal the terminal reads and
// checkout writes. A nil Journal disables the local-journal commands.
type Journal interface {
	checkout.Journal
	RecentSales(ctx context.Context, limit int) ([]storage.SaleRecord, error)
	Summary(ctx context.Context) (*storage.SalesSummary, error)
	ExportSalesToExcel(ctx context.Context, filename string) (string, error)
}

const (
	CmdHelp      = "help"
	CmdLogin     = "login"
	CmdLogout    = "logout"
	CmdProducts  = "products"
	CmdCustomers = "customers"
	CmdAdd       = "add"
	CmdQty       = "qty"
	CmdRemove    = "rm"
	CmdClear     = "clear"
	CmdTotal     = "total"
	CmdPay       = "pay"
	CmdSales     = "sales"
	CmdJournal   = "journal"
	CmdDashboard = "dashboard"
	CmdSummary   = "summary"
	CmdReport    = "report"
	CmdExit      = "exit"
)

// Terminal is the interactive front of the cart engine: one command per
// line, one handler per command, dispatched strictly in order. Every cart
// mutation runs to completion (display refresh included) before the next
// line is read, so mutations never interleave.
type Terminal struct {
	api             API
	sessions        *session.Manager
	catalog         *catalog.Service
	journal         Journal
	alerts          alerts.Notifier
	standardIVARate decimal.Decimal
	logger          *zap.Logger

	in  io.Reader
	out io.Writer

	submitter *checkout.Submitter
	handlers  map[string]func(context.Context, []string)
}

func New(
	apiClient API,
	sessions *session.Manager,
	catalogSvc *catalog.Service,
	journal Journal,
	notifier alerts.Notifier,
	standardIVARate decimal.Decimal,
	in io.Reader,
	out io.Writer,
	logger *zap.Logger,
) *Terminal {
	t := &Terminal{
		api:             apiClient,
		sessions:        sessions,
		catalog:         catalogSvc,
		journal:         journal,
		alerts:          notifier,
		standardIVARate: standardIVARate,
		logger:          logger,
		in:              in,
		out:             out,
	}

	t.registerHandlers()
	return t
}

func (t *Terminal) registerHandlers() {
	t.handlers = map[string]func(context.Context, []string){
		CmdHelp:      t.handleHelp,
		CmdLogin:     t.handleLogin,
		CmdLogout:    t.handleLogout,
		CmdProducts:  t.handleProducts,
		CmdCustomers: t.handleCustomers,
		CmdAdd:       t.handleAdd,
		CmdQty:       t.handleQty,
		CmdRemove:    t.handleRemove,
		CmdClear:     t.handleClear,
		CmdTotal:     t.handleTotal,
		CmdPay:       t.handlePay,
		CmdSales:     t.handleSales,
		CmdJournal:   t.handleJournal,
		CmdDashboard: t.handleDashboard,
		CmdSummary:   t.handleSummary,
		CmdReport:    t.handleReport,
	}
}

func (t *Terminal) Start(ctx context.Context) error {
	t.logger.Info("Starting terminal")
	fmt.Fprintln(t.out, "Punto de venta listo. Escribe 'help' para ver los comandos.")

	if sess, err := t.sessions.ResumeLast(ctx); err == nil {
		t.attach()
		fmt.Fprintf(t.out, "Sesión restaurada: %s (%s)\n", sess.User.Username, sess.User.Role)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(t.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Shutting down terminal")
			return nil

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := t.dispatch(ctx, line); quit {
				return nil
			}
		}
	}
}

func (t *Terminal) dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	if cmd == CmdExit {
		return true
	}

	handler, ok := t.handlers[cmd]
	if !ok {
		fmt.Fprintf(t.out, "Comando desconocido: %s\n", cmd)
		return false
	}

	if cmd != CmdLogin && cmd != CmdHelp && !t.sessions.LoggedIn() {
		fmt.Fprintln(t.out, "Inicia sesión primero: login <usuario> <contraseña>")
		return false
	}

	handler(ctx, args)
	return false
}

// attach hooks the active session's cart to the display and builds its
// submitter. Runs after every successful login or resume.
func (t *Terminal) attach() {
	c := t.sessions.Cart()
	c.Subscribe(t.renderCart)

	var journal checkout.Journal
	if t.journal != nil {
		journal = t.journal
	}
	t.submitter = checkout.NewSubmitter(c, t.api, journal, t.catalog, t.logger)
}

// fail reports an operation error, centralizing the session-expiry check:
// a 401 from any call tears the session down and asks for a fresh login.
func (t *Terminal) fail(ctx context.Context, err error) {
	if t.sessions.Expire(ctx, err) {
		t.submitter = nil
		fmt.Fprintln(t.out, "Sesión expirada. Por favor inicia sesión nuevamente.")
		return
	}
	fmt.Fprintf(t.out, "Error: %v\n", err)
}

// renderCart is the display-refresh hook the cart notifies after every
// successful mutation.
func (t *Terminal) renderCart() {
	c := t.sessions.Cart()
	if c == nil {
		return
	}

	if c.Empty() {
		fmt.Fprintln(t.out, "Carrito vacío")
		return
	}

	for _, l := range c.Lines() {
		lineSubtotal := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		fmt.Fprintf(t.out, "%3d x %-20s %s c/u (IVA %s%%) = %s\n",
			l.Quantity, l.Name, money(l.UnitPrice), l.TaxRate.String(), money(lineSubtotal))
	}

	totals := c.Totals()
	fmt.Fprintf(t.out, "Subtotal: %s  IVA: %s  Total: %s\n",
		money(totals.Subtotal), money(totals.Tax), money(totals.Total))
}
