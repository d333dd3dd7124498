package pos

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"puntoventa/internal/cart"
	"puntoventa/internal/catalog"
	"puntoventa/pkg/api"
)

func (t *Terminal) handleHelp(ctx context.Context, args []string) {
	fmt.Fprintln(t.out, `Comandos:
  login <usuario> <contraseña>   iniciar sesión
  logout                         cerrar sesión
  products                       catálogo de productos
  customers                      lista de clientes
  add <producto>                 agregar una unidad al carrito
  qty <producto> <delta>         ajustar cantidad (+/-)
  rm <producto>                  quitar línea del carrito
  clear                          vaciar carrito
  total                          mostrar carrito y totales
  pay <método> [cliente]         completar la venta
  sales                          historial de ventas
  journal [n]                    últimas ventas del diario local
  dashboard                      resumen del negocio
  summary                        resumen del diario local
  report [nombre]                exportar diario a Excel
  exit                           salir`)
}

func (t *Terminal) handleLogin(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(t.out, "Uso: login <usuario> <contraseña>")
		return
	}

	sess, err := t.sessions.Login(ctx, args[0], args[1])
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			fmt.Fprintln(t.out, "Usuario o contraseña incorrectos")
			return
		}
		fmt.Fprintf(t.out, "Error: %v\n", err)
		return
	}

	t.attach()
	fmt.Fprintf(t.out, "Hola %s (%s)\n", sess.User.Username, sess.User.Role)
}

func (t *Terminal) handleLogout(ctx context.Context, args []string) {
	t.sessions.Logout(ctx)
	t.submitter = nil
	fmt.Fprintln(t.out, "Sesión cerrada")
}

func (t *Terminal) handleProducts(ctx context.Context, args []string) {
	products, err := t.catalog.Products(ctx)
	if err != nil {
		t.fail(ctx, err)
		return
	}

	for _, p := range products {
		rate := t.standardIVARate
		if p.IVARate != nil {
			rate = decimal.NewFromFloat(*p.IVARate)
		}
		price := decimal.NewFromFloat(p.Price)
		withIVA := price.Add(price.Mul(rate).Div(decimal.NewFromInt(100)))

		marker := ""
		if p.IsLowStock || (p.MinStock > 0 && p.Stock < p.MinStock) {
			marker = "  [STOCK BAJO]"
		}
		fmt.Fprintf(t.out, "%4d  %-24s %s (+IVA %s%%: %s)  stock %d%s\n",
			p.ID, p.Name, money(price), rate.String(), money(withIVA), p.Stock, marker)
	}
}

func (t *Terminal) handleCustomers(ctx context.Context, args []string) {
	customers, err := t.catalog.Customers(ctx)
	if err != nil {
		t.fail(ctx, err)
		return
	}

	for _, c := range customers {
		fmt.Fprintf(t.out, "%4d  %s\n", c.ID, c.Name)
	}
}

func (t *Terminal) handleAdd(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(t.out, "Uso: add <producto>")
		return
	}
	productID, err := parseID(args[0])
	if err != nil {
		fmt.Fprintf(t.out, "Producto inválido: %s\n", args[0])
		return
	}

	p, err := t.catalog.FindProduct(ctx, productID)
	if err != nil {
		t.fail(ctx, err)
		return
	}

	var rate *decimal.Decimal
	if p.IVARate != nil {
		d := decimal.NewFromFloat(*p.IVARate)
		rate = &d
	}

	err = t.sessions.Cart().AddItem(p.ID, p.Name, decimal.NewFromFloat(p.Price), p.Stock, rate)
	if errors.Is(err, cart.ErrOutOfStock) {
		fmt.Fprintln(t.out, "No hay suficiente stock")
		return
	}
	if err != nil {
		fmt.Fprintf(t.out, "Error: %v\n", err)
	}
}

func (t *Terminal) handleQty(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(t.out, "Uso: qty <producto> <delta>")
		return
	}
	productID, err := parseID(args[0])
	if err != nil {
		fmt.Fprintf(t.out, "Producto inválido: %s\n", args[0])
		return
	}
	delta, err := parseDelta(args[1])
	if err != nil {
		fmt.Fprintf(t.out, "Delta inválido: %s\n", args[1])
		return
	}

	if err := t.sessions.Cart().UpdateQuantity(productID, delta); errors.Is(err, cart.ErrOutOfStock) {
		fmt.Fprintln(t.out, "No hay suficiente stock")
	}
}

func (t *Terminal) handleRemove(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(t.out, "Uso: rm <producto>")
		return
	}
	productID, err := parseID(args[0])
	if err != nil {
		fmt.Fprintf(t.out, "Producto inválido: %s\n", args[0])
		return
	}

	t.sessions.Cart().RemoveItem(productID)
}

func (t *Terminal) handleClear(ctx context.Context, args []string) {
	t.sessions.Cart().Clear()
}

func (t *Terminal) handleTotal(ctx context.Context, args []string) {
	t.renderCart()
}

func (t *Terminal) handlePay(ctx context.Context, args []string) {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(t.out, "Uso: pay <método> [cliente]")
		return
	}
	paymentMethod := args[0]

	var customerID *int64
	if len(args) == 2 {
		id, err := parseID(args[1])
		if err != nil {
			fmt.Fprintf(t.out, "Cliente inválido: %s\n", args[1])
			return
		}
		customerID = &id
	}

	sale, err := t.submitter.Submit(ctx, customerID, paymentMethod, t.sessions.Current().User.Username)
	if err != nil {
		if errors.Is(err, cart.ErrEmptyCart) {
			fmt.Fprintln(t.out, "El carrito está vacío")
			return
		}
		t.fail(ctx, err)
		return
	}

	// The backend total is authoritative; it is the only figure shown.
	fmt.Fprintf(t.out, "¡Venta #%d completada! Total: $%.2f\n", sale.ID, sale.Total)
}

func (t *Terminal) handleSales(ctx context.Context, args []string) {
	sales, err := t.api.ListSales(ctx)
	if err != nil {
		t.fail(ctx, err)
		return
	}

	for _, s := range sales {
		customer := s.Customer
		if customer == "" {
			customer = "N/A"
		}
		fmt.Fprintf(t.out, "#%-5d %-20s %-12s $%.2f  %s\n",
			s.ID, customer, s.PaymentMethod, s.Total, s.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func (t *Terminal) handleJournal(ctx context.Context, args []string) {
	if t.journal == nil {
		fmt.Fprintln(t.out, "Diario local deshabilitado")
		return
	}

	limit := 10
	if len(args) > 0 {
		n, err := parseID(args[0])
		if err != nil {
			fmt.Fprintf(t.out, "Límite inválido: %s\n", args[0])
			return
		}
		limit = int(n)
	}

	records, err := t.journal.RecentSales(ctx, limit)
	if err != nil {
		fmt.Fprintf(t.out, "Error: %v\n", err)
		return
	}

	for _, r := range records {
		customer := "N/A"
		if r.CustomerID != nil {
			customer = fmt.Sprintf("%d", *r.CustomerID)
		}
		fmt.Fprintf(t.out, "#%-5d cliente %-5s %-10s %-12s $%.2f  %s\n",
			r.SaleID, customer, r.Cashier, r.PaymentMethod, r.Total,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func (t *Terminal) handleDashboard(ctx context.Context, args []string) {
	summary, err := t.api.Dashboard(ctx)
	if err != nil {
		t.fail(ctx, err)
		return
	}

	fmt.Fprintf(t.out, "Ventas: $%.2f  Productos: %d  Clientes: %d  Proveedores: %d\n",
		summary.TotalSales, summary.TotalProducts, summary.TotalCustomers, summary.TotalSuppliers)

	products, err := t.catalog.Products(ctx)
	if err != nil {
		t.fail(ctx, err)
		return
	}

	low := catalog.LowStock(products)
	if len(low) > 0 {
		fmt.Fprintln(t.out, "Alerta de stock bajo:")
		for _, p := range low {
			fmt.Fprintf(t.out, "  %s - stock %d (min %d)\n", p.Name, p.Stock, p.MinStock)
		}
		t.alerts.LowStock(ctx, low)
	}

	for _, s := range summary.RecentSales {
		fmt.Fprintf(t.out, "Venta #%d - $%.2f (%s)\n",
			s.ID, s.Total, s.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func (t *Terminal) handleSummary(ctx context.Context, args []string) {
	if t.journal == nil {
		fmt.Fprintln(t.out, "Diario local deshabilitado")
		return
	}

	summary, err := t.journal.Summary(ctx)
	if err != nil {
		fmt.Fprintf(t.out, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(t.out, "Hoy: %d ventas $%.2f\n", summary.TodaySales, summary.TodayRevenue)
	fmt.Fprintf(t.out, "Semana: %d ventas $%.2f\n", summary.WeekSales, summary.WeekRevenue)
	fmt.Fprintf(t.out, "Mes: %d ventas $%.2f\n", summary.MonthSales, summary.MonthRevenue)
	fmt.Fprintf(t.out, "Total: %d ventas $%.2f\n", summary.TotalSales, summary.TotalRevenue)
}

func (t *Terminal) handleReport(ctx context.Context, args []string) {
	if t.journal == nil {
		fmt.Fprintln(t.out, "Diario local deshabilitado")
		return
	}

	filename := ""
	if len(args) > 0 {
		filename = args[0]
	}

	path, err := t.journal.ExportSalesToExcel(ctx, filename)
	if err != nil {
		fmt.Fprintf(t.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(t.out, "Reporte guardado en %s\n", path)
}
