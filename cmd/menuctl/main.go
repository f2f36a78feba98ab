// Command menuctl browses a tenant's menu, keeps a cart and places orders
// against a running qrmenu API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"qrmenu/internal/cache"
	"qrmenu/internal/cart"
	"qrmenu/internal/client"
	"qrmenu/internal/config"
	"qrmenu/internal/model"
	"qrmenu/internal/ordering"
	"qrmenu/internal/pricing"
)

const usage = `Usage: menuctl [flags] <command> [args]

Commands:
  menu                   show the menu with item ids
  add <itemId>           add one of an item to the cart
  set <itemId> <qty>     set a quantity, 0 removes the line
  remove <itemId>        remove a line
  clear                  empty the cart
  show                   show the cart and its totals
  channels               list the ordering channels open for this cart
  checkout <channel>     place the order (table, website or whatsapp)

Flags:
`

func main() {
	// Requests and saved carts carry prices as JSON numbers like the web menu.
	decimal.MarshalJSONWithoutQuotes = true
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	api      string
	tenant   string
	table    int
	cartDir  string
	redisURL string
	name     string
	phone    string
	keep     bool
	verbose  bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	flags := pflag.NewFlagSet("menuctl", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVar(&opts.api, "api", envOr("MENUCTL_API", "http://localhost:8080"), "API base URL")
	flags.StringVarP(&opts.tenant, "tenant", "t", os.Getenv("MENUCTL_TENANT"), "tenant username")
	flags.IntVar(&opts.table, "table", 0, "table number, 0 when not seated at a table")
	flags.StringVar(&opts.cartDir, "cart-dir", defaultCartDir(), "directory holding cart files")
	flags.StringVar(&opts.redisURL, "redis-url", "", "keep carts in Redis instead of files")
	flags.StringVar(&opts.name, "name", "", "customer name for website orders")
	flags.StringVar(&opts.phone, "phone", "", "customer phone for website orders")
	flags.BoolVar(&opts.keep, "keep", false, "keep the cart after checkout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log API calls")
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return err
	}
	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return errors.New("a command is required")
	}
	if strings.TrimSpace(opts.tenant) == "" {
		return errors.New("--tenant is required")
	}
	if opts.table < 0 {
		return errors.New("--table must not be negative")
	}

	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	api, err := client.New(opts.api, client.WithLogger(logger))
	if err != nil {
		return err
	}

	storage, closeStorage, err := openStorage(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer closeStorage()

	scope := cart.Scope{Tenant: opts.tenant, Table: opts.table}
	store, err := cart.Open(ctx, storage, scope, logger)
	if err != nil {
		return err
	}

	s := &session{out: stdout, api: api, store: store, opts: opts, logger: logger}
	return s.dispatch(ctx, rest[0], rest[1:])
}

func openStorage(ctx context.Context, opts options, logger zerolog.Logger) (cart.Storage, func(), error) {
	if opts.redisURL != "" {
		rc, err := cache.New(ctx, config.RedisConfig{
			URL:         opts.redisURL,
			Namespace:   "qm",
			PoolSize:    2,
			DialTimeout: 5 * time.Second,
			IOTimeout:   3 * time.Second,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return cart.NewRedisStorage(rc, 30*24*time.Hour), func() { _ = rc.Close() }, nil
	}

	fs, err := cart.NewFileStorage(opts.cartDir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}

type session struct {
	out    io.Writer
	api    *client.Client
	store  *cart.Store
	opts   options
	logger zerolog.Logger
	menu   *model.PublicMenu
}

func (s *session) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "menu":
		return s.printMenu(ctx)
	case "add":
		if len(args) != 1 {
			return errors.New("usage: add <itemId>")
		}
		item, err := s.findItem(ctx, args[0])
		if err != nil {
			return err
		}
		if err := s.store.AddItem(ctx, item); err != nil {
			return err
		}
		return s.printCart()
	case "set":
		if len(args) != 2 {
			return errors.New("usage: set <itemId> <qty>")
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity %q is not a number", args[1])
		}
		if err := s.store.UpdateQuantity(ctx, args[0], qty); err != nil {
			return err
		}
		return s.printCart()
	case "remove":
		if len(args) != 1 {
			return errors.New("usage: remove <itemId>")
		}
		if err := s.store.RemoveItem(ctx, args[0]); err != nil {
			return err
		}
		return s.printCart()
	case "clear":
		return s.store.Clear(ctx)
	case "show":
		return s.printCart()
	case "channels":
		return s.printChannels(ctx)
	case "checkout":
		if len(args) != 1 {
			return errors.New("usage: checkout <table|website|whatsapp>")
		}
		return s.checkout(ctx, ordering.Channel(args[0]))
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (s *session) loadMenu(ctx context.Context) (*model.PublicMenu, error) {
	if s.menu != nil {
		return s.menu, nil
	}
	menu, err := s.api.PublicMenu(ctx, s.opts.tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}
	s.menu = menu
	return menu, nil
}

func (s *session) findItem(ctx context.Context, id string) (cart.Item, error) {
	menu, err := s.loadMenu(ctx)
	if err != nil {
		return cart.Item{}, err
	}
	for _, sec := range menu.Sections {
		for _, it := range sec.Items {
			if it.ID.String() == id {
				return cart.Item{
					ItemID:              id,
					Name:                it.Name,
					UnitPrice:           it.Price,
					DiscountedUnitPrice: it.DiscountedPrice,
					ImageURL:            it.ImageURL,
				}, nil
			}
		}
	}
	return cart.Item{}, fmt.Errorf("item %s is not on the menu", id)
}

func (s *session) printMenu(ctx context.Context) error {
	menu, err := s.loadMenu(ctx)
	if err != nil {
		return err
	}
	if menu.Admin != nil && menu.Admin.WelcomeMessage != "" {
		fmt.Fprintln(s.out, menu.Admin.WelcomeMessage)
	}
	for _, sec := range menu.Sections {
		fmt.Fprintf(s.out, "== %s ==\n", sec.List.Name)
		for _, it := range sec.Items {
			price := it.Price.String()
			if it.DiscountedPrice != nil {
				price = fmt.Sprintf("%s (was %s)", it.DiscountedPrice.String(), it.Price.String())
			}
			fmt.Fprintf(s.out, "  %s  %s  %s\n", it.ID, it.Name, price)
		}
	}
	return nil
}

func (s *session) printCart() error {
	lines := s.store.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(s.out, "cart is empty")
		return nil
	}
	for _, l := range lines {
		sub := pricing.Line{UnitPrice: l.UnitPrice, DiscountedUnitPrice: l.DiscountedUnitPrice, Quantity: l.Quantity}.Subtotal()
		fmt.Fprintf(s.out, "%-24s x%-3d %s\n", l.Name, l.Quantity, sub.String())
	}
	totals := s.store.Totals()
	fmt.Fprintf(s.out, "items: %d  total: %s  saved: %s\n", s.store.Count(), totals.Price.String(), totals.Discount.String())
	return nil
}

func (s *session) tenant(ctx context.Context) (ordering.Tenant, error) {
	menu, err := s.loadMenu(ctx)
	if err != nil {
		return ordering.Tenant{}, err
	}
	if menu.Admin == nil {
		return ordering.Tenant{}, errors.New("menu has no tenant profile")
	}
	return ordering.TenantFromAdmin(menu.Admin), nil
}

func (s *session) printChannels(ctx context.Context) error {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return err
	}
	channels := ordering.AvailableChannels(tenant, s.store.Scope())
	if len(channels) > 0 {
		for _, ch := range channels {
			fmt.Fprintln(s.out, ch)
		}
		return nil
	}

	fmt.Fprintln(s.out, "ordering is closed")
	if !ordering.ShowsContactMessage(tenant, s.store.Scope()) {
		return nil
	}
	for _, seg := range ordering.ContactSegments(tenant.ContactMessage) {
		if seg.Link != "" {
			fmt.Fprintf(s.out, "%s <%s>", seg.Text, seg.Link)
			continue
		}
		fmt.Fprint(s.out, seg.Text)
	}
	fmt.Fprintln(s.out)
	return nil
}

func (s *session) checkout(ctx context.Context, channel ordering.Channel) error {
	tenant, err := s.tenant(ctx)
	if err != nil {
		return err
	}

	handOff := ordering.HandOffFunc(func(ctx context.Context, url string) error {
		_, err := fmt.Fprintf(s.out, "open WhatsApp: %s\n", url)
		return err
	})
	wf := ordering.NewWorkflow(s.store, tenant, s.api, handOff, s.logger)

	res, err := wf.Submit(ctx, channel, ordering.Customer{Name: s.opts.name, Phone: s.opts.phone})
	if err != nil {
		var verr *ordering.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("--%s is required for website orders", flagFor(verr.Field))
		}
		return err
	}

	fmt.Fprintf(s.out, "order #%s placed via %s, total %s\n", res.Order.Reference(), res.Channel, res.Order.TotalPrice.String())

	exit := ordering.ExitClearAndClose
	if s.opts.keep {
		exit = ordering.ExitCloseOnly
	}
	return wf.Close(ctx, exit)
}

func flagFor(field string) string {
	switch field {
	case "customerName":
		return "name"
	case "customerPhone":
		return "phone"
	}
	return field
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func defaultCartDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "qrmenu", "carts")
	}
	return ".qrmenu-carts"
}
