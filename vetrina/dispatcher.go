package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	healthgo "github.com/hellofresh/health-go/v5"

	"github.com/taldoflemis/trattoria/avvisi"
	"github.com/taldoflemis/trattoria/carrello"
	"github.com/taldoflemis/trattoria/menu"
	"github.com/taldoflemis/trattoria/ordinazione"
)

var errQuit = errors.New("quit")

type command struct {
	name  string
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

// shell reads one command per line and dispatches it to the storefront
// components.
type shell struct {
	in       *bufio.Scanner
	out      io.Writer
	cart     *carrello.Cart
	menu     *menu.Client
	flow     *ordinazione.Flow
	health   *healthgo.Health
	notifier avvisi.Notifier
	view     *terminalView
	layout   string
	loc      *time.Location

	commands []command
	byName   map[string]command
}

type shellDeps struct {
	Cart     *carrello.Cart
	Menu     *menu.Client
	Flow     *ordinazione.Flow
	Health   *healthgo.Health
	Notifier avvisi.Notifier
	View     *terminalView
	Layout   string
	Location *time.Location
}

func newShell(in io.Reader, out io.Writer, deps shellDeps) *shell {
	s := &shell{
		in:       bufio.NewScanner(in),
		out:      out,
		cart:     deps.Cart,
		menu:     deps.Menu,
		flow:     deps.Flow,
		health:   deps.Health,
		notifier: deps.Notifier,
		view:     deps.View,
		layout:   deps.Layout,
		loc:      deps.Location,
	}
	if s.loc == nil {
		s.loc = time.Local
	}

	s.commands = []command{
		{name: "help", usage: "help", help: "list commands", run: s.help},
		{name: "menu", usage: "menu [category]", help: "show the menu", run: s.showMenu},
		{name: "add", usage: "add <id>", help: "add a dish to the cart", run: s.add},
		{name: "inc", usage: "inc <id>", help: "one more of a dish", run: s.delta(1)},
		{name: "dec", usage: "dec <id>", help: "one less of a dish", run: s.delta(-1)},
		{name: "remove", usage: "remove <id>", help: "drop a dish from the cart", run: s.remove},
		{name: "clear", usage: "clear", help: "empty the cart", run: s.clear},
		{name: "cart", usage: "cart", help: "show the cart", run: s.showCart},
		{name: "deliver", usage: "deliver", help: "order for delivery", run: s.deliver},
		{name: "dinein", usage: "dinein", help: "order and book a table", run: s.dineIn},
		{name: "doctor", usage: "doctor", help: "check storage and restaurant", run: s.doctor},
		{name: "quit", usage: "quit", help: "leave", run: func(context.Context, []string) error { return errQuit }},
	}
	s.byName = make(map[string]command, len(s.commands))
	for _, c := range s.commands {
		s.byName[c.name] = c
	}
	return s
}

// Run returns nil on quit or end of input.
func (s *shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Welcome! Type help for the list of commands.")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(s.out, "> ")
		if !s.in.Scan() {
			return s.in.Err()
		}

		err := s.dispatch(ctx, s.in.Text())
		if errors.Is(err, errQuit) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

func (s *shell) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, ok := s.byName[strings.ToLower(fields[0])]
	if !ok {
		return fmt.Errorf("unknown command %q, type help", fields[0])
	}
	slog.DebugContext(ctx, "dispatching command", slog.String("command", cmd.name))
	return cmd.run(ctx, fields[1:])
}

func (s *shell) help(context.Context, []string) error {
	for _, c := range s.commands {
		fmt.Fprintf(s.out, "  %-16s %s\n", c.usage, c.help)
	}
	return nil
}

func (s *shell) showMenu(ctx context.Context, args []string) error {
	categories, err := s.menu.Fetch(ctx)
	if err != nil {
		return nil
	}
	return menu.Render(s.out, menu.Filter(categories, strings.Join(args, " ")))
}

func (s *shell) add(ctx context.Context, args []string) error {
	id, err := parseID("add", args)
	if err != nil {
		return err
	}

	item, ok := s.menu.Find(id)
	if !ok {
		if _, err := s.menu.Fetch(ctx); err != nil {
			return nil
		}
		item, ok = s.menu.Find(id)
	}
	if !ok {
		s.notifier.Notify(ctx, avvisi.LevelError, fmt.Sprintf("Dish %d is not on the menu", id))
		return nil
	}

	s.cart.AddItem(ctx, item.ID, item.Name, item.Price, item.Image)
	return nil
}

func (s *shell) delta(d int) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		name := "inc"
		if d < 0 {
			name = "dec"
		}
		id, err := parseID(name, args)
		if err != nil {
			return err
		}
		s.cart.UpdateQuantity(ctx, id, d)
		return nil
	}
}

func (s *shell) remove(ctx context.Context, args []string) error {
	id, err := parseID("remove", args)
	if err != nil {
		return err
	}
	s.cart.RemoveItem(ctx, id)
	return nil
}

func (s *shell) clear(ctx context.Context, _ []string) error {
	s.cart.Clear(ctx)
	return nil
}

func (s *shell) showCart(ctx context.Context, _ []string) error {
	s.cart.Render(ctx)
	if seats := s.view.Seats(); seats >= 0 {
		fmt.Fprintf(s.out, "Available seats: %d\n", seats)
	}
	return nil
}

func (s *shell) deliver(ctx context.Context, _ []string) error {
	var form ordinazione.DeliveryForm
	var err error
	if form.Address, err = s.ask("Delivery address"); err != nil {
		return err
	}
	if form.Phone, err = s.ask("Phone"); err != nil {
		return err
	}
	if form.Notes, err = s.ask("Notes"); err != nil {
		return err
	}

	s.flow.SubmitDelivery(ctx, form)
	return nil
}

func (s *shell) dineIn(ctx context.Context, _ []string) error {
	var form ordinazione.DineInForm
	var err error
	if form.Phone, err = s.ask("Phone"); err != nil {
		return err
	}

	when, err := s.ask("Reservation time (" + s.layout + ")")
	if err != nil {
		return err
	}
	// An unparsable time is left zero and reported as a missing field.
	if t, perr := time.ParseInLocation(s.layout, strings.TrimSpace(when), s.loc); perr == nil {
		form.ReservationTime = t
	}

	guests, err := s.ask("Guests")
	if err != nil {
		return err
	}
	form.GuestsCount, _ = strconv.Atoi(strings.TrimSpace(guests))

	if form.Notes, err = s.ask("Notes"); err != nil {
		return err
	}

	s.flow.SubmitDineIn(ctx, form)
	return nil
}

func (s *shell) doctor(ctx context.Context, _ []string) error {
	check := s.health.Measure(ctx)
	fmt.Fprintf(s.out, "status: %s\n", check.Status)

	names := make([]string, 0, len(check.Failures))
	for name := range check.Failures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s: %s\n", name, check.Failures[name])
	}
	return nil
}

func (s *shell) ask(label string) (string, error) {
	fmt.Fprintf(s.out, "%s: ", label)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.in.Text(), nil
}

func parseID(name string, args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: %s <id>", name)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("usage: %s <id>", name)
	}
	return id, nil
}
