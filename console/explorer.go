package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"

	"dealsmap/dealstore"
	"dealsmap/mapsync"
	"dealsmap/models"
)

// ErrExit is returned by Execute when the user asks to leave.
var ErrExit = errors.New("exit requested")

// DealFetcher loads a single deal for the detail view.
type DealFetcher interface {
	FetchByID(ctx context.Context, id int64) (*models.Deal, error)
}

// Explorer is the interactive deals map. It owns the deal store and the
// synchronizer and translates commands into calls on them.
type Explorer struct {
	store   *dealstore.Store
	details DealFetcher
	sync    *mapsync.Synchronizer
	surface *Surface
	out     io.Writer
}

// NewExplorer wires an explorer. sync must have been created on surface.
func NewExplorer(store *dealstore.Store, details DealFetcher, sync *mapsync.Synchronizer, surface *Surface, out io.Writer) *Explorer {
	return &Explorer{store: store, details: details, sync: sync, surface: surface, out: out}
}

// Start loads the deals and mounts the map.
func (e *Explorer) Start(ctx context.Context) error {
	e.reload(ctx)
	return e.show()
}

// Run reads commands until exit or end of input.
func (e *Explorer) Run(ctx context.Context, rl *readline.Instance) error {
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				fmt.Fprintln(e.out, "Use 'exit' to leave the explorer.")
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := e.Execute(ctx, line); err != nil {
			if errors.Is(err, ErrExit) {
				return nil
			}
			fmt.Fprintln(e.out, "Error:", err)
		}
	}
}

// Execute runs a single command line.
func (e *Explorer) Execute(ctx context.Context, line string) error {
	args := parseArgs(line)
	if len(args) == 0 {
		return nil
	}
	rest := strings.Join(args[1:], " ")

	switch args[0] {
	case "show":
		return e.show()
	case "hide":
		e.sync.Dispose()
		return nil
	case "category":
		e.sync.SetCategory(rest)
		e.printSummary()
		return nil
	case "filter":
		return e.setFilter(args[1:])
	case "reset":
		e.sync.SetCategory(models.AllCategories)
		e.sync.SetFilters(models.DefaultFilters())
		e.printSummary()
		return nil
	case "list":
		e.printList()
		return nil
	case "select":
		return e.selectDeal(rest)
	case "clear":
		if !e.surface.ClickBackground() {
			e.sync.ClearSelection()
		}
		return nil
	case "search":
		return e.search(ctx, rest)
	case "locate":
		return e.locate(ctx)
	case "deal":
		return e.showDeal(ctx, rest)
	case "reload":
		e.reload(ctx)
		return nil
	case "status":
		e.printStatus()
		return nil
	case "help":
		e.printHelp()
		return nil
	case "exit", "quit":
		return ErrExit
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (e *Explorer) show() error {
	if err := e.sync.Init(); err != nil {
		return fmt.Errorf("show map: %w", err)
	}
	return nil
}

func (e *Explorer) reload(ctx context.Context) {
	fmt.Fprintln(e.out, "Loading deals...")
	if err := e.store.Load(ctx); err != nil {
		fmt.Fprintln(e.out, "Failed to load deals:", err)
	}
	e.sync.SetDeals(e.store.Deals())
	e.printSummary()
}

func (e *Explorer) setFilter(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: filter <price|type|day|time> [value]")
	}
	value := strings.Join(args[1:], " ")
	_, f := e.sync.Criteria()
	switch args[0] {
	case "price":
		f.Price = value
	case "type":
		f.DealType = value
	case "day":
		f.DayOfWeek = value
	case "time":
		f.TimeOfDay = value
	default:
		return fmt.Errorf("unknown filter %q", args[0])
	}
	e.sync.SetFilters(f)
	e.printSummary()
	return nil
}

func (e *Explorer) selectDeal(arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid deal id %q", arg)
	}
	if e.sync.State() != mapsync.Ready {
		return mapsync.ErrNotReady
	}
	if !e.surface.ClickMarker(id) {
		return fmt.Errorf("deal %d: %w", id, mapsync.ErrNotVisible)
	}
	if d, ok := e.sync.Selected(); ok {
		e.printDeal(d)
	}
	return nil
}

func (e *Explorer) search(ctx context.Context, query string) error {
	place, err := e.sync.Search(ctx, query)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Found %s\n", place.Name)
	return nil
}

func (e *Explorer) locate(ctx context.Context) error {
	pos, err := e.sync.Locate(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "You are at %s\n", pos)
	return nil
}

func (e *Explorer) showDeal(ctx context.Context, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid deal id %q", arg)
	}
	d, err := e.details.FetchByID(ctx, id)
	if errors.Is(err, dealstore.ErrNotFound) {
		fmt.Fprintln(e.out, "Deal not found")
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch deal %d: %w", id, err)
	}
	e.printDeal(*d)
	return nil
}

func (e *Explorer) printSummary() {
	category, f := e.sync.Criteria()
	fmt.Fprintf(e.out, "%d of %d deals (%s, %s, %s, %s, %s)\n",
		len(e.sync.Visible()), len(e.store.Deals()), category, f.Price, f.DealType, f.DayOfWeek, f.TimeOfDay)
}

func (e *Explorer) printList() {
	visible := e.sync.Visible()
	if len(visible) == 0 {
		fmt.Fprintln(e.out, "No deals match the current filters.")
		return
	}
	selected, hasSelected := e.sync.Selected()

	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTITLE\tCATEGORY\tDAY\tPRICE\tTIME")
	for _, d := range visible {
		mark := ""
		if hasSelected && d.ID == selected.ID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			mark, d.ID, d.Title, d.CategoryName(), d.Day, formatPrice(d.Price), d.TimeWindowText())
	}
	tw.Flush()
}

func (e *Explorer) printDeal(d models.Deal) {
	fmt.Fprintf(e.out, "#%d %s\n", d.ID, d.Title)
	if d.Description != nil {
		fmt.Fprintf(e.out, "  %s\n", *d.Description)
	}
	fmt.Fprintf(e.out, "  Location: %s\n", d.Location)
	if c, err := d.Coordinate(); err == nil {
		fmt.Fprintf(e.out, "  Coordinates: %s\n", c)
	}
	if cat := d.CategoryName(); cat != "" {
		fmt.Fprintf(e.out, "  Category: %s\n", cat)
	}
	price := formatPrice(d.Price)
	if d.OriginalPrice != nil && price != "-" {
		price += " (was " + formatPrice(d.OriginalPrice) + ")"
	}
	fmt.Fprintf(e.out, "  Price: %s\n", price)
	fmt.Fprintf(e.out, "  Day: %s\n", d.Day)
	if tw := d.TimeWindowText(); tw != "" {
		fmt.Fprintf(e.out, "  Time: %s\n", tw)
	}
	if h := d.OperatingHours; h != nil {
		fmt.Fprintf(e.out, "  Hours: Mon %s-%s, Fri %s-%s, Sat %s-%s, Sun %s-%s\n",
			h.Monday.Open, h.Monday.Close, h.Friday.Open, h.Friday.Close,
			h.Saturday.Open, h.Saturday.Close, h.Sunday.Open, h.Sunday.Close)
	}
	if d.HasImages() {
		fmt.Fprintf(e.out, "  Images: %d\n", len(d.Images))
	} else {
		fmt.Fprintln(e.out, "  Images: none")
	}
}

func (e *Explorer) printStatus() {
	fmt.Fprintf(e.out, "Deals: %s (%d loaded)\n", e.store.Status(), len(e.store.Deals()))
	if err := e.store.Err(); err != nil {
		fmt.Fprintf(e.out, "Last error: %v\n", err)
	}
	fmt.Fprintf(e.out, "Map: %s, %d markers\n", e.sync.State(), len(e.sync.MarkerIDs()))
	cam := e.sync.Camera()
	fmt.Fprintf(e.out, "Camera: %s zoom %g\n", cam.Center, cam.Zoom)
	if d, ok := e.sync.Selected(); ok {
		fmt.Fprintf(e.out, "Selected: #%d %s\n", d.ID, d.Title)
	}
	if loc, ok := e.sync.UserLocation(); ok {
		fmt.Fprintf(e.out, "Location: %s\n", loc)
	}
}

func (e *Explorer) printHelp() {
	fmt.Fprint(e.out, `Commands:
  show                          mount the map
  hide                          unmount the map
  category <name>               select a category (All for every category)
  filter <price|type|day|time> [value]
                                set a dropdown filter, no value resets it
  reset                         clear the category and all filters
  list                          list the visible deals
  select <id>                   select a deal on the map
  clear                         clear the selection
  search <place>                fly to a place
  locate                        fly to your location
  deal <id>                     show a single deal
  reload                        fetch the deals again
  status                        show explorer state
  exit                          leave
`)
}

func formatPrice(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return "R" + *p
}

// parseArgs splits on spaces, keeping double-quoted text together.
func parseArgs(input string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false

	for _, r := range strings.TrimSpace(input) {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
