package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/harrylevesque/starseeker/internal/client"
	"github.com/harrylevesque/starseeker/internal/config"
	"github.com/harrylevesque/starseeker/internal/connectivity"
	"github.com/harrylevesque/starseeker/internal/kvstore"
	"github.com/harrylevesque/starseeker/internal/loading"
	"github.com/harrylevesque/starseeker/internal/models"
	"github.com/harrylevesque/starseeker/internal/query"
	"github.com/harrylevesque/starseeker/internal/storage"
	"github.com/harrylevesque/starseeker/internal/utils"
)

const usage = `Usage:
  starseeker [flags] <command> [args]

Commands:
  gates                              list all gates
  gate <code>                        show one gate and its links
  route <from> <to>                  cheapest route between two gates
  transport <au> [passengers] [days] transport quote for a distance
  fav <code>                         toggle a favourite gate
  favs                               list favourite gates
  recent [clear]                     recent routes, newest first
  status                             connectivity and service health

Flags:
  -api-url, -api-key, -data-dir, -store, -pg-dsn, -encrypt, -master-key,
  -log, -request-timeout, -min-loading, -retry

Config is read from $STARSEEKER_CONFIG, else config.json in
$STARSEEKER_DATA_DIR or ~/.starseeker.
`

func main() {
	cfg, err := config.Load(config.Path(os.LookupEnv))
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	cfg, args, err := cfg.ParseFlags("starseeker", os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		fmt.Print(usage)
		return
	}
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(2)
	}
	if len(args) == 0 {
		fmt.Print(usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
	err = app.run(ctx, args[0], args[1:])
	if err != nil {
		app.log.Errorf("%s failed: %v", args[0], err)
	}
	app.close()
	if err != nil {
		fmt.Println("Error:", client.Message(err))
		os.Exit(1)
	}
}

type app struct {
	log     *utils.Logger
	api     *client.Client
	store   *storage.Store
	cache   *query.Cache
	monitor *connectivity.Monitor
	spinner *spinner
	closers []func()
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	if err := utils.EnsureDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	log, err := utils.NewLogger(cfg.LogPath())
	if err != nil {
		return nil, err
	}
	a := &app{log: log, closers: []func(){log.Close}}

	kv, closeKV, err := kvstore.Open(ctx, cfg.StoreOptions())
	if err != nil {
		a.close()
		return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	a.closers = append(a.closers, closeKV)
	a.store = storage.New(kv, log)

	httpClient := &http.Client{Timeout: cfg.RequestTimeout.D()}
	a.api = client.New(httpClient, cfg.APIURL, cfg.APIKey, log)

	probe := connectivity.NewProbeSource(cfg.Probe(), cfg.ProbeInterval.D(), httpClient, log)
	a.monitor = connectivity.NewMonitor(probe, log)
	a.monitor.Start(ctx)
	a.closers = append(a.closers, a.monitor.Stop)

	a.cache = query.New(query.Options{
		StaleTime:   cfg.StaleTime.D(),
		CacheTime:   cfg.CacheTime.D(),
		Retry:       cfg.Retry,
		ShouldRetry: client.Retryable,
		Log:         log,
	})
	a.cache.Watch(a.monitor)
	if err := a.cache.Load(ctx, kv); err != nil {
		log.Warnf("starting with an empty query cache: %v", err)
	}
	a.closers = append(a.closers, func() {
		if err := a.cache.Save(context.Background(), kv); err != nil {
			log.Warnf("query cache not saved: %v", err)
		}
	})
	stopCollector := make(chan struct{})
	go a.cache.RunCollector(time.Minute, stopCollector)
	a.closers = append(a.closers, func() { close(stopCollector) })

	a.spinner = newSpinner(cfg.MinimumLoading.D())
	a.closers = append(a.closers, a.spinner.close)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "gates":
		return a.listGates(ctx)
	case "gate":
		if len(args) != 1 {
			return errors.New("usage: gate <code>")
		}
		return a.showGate(ctx, strings.ToUpper(args[0]))
	case "route":
		if len(args) != 2 {
			return errors.New("usage: route <from> <to>")
		}
		return a.route(ctx, strings.ToUpper(args[0]), strings.ToUpper(args[1]))
	case "transport":
		return a.transport(ctx, args)
	case "fav":
		if len(args) != 1 {
			return errors.New("usage: fav <code>")
		}
		return a.toggleFavourite(ctx, strings.ToUpper(args[0]))
	case "favs":
		return a.listFavourites(ctx)
	case "recent":
		if len(args) == 1 && args[0] == "clear" {
			if err := a.store.ClearRecentRoutes(ctx); err != nil {
				return err
			}
			fmt.Println("Recent routes cleared.")
			return nil
		}
		return a.listRecent(ctx)
	case "status":
		return a.status(ctx)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) gates(ctx context.Context) ([]models.Gate, error) {
	var gates []models.Gate
	err := a.spinner.load(func() (err error) {
		gates, err = query.Get(ctx, a.cache, "gates", a.api.ListGates)
		return err
	})
	return gates, err
}

func (a *app) listGates(ctx context.Context) error {
	gates, err := a.gates(ctx)
	if err != nil {
		return err
	}
	favs, err := a.store.GetFavourites(ctx)
	if err != nil {
		return err
	}
	fav := make(map[string]bool, len(favs))
	for _, c := range favs {
		fav[c] = true
	}
	for _, g := range gates {
		mark := " "
		if fav[g.Code] {
			mark = "*"
		}
		fmt.Printf("%s %-4s %-20s %d links\n", mark, g.Code, g.Name, len(g.Links))
	}
	return nil
}

func (a *app) showGate(ctx context.Context, code string) error {
	var g models.Gate
	err := a.spinner.load(func() (err error) {
		g, err = query.Get(ctx, a.cache, "gate:"+code, func(ctx context.Context) (models.Gate, error) {
			return a.api.GetGate(ctx, code)
		})
		return err
	})
	if err != nil {
		return err
	}
	isFav, err := a.store.IsFavourite(ctx, code)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", g.Name, g.Code)
	if isFav {
		fmt.Println("  favourite")
	}
	for _, l := range g.Links {
		if l.HU > 0 {
			fmt.Printf("  -> %-4s %g HU\n", l.Code, l.HU)
		} else {
			fmt.Printf("  -> %s\n", l.Code)
		}
	}
	return nil
}

func (a *app) route(ctx context.Context, from, to string) error {
	var j models.Journey
	err := a.spinner.load(func() (err error) {
		j, err = query.Get(ctx, a.cache, "route:"+from+":"+to, func(ctx context.Context) (models.Journey, error) {
			return a.api.CheapestRoute(ctx, from, to)
		})
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %s: %s\n", j.From.Name, j.To.Name, strings.Join(j.Route, " -> "))
	fmt.Printf("Total cost: £%.2f\n", j.TotalCost)

	cost := j.TotalCost
	if err := a.store.PushRecentRoute(ctx, storage.RecentRoute{
		From:      from,
		To:        to,
		SavedAt:   time.Now().UnixMilli(),
		TotalCost: &cost,
	}); err != nil {
		a.log.Warnf("could not save recent route %s->%s: %v", from, to, err)
	}
	return nil
}

// parseTransportArgs reads <au> [passengers] [days] with defaults of one
// passenger and no parking.
func parseTransportArgs(args []string) (distance float64, passengers, parking int, err error) {
	if len(args) < 1 || len(args) > 3 {
		return 0, 0, 0, errors.New("usage: transport <au> [passengers] [days]")
	}
	distance, err = strconv.ParseFloat(args[0], 64)
	if err != nil || math.IsNaN(distance) || math.IsInf(distance, 0) || distance <= 0 {
		return 0, 0, 0, errors.New("distance must be a positive number")
	}
	passengers, parking = 1, 0
	if len(args) > 1 {
		if passengers, err = strconv.Atoi(args[1]); err != nil || passengers < 1 {
			return 0, 0, 0, errors.New("passengers must be a whole number of at least 1")
		}
	}
	if len(args) > 2 {
		if parking, err = strconv.Atoi(args[2]); err != nil || parking < 0 {
			return 0, 0, 0, errors.New("parking days must be a whole number")
		}
	}
	return distance, passengers, parking, nil
}

func (a *app) transport(ctx context.Context, args []string) error {
	distance, passengers, parking, err := parseTransportArgs(args)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("transport:%g:%d:%d", distance, passengers, parking)
	var q models.TransportCost
	err = a.spinner.load(func() (err error) {
		q, err = query.Get(ctx, a.cache, key, func(ctx context.Context) (models.TransportCost, error) {
			return a.api.TransportCost(ctx, distance, passengers, parking)
		})
		return err
	})
	if err != nil {
		return err
	}
	t := q.RecommendedTransport
	fmt.Printf("Recommended: %s (%d seats, %.2f %s/AU)\n", t.Name, t.Capacity, t.RatePerAU, q.Currency)
	fmt.Printf("Journey: %.2f %s\n", q.JourneyCost, q.Currency)
	fmt.Printf("Parking: %.2f %s\n", q.ParkingFee, q.Currency)
	fmt.Printf("Total:   %.2f %s\n", q.Total(), q.Currency)
	return nil
}

func (a *app) toggleFavourite(ctx context.Context, code string) error {
	favs, err := a.store.ToggleFavourite(ctx, code)
	if err != nil {
		return err
	}
	for _, c := range favs {
		if c == code {
			fmt.Println("Added", code, "to favourites.")
			return nil
		}
	}
	fmt.Println("Removed", code, "from favourites.")
	return nil
}

func (a *app) listFavourites(ctx context.Context) error {
	favs, err := a.store.GetFavourites(ctx)
	if err != nil {
		return err
	}
	if len(favs) == 0 {
		fmt.Println("No favourite gates yet.")
		return nil
	}
	names := map[string]string{}
	if gates, err := a.gates(ctx); err == nil {
		for _, g := range gates {
			names[g.Code] = g.Name
		}
	} else {
		a.log.Warnf("gate names unavailable: %v", err)
	}
	for _, c := range favs {
		fmt.Printf("%-4s %s\n", c, names[c])
	}
	return nil
}

func (a *app) listRecent(ctx context.Context) error {
	routes, err := a.store.GetRecentRoutes(ctx)
	if err != nil {
		return err
	}
	if len(routes) == 0 {
		fmt.Println("No recent routes.")
		return nil
	}
	for _, r := range routes {
		when := time.UnixMilli(r.SavedAt).Local().Format("2006-01-02 15:04")
		cost := "-"
		if r.TotalCost != nil {
			cost = fmt.Sprintf("£%.2f", *r.TotalCost)
		}
		fmt.Printf("%s  %-4s -> %-4s %s\n", when, r.From, r.To, cost)
	}
	return nil
}

func (a *app) status(ctx context.Context) error {
	fmt.Println("API:", a.api.BaseURL())
	fmt.Println("Online:", a.monitor.Online())
	var s models.Status
	err := a.spinner.load(func() (err error) {
		s, err = query.Get(ctx, a.cache, "status", a.api.Status)
		return err
	})
	if errors.Is(err, query.ErrOffline) {
		fmt.Println("Service: unknown (offline)")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Service: version %s, database connected=%v, table access=%v\n", s.Version, s.DB.CanConnect, s.DB.HasRequiredTableAccess)
	return nil
}

// spinner shows a loading line on stderr for at least the gate's minimum.
type spinner struct {
	gate *loading.Gate
	idle chan struct{}
}

func newSpinner(minimum time.Duration) *spinner {
	s := &spinner{gate: loading.New(false, minimum), idle: make(chan struct{}, 1)}
	s.gate.OnChange(func(visible bool) {
		if visible {
			fmt.Fprint(os.Stderr, "Loading...\r")
			return
		}
		fmt.Fprint(os.Stderr, "          \r")
		select {
		case s.idle <- struct{}{}:
		default:
		}
	})
	return s
}

// load runs fn with the indicator shown and returns once it is hidden again.
func (s *spinner) load(fn func() error) error {
	select {
	case <-s.idle:
	default:
	}
	s.gate.Set(true)
	err := fn()
	s.gate.Set(false)
	if s.gate.Visible() {
		<-s.idle
	}
	return err
}

func (s *spinner) close() { s.gate.Close() }
