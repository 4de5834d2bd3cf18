// portalctl is a command-line front end for the procurement portal data
// layer. Every subcommand drives the same stores a UI would: session
// lifecycle, tender listing and submission, application fetches and
// status mutations.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/procurehub/portal-client/internal/domain/account"
	"github.com/procurehub/portal-client/internal/domain/application"
	"github.com/procurehub/portal-client/internal/domain/tender"
	"github.com/procurehub/portal-client/internal/infrastructure/config"
	"github.com/procurehub/portal-client/internal/infrastructure/httpapi"
	"github.com/procurehub/portal-client/internal/infrastructure/keystore"
	"github.com/procurehub/portal-client/internal/infrastructure/telemetry"
	"github.com/procurehub/portal-client/internal/metrics"
	"github.com/procurehub/portal-client/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	configPath := os.Getenv("PORTAL_CONFIG")
	ctx := context.Background()

	a, err := setup(ctx, configPath)
	if err != nil {
		log.Fatalf("setup failed: %v", err)
	}
	defer a.close(ctx)

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		a.logger.Debug("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: portalctl <command> [flags]

session:
  login          -email -password
  register       -name -email -password -role [-company]
  me
  update-me      [-name] [-company]
  logout

tenders:
  tenders        [-category] [-status] [-search]
  tender         -id
  create-tender  -title -description -category [-budget-min] [-budget-max] [-deadline] [-file ...]
  delete-tender  -id

applications:
  mine           [-status]
  responses      -tender
  application    -id
  apply          -tender -amount [-message]
  set-status     -id -status
  withdraw       -id

operations:
  watch          [-interval] [-addr]

Configuration comes from PORTAL_CONFIG (YAML path) and PORTAL_* env vars.`)
}

// app wires the configuration, transport, and stores behind every
// subcommand.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	provider     *telemetry.Provider
	keys         keystore.Store
	client       *httpapi.Client
	session      *store.SessionStore
	tenders      *store.TenderCache
	applications *store.ApplicationCache
}

func setup(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}

	provider, err := telemetry.Initialize(ctx, telemetry.FromAppConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	keys, err := keystore.Open(&cfg.Keystore, logger)
	if err != nil {
		return nil, fmt.Errorf("opening keystore: %w", err)
	}

	client, err := httpapi.NewClient(&cfg.API, httpapi.KeystoreTokens{Store: keys}, logger)
	if err != nil {
		return nil, err
	}

	registry, err := metrics.NewRegistry("portal-client/store")
	if err != nil {
		return nil, fmt.Errorf("initializing metrics: %w", err)
	}

	session := store.NewSessionStore(client, keys, logger)
	client.SetOnUnauthorized(session.Logout)

	return &app{
		cfg:          cfg,
		logger:       logger,
		provider:     provider,
		keys:         keys,
		client:       client,
		session:      session,
		tenders:      store.NewTenderCache(client, logger, registry),
		applications: store.NewApplicationCache(client, logger, registry),
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.keys.Close(); err != nil {
		a.logger.Warn("closing keystore", zap.Error(err))
	}
	if err := a.provider.Shutdown(ctx); err != nil {
		a.logger.Warn("shutting down telemetry", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "me":
		return a.me(ctx)
	case "update-me":
		return a.updateMe(ctx, args)
	case "logout":
		a.session.Logout()
		fmt.Println("logged out")
		return nil
	case "tenders":
		return a.listTenders(ctx, args)
	case "tender":
		return a.getTender(ctx, args)
	case "create-tender":
		return a.createTender(ctx, args)
	case "delete-tender":
		return a.deleteTender(ctx, args)
	case "mine":
		return a.mine(ctx, args)
	case "responses":
		return a.responses(ctx, args)
	case "application":
		return a.getApplication(ctx, args)
	case "apply":
		return a.apply(ctx, args)
	case "set-status":
		return a.setStatus(ctx, args)
	case "withdraw":
		return a.withdraw(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	user, err := a.session.Login(ctx, account.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	return printJSON(user)
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	role := fs.String("role", "bidder", "account role (admin, issuer, bidder)")
	company := fs.String("company", "", "company name")
	fs.Parse(args)

	user, err := a.session.Register(ctx, account.Registration{
		Name:     *name,
		Email:    *email,
		Password: *password,
		Role:     account.Role(*role),
		Company:  *company,
	})
	if err != nil {
		return err
	}
	return printJSON(user)
}

func (a *app) me(ctx context.Context) error {
	if err := a.session.Rehydrate(ctx); err != nil {
		return err
	}
	user, ok := a.session.User()
	if !ok {
		return fmt.Errorf("not logged in")
	}
	return printJSON(user)
}

func (a *app) updateMe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("update-me", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	company := fs.String("company", "", "company name")
	fs.Parse(args)

	if err := a.session.Rehydrate(ctx); err != nil {
		return err
	}
	user, err := a.session.UpdateProfile(ctx, account.ProfileUpdate{Name: *name, Company: *company})
	if err != nil {
		return err
	}
	return printJSON(user)
}

func (a *app) listTenders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tenders", flag.ExitOnError)
	category := fs.String("category", "", "filter by category")
	status := fs.String("status", "", "filter by status")
	search := fs.String("search", "", "free-text search")
	fs.Parse(args)

	a.tenders.SetFilters(tender.Filter{Category: *category, Status: *status, Search: *search})
	if err := a.tenders.FetchTenders(ctx); err != nil {
		return err
	}
	return printJSON(a.tenders.Tenders())
}

func (a *app) getTender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tender", flag.ExitOnError)
	id := fs.String("id", "", "tender id")
	fs.Parse(args)

	if err := a.tenders.FetchTender(ctx, *id); err != nil {
		return err
	}
	selected, _ := a.tenders.Selected()
	return printJSON(selected)
}

func (a *app) createTender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-tender", flag.ExitOnError)
	title := fs.String("title", "", "tender title")
	description := fs.String("description", "", "tender description")
	category := fs.String("category", "", "tender category")
	budgetMin := fs.String("budget-min", "", "minimum budget")
	budgetMax := fs.String("budget-max", "", "maximum budget")
	deadline := fs.String("deadline", "", "deadline (RFC 3339 or YYYY-MM-DD)")
	requirements := fs.String("requirements", "", "comma-separated requirements")
	var files stringList
	fs.Var(&files, "file", "document to attach (repeatable)")
	fs.Parse(args)

	draft := tender.Draft{
		Title:       *title,
		Description: *description,
		Category:    *category,
		BudgetMin:   *budgetMin,
		BudgetMax:   *budgetMax,
		Deadline:    *deadline,
	}
	if *requirements != "" {
		draft.Requirements = strings.Split(*requirements, ",")
	}

	uploads, err := readUploads(files)
	if err != nil {
		return err
	}

	created, err := a.tenders.CreateTender(ctx, draft, uploads)
	if err != nil {
		return err
	}
	return printJSON(created)
}

func (a *app) deleteTender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-tender", flag.ExitOnError)
	id := fs.String("id", "", "tender id")
	fs.Parse(args)

	if err := a.tenders.DeleteTender(ctx, *id); err != nil {
		return err
	}
	fmt.Println("deleted", *id)
	return nil
}

func (a *app) mine(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mine", flag.ExitOnError)
	status := fs.String("status", "", "filter by status")
	fs.Parse(args)

	if err := a.applications.FetchMine(ctx, application.ListParams{Status: *status}); err != nil {
		return err
	}
	return printJSON(a.applications.Mine())
}

func (a *app) responses(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("responses", flag.ExitOnError)
	tenderID := fs.String("tender", "", "tender id")
	fs.Parse(args)

	if err := a.applications.FetchByTender(ctx, *tenderID, application.ListParams{}); err != nil {
		return err
	}
	list, _ := a.applications.ByTender(*tenderID)
	return printJSON(list)
}

func (a *app) getApplication(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("application", flag.ExitOnError)
	id := fs.String("id", "", "application id")
	fs.Parse(args)

	if err := a.applications.FetchByID(ctx, *id); err != nil {
		return err
	}
	current, _ := a.applications.Current()
	return printJSON(current)
}

func (a *app) apply(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	tenderID := fs.String("tender", "", "tender id")
	amount := fs.String("amount", "", "bid amount")
	message := fs.String("message", "", "message to the issuer")
	fs.Parse(args)

	created, err := a.applications.Apply(ctx, *tenderID, application.Draft{Amount: *amount, Message: *message})
	if err != nil {
		return err
	}
	return printJSON(created)
}

func (a *app) setStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("set-status", flag.ExitOnError)
	id := fs.String("id", "", "application id")
	status := fs.String("status", "", "new status")
	fs.Parse(args)

	updated, err := a.applications.UpdateStatus(ctx, *id, application.Status(*status))
	if err != nil {
		return err
	}
	return printJSON(updated)
}

func (a *app) withdraw(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("withdraw", flag.ExitOnError)
	id := fs.String("id", "", "application id")
	fs.Parse(args)

	withdrawn, err := a.applications.Withdraw(ctx, *id)
	if err != nil {
		return err
	}
	return printJSON(withdrawn)
}

// watch polls the tender list on an interval and serves Prometheus
// metrics about the polling loop, until interrupted.
func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", 30*time.Second, "poll interval")
	addr := fs.String("addr", a.cfg.Metrics.Addr, "metrics listen address")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := serveMetrics(*addr, a.logger)
	defer srv.Shutdown(context.Background())

	a.logger.Info("watching tenders",
		zap.Duration("interval", *interval),
		zap.String("metrics_addr", *addr))

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		a.poll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *app) poll(ctx context.Context) {
	if err := a.tenders.FetchTenders(ctx); err != nil {
		pollFailures.Inc()
		a.logger.Warn("tender poll failed", zap.Error(err))
		return
	}
	polls.Inc()
	visible := a.tenders.Tenders()
	tendersVisible.Set(float64(len(visible)))
	a.logger.Info("tender poll completed", zap.Int("tenders", len(visible)))
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func readUploads(paths []string) ([]tender.Upload, error) {
	uploads := make([]tender.Upload, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading attachment: %w", err)
		}
		uploads = append(uploads, tender.Upload{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Content:     content,
		})
	}
	return uploads, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
