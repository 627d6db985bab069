package command

// root.go defines the root command for the librahub CLI.
// Global flags and the shared application wiring live here.

import (
	"fmt"
	"log/slog"
	"os"

	"librahub/cmd/cli/authentication"
	"librahub/database"
	"librahub/internal/api"
	"librahub/internal/config"
	"librahub/internal/push"
	"librahub/internal/session"
	"librahub/internal/storage"
	"librahub/internal/store"

	"github.com/spf13/cobra"
)

var (
	apiURL    string // global flag: override for the library service URL
	socketURL string // global flag: override for the push channel URL
	dbPath    string // global flag: override for the local state database
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "librahub",
	Short: "librahub - library reservation client",
	Long: `librahub is a client for the campus library reservation service. It keeps a
local mirror of the catalog, your favorites, reservations and notifications,
and stays in sync with the service over a live push channel. You can:
- Browse and search the book catalog
- Favorite books as a guest or signed in
- Reserve, cancel and track reservations in real time
- Receive notifications when reservations change state

Use "librahub command -h" to see all available commands.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags = available to all subcommands
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "library service URL (overrides API_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&socketURL, "socket", "", "push channel URL (overrides SOCKET_URL)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "local state database path (overrides DATABASE_URL)")
}

// app bundles the wired-up client stack shared by every subcommand.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	client  *api.Client
	store   storage.Store
	session *session.Session
	manager *push.Manager

	catalog       *store.Catalog
	favorites     *store.Favorites
	reservations  *store.Reservations
	notifications *store.Notifications
	recommender   *store.Recommender

	closers []func()
}

// newApp loads configuration, opens the local state database and wires the
// session, API client, push manager and stores together.
func newApp() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	if socketURL != "" {
		cfg.SocketURL = socketURL
	}
	if dbPath != "" {
		cfg.DatabaseURL = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	db, err := database.ConnectDB(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open local state database: %w", err)
	}

	local := authentication.NewKeyringStore(storage.NewSQLStore(db))

	client := api.NewClient(cfg.APIBaseURL,
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)

	sess := session.New(local, client, logger)
	sess.Load()

	manager := push.NewManager(cfg.SocketURL, sess, cfg.ReconnectAttempts, cfg.ReconnectDelay, logger)

	a := &app{
		cfg:           cfg,
		logger:        logger,
		client:        client,
		store:         local,
		session:       sess,
		manager:       manager,
		catalog:       store.NewCatalog(client, logger),
		favorites:     store.NewFavorites(client, local, sess, logger),
		reservations:  nil,
		notifications: store.NewNotifications(local, logger),
		recommender:   store.NewRecommender(client, sess, cfg.RecommendLimit, logger),
	}
	a.reservations = store.NewReservations(client, a.catalog, sess, logger)
	a.closers = append(a.closers, func() { db.Close() })
	return a, nil
}

func (a *app) Close() {
	a.manager.Disconnect()
	for _, closer := range a.closers {
		closer()
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
