package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	sqliteadapter "github.com/LeviathanIsI/barkbase-sub006/internal/adapters/db/sqlite"
	httpadapter "github.com/LeviathanIsI/barkbase-sub006/internal/adapters/http"
	"github.com/LeviathanIsI/barkbase-sub006/internal/adapters/notify"
	rpcadapter "github.com/LeviathanIsI/barkbase-sub006/internal/adapters/rpcjson"
	"github.com/LeviathanIsI/barkbase-sub006/internal/application"
	"github.com/LeviathanIsI/barkbase-sub006/internal/domain"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "barkbase-props",
		Usage: "Property dependency graph and lifecycle server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			migrateCommand(),
			sweepCommand(),
			depsCommand(),
			graphCommand(),
			impactCommand(),
			auditCommand(),
			cascadeCommand(),
			lifecycleCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "HTTP listen address", Sources: cli.EnvVars("BARKBASE_ADDR")},
			&cli.StringFlag{Name: "rpc-socket", Value: "/tmp/barkbase-props.sock", Usage: "JSON-RPC unix socket path", Sources: cli.EnvVars("BARKBASE_RPC_SOCKET")},
			&cli.StringFlag{Name: "db-path", Value: "barkbase-props.db", Usage: "SQLite database path", Sources: cli.EnvVars("BARKBASE_DB_PATH")},
			&cli.DurationFlag{Name: "sweep-interval", Value: 24 * time.Hour, Usage: "archival sweep interval, 0 disables", Sources: cli.EnvVars("BARKBASE_SWEEP_INTERVAL")},
			&cli.StringFlag{Name: "smtp-host", Usage: "SMTP host for archive notices, empty disables mail", Sources: cli.EnvVars("BARKBASE_SMTP_HOST")},
			&cli.IntFlag{Name: "smtp-port", Value: 587, Sources: cli.EnvVars("BARKBASE_SMTP_PORT")},
			&cli.StringFlag{Name: "smtp-user", Sources: cli.EnvVars("BARKBASE_SMTP_USER")},
			&cli.StringFlag{Name: "smtp-password", Sources: cli.EnvVars("BARKBASE_SMTP_PASSWORD")},
			&cli.StringFlag{Name: "smtp-from", Value: "noreply@barkbase.local", Sources: cli.EnvVars("BARKBASE_SMTP_FROM")},
			&cli.StringFlag{Name: "admin-email", Usage: "address receiving archive notices", Sources: cli.EnvVars("BARKBASE_ADMIN_EMAIL")},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServer(ctx, serverConfig{
				addr:          c.String("addr"),
				rpcSocket:     c.String("rpc-socket"),
				dbPath:        c.String("db-path"),
				sweepInterval: c.Duration("sweep-interval"),
				smtpHost:      c.String("smtp-host"),
				smtpPort:      c.Int("smtp-port"),
				smtpUser:      c.String("smtp-user"),
				smtpPassword:  c.String("smtp-password"),
				smtpFrom:      c.String("smtp-from"),
				adminEmail:    c.String("admin-email"),
			})
		},
	}
}

type serverConfig struct {
	addr          string
	rpcSocket     string
	dbPath        string
	sweepInterval time.Duration
	smtpHost      string
	smtpPort      int
	smtpUser      string
	smtpPassword  string
	smtpFrom      string
	adminEmail    string
}

func buildEngine(ctx context.Context, dbPath string, notifier domain.Notifier) (*application.Engine, error) {
	db, err := sqliteadapter.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return nil, err
	}
	if err := sqliteadapter.ValidateObjectTables(db); err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return application.NewEngine(sqliteadapter.NewRepository(db), notifier, logger), nil
}

func runServer(ctx context.Context, cfg serverConfig) error {
	var notifier domain.Notifier = notify.Nop{}
	if cfg.smtpHost != "" {
		notifier = notify.NewMailer(cfg.smtpHost, cfg.smtpPort, cfg.smtpUser, cfg.smtpPassword, cfg.smtpFrom,
			notify.StaticDirectory{Email: cfg.adminEmail})
	}

	engine, err := buildEngine(ctx, cfg.dbPath, notifier)
	if err != nil {
		return err
	}

	router := httpadapter.NewRouter(engine)
	srv := &http.Server{Addr: cfg.addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.rpcSocket, engine)
	if err != nil {
		return err
	}
	defer func() {
		_ = rpcSrv.Close()
	}()
	log.Printf("json-rpc listening on unix://%s", cfg.rpcSocket)

	sweepDone := make(chan struct{})
	if cfg.sweepInterval > 0 {
		ticker := time.NewTicker(cfg.sweepInterval)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if _, err := engine.ArchiveSweep(ctx); err != nil {
						log.Printf("archive sweep: %v", err)
					}
					if _, err := engine.PurgeExpired(ctx, sweepActor); err != nil {
						log.Printf("retention purge: %v", err)
					}
				case <-sweepDone:
					return
				}
			}
		}()
	}
	defer close(sweepDone)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply database migrations and exit",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db-path", Value: "barkbase-props.db", Sources: cli.EnvVars("BARKBASE_DB_PATH")},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			db, err := sqliteadapter.Open(c.String("db-path"))
			if err != nil {
				return err
			}
			if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
				return err
			}
			return sqliteadapter.ValidateObjectTables(db)
		},
	}
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Run the archival sweep once against the database directly",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db-path", Value: "barkbase-props.db", Sources: cli.EnvVars("BARKBASE_DB_PATH")},
			&cli.BoolFlag{Name: "purge", Usage: "also purge archives past retention"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			engine, err := buildEngine(ctx, c.String("db-path"), notify.Nop{})
			if err != nil {
				return err
			}
			report, err := engine.ArchiveSweep(ctx)
			if err != nil {
				return err
			}
			if c.Bool("purge") {
				purged, err := engine.PurgeExpired(ctx, sweepActor)
				if err != nil {
					return err
				}
				log.Printf("purged %d expired archives", purged)
			}
			if c.Bool("json") {
				return printJSON(report)
			}
			printSweepReport(report)
			return nil
		},
	}
}
