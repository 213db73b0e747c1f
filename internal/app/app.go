package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/bekzodm/videoquota-bot/internal/config"
	"github.com/bekzodm/videoquota-bot/internal/ledger"
	"github.com/bekzodm/videoquota-bot/internal/scheduler"
	"github.com/bekzodm/videoquota-bot/internal/store"
	"github.com/bekzodm/videoquota-bot/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
	sched   *scheduler.Scheduler
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	return &App{cfg: cfg, log: log, bot: bot, httpSrv: srv}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting videoquota-bot",
		zap.String("db", a.cfg.DBPath),
		zap.String("http", a.cfg.HTTPAddr),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	tz, err := ledger.LoadTimezones(ctx, repo, a.cfg.DefaultTZ, a.log)
	if err != nil {
		a.log.Error("load timezones failed", zap.Error(err))
		return err
	}
	led, err := ledger.Load(ctx, repo, tz, a.log)
	if err != nil {
		a.log.Error("load ledger failed", zap.Error(err))
		return err
	}
	a.log.Info("ledger loaded", zap.String("group_tz", tz.Group()))

	a.router = telegram.NewRouter(a.bot, a.log, led, tz)

	// Daily schedule in the group timezone: settlement at midnight, reminders
	// in the afternoon, jokes and motivations spread over the day.
	a.sched = scheduler.New(tz.GroupLocation, a.log, []scheduler.Job{
		{Name: "midnight_settlement", Hour: 0, Min: 0, CatchUp: true, Run: a.router.RunSettlement},
		{Name: "reminder_16", Hour: 16, Min: 0, Run: a.router.SendReminder},
		{Name: "reminder_17", Hour: 17, Min: 0, Run: a.router.SendReminder},
		{Name: "joke_morning", Hour: 10, Min: 30, Run: a.router.SendJoke},
		{Name: "joke_afternoon", Hour: 14, Min: 45, Run: a.router.SendJoke},
		{Name: "joke_evening", Hour: 19, Min: 20, Run: a.router.SendJoke},
		{Name: "motivation_morning", Hour: 8, Min: 0, Run: a.router.SendMotivation},
		{Name: "motivation_noon", Hour: 12, Min: 0, Run: a.router.SendMotivation},
		{Name: "motivation_afternoon", Hour: 15, Min: 30, Run: a.router.SendMotivation},
		{Name: "motivation_night", Hour: 21, Min: 0, Run: a.router.SendMotivation},
	})

	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.sched.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}
