package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/healthdesk/healthdesk-platform/internal/accounts"
	"github.com/healthdesk/healthdesk-platform/internal/config"
	"github.com/healthdesk/healthdesk-platform/internal/notify"
	"github.com/healthdesk/healthdesk-platform/internal/observability/metrics"
	"github.com/healthdesk/healthdesk-platform/internal/reminders"
	"github.com/healthdesk/healthdesk-platform/internal/reporting"
	"github.com/healthdesk/healthdesk-platform/internal/tasks"
	"github.com/healthdesk/healthdesk-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.DatabaseURL == "" {
		logger.Error("scheduler requires DATABASE_URL")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var sender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		sender = sg
	} else {
		logger.Warn("sendgrid not configured, reminders will be logged only")
		sender = notify.NewStubEmailSender(logger)
	}

	loc := cfg.BusinessLocation()
	lead := time.Duration(cfg.ReminderLeadHours) * time.Hour

	directory := accounts.NewService(accounts.NewStore(pool), nil, 0, logger)
	reminderWorker := reminders.NewWorker(
		reminders.NewStore(pool), sender, loc, lead,
		metrics.NewReminderMetrics(nil), logger)
	reportService := reporting.NewService(
		reporting.NewStore(pool), directory, nil, cfg.ReportCacheTTL,
		metrics.NewReportingMetrics(nil), logger)

	runner := tasks.New(reminderWorker, reportService, directory, sender, logger)

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(cfg.ReminderCronSpec, func() {
		if err := runner.RunDailyReminders(ctx); err != nil {
			logger.Error("daily reminder run failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid reminder cron spec", "spec", cfg.ReminderCronSpec, "error", err)
		os.Exit(1)
	}
	if _, err := c.AddFunc(cfg.ReportCronSpec, func() {
		if err := runner.RunMonthlyReports(ctx); err != nil {
			logger.Error("monthly report run failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid report cron spec", "spec", cfg.ReportCronSpec, "error", err)
		os.Exit(1)
	}

	c.Start()
	logger.Info("scheduler started",
		"reminder_cron", cfg.ReminderCronSpec,
		"report_cron", cfg.ReportCronSpec,
		"timezone", loc.String())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("scheduler shutting down")
	cancel()
	<-c.Stop().Done()
}
