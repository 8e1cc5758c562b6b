package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/carelink/telehealth-scheduling/internal/config"
	"github.com/carelink/telehealth-scheduling/internal/db"
	"github.com/carelink/telehealth-scheduling/internal/directory"
	"github.com/carelink/telehealth-scheduling/internal/outbox"
	"github.com/carelink/telehealth-scheduling/internal/scheduling"
	"github.com/carelink/telehealth-scheduling/internal/timeutil"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "outbox-worker").Logger()
	log.Info().Msg("outbox-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}

	log.Info().
		Str("env", cfg.Env).
		Dur("poll_interval", cfg.OutboxPollInterval).
		Int("batch_size", cfg.OutboxBatchSize).
		Msg("configured")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	eventRepo := outbox.NewPgRepository(pgPool)
	apptRepo := scheduling.NewPgRepository(pgPool)
	patients := directory.NewPgRepository(pgPool)

	var notifier outbox.Notifier
	if cfg.SMTPHost != "" {
		notifier = outbox.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, patients)
		log.Info().Str("smtp_host", cfg.SMTPHost).Msg("notifications via SMTP")
	} else {
		notifier = &outbox.LogNotifier{Log: log}
		log.Info().Msg("SMTP not configured, notifications are logged only")
	}

	dispatcher := outbox.NewDispatcher(
		eventRepo,
		&outbox.TokenMeetingLinks{BaseURL: cfg.MeetingBaseURL},
		apptRepo,
		notifier,
		log,
		cfg.OutboxBatchSize,
	)

	reminder := outbox.NewReminder(&upcomingSource{appts: apptRepo}, eventRepo, log)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("* * * * *", func() {
		runCtx, cancel := context.WithTimeout(rootCtx, 30*time.Second)
		defer cancel()
		if err := reminder.Run(runCtx); err != nil {
			log.Error().Err(err).Msg("reminder run error")
		}
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule reminder job")
	}
	scheduler.Start()
	defer scheduler.Stop()

	drain(rootCtx, dispatcher, log)

	ticker := time.NewTicker(cfg.OutboxPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping outbox worker")
			return
		case <-ticker.C:
			drain(rootCtx, dispatcher, log)
		}
	}
}

func drain(ctx context.Context, dispatcher *outbox.Dispatcher, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	sent, err := dispatcher.DispatchPending(runCtx)
	if err != nil {
		log.Error().Err(err).Msg("drain error")
		return
	}
	if sent > 0 {
		log.Info().Int("sent", sent).Dur("took", time.Since(start)).Msg("drain complete")
	}
}

// upcomingSource adapts the appointment repository to the reminder job's
// narrower view.
type upcomingSource struct {
	appts scheduling.Repository
}

func (s *upcomingSource) ConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]outbox.UpcomingAppointment, error) {
	appts, err := s.appts.ListConfirmedStartingBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]outbox.UpcomingAppointment, 0, len(appts))
	for _, a := range appts {
		out = append(out, outbox.UpcomingAppointment{
			ID:          a.ID,
			PatientID:   a.PatientID,
			PhysicianID: a.PhysicianID,
			Day:         timeutil.FormatDate(a.Day),
			StartTime:   timeutil.FormatHHMM(a.StartMin),
			EndTime:     timeutil.FormatHHMM(a.EndMin),
		})
	}
	return out, nil
}
