package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/amaslov/equitybot/internal/adapters/config"
	"github.com/amaslov/equitybot/pkg/logger"
)

// TelegramSink receives rendered text reports
type TelegramSink interface {
	SendReport(text string)
}

// EmailSink receives text+HTML reports
type EmailSink interface {
	Enabled() bool
	Send(subject, textBody, htmlBody string) error
}

// Scheduler runs daily and weekly report jobs on cron schedules.
// Report delivery is best-effort and never blocks trading.
type Scheduler struct {
	cron      *cron.Cron
	generator *Generator
	telegram  TelegramSink
	email     EmailSink
	now       func() time.Time
}

// NewScheduler creates report scheduler. Cron specs use the 6-field
// seconds-first format.
func NewScheduler(
	generator *Generator,
	telegram TelegramSink,
	email EmailSink,
	cfg config.ReportsConfig,
	loc *time.Location,
) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		generator: generator,
		telegram:  telegram,
		email:     email,
		now:       time.Now,
	}

	if !cfg.Enabled {
		logger.Info("report scheduler disabled")
		return s, nil
	}

	if _, err := s.cron.AddFunc(cfg.DailyCron, s.runDaily); err != nil {
		return nil, fmt.Errorf("invalid daily report schedule %q: %w", cfg.DailyCron, err)
	}
	if _, err := s.cron.AddFunc(cfg.WeeklyCron, s.runWeekly); err != nil {
		return nil, fmt.Errorf("invalid weekly report schedule %q: %w", cfg.WeeklyCron, err)
	}

	logger.Info("report scheduler initialized",
		zap.String("daily", cfg.DailyCron),
		zap.String("weekly", cfg.WeeklyCron),
	)

	return s, nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("report scheduler stopped")
}

func (s *Scheduler) runDaily() {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	s.deliver("📊 Daily Trading Report", Period{Start: start, End: now})
}

func (s *Scheduler) runWeekly() {
	now := s.now()

	s.deliver("📈 Weekly Trading Report", Period{Start: now.AddDate(0, 0, -7), End: now})
}

func (s *Scheduler) deliver(title string, period Period) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	report := s.generator.Generate(ctx, title, period)

	text, err := s.generator.RenderText(report)
	if err != nil {
		logger.Error("failed to render report", zap.String("title", title), zap.Error(err))
		return
	}

	if s.telegram != nil {
		s.telegram.SendReport(text)
	}

	if s.email != nil && s.email.Enabled() {
		html, err := s.generator.RenderHTML(report)
		if err != nil {
			logger.Warn("failed to render HTML report, sending plain text", zap.Error(err))
			html = ""
		}

		subject := fmt.Sprintf("%s - %s", report.Title, report.GeneratedAt.Format("2006-01-02"))
		if err := s.email.Send(subject, text, html); err != nil {
			logger.Error("failed to email report", zap.Error(err))
		}
	}

	logger.Info("report delivered",
		zap.String("title", title),
		zap.Int("trades", report.TotalTrades),
	)
}
