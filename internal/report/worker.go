package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/jobs"
	"server/internal/prompt"
	"server/internal/providers/genai"
	"server/internal/providers/payment"
	"server/internal/session"
)

const dequeueTimeout = 2 * time.Second

// Generator produces the report text for a prompt and screenshots.
type Generator interface {
	GenerateReport(ctx context.Context, req genai.ReportRequest) (string, error)
}

// Config holds the payment enforcement rules.
type Config struct {
	// PaymentBypass skips payment verification entirely; for
	// non-production operation only.
	PaymentBypass bool
	// AcceptedAmounts are the charge amounts (minor units) a report may
	// cost.
	AcceptedAmounts []int64
	// Currency is the only accepted currency code, lower case.
	Currency string
}

// Worker drains the pending queue and drives each job to a terminal
// state. Steps run strictly sequentially with no automatic retries; every
// failure becomes one user-visible error message on the job record.
// Cleanup is best-effort because the store TTL is the correctness backstop.
type Worker struct {
	sessions  *session.Manager
	tracker   *jobs.Tracker
	queue     *jobs.Queue
	payments  payment.Verifier
	generator Generator
	prompts   *prompt.Library
	cfg       Config
	logger    infra.Logger
}

func NewWorker(
	sessions *session.Manager,
	tracker *jobs.Tracker,
	queue *jobs.Queue,
	payments payment.Verifier,
	generator Generator,
	prompts *prompt.Library,
	cfg Config,
	logger infra.Logger,
) *Worker {
	return &Worker{
		sessions:  sessions,
		tracker:   tracker,
		queue:     queue,
		payments:  payments,
		generator: generator,
		prompts:   prompts,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run drains the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		req, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Error().Err(err).Msg("worker: dequeue failed")
			time.Sleep(dequeueTimeout)
			continue
		}

		w.Process(ctx, req)
	}
}

// Process runs one job to a terminal state. Nothing escapes: any error or
// panic on the way down is converted into a terminal error status so a
// job is never left stuck in processing.
func (w *Worker) Process(ctx context.Context, req domain.JobRequest) {
	w.logger.Info().
		Str("job_id", req.JobID).
		Str("session_id", req.SessionID).
		Msg("worker: picked job")

	job := &domain.Job{ID: req.JobID, Status: domain.JobStatusQueued, QueuedAt: time.Now().UTC()}
	if existing, err := w.tracker.Get(ctx, req.JobID); err == nil && existing.Status == domain.JobStatusQueued {
		job = existing
	}

	defer func() {
		if r := recover(); r != nil {
			w.fail(ctx, job, fmt.Sprintf("Report generation failed: %v", r))
		}
	}()

	if err := w.tracker.MarkProcessing(ctx, job); err != nil {
		w.logger.Error().Err(err).Str("job_id", req.JobID).Msg("worker: mark processing failed")
	}

	html, reportID, sess, err := w.generate(ctx, req)
	// Assets are purged on success and on failure alike; the TTL covers
	// anything this misses.
	if sess != nil {
		w.sessions.Delete(ctx, sess.ID, sess.ScreenshotCount)
	}
	if err != nil {
		w.fail(ctx, job, err.Error())
		return
	}

	if err := w.tracker.Complete(ctx, job, reportID, html); err != nil {
		w.logger.Error().Err(err).Str("job_id", req.JobID).Msg("worker: store result failed")
		return
	}
	w.logger.Info().
		Str("job_id", req.JobID).
		Str("report_id", reportID).
		Msg("worker: job complete")
}

func (w *Worker) generate(ctx context.Context, req domain.JobRequest) (html, reportID string, sess *domain.Session, err error) {
	if err := w.verifyPayment(ctx, req.PaymentIntentID); err != nil {
		return "", "", nil, err
	}

	sess, err = w.sessions.Get(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) {
			return "", "", nil, errors.New("Session expired. Please upload your screenshots again.")
		}
		return "", "", nil, fmt.Errorf("load session: %w", err)
	}

	// Unreachable for sessions the upload handler created; guards records
	// written by anything else.
	if !domain.ValidCategory(sess.Category) {
		return "", "", sess, fmt.Errorf("invalid category %q", sess.Category)
	}

	shots, err := w.sessions.FetchScreenshots(ctx, sess.ID, sess.ScreenshotCount)
	if err != nil {
		return "", "", sess, fmt.Errorf("fetch screenshots: %w", err)
	}
	if len(shots) == 0 {
		return "", "", sess, errors.New("Session assets expired. Please upload your screenshots again.")
	}

	systemPrompt, err := w.prompts.ForCategory(sess.Category)
	if err != nil {
		return "", "", sess, err
	}

	raw, err := w.generator.GenerateReport(ctx, genai.ReportRequest{
		SystemPrompt: systemPrompt,
		Instruction:  buildInstruction(sess.Category, len(shots)),
		Screenshots:  shots,
		RequestID:    req.JobID,
	})
	if err != nil {
		return "", "", sess, fmt.Errorf("report generation: %w", err)
	}

	html = Normalize(raw)
	if html == "" {
		return "", "", sess, errors.New("report generation returned no content")
	}

	reportID, err = NewReportID()
	if err != nil {
		return "", "", sess, err
	}

	return html, reportID, sess, nil
}

func (w *Worker) verifyPayment(ctx context.Context, ref string) error {
	if w.cfg.PaymentBypass {
		w.logger.Warn().Msg("worker: payment verification bypassed")
		return nil
	}
	if ref == "" {
		return errors.New("Payment failed: missing payment reference")
	}

	intent, err := w.payments.Verify(ctx, ref)
	if err != nil {
		return fmt.Errorf("Payment verification failed: %w", err)
	}
	if intent.Status != payment.StatusSucceeded {
		return fmt.Errorf("Payment failed: status is %q", intent.Status)
	}
	if !w.amountAccepted(intent.Amount) {
		return fmt.Errorf("Payment rejected: unexpected amount %d", intent.Amount)
	}
	if intent.Currency != w.cfg.Currency {
		return fmt.Errorf("Payment rejected: unexpected currency %q", intent.Currency)
	}
	if intent.Used {
		return errors.New("Payment rejected: reference already used")
	}

	if err := w.payments.MarkUsed(ctx, ref); err != nil {
		w.logger.Warn().Err(err).Str("payment_ref", ref).Msg("worker: mark payment used failed")
	}
	return nil
}

func (w *Worker) amountAccepted(amount int64) bool {
	for _, a := range w.cfg.AcceptedAmounts {
		if amount == a {
			return true
		}
	}
	return false
}

func (w *Worker) fail(ctx context.Context, job *domain.Job, message string) {
	w.logger.Error().
		Str("job_id", job.ID).
		Str("error", message).
		Msg("worker: job failed")
	if err := w.tracker.Fail(ctx, job, message); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: store error status failed")
	}
}

func buildInstruction(category domain.Category, screenshots int) string {
	display := cases.Title(language.English).String(string(category))
	return fmt.Sprintf(
		"Analyze the attached %d screenshot(s) of this %s listing and produce the buyer intelligence report now.",
		screenshots, display,
	)
}
