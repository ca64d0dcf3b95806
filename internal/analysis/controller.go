// Package analysis drives the single analysis job this console tracks.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iago/media-console/internal/domain"
	"github.com/iago/media-console/internal/notify"
	"github.com/iago/media-console/internal/remote"
	"github.com/iago/media-console/internal/repository"
)

var ErrJobInFlight = errors.New("an analysis is already in progress")

const (
	progressMessage = "Analysis in progress..."
	successMessage  = "Analysis completed successfully!"
	viewReportLabel = "View report"
)

type Dependencies struct {
	Port     remote.AnalysisPort
	Notifier notify.Notifier
	History  repository.HistoryRepository
	Logger   *log.Logger
	Now      func() time.Time
}

// Controller tracks at most one locally started analysis. While it is
// pending the controller is busy and new submissions are refused.
type Controller struct {
	port     remote.AnalysisPort
	notifier notify.Notifier
	history  repository.HistoryRepository
	logger   *log.Logger
	now      func() time.Time

	mu     sync.Mutex
	state  domain.JobState
	notice notify.Token
	done   chan struct{}
}

func NewController(deps Dependencies) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Controller{
		port:     deps.Port,
		notifier: deps.Notifier,
		history:  deps.History,
		logger:   deps.Logger,
		now:      deps.Now,
		state:    domain.JobState{Phase: domain.JobPhaseIdle},
	}
}

func (c *Controller) State() domain.JobState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneState(c.state)
}

// Busy reports whether a job is pending.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Pending()
}

// Start validates the request, moves to pending and submits in the
// background. The submission outlives ctx; once sent it is not cancellable.
func (c *Controller) Start(ctx context.Context, request domain.AnalysisRequest) (domain.JobState, error) {
	state, _, err := c.start(ctx, request)
	return state, err
}

// Submit is Start followed by waiting for the job to finish. Backend
// failures are reported through the returned Failed state, not as errors.
func (c *Controller) Submit(ctx context.Context, request domain.AnalysisRequest) (domain.JobState, error) {
	_, done, err := c.start(ctx, request)
	if err != nil {
		return c.State(), err
	}
	select {
	case <-done:
		return c.State(), nil
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
}

// Wait blocks until the current job is no longer pending.
func (c *Controller) Wait(ctx context.Context) (domain.JobState, error) {
	c.mu.Lock()
	if !c.state.Pending() {
		state := cloneState(c.state)
		c.mu.Unlock()
		return state, nil
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
		return c.State(), nil
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
}

// Dismiss returns a finished job to idle.
func (c *Controller) Dismiss(ctx context.Context) (domain.JobState, error) {
	c.mu.Lock()
	if c.state.Pending() {
		c.mu.Unlock()
		return domain.JobState{}, ErrJobInFlight
	}
	previous := c.state
	c.state = domain.JobState{Phase: domain.JobPhaseIdle}
	c.notice = ""
	c.mu.Unlock()

	if previous.Phase != domain.JobPhaseIdle {
		c.logf("analysis transition token=%s from=%s to=%s", previous.Token, previous.Phase, domain.JobPhaseIdle)
		dismissed := previous
		dismissed.Phase = domain.JobPhaseIdle
		c.record(ctx, dismissed)
	}
	return domain.JobState{Phase: domain.JobPhaseIdle}, nil
}

func (c *Controller) start(ctx context.Context, request domain.AnalysisRequest) (domain.JobState, <-chan struct{}, error) {
	request = request.Normalized()
	if err := request.Validate(); err != nil {
		return domain.JobState{}, nil, err
	}

	c.mu.Lock()
	if c.state.Pending() {
		c.mu.Unlock()
		return domain.JobState{}, nil, ErrJobInFlight
	}

	previous := c.state.Phase
	state := domain.JobState{
		Phase:         domain.JobPhasePending,
		Token:         uuid.NewString(),
		ClientID:      request.ClientID,
		AnalysisMonth: request.Month(),
		Metrics:       request.SelectedMetrics,
		StartedAt:     c.now(),
	}
	done := make(chan struct{})
	c.state = state
	c.done = done
	c.notice = ""
	c.mu.Unlock()

	// The job is only submitted below, so nothing can finish it before the
	// progress token is stored.
	notice := c.notifier.Start(notify.Notification{
		Level:   notify.LevelInfo,
		Message: progressMessage,
		Sticky:  true,
	})
	c.mu.Lock()
	if c.state.Token == state.Token {
		c.notice = notice
	}
	c.mu.Unlock()

	c.logf("analysis transition token=%s from=%s to=%s client_id=%s month=%s", state.Token, previous, state.Phase, state.ClientID, state.AnalysisMonth)
	c.record(ctx, state)

	go c.run(context.WithoutCancel(ctx), state.Token, request)
	return cloneState(state), done, nil
}

func (c *Controller) run(ctx context.Context, token string, request domain.AnalysisRequest) {
	var err error
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("analysis submission panicked: %v", recovered)
		}
		c.finish(ctx, token, err)
	}()

	_, err = c.port.SubmitAnalysis(ctx, request)
}

func (c *Controller) finish(ctx context.Context, token string, err error) {
	c.mu.Lock()
	if c.state.Token != token || !c.state.Pending() {
		c.mu.Unlock()
		return
	}

	state := c.state
	state.FinishedAt = c.now()
	notification := notify.Notification{}
	if err != nil {
		state.Phase = domain.JobPhaseFailed
		state.Reason = remote.Message(err)
		notification.Level = notify.LevelError
		notification.Message = "Error starting analysis: " + state.Reason
	} else {
		state.Phase = domain.JobPhaseSucceeded
		notification.Level = notify.LevelSuccess
		notification.Message = successMessage
		notification.Action = &notify.Action{Label: viewReportLabel, Report: state.ReportRef()}
	}
	c.state = state
	notice := c.notice
	done := c.done
	c.mu.Unlock()
	defer close(done)

	c.notifier.Update(notice, notification)

	if err != nil {
		c.logf("analysis transition token=%s from=pending to=%s err=%v", token, state.Phase, err)
	} else {
		c.logf("analysis transition token=%s from=pending to=%s", token, state.Phase)
	}
	c.record(ctx, state)
}

// record appends to the run history. Failures never change the job outcome.
func (c *Controller) record(ctx context.Context, state domain.JobState) {
	if c.history == nil {
		return
	}
	entry := repository.HistoryEntry{
		ID:            uuid.NewString(),
		Token:         state.Token,
		ClientID:      state.ClientID,
		AnalysisMonth: state.AnalysisMonth,
		Phase:         state.Phase,
		Reason:        state.Reason,
		Metrics:       state.Metrics,
		RecordedAt:    c.now(),
	}
	if err := c.history.Record(context.WithoutCancel(ctx), entry); err != nil {
		c.logf("analysis history record failed token=%s phase=%s err=%v", state.Token, state.Phase, err)
	}
}

func (c *Controller) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

func cloneState(state domain.JobState) domain.JobState {
	state.Metrics = append([]string(nil), state.Metrics...)
	return state
}
