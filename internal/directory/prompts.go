package directory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/iago/media-console/internal/domain"
	"github.com/iago/media-console/internal/notify"
	"github.com/iago/media-console/internal/remote"
)

// PromptStore mirrors ClientStore for prompt templates. Prompts are keyed
// by name because that is what the backend's update route expects.
type PromptStore struct {
	port     remote.PromptPort
	notifier notify.Notifier
	logger   *log.Logger
	now      func() time.Time
	prompts  *collection[domain.Prompt]
}

func NewPromptStore(port remote.PromptPort, notifier notify.Notifier, logger *log.Logger) *PromptStore {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &PromptStore{
		port:     port,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		prompts: newCollection(func(prompt domain.Prompt) string {
			return prompt.Name
		}),
	}
}

func (s *PromptStore) Refresh(ctx context.Context) error {
	ticket := s.prompts.begin()
	prompts, err := s.port.ListPrompts(ctx)
	applied := s.prompts.finish(ticket, prompts, err, s.now())
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("prompt store refresh failed ticket=%d err=%v", ticket, err)
		}
		s.notifier.Post(notify.Notification{
			Level:   notify.LevelError,
			Message: "Error loading prompts: " + remote.Message(err),
		})
		return fmt.Errorf("refresh prompts: %w", err)
	}
	if !applied && s.logger != nil {
		s.logger.Printf("prompt store refresh superseded ticket=%d", ticket)
	}
	return nil
}

func (s *PromptStore) Update(ctx context.Context, name string, patch domain.PromptPatch) error {
	if err := s.port.UpdatePrompt(ctx, name, patch); err != nil {
		if s.logger != nil {
			s.logger.Printf("prompt store update failed name=%s err=%v", name, err)
		}
		s.notifier.Post(notify.Notification{
			Level:   notify.LevelError,
			Message: "Error updating prompt: " + remote.Message(err),
		})
		return err
	}
	s.notifier.Post(notify.Notification{
		Level:   notify.LevelSuccess,
		Message: "Prompt updated successfully!",
	})
	_ = s.Refresh(ctx)
	return nil
}

// List returns prompts in the order the backend listed them.
func (s *PromptStore) List() []domain.Prompt {
	return s.prompts.list()
}

func (s *PromptStore) Get(name string) (domain.Prompt, bool) {
	return s.prompts.get(name)
}

func (s *PromptStore) Len() int {
	return s.prompts.len()
}

func (s *PromptStore) Err() error {
	return s.prompts.lastErr()
}

func (s *PromptStore) Loading() bool {
	return s.prompts.loading()
}

func (s *PromptStore) LastRefreshed() time.Time {
	return s.prompts.lastRefreshed()
}
