// Package directory keeps local copies of the backend's client and prompt
// collections. Every mutation goes to the backend first and is followed by
// a full refresh, so the local copy never runs ahead of what the backend
// acknowledged.
package directory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/iago/media-console/internal/domain"
	"github.com/iago/media-console/internal/notify"
	"github.com/iago/media-console/internal/remote"
)

type ClientStore struct {
	port     remote.ClientPort
	notifier notify.Notifier
	logger   *log.Logger
	now      func() time.Time
	clients  *collection[domain.Client]
}

func NewClientStore(port remote.ClientPort, notifier notify.Notifier, logger *log.Logger) *ClientStore {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ClientStore{
		port:     port,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		clients: newCollection(func(client domain.Client) string {
			return client.ID
		}),
	}
}

// Refresh replaces the local mapping with the backend's collection. On
// failure the previous mapping is kept and the error is recorded.
func (s *ClientStore) Refresh(ctx context.Context) error {
	ticket := s.clients.begin()
	clients, err := s.port.ListClients(ctx)
	if err == nil {
		clients = append([]domain.Client(nil), clients...)
		sort.Slice(clients, func(i, j int) bool {
			return clients[i].ID < clients[j].ID
		})
	}
	applied := s.clients.finish(ticket, clients, err, s.now())
	if err != nil {
		s.logf("client store refresh failed ticket=%d err=%v", ticket, err)
		s.notifier.Post(notify.Notification{
			Level:   notify.LevelError,
			Message: "Error loading clients: " + remote.Message(err),
		})
		return fmt.Errorf("refresh clients: %w", err)
	}
	if !applied {
		s.logf("client store refresh superseded ticket=%d", ticket)
		return nil
	}
	s.logf("client store refreshed ticket=%d count=%d", ticket, len(clients))
	return nil
}

// Add creates the client remotely and then refreshes. The caller is
// expected to have validated the client.
func (s *ClientStore) Add(ctx context.Context, client domain.Client) error {
	if err := s.port.CreateClient(ctx, client); err != nil {
		return s.mutationFailed("adding", client.ID, err)
	}
	s.mutationSucceeded("Client added successfully!")
	s.refreshAfterWrite(ctx)
	return nil
}

func (s *ClientStore) Update(ctx context.Context, id string, patch domain.ClientPatch) error {
	if err := s.port.UpdateClient(ctx, id, patch); err != nil {
		return s.mutationFailed("updating", id, err)
	}
	s.mutationSucceeded("Client updated successfully!")
	s.refreshAfterWrite(ctx)
	return nil
}

func (s *ClientStore) Remove(ctx context.Context, id string) error {
	if err := s.port.DeleteClient(ctx, id); err != nil {
		return s.mutationFailed("deleting", id, err)
	}
	s.mutationSucceeded("Client deleted successfully!")
	s.refreshAfterWrite(ctx)
	return nil
}

// List returns the clients sorted by id.
func (s *ClientStore) List() []domain.Client {
	return s.clients.list()
}

func (s *ClientStore) Get(id string) (domain.Client, bool) {
	return s.clients.get(id)
}

func (s *ClientStore) Len() int {
	return s.clients.len()
}

// Err is the failure of the most recent applied refresh, or nil.
func (s *ClientStore) Err() error {
	return s.clients.lastErr()
}

func (s *ClientStore) Loading() bool {
	return s.clients.loading()
}

func (s *ClientStore) LastRefreshed() time.Time {
	return s.clients.lastRefreshed()
}

// refreshAfterWrite runs once the write is acknowledged. Its failure is
// already recorded and notified by Refresh; the write itself happened.
func (s *ClientStore) refreshAfterWrite(ctx context.Context) {
	_ = s.Refresh(ctx)
}

func (s *ClientStore) mutationFailed(verb, id string, err error) error {
	s.logf("client store mutation failed op=%s id=%s err=%v", verb, id, err)
	s.notifier.Post(notify.Notification{
		Level:   notify.LevelError,
		Message: fmt.Sprintf("Error %s client: %s", verb, remote.Message(err)),
	})
	return err
}

func (s *ClientStore) mutationSucceeded(message string) {
	s.notifier.Post(notify.Notification{
		Level:   notify.LevelSuccess,
		Message: message,
	})
}

func (s *ClientStore) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
