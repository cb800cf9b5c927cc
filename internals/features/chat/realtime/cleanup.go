package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type deleteFunc func(ctx context.Context, orderID uuid.UUID) (bool, error)

// cleanupScheduler menunda penghapusan sesi chat setelah order diterima.
// Tidak ada pembatalan kalau status order berubah lagi; hanya Stop saat shutdown.
type cleanupScheduler struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[uuid.UUID]*time.Timer
	run    deleteFunc
	closed bool
}

func newCleanupScheduler(delay time.Duration, run deleteFunc) *cleanupScheduler {
	return &cleanupScheduler{
		delay:  delay,
		timers: make(map[uuid.UUID]*time.Timer),
		run:    run,
	}
}

// Schedule returns false kalau order sudah punya timer atau scheduler sudah ditutup.
func (s *cleanupScheduler) Schedule(orderID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, ok := s.timers[orderID]; ok {
		return false
	}
	s.timers[orderID] = time.AfterFunc(s.delay, func() { s.fire(orderID) })
	log.WithFields(log.Fields{"order_id": orderID, "delay": s.delay.String()}).
		Info("chat session cleanup scheduled")
	return true
}

func (s *cleanupScheduler) fire(orderID uuid.UUID) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	delete(s.timers, orderID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entry := log.WithField("order_id", orderID)
	deleted, err := s.run(ctx, orderID)
	switch {
	case err != nil:
		entry.WithError(err).Error("gagal menghapus chat session")
	case !deleted:
		entry.Info("tidak ditemukan chat session saat penghapusan")
	default:
		entry.Info("chat session dihapus setelah order diterima")
	}
}

func (s *cleanupScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *cleanupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}
