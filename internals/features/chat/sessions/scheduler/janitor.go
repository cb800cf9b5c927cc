package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type SessionStore interface {
	ReceivedOrdersWithSessions(ctx context.Context, before time.Time) ([]uuid.UUID, error)
	DeleteSessionByOrderID(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// Janitor menyapu sesi chat milik order Diterima yang timer-nya hilang
// (mis. server restart sebelum cleanup jalan).
type Janitor struct {
	Store     SessionStore
	Retention time.Duration
	Schedule  string

	now func() time.Time
}

func NewJanitor(store SessionStore, retention time.Duration, schedule string) *Janitor {
	return &Janitor{Store: store, Retention: retention, Schedule: schedule, now: time.Now}
}

// Start mendaftarkan sweep ke cron dan menjalankannya. Pemanggil wajib Stop().
func (j *Janitor) Start() (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(j.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		if _, err := j.Sweep(ctx); err != nil {
			log.WithError(err).Error("[CHAT-JANITOR] sweep gagal")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("add cron %q: %w", j.Schedule, err)
	}
	log.WithFields(log.Fields{"schedule": j.Schedule, "retention": j.Retention}).Info("[CHAT-JANITOR] started")
	c.Start()
	return c, nil
}

// Sweep menghapus sesi yang order-nya sudah Diterima lebih lama dari Retention.
// Gagal hapus satu sesi tidak menghentikan sisanya.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.Retention)
	ids, err := j.Store.ReceivedOrdersWithSessions(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		ok, err := j.Store.DeleteSessionByOrderID(ctx, id)
		if err != nil {
			log.WithError(err).WithField("order_id", id).Warn("[CHAT-JANITOR] hapus sesi gagal")
			continue
		}
		if ok {
			deleted++
		}
	}
	if deleted == 0 {
		log.WithField("cutoff", cutoff.Format(time.RFC3339)).Debug("[CHAT-JANITOR] nothing to delete")
	} else {
		log.WithField("deleted", deleted).Info("[CHAT-JANITOR] sesi chat dibersihkan")
	}
	return deleted, nil
}
