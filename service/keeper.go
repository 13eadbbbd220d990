package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/dauTT/astroport-dca/internal/tasks"
	"github.com/dauTT/astroport-dca/storage"
)

// DueLister lists orders whose next purchase time has passed.
type DueLister interface {
	ListDueOrders(ctx context.Context, now int64) ([]uint64, error)
}

// KeeperService periodically sweeps the order book and enqueues a purchase
// task for every due order. Redis deduplicates attempts so a slow worker
// never receives the same order twice in a row.
type KeeperService struct {
	db          DueLister
	redis       *storage.RedisStorage
	logger      *logrus.Logger
	queueClient *asynq.Client
	cron        *cron.Cron
	schedule    string
}

func NewKeeperService(db DueLister, redis *storage.RedisStorage, queueClient *asynq.Client, schedule string) (*KeeperService, error) {
	if db == nil {
		return nil, fmt.Errorf("due lister is nil")
	}
	if schedule == "" {
		schedule = "@every 1m"
	}

	return &KeeperService{
		db:          db,
		redis:       redis,
		logger:      logrus.WithField("service", "keeper").Logger,
		queueClient: queueClient,
		cron:        cron.New(),
		schedule:    schedule,
	}, nil
}

func (s *KeeperService) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.sweep(context.Background()); err != nil {
			s.logger.Errorf("fail to sweep due orders: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("fail to schedule sweep: %w", err)
	}
	s.cron.Start()
	return nil
}

func (s *KeeperService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *KeeperService) sweep(ctx context.Context) error {
	now := time.Now().Unix()
	ids, err := s.db.ListDueOrders(ctx, now)
	if err != nil {
		return fmt.Errorf("fail to list due orders: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}
	s.logger.WithField("due_orders", len(ids)).Info("sweeping due orders")

	for _, id := range ids {
		if err := s.enqueuePurchase(ctx, id); err != nil {
			s.logger.Errorf("fail to enqueue purchase for order %d: %v", id, err)
		}
	}
	return nil
}

func (s *KeeperService) enqueuePurchase(ctx context.Context, orderID uint64) error {
	// skip orders with an attempt already in flight
	key := fmt.Sprintf("dca:attempt:%d", orderID)
	fresh, err := s.redis.SetNX(ctx, key, uuid.New().String(), 5*time.Minute)
	if err != nil {
		return fmt.Errorf("fail to mark attempt: %w", err)
	}
	if !fresh {
		return nil
	}

	buf, err := json.Marshal(tasks.DcaPurchaseRequest{OrderID: orderID})
	if err != nil {
		return fmt.Errorf("fail to marshal purchase request: %w", err)
	}

	ti, err := s.queueClient.EnqueueContext(ctx,
		asynq.NewTask(tasks.TypeDcaPurchase, buf),
		asynq.MaxRetry(0),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(10*time.Minute),
		asynq.Queue(tasks.QUEUE_NAME),
	)
	if err != nil {
		return fmt.Errorf("fail to enqueue task: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": orderID,
		"task_id":  ti.ID,
	}).Info("purchase task enqueued")
	return nil
}
