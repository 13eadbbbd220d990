package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/dauTT/astroport-dca/dca"
	"github.com/dauTT/astroport-dca/internal/asset"
	"github.com/dauTT/astroport-dca/internal/contexthelper"
	"github.com/dauTT/astroport-dca/internal/tasks"
	"github.com/dauTT/astroport-dca/internal/types"
)

// Simulator prices a hop route without executing it.
type Simulator interface {
	SimulateSwap(ctx context.Context, hops []types.SwapOperation, offer asset.Asset) (asset.Amount, error)
}

// WorkerService consumes purchase tasks and runs them through the engine.
type WorkerService struct {
	engine    *dca.Engine
	simulator Simulator
	logger    *logrus.Logger
	sdClient  *statsd.Client
	executor  string
}

func NewWorker(engine *dca.Engine, simulator Simulator, sdClient *statsd.Client, executor string) (*WorkerService, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is nil")
	}
	if executor == "" {
		return nil, fmt.Errorf("executor address is required")
	}

	return &WorkerService{
		engine:    engine,
		simulator: simulator,
		logger:    logrus.WithField("service", "worker").Logger,
		sdClient:  sdClient,
		executor:  executor,
	}, nil
}

func (s *WorkerService) incCounter(name string, tags []string) {
	if s.sdClient == nil {
		return
	}
	if err := s.sdClient.Count(name, 1, tags, 1); err != nil {
		s.logger.Errorf("fail to count metric, err: %v", err)
	}
}

func (s *WorkerService) measureTime(name string, start time.Time, tags []string) {
	if s.sdClient == nil {
		return
	}
	if err := s.sdClient.Timing(name, time.Since(start), tags, 1); err != nil {
		s.logger.Errorf("fail to measure time metric, err: %v", err)
	}
}

// HandlePurchase executes one due purchase. Deterministic engine rejections
// skip the retry queue: retrying them cannot succeed until the order or its
// funding changes.
func (s *WorkerService) HandlePurchase(ctx context.Context, t *asynq.Task) error {
	if err := contexthelper.CheckCancellation(ctx); err != nil {
		return err
	}
	defer s.measureTime("worker.dca.purchase.latency", time.Now(), []string{})

	var req tasks.DcaPurchaseRequest
	if err := json.Unmarshal(t.Payload(), &req); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	order, err := s.engine.GetOrder(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, dca.ErrOrderNotFound) {
			s.incCounter("worker.dca.purchase.gone", []string{})
			return fmt.Errorf("order %d gone: %w", req.OrderID, asynq.SkipRetry)
		}
		return fmt.Errorf("fail to load order %d: %w", req.OrderID, err)
	}

	hops := []types.SwapOperation{{
		Offer: order.Balance.Source.Info,
		Ask:   order.Balance.Target.Info,
	}}

	// price the route first so an unpriceable pair never burns a swap call
	spend := asset.Min(order.DcaAmount.Amount, order.Balance.Source.Amount)
	if s.simulator != nil && !spend.IsZero() {
		offer := asset.New(order.Balance.Source.Info, spend)
		expected, err := s.simulator.SimulateSwap(ctx, hops, offer)
		if err != nil {
			s.incCounter("worker.dca.purchase.simulate_failed", []string{})
			return fmt.Errorf("fail to simulate route for order %d: %w", req.OrderID, err)
		}
		s.logger.WithFields(logrus.Fields{
			"order_id": req.OrderID,
			"offer":    offer.String(),
			"expected": expected.String(),
		}).Debug("route priced")
	}

	res, err := s.engine.PerformPurchase(ctx, s.executor, req.OrderID, hops)
	if err != nil {
		if isDeterministicRejection(err) {
			s.incCounter("worker.dca.purchase.skipped", []string{})
			s.logger.WithFields(logrus.Fields{
				"order_id": req.OrderID,
				"reason":   err.Error(),
			}).Info("purchase skipped")
			return fmt.Errorf("purchase rejected: %v: %w", err, asynq.SkipRetry)
		}
		s.incCounter("worker.dca.purchase.failed", []string{})
		return fmt.Errorf("fail to perform purchase for order %d: %w", req.OrderID, err)
	}

	s.incCounter("worker.dca.purchase.executed", []string{})
	s.logger.WithFields(logrus.Fields{
		"order_id": req.OrderID,
		"spent":    res.Spent.String(),
		"received": res.Received.String(),
		"fee":      res.Fee.String(),
	}).Info("purchase executed")
	return nil
}

func isDeterministicRejection(err error) bool {
	for _, sentinel := range []error{
		dca.ErrNotYetDue,
		dca.ErrInsufficientSourceBalance,
		dca.ErrInsufficientTipBalance,
		dca.ErrInsufficientBalance,
		dca.ErrInvalidRoute,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
