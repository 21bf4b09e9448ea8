package chaos

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shelfpos/internal/catalog"
	"shelfpos/internal/sales"
)

// Target is the store the experiments run against. Experiments seed and
// remove their own items but the sales they commit stay in the history, so
// point them at a scratch database.
type Target interface {
	sales.Store
	CreateItem(ctx context.Context, item *catalog.Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*catalog.Item, error)
	ListItems(ctx context.Context) ([]*catalog.Item, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
}

// RaceConfig shapes the concurrent sale experiment.
type RaceConfig struct {
	Stock         int
	Buyers        int
	Quantity      int
	CommitTimeout time.Duration
}

// ContentionConfig shapes the held-lock experiment.
type ContentionConfig struct {
	Stock         int
	CommitTimeout time.Duration
}

var errLockReleased = errors.New("held lock released")

// Experiments returns the default experiment set.
func Experiments(target Target, logger *zap.Logger) []Experiment {
	return []Experiment{
		SaleRaceExperiment(target, logger, RaceConfig{Stock: 24, Buyers: 25, Quantity: 1, CommitTimeout: 5 * time.Second}),
		LockContentionExperiment(target, logger, ContentionConfig{Stock: 5, CommitTimeout: 250 * time.Millisecond}),
	}
}

// seededItem tracks the item an experiment created.
type seededItem struct {
	target Target
	stock  int
	item   *catalog.Item
}

func (s *seededItem) seed() Action {
	return Action{
		Type:   "seed-item",
		Target: "catalog",
		Execute: func(ctx context.Context) error {
			now := time.Now().UTC()
			item := &catalog.Item{
				ID:          uuid.New(),
				Name:        "chaos-" + uuid.NewString()[:8],
				BatchNumber: "chaos",
				UnitPrice:   decimal.RequireFromString("1.00"),
				OnHand:      s.stock,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.target.CreateItem(ctx, item); err != nil {
				return fmt.Errorf("seed item: %w", err)
			}
			s.item = item
			return nil
		},
	}
}

func (s *seededItem) remove() Action {
	return Action{
		Type:   "remove-item",
		Target: "catalog",
		Execute: func(ctx context.Context) error {
			if s.item == nil {
				return nil
			}
			return s.target.DeleteItem(ctx, s.item.ID)
		},
	}
}

// drift is |expected - on hand| for the seeded item, or 0 before seeding.
func (s *seededItem) drift(expected func() int) Metric {
	return Metric{
		Name: "stock_drift",
		Query: func(ctx context.Context) (float64, error) {
			if s.item == nil {
				return 0, nil
			}
			item, err := s.target.GetItem(ctx, s.item.ID)
			if err != nil {
				return 0, err
			}
			return math.Abs(float64(expected() - item.OnHand)), nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

func negativeStock(target Target) Metric {
	return Metric{
		Name: "negative_stock_items",
		Query: func(ctx context.Context) (float64, error) {
			items, err := target.ListItems(ctx)
			if err != nil {
				return 0, err
			}
			n := 0
			for _, item := range items {
				if item.OnHand < 0 {
					n++
				}
			}
			return float64(n), nil
		},
		Threshold: Threshold{Operator: "==", Value: 0},
	}
}

func counter(name string, v *atomic.Int64, threshold Threshold) Metric {
	return Metric{
		Name:      name,
		Query:     func(context.Context) (float64, error) { return float64(v.Load()), nil },
		Threshold: threshold,
	}
}

// SaleRaceExperiment fires Buyers concurrent sales at one item holding Stock
// units. Every sellable unit must be sold exactly once and the rest rejected
// as insufficient stock.
func SaleRaceExperiment(target Target, logger *zap.Logger, cfg RaceConfig) Experiment {
	if cfg.Quantity <= 0 {
		cfg.Quantity = 1
	}
	engine := sales.NewService(target, logger, sales.WithCommitTimeout(cfg.CommitTimeout))
	seeded := &seededItem{target: target, stock: cfg.Stock}

	var sold, rejected, unexpected atomic.Int64
	sellable := (cfg.Stock / cfg.Quantity) * cfg.Quantity
	if cfg.Buyers*cfg.Quantity < sellable {
		sellable = cfg.Buyers * cfg.Quantity
	}

	return Experiment{
		Name:       "concurrent-sale-race",
		Hypothesis: "Concurrent sales of one item never oversell it or leave its stock inconsistent",
		SteadyState: []Metric{
			negativeStock(target),
			seeded.drift(func() int { return cfg.Stock - int(sold.Load()) }),
			counter("units_sold", &sold, Threshold{Operator: "<=", Value: float64(cfg.Stock)}),
			counter("insufficient_stock_rejections", &rejected, Threshold{Operator: ">=", Value: 0}),
			counter("unexpected_rejections", &unexpected, Threshold{Operator: "==", Value: 0}),
		},
		Method: []Action{
			seeded.seed(),
			{
				Type:   "concurrent-sales",
				Target: "sale-engine",
				Execute: func(ctx context.Context) error {
					if seeded.item == nil {
						return errors.New("no seeded item")
					}
					start := make(chan struct{})
					var wg sync.WaitGroup
					for i := 0; i < cfg.Buyers; i++ {
						wg.Add(1)
						go func() {
							defer wg.Done()
							<-start
							_, err := engine.SubmitSale(ctx, sales.Submission{
								Cart: sales.NewCart(sales.CartLine{
									ItemID:    seeded.item.ID,
									Quantity:  cfg.Quantity,
									UnitPrice: seeded.item.UnitPrice,
								}),
							})
							switch {
							case err == nil:
								sold.Add(int64(cfg.Quantity))
							case sales.Kind(err) == "insufficient_stock":
								rejected.Add(1)
							default:
								unexpected.Add(1)
								logger.Warn("unexpected sale failure", zap.Error(err))
							}
						}()
					}
					close(start)
					wg.Wait()

					if n := unexpected.Load(); n > 0 {
						return fmt.Errorf("%d sales failed for a reason other than stock", n)
					}
					return nil
				},
			},
		},
		Rollback: []Action{seeded.remove()},
		Validation: []Assertion{
			{
				Metric:    "stock_drift",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "On-hand must equal seeded stock minus units sold",
			},
			{
				Metric:    "negative_stock_items",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "No item may go below zero",
			},
			{
				Metric:    "units_sold",
				Condition: func(v float64) bool { return v == float64(sellable) },
				Message:   "Every sellable unit should be sold exactly once",
			},
			{
				Metric:    "insufficient_stock_rejections",
				Condition: func(v float64) bool { return v == float64(cfg.Buyers-sellable/cfg.Quantity) },
				Message:   "Every buyer left without stock should see insufficient stock",
			},
			{
				Metric:    "unexpected_rejections",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Losing buyers should only see insufficient stock",
			},
		},
		Duration:    2 * time.Second,
		SampleEvery: 500 * time.Millisecond,
	}
}

// LockContentionExperiment holds an open commit on an item and submits a
// second sale for it. The blocked sale must give up with a timeout within
// the commit timeout and leave stock untouched.
func LockContentionExperiment(target Target, logger *zap.Logger, cfg ContentionConfig) Experiment {
	engine := sales.NewService(target, logger, sales.WithCommitTimeout(cfg.CommitTimeout))
	seeded := &seededItem{target: target, stock: cfg.Stock}

	var timeouts atomic.Int64

	return Experiment{
		Name:       "held-lock-contention",
		Hypothesis: "A sale blocked behind an open commit times out instead of hanging and changes nothing",
		SteadyState: []Metric{
			negativeStock(target),
			seeded.drift(func() int { return cfg.Stock }),
			counter("blocked_sale_timeouts", &timeouts, Threshold{Operator: ">=", Value: 0}),
		},
		Method: []Action{
			seeded.seed(),
			{
				Type:   "hold-lock",
				Target: "store",
				Execute: func(ctx context.Context) error {
					if seeded.item == nil {
						return errors.New("no seeded item")
					}
					acquired := make(chan struct{})
					release := make(chan struct{})
					held := make(chan error, 1)

					go func() {
						held <- target.WithinTx(ctx, func(tx sales.Tx) error {
							if err := tx.DecrementStock(ctx, seeded.item.ID, 1); err != nil {
								return err
							}
							close(acquired)
							select {
							case <-release:
							case <-ctx.Done():
							}
							return errLockReleased
						})
					}()

					select {
					case <-acquired:
					case err := <-held:
						return fmt.Errorf("hold lock: %w", err)
					}

					_, err := engine.SubmitSale(ctx, sales.Submission{
						Cart: sales.NewCart(sales.CartLine{
							ItemID:    seeded.item.ID,
							Quantity:  1,
							UnitPrice: seeded.item.UnitPrice,
						}),
					})
					close(release)
					if herr := <-held; !errors.Is(herr, errLockReleased) {
						return fmt.Errorf("held commit: %w", herr)
					}

					if kind := sales.Kind(err); kind != "timeout" {
						return fmt.Errorf("blocked sale ended with kind %q: %v", kind, err)
					}
					timeouts.Add(1)
					return nil
				},
			},
		},
		Rollback: []Action{seeded.remove()},
		Validation: []Assertion{
			{
				Metric:    "blocked_sale_timeouts",
				Condition: func(v float64) bool { return v == 1 },
				Message:   "The blocked sale should fail with a timeout",
			},
			{
				Metric:    "stock_drift",
				Condition: func(v float64) bool { return v == 0 },
				Message:   "Neither the held nor the blocked commit may change stock",
			},
		},
		Duration:    time.Second,
		SampleEvery: 250 * time.Millisecond,
	}
}
