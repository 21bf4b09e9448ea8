package chaos_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shelfpos/internal/chaos"
	"shelfpos/internal/store/storetest"
)

func quick(exp chaos.Experiment) chaos.Experiment {
	exp.Duration = 30 * time.Millisecond
	exp.SampleEvery = 10 * time.Millisecond
	return exp
}

func TestSaleRaceHypothesisHolds(t *testing.T) {
	s := storetest.Open(t)
	engine := chaos.NewEngine(zap.NewNop())

	exp := quick(chaos.SaleRaceExperiment(s, zap.NewNop(), chaos.RaceConfig{
		Stock: 7, Buyers: 20, Quantity: 2, CommitTimeout: 5 * time.Second,
	}))
	result, err := engine.RunExperiment(context.Background(), exp)
	require.NoError(t, err)

	assert.True(t, result.SteadyStateValid)
	assert.True(t, result.HypothesisHeld, "failures: %v, errors: %v", result.Failures, result.ErrorEvents)
	assert.Empty(t, result.Violations)

	sold := result.Observations["units_sold"]
	require.NotEmpty(t, sold)
	assert.Equal(t, 6.0, sold[len(sold)-1].Value, "three pairs fit in seven units")

	items, err := s.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items, "rollback removes the seeded item")

	all, err := s.ListSales(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLockContentionTimesOut(t *testing.T) {
	s := storetest.Open(t)
	engine := chaos.NewEngine(zap.NewNop())

	exp := quick(chaos.LockContentionExperiment(s, zap.NewNop(), chaos.ContentionConfig{
		Stock: 5, CommitTimeout: 100 * time.Millisecond,
	}))
	result, err := engine.RunExperiment(context.Background(), exp)
	require.NoError(t, err)
	assert.True(t, result.HypothesisHeld, "failures: %v, errors: %v", result.Failures, result.ErrorEvents)
	assert.Empty(t, result.ErrorEvents)
}

func TestSteadyStateAbortsExperiment(t *testing.T) {
	engine := chaos.NewEngine(zap.NewNop())
	ran := false

	result, err := engine.RunExperiment(context.Background(), chaos.Experiment{
		Name: "broken",
		SteadyState: []chaos.Metric{{
			Name:      "db_up",
			Query:     func(context.Context) (float64, error) { return 0, errors.New("down") },
			Threshold: chaos.Threshold{Operator: "==", Value: 1},
		}},
		Method: []chaos.Action{{Execute: func(context.Context) error { ran = true; return nil }}},
	})
	assert.ErrorIs(t, err, chaos.ErrSteadyStateInvalid)
	assert.False(t, result.SteadyStateValid)
	assert.Len(t, result.Violations, 1)
	assert.False(t, ran, "method must not run")
}

func TestViolationsAndRecovery(t *testing.T) {
	engine := chaos.NewEngine(zap.NewNop())
	values := []float64{0, 3, 0}
	calls := 0
	metric := chaos.Metric{
		Name: "errors",
		Query: func(context.Context) (float64, error) {
			v := values[min(calls, len(values)-1)]
			calls++
			return v, nil
		},
		Threshold: chaos.Threshold{Operator: "<", Value: 1},
	}

	result, err := engine.RunExperiment(context.Background(), chaos.Experiment{
		Name:        "flapping",
		SteadyState: []chaos.Metric{metric},
		Validation: []chaos.Assertion{
			{Metric: "errors", Condition: func(v float64) bool { return v == 0 }, Message: "recovers"},
			{Metric: "missing", Condition: func(float64) bool { return true }, Message: "never observed"},
		},
		Duration:    40 * time.Millisecond,
		SampleEvery: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Violations)
	assert.Equal(t, 3.0, result.Violations[0].Actual)
	assert.NotNil(t, result.MTTR)
	assert.False(t, result.HypothesisHeld)
	assert.Equal(t, []string{"missing: no observations"}, result.Failures)
}

func TestGameDay(t *testing.T) {
	s := storetest.Open(t)
	engine := chaos.NewEngine(zap.NewNop())

	var scenarios []chaos.Experiment
	for _, exp := range chaos.Experiments(s, zap.NewNop()) {
		scenarios = append(scenarios, quick(exp))
	}

	held, err := engine.ExecuteGameDay(context.Background(), chaos.GameDay{Name: "test", Scenarios: scenarios})
	require.NoError(t, err)
	assert.True(t, held)
	assert.Len(t, engine.Results(), 2)
}
