package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "dealpulse/internal/errors"
	"dealpulse/internal/underwriting"
	"dealpulse/pkg/contracts/domain"
)

func newTestService(t *testing.T) *UnderwritingService {
	t.Helper()
	return NewUnderwritingService(underwriting.NewCalculator(slog.Default()), nil, slog.Default())
}

func defaultDealJSON(t *testing.T) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(underwriting.DefaultDealInput())
	require.NoError(t, err)
	return data
}

func TestUnderwrite(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("default deal", func(t *testing.T) {
		report, err := svc.Underwrite(ctx, "Maple Court", defaultDealJSON(t))
		require.NoError(t, err)
		require.NotNil(t, report.Result)

		assert.Equal(t, "Maple Court", report.Result.DealName)
		assert.True(t, report.Result.Metrics.IRRSolved)
		assert.NotEmpty(t, report.Recommendation.Action)
		assert.NotEmpty(t, report.Recommendation.Rationale)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := svc.Underwrite(ctx, "", json.RawMessage(`{"acquisition":`))
		require.Error(t, err)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.StatusCode)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		_, err := svc.Underwrite(ctx, "", json.RawMessage(`{"purchse_price": 100}`))
		require.Error(t, err)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.StatusCode)
	})

	t.Run("engine rejection maps to 422", func(t *testing.T) {
		input := underwriting.DefaultDealInput()
		input.Acquisition.HoldYears = 0
		raw, err := json.Marshal(input)
		require.NoError(t, err)

		_, err = svc.Underwrite(ctx, "", raw)
		require.Error(t, err)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 422, apiErr.StatusCode)
	})
}

func TestRunSensitivity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("default spreads", func(t *testing.T) {
		result, err := svc.RunSensitivity(ctx, defaultDealJSON(t), nil)
		require.NoError(t, err)

		assert.Len(t, result.Grid, 5)
		assert.Len(t, result.Grid[0], 5)
		assert.Len(t, result.Budget, 5)
	})

	t.Run("custom config", func(t *testing.T) {
		cfg := json.RawMessage(`{"rent_deltas":[-0.05,0,0.05],"cap_rate_deltas":[0],"budget_deltas":[0],"max_parallel":2}`)
		result, err := svc.RunSensitivity(ctx, defaultDealJSON(t), cfg)
		require.NoError(t, err)

		assert.Len(t, result.Grid, 3)
		assert.Len(t, result.Grid[0], 1)
	})

	t.Run("bad config", func(t *testing.T) {
		_, err := svc.RunSensitivity(ctx, defaultDealJSON(t), json.RawMessage(`{"rent_deltas":"oops"}`))
		require.Error(t, err)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 400, apiErr.StatusCode)
	})
}

func TestSensitivityRunner(t *testing.T) {
	svc := newTestService(t)
	runner := svc.SensitivityRunner()

	t.Run("runs job payload", func(t *testing.T) {
		payload, err := json.Marshal(map[string]any{"deal": json.RawMessage(defaultDealJSON(t))})
		require.NoError(t, err)

		job := &domain.Job{ID: "j1", Type: domain.JobTypeSensitivity, Payload: payload}
		var reported []int
		result, err := runner(context.Background(), job, func(p int) { reported = append(reported, p) })
		require.NoError(t, err)
		require.NotEmpty(t, result)
		assert.NotEmpty(t, reported)

		var sweep underwriting.SensitivityResult
		require.NoError(t, json.Unmarshal(result, &sweep))
		assert.Len(t, sweep.Grid, 5)
	})

	t.Run("bad payload", func(t *testing.T) {
		job := &domain.Job{ID: "j2", Type: domain.JobTypeSensitivity, Payload: json.RawMessage(`not json`)}
		_, err := runner(context.Background(), job, func(int) {})
		require.Error(t, err)
	})
}

func TestRecommend(t *testing.T) {
	solid := underwriting.Metrics{
		IRRSolved:       true,
		IRR:             0.15,
		EquityMultiple:  1.8,
		MinDSCR:         1.3,
		AverageDSCR:     1.4,
		Year1CashOnCash: 0.06,
	}

	tests := []struct {
		name     string
		mutate   func(*underwriting.Metrics)
		hasDebt  bool
		expected domain.RecommendationAction
	}{
		{
			name:     "buy on solid metrics",
			mutate:   func(m *underwriting.Metrics) {},
			hasDebt:  true,
			expected: domain.ActionBuy,
		},
		{
			name: "strong buy on exceptional metrics",
			mutate: func(m *underwriting.Metrics) {
				m.IRR = 0.22
			},
			hasDebt:  true,
			expected: domain.ActionStrongBuy,
		},
		{
			name: "hold between floors",
			mutate: func(m *underwriting.Metrics) {
				m.IRR = 0.10
			},
			hasDebt:  true,
			expected: domain.ActionHold,
		},
		{
			name: "pass on unsolved irr",
			mutate: func(m *underwriting.Metrics) {
				m.IRRSolved = false
			},
			hasDebt:  true,
			expected: domain.ActionPass,
		},
		{
			name: "pass on low irr",
			mutate: func(m *underwriting.Metrics) {
				m.IRR = 0.04
			},
			hasDebt:  true,
			expected: domain.ActionPass,
		},
		{
			name: "pass on broken coverage",
			mutate: func(m *underwriting.Metrics) {
				m.MinDSCR = 0.9
			},
			hasDebt:  true,
			expected: domain.ActionPass,
		},
		{
			name: "all cash ignores dscr",
			mutate: func(m *underwriting.Metrics) {
				m.MinDSCR = 0
				m.AverageDSCR = 0
			},
			hasDebt:  false,
			expected: domain.ActionBuy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := solid
			tt.mutate(&m)

			rec := Recommend(m, tt.hasDebt)
			assert.Equal(t, tt.expected, rec.Action)
			assert.NotEmpty(t, rec.Rationale)
		})
	}
}
