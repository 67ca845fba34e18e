package deduction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"padihub/internal/core/apperror"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeEffective(t *testing.T) {
	t.Run("moisture and dirt against 1000kg", func(t *testing.T) {
		lines := List{
			{Name: "moisture", Percent: d("3")},
			{Name: "dirt", Percent: d("2")},
		}

		result, err := ComputeEffective(d("1000"), lines, d("0.85"))
		require.NoError(t, err)

		assert.True(t, result.TotalDeductionPercent.Equal(d("5")))
		assert.True(t, result.EffectiveWeightKg.Equal(d("950")))
		assert.True(t, result.DeductedWeightKg.Equal(d("50")))
		assert.True(t, result.TotalAmount.Equal(d("807.50")))
	})

	t.Run("rounds half up to whole kilograms", func(t *testing.T) {
		lines := List{{Name: "moisture", Percent: d("2.5")}}

		// 999 * 0.975 = 974.025 -> 974
		result, err := ComputeEffective(d("999"), lines, d("1"))
		require.NoError(t, err)
		assert.True(t, result.EffectiveWeightKg.Equal(d("974")))

		// 990 * 0.975 = 965.25 -> 965; 998 * 0.975 = 973.05 -> 973
		result, err = ComputeEffective(d("998"), lines, d("1"))
		require.NoError(t, err)
		assert.True(t, result.EffectiveWeightKg.Equal(d("973")))
	})

	t.Run("no deductions keeps full weight", func(t *testing.T) {
		result, err := ComputeEffective(d("1500"), nil, d("0.90"))
		require.NoError(t, err)

		assert.True(t, result.TotalDeductionPercent.IsZero())
		assert.True(t, result.EffectiveWeightKg.Equal(d("1500")))
		assert.True(t, result.DeductedWeightKg.IsZero())
		assert.True(t, result.TotalAmount.Equal(d("1350.00")))
	})

	t.Run("total at or above 100 percent floors to zero", func(t *testing.T) {
		for _, pct := range []string{"100", "120"} {
			lines := List{{Name: "writeoff", Percent: d(pct)}}

			result, err := ComputeEffective(d("1000"), lines, d("0.85"))
			require.NoError(t, err)

			assert.True(t, result.EffectiveWeightKg.IsZero())
			assert.True(t, result.DeductedWeightKg.Equal(d("1000")))
			assert.True(t, result.TotalAmount.IsZero())
			assert.True(t, result.TotalDeductionPercent.Equal(d(pct)), "total percent is not capped")
		}
	})

	t.Run("zero net weight", func(t *testing.T) {
		lines := List{{Name: "moisture", Percent: d("3")}}

		result, err := ComputeEffective(decimal.Zero, lines, d("0.85"))
		require.NoError(t, err)

		assert.True(t, result.EffectiveWeightKg.IsZero())
		assert.True(t, result.TotalAmount.IsZero())
	})

	t.Run("negative inputs rejected", func(t *testing.T) {
		cases := map[string]func() (Result, error){
			"net weight": func() (Result, error) {
				return ComputeEffective(d("-1"), nil, d("0.85"))
			},
			"price": func() (Result, error) {
				return ComputeEffective(d("1000"), nil, d("-0.85"))
			},
			"percent": func() (Result, error) {
				return ComputeEffective(d("1000"), List{{Name: "moisture", Percent: d("-3")}}, d("0.85"))
			},
		}

		for name, run := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := run()
				require.Error(t, err)

				appErr, ok := apperror.AsAppError(err)
				require.True(t, ok)
				assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)
			})
		}
	})

	t.Run("deterministic across recomputation", func(t *testing.T) {
		lines := List{
			{Name: "moisture", Percent: d("3.33")},
			{Name: "immature grain", Percent: d("1.67")},
		}

		first, err := ComputeEffective(d("12345.67"), lines, d("0.8532"))
		require.NoError(t, err)

		for i := 0; i < 10; i++ {
			again, err := ComputeEffective(d("12345.67"), lines, d("0.8532"))
			require.NoError(t, err)
			assert.True(t, first.EffectiveWeightKg.Equal(again.EffectiveWeightKg))
			assert.True(t, first.TotalAmount.Equal(again.TotalAmount))
		}
	})
}
