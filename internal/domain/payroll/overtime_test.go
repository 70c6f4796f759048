package payroll

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatMonthlyHoursPolicy(t *testing.T) {
	assertAmount(t, "160", FlatMonthlyHoursPolicy.StandardMonthlyHours())

	hourly, err := FlatMonthlyHoursPolicy.HourlyRate(dec("5000"))
	require.NoError(t, err)
	assertAmount(t, "31.25", hourly)

	rate, err := FlatMonthlyHoursPolicy.OvertimeRate(dec("5000"))
	require.NoError(t, err)
	assertAmount(t, "46.875", rate)

	pay, err := ComputeOvertimePay(dec("5000"), dec("10"), FlatMonthlyHoursPolicy)
	require.NoError(t, err)
	assertAmount(t, "468.75", pay)
}

func TestWorkingDaysPolicyIsDistinct(t *testing.T) {
	assertAmount(t, "176", WorkingDaysPolicy.StandardMonthlyHours())

	pay, err := ComputeOvertimePay(dec("5000"), dec("10"), WorkingDaysPolicy)
	require.NoError(t, err)
	assertAmount(t, "426.14", pay.Round(2))

	flat, err := ComputeOvertimePay(dec("5000"), dec("10"), FlatMonthlyHoursPolicy)
	require.NoError(t, err)
	assert.False(t, flat.Equal(pay))
}

func TestComputeOvertimePayRejectsNegatives(t *testing.T) {
	_, err := ComputeOvertimePay(dec("-5000"), dec("10"), FlatMonthlyHoursPolicy)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ComputeOvertimePay(dec("5000"), dec("-1"), FlatMonthlyHoursPolicy)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestComputeOvertimePayRejectsBrokenPolicy(t *testing.T) {
	broken := OvertimePolicy{Name: "broken", HoursPerDay: dec("8"), Multiplier: dec("1.5")}
	_, err := ComputeOvertimePay(dec("5000"), dec("1"), broken)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSuppliedOvertimePay(t *testing.T) {
	pay, err := SuppliedOvertimePay(dec("812.40"))
	require.NoError(t, err)
	assertAmount(t, "812.4", pay)

	_, err = SuppliedOvertimePay(dec("-1"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
