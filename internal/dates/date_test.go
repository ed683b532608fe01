package dates

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	d, err := Parse("2025-01-15")
	require.NoError(t, err)
	assert.Equal(t, New(2025, time.January, 15), d)
	assert.Equal(t, "2025-01-15", d.String())

	_, err = Parse("15/01/2025")
	assert.Error(t, err)
	_, err = Parse("")
	assert.Error(t, err)
}

func TestDaysSince(t *testing.T) {
	due := MustParse("2025-01-10")

	assert.Equal(t, 5, MustParse("2025-01-15").DaysSince(due))
	assert.Equal(t, 0, due.DaysSince(due))
	assert.Equal(t, -3, MustParse("2025-01-07").DaysSince(due))
	// across a month and a leap day
	assert.Equal(t, 2, MustParse("2024-03-01").DaysSince(MustParse("2024-02-28")))
	// further apart than a time.Duration can hold
	assert.Equal(t, 182621, MustParse("2525-01-10").DaysSince(due))
	assert.Equal(t, -182621, due.DaysSince(MustParse("2525-01-10")))
	assert.Equal(t, 3644023, MustParse("9999-12-31").DaysSince(MustParse("0023-01-01")))
}

func TestAddDays(t *testing.T) {
	start := MustParse("2025-01-01")
	assert.Equal(t, "2025-06-30", start.AddDays(180).String())
	assert.Equal(t, "2026-01-01", start.AddDays(365).String())
	assert.Equal(t, "2027-01-01", start.AddDays(730).String())
}

func TestOfDropsTimeOfDay(t *testing.T) {
	late := time.Date(2025, 3, 4, 23, 59, 0, 0, time.FixedZone("x", 5*3600))
	assert.Equal(t, "2025-03-04", Of(late).String())
}

func TestJSON(t *testing.T) {
	type wrapper struct {
		On  Date  `json:"on"`
		Opt *Date `json:"opt"`
	}
	in := wrapper{On: MustParse("2025-02-01")}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":"2025-02-01","opt":null}`, string(b))

	var out wrapper
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, out.On.Equal(in.On))
	assert.Nil(t, out.Opt)

	assert.Error(t, json.Unmarshal([]byte(`{"on":"yesterday"}`), &out))
}

func TestScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2025-05-06", d.String())

	require.NoError(t, d.Scan([]byte("2025-05-07T00:00:00Z")))
	assert.Equal(t, "2025-05-07", d.String())

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())

	v, err := MustParse("2025-05-08").Value()
	require.NoError(t, err)
	assert.Equal(t, "2025-05-08", v)
}
