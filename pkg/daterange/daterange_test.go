package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ZonaPorDefecto(t *testing.T) {
	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimezone, c.Location().String())
}

func TestNew_ZonaInvalida(t *testing.T) {
	_, err := New("Mars/Olympus")
	assert.Error(t, err)
}

func TestStartOfDay_CruzaMedianocheUTC(t *testing.T) {
	c := MustNew("America/Los_Angeles")
	// 2024-03-01 05:00 UTC = 2024-02-29 21:00 PST
	got := c.StartOfDay(time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC), got)
}

func TestDayRange_CambioDeHorario(t *testing.T) {
	c := MustNew("America/Los_Angeles")
	// 2024-03-10: entra horario de verano, el día dura 23 horas.
	from, to := c.DayRange(time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, 23*time.Hour, to.Sub(from))
}

func TestParseAndFormatDate(t *testing.T) {
	c := MustNew("America/Los_Angeles")
	d, err := c.ParseDate("2024-07-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 4, 7, 0, 0, 0, time.UTC), d)
	assert.Equal(t, "2024-07-04", c.FormatDate(d))

	_, err = c.ParseDate("04/07/2024")
	assert.Error(t, err)
}

func TestTrailingWindow(t *testing.T) {
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	from, to := TrailingWindow(now, 7)
	assert.Equal(t, now, to)
	assert.Equal(t, time.Date(2024, 5, 13, 12, 0, 0, 0, time.UTC), from)
}
