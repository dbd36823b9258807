// Package daterange convierte entre instantes UTC y límites de día en la zona horaria del negocio.
// El dominio trabaja siempre con instantes UTC; la zona solo se usa al presentar o al recibir fechas.
package daterange

import (
	"fmt"
	"time"
)

// DefaultTimezone zona usada cuando no se configura otra.
const DefaultTimezone = "America/Los_Angeles"

// Calendar días calendario en una zona horaria fija.
type Calendar struct {
	loc *time.Location
}

// New carga la zona; nombre vacío usa DefaultTimezone.
func New(timezone string) (*Calendar, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("daterange: zona %q: %w", timezone, err)
	}
	return &Calendar{loc: loc}, nil
}

// MustNew como New pero entra en pánico; para tests y valores fijos.
func MustNew(timezone string) *Calendar {
	c, err := New(timezone)
	if err != nil {
		panic(err)
	}
	return c
}

// Location zona del calendario.
func (c *Calendar) Location() *time.Location { return c.loc }

// StartOfDay medianoche local del día que contiene t, como instante UTC.
func (c *Calendar) StartOfDay(t time.Time) time.Time {
	l := t.In(c.loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, c.loc).UTC()
}

// DayRange [inicio, inicio del día siguiente) del día local que contiene t.
// En días con cambio de horario el rango no dura 24 horas.
func (c *Calendar) DayRange(t time.Time) (from, to time.Time) {
	l := t.In(c.loc)
	from = time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, c.loc)
	to = from.AddDate(0, 0, 1)
	return from.UTC(), to.UTC()
}

// ParseDate interpreta "2006-01-02" como inicio de ese día local.
func (c *Calendar) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("daterange: fecha %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatDate fecha local "2006-01-02" del instante.
func (c *Calendar) FormatDate(t time.Time) string {
	return t.In(c.loc).Format(time.DateOnly)
}

// TrailingWindow [now - days*24h, now) en UTC. Las ventanas de velocidad son de duración fija,
// no de días calendario.
func TrailingWindow(now time.Time, days int) (from, to time.Time) {
	to = now.UTC()
	from = to.Add(-time.Duration(days) * 24 * time.Hour)
	return from, to
}
