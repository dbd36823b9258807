package inventory

import (
	"math"
	"time"
)

// RunwayInfinite centinela de "sin quiebre pronosticable" (velocidad cero).
const RunwayInfinite = 999

// Ventanas de velocidad en días.
var VelocityWindows = []int{7, 14, 30}

// StockStatus clasificación de salud del stock.
type StockStatus string

const (
	StatusCritical StockStatus = "critical"
	StatusWarning  StockStatus = "warning"
	StatusHealthy  StockStatus = "healthy"
)

// Severity orden para listados: critical primero.
func (s StockStatus) Severity() int {
	switch s {
	case StatusCritical:
		return 0
	case StatusWarning:
		return 1
	}
	return 2
}

// Velocity unidades vendidas por día en la ventana; no se redondea.
func Velocity(unitsSold int64, windowDays int) float64 {
	if windowDays <= 0 || unitsSold <= 0 {
		return 0
	}
	return float64(unitsSold) / float64(windowDays)
}

// maxRunwayDays tope de representación; solo lo alcanzan velocidades ínfimas.
const maxRunwayDays = math.MaxInt32

// Runway proyección de agotamiento. Sin velocidad no hay quiebre pronosticable: Finite es false
// y Days lleva el centinela RunwayInfinite. Con velocidad positiva Days es el valor real,
// aunque supere el centinela.
type Runway struct {
	Days   int
	Finite bool
}

// ProjectRunway floor(disponible / velocidad) días.
func ProjectRunway(available int64, velocity float64) Runway {
	if velocity <= 0 || math.IsNaN(velocity) || math.IsInf(velocity, 0) {
		return Runway{Days: RunwayInfinite}
	}
	if available <= 0 {
		return Runway{Finite: true}
	}
	days := math.Floor(float64(available) / velocity)
	if days > maxRunwayDays {
		days = maxRunwayDays
	}
	return Runway{Days: int(days), Finite: true}
}

// RunwayDays atajo de ProjectRunway(...).Days.
func RunwayDays(available int64, velocity float64) int {
	return ProjectRunway(available, velocity).Days
}

// StockoutDate today + Days; nil si el runway no es finito.
// today debe ser el inicio del día en la zona de presentación (ver pkg/daterange).
func (r Runway) StockoutDate(today time.Time) *time.Time {
	if !r.Finite {
		return nil
	}
	d := today.AddDate(0, 0, r.Days)
	return &d
}

// ClassifyInput cantidades agregadas de un producto.
type ClassifyInput struct {
	Quantity  int64
	Available int64
	ParLevel  int64
	Runway    int
}

// Classify aplica la política por capas; gana la primera regla que coincide:
//  1. disponible == 0            -> critical
//  2. runway <= 7                -> critical
//  3. cantidad <= par*0.5 o runway <= 14 -> warning
//  4. cantidad <= par            -> warning
//  5. healthy
func Classify(in ClassifyInput) StockStatus {
	switch {
	case in.Available <= 0:
		return StatusCritical
	case in.Runway <= 7:
		return StatusCritical
	case 2*in.Quantity <= in.ParLevel || in.Runway <= 14:
		return StatusWarning
	case in.Quantity <= in.ParLevel:
		return StatusWarning
	}
	return StatusHealthy
}
