package vipps

import "math"

// ToMinorUnits convierte un monto en unidades mayores (NOK) a øre, redondeando.
func ToMinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}

// FromMinorUnits convierte øre a unidades mayores.
func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}
