package exporter

import (
	"math"
	"strconv"
)

// formatFloat renders a rate with at most two decimals and no trailing zeros
func formatFloat(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}
