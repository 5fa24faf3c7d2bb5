package server

import (
	"math"
	"strconv"
	"strings"
)

// Percent converts a raw score to a whole percentage: truncated toward zero
// and clamped to [0, 100]. NaN maps to 0.
func Percent(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v*100 >= 100:
		return 100
	case v <= 0:
		return 0
	}
	return int(v * 100)
}

// RenderTable renders scores as an HTML table fragment with 1-based indices.
func RenderTable(scores []float64) string {
	var b strings.Builder
	b.Grow(96 + 40*len(scores))
	b.WriteString("<table>\n<tr><th>Index</th><th>Churn probability (%)</th></tr>\n")
	for i, s := range scores {
		b.WriteString("<tr><td>")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("</td><td>")
		b.WriteString(strconv.Itoa(Percent(s)))
		b.WriteString("%</td></tr>\n")
	}
	b.WriteString("</table>\n")
	return b.String()
}
