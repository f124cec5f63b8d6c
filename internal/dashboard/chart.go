package dashboard

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"planner/internal/cache"
	"planner/internal/core"
)

// Format selects the chart encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ContentType returns the HTTP content type for f.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

var (
	budgetColor = drawing.ColorFromHex("93c5fd")
	spentColor  = drawing.ColorFromHex("3b82f6")
	gridColor   = drawing.ColorFromHex("e5e7eb")
	labelColor  = drawing.ColorFromHex("374151")
)

// RenderChart draws the budget and spent bars side by side for every row.
func RenderChart(rows []CategoryRow, format Format) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("render chart: no rows")
	}

	bars := make([]chart.Value, 0, len(rows)*2)
	for _, r := range rows {
		bars = append(bars,
			chart.Value{
				Label: r.Name,
				Value: r.Budget.Float(),
				Style: chart.Style{FillColor: budgetColor, StrokeColor: budgetColor},
			},
			chart.Value{
				Label: "",
				Value: r.Spent.Float(),
				Style: chart.Style{FillColor: spentColor, StrokeColor: spentColor},
			},
		)
	}

	graph := chart.BarChart{
		Width:      960,
		Height:     320,
		BarWidth:   40,
		BarSpacing: 12,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    20,
				Left:   20,
				Right:  30,
				Bottom: 5,
			},
			FillColor: chart.ColorWhite,
		},
		XAxis: chart.Style{
			FontSize:  10,
			FontColor: labelColor,
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return core.FormatDollars(int64(f * 100))
				}
				return ""
			},
			Style: chart.Style{
				FontSize:  10,
				FontColor: labelColor,
			},
			GridMajorStyle: chart.Style{
				StrokeColor:     gridColor,
				StrokeWidth:     1,
				StrokeDashArray: []float64{3.0, 3.0},
			},
		},
		Bars: bars,
	}

	var provider chart.RendererProvider
	switch format {
	case FormatPNG:
		provider = chart.PNG
	case FormatSVG:
		provider = chart.SVG
	default:
		return nil, fmt.Errorf("render chart: unsupported format %q", format)
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(provider, buffer); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buffer.Bytes(), nil
}

// ChartCache memoizes rendered charts per format. The rows never change, so
// entries only leave through the TTL.
type ChartCache struct {
	rows  []CategoryRow
	cache *cache.LRUCache[[]byte]
}

func NewChartCache(rows []CategoryRow, ttl time.Duration) *ChartCache {
	return &ChartCache{
		rows:  rows,
		cache: cache.NewLRUCache[[]byte](4, ttl),
	}
}

// Chart returns the encoded chart, rendering it on first use.
func (c *ChartCache) Chart(format Format) ([]byte, error) {
	key := string(format)
	if data, ok := c.cache.Get(key); ok {
		return data, nil
	}
	data, err := RenderChart(c.rows, format)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, data)
	return data, nil
}

// Cache exposes the underlying cache for the janitor.
func (c *ChartCache) Cache() *cache.LRUCache[[]byte] {
	return c.cache
}
