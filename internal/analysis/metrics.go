package analysis

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// MetricOption is one entry of the metric picker.
type MetricOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// MetricOptions lists the backend's metrics as picker options.
func (c *Controller) MetricOptions(ctx context.Context) ([]MetricOption, error) {
	metrics, err := c.port.ListMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}

	seen := make(map[string]struct{}, len(metrics))
	options := make([]MetricOption, 0, len(metrics))
	for _, metric := range metrics {
		value := strings.ToLower(strings.TrimSpace(metric))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		options = append(options, MetricOption{Value: value, Label: metricLabel(metric)})
	}
	return options, nil
}

// metricLabel turns "conversion_rate" into "Conversion Rate". Letters after
// the first of each word keep their case, so "CTR" stays "CTR".
func metricLabel(metric string) string {
	words := strings.Fields(strings.ReplaceAll(strings.TrimSpace(metric), "_", " "))
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
