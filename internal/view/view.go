// Package view projects queue snapshots into display order and counters.
package view

import (
	"slices"

	"stockmeta/internal/queue"
)

func rank(s queue.Status) int {
	switch s {
	case queue.StatusSuccess:
		return 0
	case queue.StatusProcessing:
		return 1
	case queue.StatusIdle:
		return 2
	default:
		return 3
	}
}

// Sort returns a new slice ordered success, processing, idle, error.
// Items with the same status keep their queue order.
func Sort(items []queue.Item) []queue.Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b queue.Item) int {
		return rank(a.Status) - rank(b.Status)
	})
	return out
}

// Stats summarizes a queue for progress displays.
type Stats struct {
	Total      int `json:"total" msgpack:"total"`
	Pending    int `json:"pending" msgpack:"pending"`
	Processing int `json:"processing" msgpack:"processing"`
	Completed  int `json:"completed" msgpack:"completed"`
	Failed     int `json:"failed" msgpack:"failed"`
}

// Counts computes Stats. Pending includes failed items since a run retries them.
func Counts(items []queue.Item) Stats {
	stats := Stats{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case queue.StatusIdle:
			stats.Pending++
		case queue.StatusError:
			stats.Pending++
			stats.Failed++
		case queue.StatusProcessing:
			stats.Processing++
		case queue.StatusSuccess:
			stats.Completed++
		}
	}
	return stats
}

// Progress is the completed fraction in [0,1]; an empty queue reports 0.
func (s Stats) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}
