package memory

import (
	"context"
	"sort"
	"time"

	"realtyhub/internal/models"
)

type Analytics struct{ db *DB }

func (s *Analytics) CountProperties(_ context.Context, since time.Time) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	n := 0
	for _, p := range s.db.properties {
		if p.Active && !p.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Analytics) CountAgents(_ context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	n := 0
	for _, a := range s.db.agents {
		if a.Active {
			n++
		}
	}
	return n, nil
}

func (s *Analytics) CountMessages(_ context.Context, since time.Time) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	n := 0
	for _, m := range s.db.contacts {
		if !m.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Analytics) CountViews(_ context.Context, since time.Time) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	n := 0
	for _, v := range s.db.views {
		if !v.ViewedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *Analytics) CountTestimonials(_ context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	n := 0
	for _, t := range s.db.testimonials {
		if t.Active && t.Approved() {
			n++
		}
	}
	return n, nil
}

func (s *Analytics) PropertiesByType(_ context.Context) (map[string]int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make(map[string]int)
	for _, p := range s.db.properties {
		if p.Active {
			out[string(p.Type)]++
		}
	}
	return out, nil
}

func (s *Analytics) MessagesByStatus(_ context.Context, since time.Time) (map[string]int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make(map[string]int)
	for _, m := range s.db.contacts {
		if !m.CreatedAt.Before(since) {
			out[string(m.Status)]++
		}
	}
	return out, nil
}

func (s *Analytics) CityDistribution(_ context.Context) (map[string]int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make(map[string]int)
	for _, p := range s.db.properties {
		if p.Active {
			out[p.City]++
		}
	}
	return out, nil
}

func (s *Analytics) AveragePriceByType(_ context.Context) (map[string]float64, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, p := range s.db.properties {
		if p.Active {
			sums[string(p.Type)] += p.Price
			counts[string(p.Type)]++
		}
	}
	out := make(map[string]float64, len(sums))
	for k, sum := range sums {
		out[k] = sum / float64(counts[k])
	}
	return out, nil
}

func (s *Analytics) TopViewedProperties(_ context.Context, limit int) ([]models.PropertyViewCount, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	counts := make(map[string]int)
	for _, v := range s.db.views {
		counts[v.PropertyID]++
	}
	var out []models.PropertyViewCount
	for id, n := range counts {
		p, ok := s.db.properties[id]
		if !ok || !p.Active {
			continue
		}
		out = append(out, models.PropertyViewCount{PropertyID: id, Title: p.Title, Views: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Views != out[j].Views {
			return out[i].Views > out[j].Views
		}
		return out[i].Title < out[j].Title
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func daily(times []time.Time, since time.Time) []models.DailyCount {
	counts := make(map[string]int)
	for _, t := range times {
		if !t.Before(since) {
			counts[models.DayKey(t)]++
		}
	}
	out := make([]models.DailyCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, models.DailyCount{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *Analytics) ViewsByDay(_ context.Context, since time.Time) ([]models.DailyCount, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	times := make([]time.Time, 0, len(s.db.views))
	for _, v := range s.db.views {
		times = append(times, v.ViewedAt)
	}
	return daily(times, since), nil
}

func (s *Analytics) MessagesByDay(_ context.Context, since time.Time) ([]models.DailyCount, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	times := make([]time.Time, 0, len(s.db.contacts))
	for _, m := range s.db.contacts {
		times = append(times, m.CreatedAt)
	}
	return daily(times, since), nil
}
