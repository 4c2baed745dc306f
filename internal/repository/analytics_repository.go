package repository

import (
	"context"
	"time"

	"realtyhub/internal/models"
)

// AnalyticsRepository runs the aggregate queries behind the dashboard.
type AnalyticsRepository struct {
	conn
}

func (r *AnalyticsRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func (r *AnalyticsRepository) CountProperties(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM properties WHERE is_active AND created_at >= $1`, since)
}

func (r *AnalyticsRepository) CountAgents(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM agents WHERE is_active`)
}

func (r *AnalyticsRepository) CountMessages(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM contact_messages WHERE created_at >= $1`, since)
}

func (r *AnalyticsRepository) CountViews(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM property_views WHERE viewed_at >= $1`, since)
}

func (r *AnalyticsRepository) CountTestimonials(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM testimonials WHERE is_active AND approved_by IS NOT NULL`)
}

func (r *AnalyticsRepository) groupCount(ctx context.Context, query string, args ...any) (map[string]int, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

func (r *AnalyticsRepository) PropertiesByType(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT type, COUNT(*) FROM properties WHERE is_active GROUP BY type`)
}

func (r *AnalyticsRepository) MessagesByStatus(ctx context.Context, since time.Time) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT status, COUNT(*) FROM contact_messages WHERE created_at >= $1 GROUP BY status`, since)
}

func (r *AnalyticsRepository) CityDistribution(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT city, COUNT(*) FROM properties WHERE is_active GROUP BY city`)
}

func (r *AnalyticsRepository) AveragePriceByType(ctx context.Context) (map[string]float64, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT type, AVG(price)::float8 FROM properties WHERE is_active GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var (
			key string
			avg float64
		)
		if err := rows.Scan(&key, &avg); err != nil {
			return nil, err
		}
		out[key] = avg
	}
	return out, rows.Err()
}

func (r *AnalyticsRepository) TopViewedProperties(ctx context.Context, limit int) ([]models.PropertyViewCount, error) {
	const query = `
		SELECT p.id, p.title, COUNT(v.id) AS views
		FROM properties p
		JOIN property_views v ON v.property_id = p.id
		WHERE p.is_active
		GROUP BY p.id, p.title
		ORDER BY views DESC, p.title
		LIMIT $1
	`
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PropertyViewCount
	for rows.Next() {
		var c models.PropertyViewCount
		if err := rows.Scan(&c.PropertyID, &c.Title, &c.Views); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *AnalyticsRepository) daily(ctx context.Context, query string, since time.Time) ([]models.DailyCount, error) {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DailyCount
	for rows.Next() {
		var (
			day time.Time
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		out = append(out, models.DailyCount{Date: models.DayKey(day), Count: n})
	}
	return out, rows.Err()
}

func (r *AnalyticsRepository) ViewsByDay(ctx context.Context, since time.Time) ([]models.DailyCount, error) {
	return r.daily(ctx, `
		SELECT date_trunc('day', viewed_at AT TIME ZONE 'UTC') AS day, COUNT(*)
		FROM property_views WHERE viewed_at >= $1
		GROUP BY day ORDER BY day`, since)
}

func (r *AnalyticsRepository) MessagesByDay(ctx context.Context, since time.Time) ([]models.DailyCount, error) {
	return r.daily(ctx, `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, COUNT(*)
		FROM contact_messages WHERE created_at >= $1
		GROUP BY day ORDER BY day`, since)
}
