package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"realtyhub/internal/ids"
	"realtyhub/internal/models"
)

const (
	recentWindow      = 30 * 24 * time.Hour
	viewDedupeWindow  = time.Hour
	topViewedLimit    = 10
	DefaultSeriesDays = 30
	MaxSeriesDays     = 365
)

type AnalyticsService struct {
	stats      AnalyticsStore
	views      ViewStore
	properties PropertyStore
	seen       *expirable.LRU[string, struct{}]
	now        func() time.Time
	log        zerolog.Logger
}

func NewAnalyticsService(stats AnalyticsStore, views ViewStore, properties PropertyStore, log zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{
		stats:      stats,
		views:      views,
		properties: properties,
		seen:       expirable.NewLRU[string, struct{}](10000, nil, viewDedupeWindow),
		now:        time.Now,
		log:        log,
	}
}

type Totals struct {
	Properties   int `json:"properties"`
	Agents       int `json:"agents"`
	Messages     int `json:"messages"`
	Views        int `json:"views"`
	Testimonials int `json:"testimonials"`
}

type Recent struct {
	Properties int `json:"properties"`
	Messages   int `json:"messages"`
	Views      int `json:"views"`
}

type Breakdown struct {
	PropertiesByType map[string]int `json:"propertiesByType"`
	MessagesByStatus map[string]int `json:"messagesByStatus"`
}

type Dashboard struct {
	Totals    Totals    `json:"totals"`
	Recent    Recent    `json:"recent"`
	Breakdown Breakdown `json:"breakdown"`
}

// Dashboard runs its independent aggregate queries concurrently.
func (s *AnalyticsService) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		d     Dashboard
		since = s.now().Add(-recentWindow)
		epoch time.Time
	)
	g, ctx := errgroup.WithContext(ctx)
	count := func(dst *int, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(ctx)
			*dst = n
			return err
		})
	}

	count(&d.Totals.Properties, func(ctx context.Context) (int, error) { return s.stats.CountProperties(ctx, epoch) })
	count(&d.Totals.Agents, s.stats.CountAgents)
	count(&d.Totals.Messages, func(ctx context.Context) (int, error) { return s.stats.CountMessages(ctx, epoch) })
	count(&d.Totals.Views, func(ctx context.Context) (int, error) { return s.stats.CountViews(ctx, epoch) })
	count(&d.Totals.Testimonials, s.stats.CountTestimonials)
	count(&d.Recent.Properties, func(ctx context.Context) (int, error) { return s.stats.CountProperties(ctx, since) })
	count(&d.Recent.Messages, func(ctx context.Context) (int, error) { return s.stats.CountMessages(ctx, since) })
	count(&d.Recent.Views, func(ctx context.Context) (int, error) { return s.stats.CountViews(ctx, since) })
	g.Go(func() error {
		var err error
		d.Breakdown.PropertiesByType, err = s.stats.PropertiesByType(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		d.Breakdown.MessagesByStatus, err = s.stats.MessagesByStatus(ctx, epoch)
		return err
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, storeError(err, "analytics")
	}
	return d, nil
}

type PropertyStats struct {
	MostViewed         []models.PropertyViewCount `json:"mostViewed"`
	CitiesDistribution map[string]int             `json:"citiesDistribution"`
	AveragePrices      map[string]float64         `json:"averagePrices"`
}

func (s *AnalyticsService) Properties(ctx context.Context) (PropertyStats, error) {
	var out PropertyStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.MostViewed, err = s.stats.TopViewedProperties(ctx, topViewedLimit)
		return err
	})
	g.Go(func() error {
		var err error
		out.CitiesDistribution, err = s.stats.CityDistribution(ctx)
		return err
	})
	g.Go(func() error {
		avg, err := s.stats.AveragePriceByType(ctx)
		if err != nil {
			return err
		}
		out.AveragePrices = make(map[string]float64, len(avg))
		for k, v := range avg {
			out.AveragePrices[k] = math.Round(v)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return PropertyStats{}, storeError(err, "analytics")
	}
	if out.MostViewed == nil {
		out.MostViewed = []models.PropertyViewCount{}
	}
	return out, nil
}

type ViewStats struct {
	ViewsByDate []models.DailyCount `json:"viewsByDate"`
	TotalViews  int                 `json:"totalViews"`
}

func (s *AnalyticsService) Views(ctx context.Context, days int) (ViewStats, error) {
	since, err := s.seriesStart(days)
	if err != nil {
		return ViewStats{}, err
	}
	series, err := s.stats.ViewsByDay(ctx, since)
	if err != nil {
		return ViewStats{}, storeError(err, "analytics")
	}
	return ViewStats{ViewsByDate: nonNil(series), TotalViews: sumCounts(series)}, nil
}

type MessageStats struct {
	MessagesByDate   []models.DailyCount `json:"messagesByDate"`
	MessagesByStatus map[string]int      `json:"messagesByStatus"`
	TotalMessages    int                 `json:"totalMessages"`
}

func (s *AnalyticsService) Messages(ctx context.Context, days int) (MessageStats, error) {
	since, err := s.seriesStart(days)
	if err != nil {
		return MessageStats{}, err
	}
	var out MessageStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.MessagesByDate, err = s.stats.MessagesByDay(ctx, since)
		return err
	})
	g.Go(func() error {
		var err error
		out.MessagesByStatus, err = s.stats.MessagesByStatus(ctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return MessageStats{}, storeError(err, "analytics")
	}
	out.MessagesByDate = nonNil(out.MessagesByDate)
	out.TotalMessages = sumCounts(out.MessagesByDate)
	return out, nil
}

type TrackViewInput struct {
	PropertyID string `json:"propertyId" validate:"required"`
	ClientIP   string `json:"-"`
	UserAgent  string `json:"-"`
}

// TrackView records a property view. A repeat from the same client within an
// hour is not recorded and reports false.
func (s *AnalyticsService) TrackView(ctx context.Context, input TrackViewInput) (bool, error) {
	input.PropertyID = strings.TrimSpace(input.PropertyID)
	if err := validateInput(input); err != nil {
		return false, err
	}
	if _, err := s.properties.GetByID(ctx, input.PropertyID); err != nil {
		return false, storeError(err, "property")
	}

	key := input.PropertyID + "|" + input.ClientIP
	if _, ok := s.seen.Get(key); ok {
		return false, nil
	}
	now := s.now().UTC()
	recent, err := s.views.RecentExists(ctx, input.PropertyID, input.ClientIP, now.Add(-viewDedupeWindow))
	if err != nil {
		return false, storeError(err, "views")
	}
	if recent {
		s.seen.Add(key, struct{}{})
		return false, nil
	}

	err = s.views.Record(ctx, models.PropertyView{
		ID:         ids.New(),
		PropertyID: input.PropertyID,
		ClientIP:   input.ClientIP,
		UserAgent:  input.UserAgent,
		ViewedAt:   now,
	})
	if err != nil {
		return false, storeError(err, "views")
	}
	s.seen.Add(key, struct{}{})
	return true, nil
}

func (s *AnalyticsService) seriesStart(days int) (time.Time, error) {
	if days == 0 {
		days = DefaultSeriesDays
	}
	if days < 1 || days > MaxSeriesDays {
		return time.Time{}, invalid("days", "must be between 1 and %d", MaxSeriesDays)
	}
	return s.now().Add(-time.Duration(days) * 24 * time.Hour), nil
}

func sumCounts(series []models.DailyCount) int {
	total := 0
	for _, d := range series {
		total += d.Count
	}
	return total
}

func nonNil(series []models.DailyCount) []models.DailyCount {
	if series == nil {
		return []models.DailyCount{}
	}
	return series
}
