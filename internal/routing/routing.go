// Package routing estimates road distance and drive time between two free-text addresses
// using a Nominatim-compatible geocoder and an OSRM-compatible router.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"medride/internal/config"
	"medride/internal/fare"
	"medride/internal/redis"
)

// ErrQuoteUnavailable is returned whenever no route estimate can be produced.
var ErrQuoteUnavailable = errors.New("quote unavailable")

var (
	errAddressNotFound = errors.New("address not found")
	errNoRoute         = errors.New("no route")
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// RouteEstimate is a one-way driving estimate.
type RouteEstimate struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// RoundTrip returns the doubled distance and duration used for pricing.
func (e RouteEstimate) RoundTrip() (float64, int) {
	return fare.RoundTrip(e.DistanceKm, e.DurationMinutes)
}

// Estimator produces one-way route estimates between addresses.
type Estimator interface {
	EstimateRoundTrip(ctx context.Context, pickup, destination string) (*RouteEstimate, error)
}

// GeocodeCache stores geocode results.
type GeocodeCache interface {
	GetGeocode(ctx context.Context, address string) (*redis.CachedPoint, error)
	SetGeocode(ctx context.Context, address string, point redis.CachedPoint) error
}

// Client is an HTTP implementation of Estimator.
type Client struct {
	httpClient *http.Client
	geocodeURL string
	routeURL   string
	userAgent  string
	timeout    time.Duration
	cache      GeocodeCache
	logger     *logrus.Logger
}

var _ Estimator = (*Client)(nil)

// NewClient creates a routing client. cache may be nil.
func NewClient(cfg config.RoutingConfig, cache GeocodeCache, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		geocodeURL: strings.TrimRight(cfg.GeocodeURL, "/"),
		routeURL:   strings.TrimRight(cfg.RouteURL, "/"),
		userAgent:  cfg.UserAgent,
		timeout:    timeout,
		cache:      cache,
		logger:     logger,
	}
}

// EstimateRoundTrip geocodes both addresses concurrently and asks the router for a driving route.
// The estimate is one-way; every failure is reported as ErrQuoteUnavailable.
func (c *Client) EstimateRoundTrip(ctx context.Context, pickup, destination string) (*RouteEstimate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var origin, dest *Point
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.Geocode(gctx, pickup)
		origin = p
		return err
	})
	g.Go(func() error {
		p, err := c.Geocode(gctx, destination)
		dest = p
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, c.unavailable("geocode", err)
	}

	estimate, err := c.Route(ctx, *origin, *dest)
	if err != nil {
		return nil, c.unavailable("route", err)
	}
	return estimate, nil
}

func (c *Client) unavailable(stage string, err error) error {
	c.logger.WithFields(logrus.Fields{
		"stage": stage,
		"error": err.Error(),
	}).Warn("route estimate unavailable")
	return fmt.Errorf("%w: %s: %w", ErrQuoteUnavailable, stage, err)
}

type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves an address to a coordinate, consulting the cache first.
func (c *Client) Geocode(ctx context.Context, address string) (*Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, errAddressNotFound
	}

	if c.cache != nil {
		if cached, err := c.cache.GetGeocode(ctx, address); err == nil && cached != nil {
			return &Point{Lat: cached.Lat, Lon: cached.Lon}, nil
		}
	}

	query := url.Values{}
	query.Set("format", "json")
	query.Set("limit", "1")
	query.Set("q", address)

	var results []geocodeResult
	if err := c.getJSON(ctx, c.geocodeURL+"/search?"+query.Encode(), &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %q", errAddressNotFound, address)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.SetGeocode(ctx, address, redis.CachedPoint{Lat: lat, Lon: lon}); err != nil {
			c.logger.WithError(err).Debug("failed to cache geocode")
		}
	}
	return &Point{Lat: lat, Lon: lon}, nil
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // Meters
		Duration float64 `json:"duration"` // Seconds
	} `json:"routes"`
}

// Route asks the router for the driving route between two points.
func (c *Client) Route(ctx context.Context, origin, dest Point) (*RouteEstimate, error) {
	endpoint := fmt.Sprintf("%s/route/v1/driving/%s,%s;%s,%s?overview=false",
		c.routeURL,
		formatCoord(origin.Lon), formatCoord(origin.Lat),
		formatCoord(dest.Lon), formatCoord(dest.Lat),
	)

	var resp routeResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return nil, fmt.Errorf("%w: code %q", errNoRoute, resp.Code)
	}

	return &RouteEstimate{
		DistanceKm:      resp.Routes[0].Distance / 1000,
		DurationMinutes: resp.Routes[0].Duration / 60,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
