package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/duluk/clima/pkg/weather"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
)

type WeatherResponse struct {
	Current *struct {
		Temperature      *float64 `json:"temperature_2m"`
		RelativeHumidity *int     `json:"relativehumidity_2m"`
		WeatherCode      *int     `json:"weathercode"`
	} `json:"current"`
}

/* Example geocoding result (language=es):
{
  "id": 3117735,
  "name": "Madrid",
  "latitude": 40.4165,
  "longitude": -3.70256,
  "country_code": "ES",
  "timezone": "Europe/Madrid",
  "country": "España",
  "admin1": "Madrid"
}
*/

type GeocodingResult struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type GeocodingResponse struct {
	Results []GeocodingResult `json:"results"`
}

type Provider struct {
	geocodingURL string
	forecastURL  string

	client *http.Client
	logger *slog.Logger
	tracer trace.Tracer
}

type Option func(*Provider)

func WithGeocodingURL(u string) Option {
	return func(p *Provider) { p.geocodingURL = u }
}

func WithForecastURL(u string) Option {
	return func(p *Provider) { p.forecastURL = u }
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Provider) { p.tracer = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

func New(opts ...Option) *Provider {
	p := &Provider{
		geocodingURL: DefaultGeocodingURL,
		forecastURL:  DefaultForecastURL,
		client:       &http.Client{},
		logger:       slog.Default(),
		tracer:       otel.Tracer("github.com/duluk/clima/pkg/weather/openmeteo"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) GetCurrentWeather(ctx context.Context, q weather.Query) (weather.Result, error) {
	ctx, span := p.tracer.Start(ctx, "openmeteo.current",
		trace.WithAttributes(attribute.String("weather.city", q.String())))
	defer span.End()

	place, err := p.getCoordinates(ctx, q)
	if err != nil {
		span.SetStatus(codes.Error, "geocoding failed")
		return weather.Result{}, err
	}

	u := fmt.Sprintf("%s?latitude=%f&longitude=%f&current=temperature_2m,relativehumidity_2m,weathercode",
		p.forecastURL, place.Latitude, place.Longitude)

	var data WeatherResponse
	if err := p.fetchData(ctx, u, &data); err != nil {
		span.SetStatus(codes.Error, "forecast failed")
		return weather.Result{}, err
	}

	switch {
	case data.Current == nil:
		return weather.Result{}, malformed("missing current")
	case data.Current.Temperature == nil:
		return weather.Result{}, malformed("missing current.temperature_2m")
	case data.Current.RelativeHumidity == nil:
		return weather.Result{}, malformed("missing current.relativehumidity_2m")
	case data.Current.WeatherCode == nil:
		return weather.Result{}, malformed("missing current.weathercode")
	}

	temp, err := weather.Temperature(*data.Current.Temperature)
	if err != nil {
		return weather.Result{}, err
	}
	humidity, err := weather.Humidity(*data.Current.RelativeHumidity)
	if err != nil {
		return weather.Result{}, err
	}

	return weather.Result{
		Temperature: temp,
		Humidity:    humidity,
		Description: describe(*data.Current.WeatherCode),
		City:        place.Name,
	}, nil
}

func (p *Provider) getCoordinates(ctx context.Context, q weather.Query) (*GeocodingResult, error) {
	u := fmt.Sprintf("%s?name=%s&count=1&language=es&format=json",
		p.geocodingURL, url.QueryEscape(q.String()))

	var data GeocodingResponse
	if err := p.fetchData(ctx, u, &data); err != nil {
		return nil, err
	}

	if len(data.Results) == 0 {
		return nil, weather.NewFailure(weather.NotFound, fmt.Errorf("location not found: %s", q))
	}
	return &data.Results[0], nil
}

func (p *Provider) fetchData(ctx context.Context, u string, target interface{}) error {
	p.logger.Debug("open-meteo request", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("open-meteo request failed", "error", weather.Classify(err).Message)
		return err
	}
	defer resp.Body.Close()

	if f := weather.StatusFailure(resp.StatusCode); f != nil {
		p.logger.Warn("open-meteo returned error status", "status", resp.StatusCode, "kind", f.Kind)
		return f
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	p.logger.Debug("open-meteo response", "bytes", len(body))

	if err := json.Unmarshal(body, target); err != nil {
		return weather.NewFailure(weather.MalformedResponse, err)
	}
	return nil
}

func malformed(reason string) *weather.Failure {
	return weather.NewFailure(weather.MalformedResponse, errors.New(reason))
}

// WMO weather interpretation codes (https://open-meteo.com/en/docs), worded
// like OpenWeather's lang=es descriptions.
var descriptions = map[int]string{
	0:  "cielo claro",
	1:  "principalmente despejado",
	2:  "parcialmente nublado",
	3:  "nubes",
	45: "niebla",
	48: "niebla con escarcha",
	51: "llovizna ligera",
	53: "llovizna moderada",
	55: "llovizna intensa",
	56: "llovizna helada ligera",
	57: "llovizna helada intensa",
	61: "lluvia ligera",
	63: "lluvia moderada",
	65: "lluvia intensa",
	66: "lluvia helada ligera",
	67: "lluvia helada intensa",
	71: "nevada ligera",
	73: "nevada moderada",
	75: "nevada intensa",
	77: "granos de nieve",
	80: "chubascos ligeros",
	81: "chubascos moderados",
	82: "chubascos violentos",
	85: "chubascos de nieve ligeros",
	86: "chubascos de nieve intensos",
	95: "tormenta",
	96: "tormenta con granizo ligero",
	99: "tormenta con granizo intenso",
}

func describe(code int) string {
	if desc, ok := descriptions[code]; ok {
		return desc
	}
	return "desconocido"
}
