package openweather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/duluk/clima/pkg/weather"
)

/*
	OpenWeather API Response Codes
	Success codes
	200  // Success for current weather data

	Error codes
	400  // Bad request (e.g., invalid parameters)
	401  // Unauthorized (invalid API key)
	404  // City not found
	429  // Too many requests (exceeded rate limit)
	500  // Internal server error
*/

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"
	TestDataFile   = "weather.weather.json"

	units    = "metric"
	language = "es"
)

// WeatherData is the subset of the current-weather payload we rely on.
// Pointers distinguish a missing field from a zero value.
type WeatherData struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *int     `json:"humidity"`
	} `json:"main"`
	Weather []*struct {
		Description *string `json:"description"`
	} `json:"weather"`
	Name *string `json:"name"`
}

func (d *WeatherData) result() (weather.Result, error) {
	switch {
	case d.Main == nil:
		return weather.Result{}, malformed("missing main")
	case d.Main.Temp == nil:
		return weather.Result{}, malformed("missing main.temp")
	case d.Main.Humidity == nil:
		return weather.Result{}, malformed("missing main.humidity")
	case len(d.Weather) == 0:
		return weather.Result{}, malformed("empty weather list")
	case d.Weather[0] == nil || d.Weather[0].Description == nil:
		return weather.Result{}, malformed("missing weather[0].description")
	case d.Name == nil:
		return weather.Result{}, malformed("missing name")
	}

	temp, err := weather.Temperature(*d.Main.Temp)
	if err != nil {
		return weather.Result{}, err
	}
	humidity, err := weather.Humidity(*d.Main.Humidity)
	if err != nil {
		return weather.Result{}, err
	}

	return weather.Result{
		Temperature: temp,
		Humidity:    humidity,
		Description: *d.Weather[0].Description,
		City:        *d.Name,
	}, nil
}

func malformed(reason string) *weather.Failure {
	return weather.NewFailure(weather.MalformedResponse, errors.New(reason))
}

type Provider struct {
	apiKey      string
	baseURL     string
	useTestData bool

	client *http.Client
	logger *slog.Logger
	tracer trace.Tracer
}

type Option func(*Provider)

func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = u }
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

// WithTestData makes the provider read TestDataFile from the working
// directory instead of calling the API.
func WithTestData(on bool) Option {
	return func(p *Provider) { p.useTestData = on }
}

func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		client:  &http.Client{},
		logger:  slog.Default(),
		tracer:  otel.Tracer("github.com/duluk/clima/pkg/weather/openweather"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) GetCurrentWeather(ctx context.Context, q weather.Query) (weather.Result, error) {
	var data WeatherData
	if err := p.fetchData(ctx, q, &data); err != nil {
		return weather.Result{}, err
	}
	return data.result()
}

func (p *Provider) fetchData(ctx context.Context, q weather.Query, target *WeatherData) error {
	var body []byte
	var err error

	if p.useTestData {
		body, err = os.ReadFile(TestDataFile)
		if err != nil {
			return weather.NewFailure(weather.GenericAPIError, fmt.Errorf("error reading test file: %w", err))
		}
	} else {
		body, err = p.get(ctx, q)
		if err != nil {
			return err
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(target); err != nil {
		p.logger.Warn("undecodable weather response", "error", err)
		return weather.NewFailure(weather.MalformedResponse, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		p.logger.Warn("trailing data after weather response", "error", err)
		return malformed("trailing data after JSON body")
	}
	return nil
}

func (p *Provider) get(ctx context.Context, q weather.Query) ([]byte, error) {
	ctx, span := p.tracer.Start(ctx, "openweather.current",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("weather.city", q.String())))
	defer span.End()

	reqURL := p.buildURL(q)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	p.logger.Debug("requesting current weather", "url", redact(reqURL))

	resp, err := p.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		p.logger.Error("weather request failed", "error", weather.Classify(err).Message)
		return nil, err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if f := weather.StatusFailure(resp.StatusCode); f != nil {
		span.SetStatus(codes.Error, f.Kind.String())
		p.logger.Warn("weather API returned error status", "status", resp.StatusCode, "kind", f.Kind)
		return nil, f
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	p.logger.Debug("weather response", "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

func (p *Provider) buildURL(q weather.Query) string {
	return fmt.Sprintf("%s?q=%s&appid=%s&units=%s&lang=%s",
		p.baseURL, url.QueryEscape(q.String()), url.QueryEscape(p.apiKey), units, language)
}

// redact hides the API key in URLs that get logged.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	v := u.Query()
	if v.Has("appid") {
		v.Set("appid", "REDACTED")
	}
	u.RawQuery = v.Encode()
	return u.String()
}
