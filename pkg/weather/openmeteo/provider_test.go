package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/duluk/clima/pkg/weather"
)

func newTestServer(t *testing.T, geoStatus int, geoBody string, fcStatus int, fcBody string) (*Provider, *[]string) {
	t.Helper()
	var paths []string
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.String())
		w.WriteHeader(geoStatus)
		io.WriteString(w, geoBody)
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.String())
		w.WriteHeader(fcStatus)
		io.WriteString(w, fcBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := New(
		WithGeocodingURL(srv.URL+"/search"),
		WithForecastURL(srv.URL+"/forecast"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return p, &paths
}

const madridGeo = `{"results":[{"name":"Madrid","country":"España","latitude":40.4165,"longitude":-3.70256}]}`

func TestGetCurrentWeather(t *testing.T) {
	p, paths := newTestServer(t,
		http.StatusOK, madridGeo,
		http.StatusOK, `{"current":{"temperature_2m":25.5,"relativehumidity_2m":65,"weathercode":0}}`)

	res, err := weather.Lookup(context.Background(), p, "madrid")
	require.NoError(t, err)
	assert.Equal(t, weather.Result{Temperature: 26, Humidity: 65, Description: "cielo claro", City: "Madrid"}, res)

	require.Len(t, *paths, 2)
	assert.Contains(t, (*paths)[0], "name=madrid")
	assert.Contains(t, (*paths)[0], "language=es")
	assert.Contains(t, (*paths)[1], "latitude=40.416500")
}

func TestGetCurrentWeatherNoResults(t *testing.T) {
	p, paths := newTestServer(t, http.StatusOK, `{}`, http.StatusOK, `{}`)

	_, err := weather.Lookup(context.Background(), p, "Atlantis")
	assert.Equal(t, weather.NotFound, weather.KindOf(err))
	assert.Len(t, *paths, 1)
}

func TestGetCurrentWeatherForecastStatus(t *testing.T) {
	p, _ := newTestServer(t, http.StatusOK, madridGeo, http.StatusBadGateway, `oops`)

	_, err := weather.Lookup(context.Background(), p, "Madrid")
	assert.Equal(t, weather.GenericAPIError, weather.KindOf(err))
}

func TestGetCurrentWeatherMalformed(t *testing.T) {
	bodies := []string{
		`{"current":{"temperature_2m":3.1}}`,
		`{"current":{"temperature_2m":1e300,"relativehumidity_2m":65,"weathercode":0}}`,
		`{"current":{"temperature_2m":3.1,"relativehumidity_2m":650,"weathercode":0}}`,
		`{"current":{"temperature_2m":3.1,"relativehumidity_2m":65,"weathercode":0}} trailing`,
	}
	for _, body := range bodies {
		p, _ := newTestServer(t, http.StatusOK, madridGeo, http.StatusOK, body)

		res, err := weather.Lookup(context.Background(), p, "Madrid")
		assert.Equal(t, weather.MalformedResponse, weather.KindOf(err), "body %s", body)
		assert.Equal(t, weather.Result{}, res, "body %s", body)
	}
}

func TestGetCurrentWeatherInjectsTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	var headers []string
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Get("traceparent"))
		io.WriteString(w, madridGeo)
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Get("traceparent"))
		io.WriteString(w, `{"current":{"temperature_2m":3.1,"relativehumidity_2m":65,"weathercode":3}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tp := sdktrace.NewTracerProvider()
	p := New(
		WithGeocodingURL(srv.URL+"/search"),
		WithForecastURL(srv.URL+"/forecast"),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithTracer(tp.Tracer("test")),
	)

	_, err := weather.Lookup(context.Background(), p, "Madrid")
	require.NoError(t, err)
	require.Len(t, headers, 2)
	for _, h := range headers {
		assert.Regexp(t, `^00-[0-9a-f]{32}-[0-9a-f]{16}-01$`, h)
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "tormenta", describe(95))
	assert.Equal(t, "desconocido", describe(1234))
}
