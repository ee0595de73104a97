package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duluk/clima/pkg/server"
	"github.com/duluk/clima/pkg/weather"
)

type stubProvider struct {
	res    weather.Result
	err    error
	cities []string
}

func (s *stubProvider) GetCurrentWeather(_ context.Context, q weather.Query) (weather.Result, error) {
	s.cities = append(s.cities, q.String())
	return s.res, s.err
}

func newServer(p weather.Provider) *httptest.Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httptest.NewServer(server.New(p, logger).Router())
}

func TestGetWeatherOK(t *testing.T) {
	p := &stubProvider{res: weather.Result{Temperature: 26, Humidity: 65, Description: "cielo despejado", City: "Madrid"}}
	ts := newServer(p)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/weather/S%C3%A3o%20Paulo")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(server.RequestIDHeader))

	var got weather.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, p.res, got)
	assert.Equal(t, []string{"São Paulo"}, p.cities)
}

func TestGetWeatherFailures(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		err    error
		status int
		kind   string
		msg    string
	}{
		{"empty", "/weather/%20%20", nil, http.StatusBadRequest, "EmptyInput",
			"Por favor ingresa el nombre de una ciudad"},
		{"not found", "/weather/Atlantis", weather.NewFailure(weather.NotFound, nil), http.StatusNotFound, "NotFound",
			"Ciudad no encontrada. Por favor verifica el nombre e intenta nuevamente."},
		{"auth", "/weather/Madrid", weather.NewFailure(weather.AuthError, nil), http.StatusBadGateway, "AuthError",
			"Error de autenticación con la API. Verifica tu API key."},
		{"generic", "/weather/Madrid", weather.NewFailure(weather.GenericAPIError, nil), http.StatusBadGateway, "GenericApiError",
			"Error al obtener los datos del clima. Por favor intenta nuevamente."},
		{"network", "/weather/Madrid", errors.New("Network error"), http.StatusBadGateway, "NetworkError",
			"Network error"},
		{"malformed", "/weather/Madrid", weather.NewFailure(weather.MalformedResponse, nil), http.StatusBadGateway, "MalformedResponse",
			"La respuesta del servicio del clima no tiene el formato esperado."},
		{"unknown", "/weather/Madrid", weather.NewFailure(weather.UnknownError, nil), http.StatusInternalServerError, "UnknownError",
			"Error desconocido al obtener el clima"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := &stubProvider{err: c.err}
			ts := newServer(p)
			defer ts.Close()

			resp, err := http.Get(ts.URL + c.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, c.status, resp.StatusCode)
			var body struct {
				Kind    string `json:"kind"`
				Message string `json:"message"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, c.kind, body.Kind)
			assert.Equal(t, c.msg, body.Message)
		})
	}
}

func TestRequestIDPreserved(t *testing.T) {
	ts := newServer(&stubProvider{})
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(server.RequestIDHeader, "abc-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc-123", resp.Header.Get(server.RequestIDHeader))
}
