package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strings"
)

// Provider fetches current conditions for a validated query. Implementations
// report failures as *Failure values where they can classify them; anything
// else is classified by Lookup.
type Provider interface {
	GetCurrentWeather(ctx context.Context, q Query) (Result, error)
}

// Query is a trimmed, non-empty city name.
type Query struct {
	city string
}

func NewQuery(raw string) (Query, error) {
	city := strings.TrimSpace(raw)
	if city == "" {
		return Query{}, NewFailure(EmptyInput, nil)
	}
	return Query{city: city}, nil
}

func (q Query) String() string {
	return q.city
}

// Result is the normalized current weather for one city.
type Result struct {
	Temperature int    `json:"temperature"` // °C, rounded
	Humidity    int    `json:"humidity"`    // %
	Description string `json:"description"`
	City        string `json:"city"` // canonical name from the provider
}

// Lookup validates city, asks p for the current weather exactly once and
// returns either a Result or a *Failure. No network call is made for empty
// input.
func Lookup(ctx context.Context, p Provider, city string) (res Result, err error) {
	q, err := NewQuery(city)
	if err != nil {
		return Result{}, err
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		res = Result{}
		var rerr runtime.Error
		if e, ok := r.(error); ok && !errors.As(e, &rerr) {
			err = Classify(e)
			return
		}
		err = NewFailure(UnknownError, nil)
	}()

	res, err = p.GetCurrentWeather(ctx, q)
	if err != nil {
		return Result{}, Classify(err)
	}
	return res, nil
}

// Round rounds half away from zero: 25.5 -> 26, -2.5 -> -3.
func Round(celsius float64) int {
	return int(math.Round(celsius))
}

// Accepted provider readings. Anything outside is a malformed response.
const (
	MinTemperature = -273.15
	MaxTemperature = 1000.0
	MinHumidity    = 0
	MaxHumidity    = 100
)

// Temperature checks a provider reading in °C and rounds it.
func Temperature(celsius float64) (int, error) {
	if math.IsNaN(celsius) || celsius < MinTemperature || celsius > MaxTemperature {
		return 0, NewFailure(MalformedResponse, fmt.Errorf("temperature out of range: %v", celsius))
	}
	return Round(celsius), nil
}

// Humidity checks a relative humidity percentage.
func Humidity(pct int) (int, error) {
	if pct < MinHumidity || pct > MaxHumidity {
		return 0, NewFailure(MalformedResponse, fmt.Errorf("humidity out of range: %d", pct))
	}
	return pct, nil
}
