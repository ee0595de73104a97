package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/duluk/clima/pkg/weather"
)

var upper = cases.Upper(language.Spanish)

// capitalize upper-cases only the first letter: "cielo despejado" ->
// "Cielo despejado".
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return upper.String(string(r)) + s[size:]
}

func displayCurrentWeather(w io.Writer, res weather.Result) {
	fmt.Fprintf(w, "%s\n", res.City)
	fmt.Fprintf(w, "%s\n", strings.Repeat("-", utf8.RuneCountInString(res.City)))
	fmt.Fprintf(w, "Temperatura:  %d°C\n", res.Temperature)
	fmt.Fprintf(w, "Humedad:      %d%%\n", res.Humidity)
	fmt.Fprintf(w, "Condiciones:  %s\n", capitalize(res.Description))
}

func displayFailure(w io.Writer, err error) {
	fmt.Fprintln(w, weather.Classify(err).Message)
}
