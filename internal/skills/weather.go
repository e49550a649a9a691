package skills

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"luna/internal/tool"
)

var (
	ErrNoWeatherKey  = errors.New("weather api key not set")
	ErrBadWeatherKey = errors.New("weather api key rejected")
	ErrCityNotFound  = errors.New("city not found")
	ErrNoTemperature = errors.New("temperature missing")
)

type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d", e.Code)
}

type Weather struct {
	City        string
	Temp        float64
	FeelsLike   float64
	Description string
}

// WeatherClient queries the OpenWeatherMap current weather endpoint.
type WeatherClient struct {
	HTTP    *http.Client
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewWeatherClient(httpClient *http.Client, baseURL, apiKey string, timeout time.Duration) *WeatherClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WeatherClient{
		HTTP:    httpClient,
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Timeout: timeout,
	}
}

func (w *WeatherClient) Current(ctx context.Context, city string) (Weather, error) {
	if w.APIKey == "" {
		return Weather{}, ErrNoWeatherKey
	}

	ctx, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", w.APIKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.BaseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return Weather{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := w.HTTP.Do(req)
	if err != nil {
		return Weather{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return Weather{}, ErrBadWeatherKey
	case resp.StatusCode == http.StatusNotFound:
		return Weather{}, ErrCityNotFound
	case resp.StatusCode >= 400:
		return Weather{}, &HTTPStatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Weather{}, fmt.Errorf("read weather: %w", err)
	}

	doc := gjson.ParseBytes(body)
	if doc.Get("cod").Int() != 200 {
		return Weather{}, ErrCityNotFound
	}

	temp := doc.Get("main.temp")
	if !temp.Exists() {
		return Weather{}, ErrNoTemperature
	}

	desc := doc.Get("weather.0.description").String()
	if desc == "" {
		desc = "no description"
	}

	return Weather{
		City:        city,
		Temp:        temp.Float(),
		FeelsLike:   doc.Get("main.feels_like").Float(),
		Description: desc,
	}, nil
}

func (s *Skills) Temperature(ctx context.Context, args tool.Args) (tool.Result, error) {
	city := args.String("city")
	if city == "" {
		return tool.Result{}, tool.InvalidArgument("Please tell me which city.", "No city provided.")
	}
	if s.Weather == nil {
		return tool.Result{}, weatherFailure(city, ErrNoWeatherKey)
	}

	w, err := s.Weather.Current(ctx, city)
	if err != nil {
		return tool.Result{}, weatherFailure(city, err)
	}

	return tool.Say(fmt.Sprintf("The current temperature in %s is %.0f°C, and it feels like %.0f°C with %s.",
		w.City, w.Temp, w.FeelsLike, w.Description)), nil
}

func weatherFailure(city string, err error) *tool.Error {
	var status *HTTPStatusError

	switch {
	case errors.Is(err, ErrNoWeatherKey):
		return tool.Fail(tool.KindUnavailable,
			"OpenWeatherMap API key not found. Please set the environment variable.",
			"API key for weather is not set.", nil)
	case errors.Is(err, ErrBadWeatherKey):
		return tool.Fail(tool.KindUnavailable,
			"The weather API key is invalid. Please check it.", "Invalid API key.", nil)
	case errors.Is(err, ErrCityNotFound):
		return tool.NotFound(
			fmt.Sprintf("I couldn't find the city %s. Please check the spelling.", city), "City not found.")
	case errors.Is(err, ErrNoTemperature):
		return tool.Fail(tool.KindUnavailable,
			fmt.Sprintf("Sorry, I couldn't retrieve the temperature for %s.", city),
			"Temperature data not available.", nil)
	case errors.As(err, &status):
		return tool.Fail(tool.KindTransport,
			"Sorry, an HTTP error occurred while fetching the weather.",
			fmt.Sprintf("HTTP error %d.", status.Code), nil)
	default:
		return tool.Fail(tool.KindTransport,
			"Sorry, I ran into an error trying to get the temperature.", "Weather request failed.", err)
	}
}
