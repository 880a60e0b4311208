// Package weather fetches the current conditions shown on the home and nutrition screens.
package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"example.com/wellness/internal/observability"
)

// DefaultIcon is used for unknown provider icon codes.
const DefaultIcon = "sunny-outline"

var (
	// ErrUnavailable is returned for non-2xx responses.
	ErrUnavailable = errors.New("weather provider unavailable")
	// ErrMalformed is returned when the payload lacks required fields.
	ErrMalformed = errors.New("malformed weather payload")
)

var icons = map[string]string{
	"01d": "sunny-outline",
	"01n": "moon-outline",
	"02d": "partly-sunny-outline",
	"02n": "cloudy-night-outline",
	"03d": "cloudy-outline",
	"03n": "cloudy-outline",
	"04d": "cloudy-outline",
	"04n": "cloudy-outline",
	"09d": "rainy-outline",
	"09n": "rainy-outline",
	"10d": "rainy-outline",
	"10n": "rainy-outline",
	"11d": "thunderstorm-outline",
	"11n": "thunderstorm-outline",
	"13d": "snow-outline",
	"13n": "snow-outline",
	"50d": "menu-outline",
	"50n": "menu-outline",
}

// Icon maps a provider icon code to a local icon name.
func Icon(code string) string {
	if icon, ok := icons[code]; ok {
		return icon
	}
	return DefaultIcon
}

// Config parameterises the client.
type Config struct {
	BaseURL   string
	APIKey    string
	Latitude  float64
	Longitude float64
	Timeout   time.Duration
}

// Report is the display-ready weather summary.
type Report struct {
	Temp        string `json:"temp"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Humidity    string `json:"humidity"`
	Wind        string `json:"wind"`
	Icon        string `json:"icon"`
}

// Option configures optional behaviour for the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = resty.NewWithClient(hc).SetTimeout(c.cfg.Timeout) }
}

// WithLogger overrides the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client queries the OpenWeather current-conditions endpoint.
type Client struct {
	cfg    Config
	http   *resty.Client
	logger logrus.FieldLogger
}

// NewClient builds a client for cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	c := &Client{
		cfg:    cfg,
		http:   resty.New().SetTimeout(cfg.Timeout),
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the report, or nil when the lookup fails for any reason.
func (c *Client) Current(ctx context.Context) *Report {
	report, err := c.Fetch(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("weather lookup failed")
		return nil
	}
	return report
}

// Fetch performs one lookup.
func (c *Client) Fetch(ctx context.Context) (*Report, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   strconv.FormatFloat(c.cfg.Latitude, 'f', -1, 64),
			"lon":   strconv.FormatFloat(c.cfg.Longitude, 'f', -1, 64),
			"appid": c.cfg.APIKey,
			"units": "metric",
			"lang":  "pt_br",
		}).
		Get(c.endpoint())
	if err != nil {
		observability.RecordWeatherFetch(observability.OutcomeFailed)
		return nil, fmt.Errorf("weather request: %w", err)
	}
	if !resp.IsSuccess() {
		observability.RecordWeatherFetch(observability.OutcomeFailed)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
	}

	report, err := Decode(resp.Body())
	if err != nil {
		observability.RecordWeatherFetch(observability.OutcomeCorrupt)
		return nil, err
	}
	observability.RecordWeatherFetch(observability.OutcomeOK)
	return report, nil
}

func (c *Client) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/data/2.5/weather"
}

// Decode turns an OpenWeather current-conditions payload into a Report.
func Decode(body []byte) (*Report, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformed)
	}
	fields := gjson.GetManyBytes(body,
		"main.temp", "main.humidity", "name", "sys.country",
		"weather.0.description", "weather.0.icon", "wind.speed",
	)
	temp, humidity, name, country, desc, icon, wind := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6]
	if !temp.Exists() || !desc.Exists() {
		return nil, fmt.Errorf("%w: missing main.temp or weather description", ErrMalformed)
	}

	return &Report{
		Temp:        fmt.Sprintf("%d°C", roundHalfUp(temp.Float())),
		Location:    name.String() + ", " + country.String(),
		Description: capitalize(desc.String()),
		Humidity:    humidity.String() + "%",
		Wind:        fmt.Sprintf("%d km/h", roundHalfUp(wind.Float()*3.6)),
		Icon:        Icon(icon.String()),
	}, nil
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
