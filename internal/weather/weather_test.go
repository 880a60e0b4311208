package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "weather": [{"id": 803, "main": "Clouds", "description": "nublado", "icon": "04d"}],
  "main": {"temp": 22.6, "humidity": 81},
  "wind": {"speed": 4.1},
  "sys": {"country": "BR"},
  "name": "São Paulo"
}`

func TestDecode(t *testing.T) {
	report, err := Decode([]byte(samplePayload))
	require.NoError(t, err)
	require.Equal(t, &Report{
		Temp:        "23°C",
		Location:    "São Paulo, BR",
		Description: "Nublado",
		Humidity:    "81%",
		Wind:        "15 km/h",
		Icon:        "cloudy-outline",
	}, report)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"main":`))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Decode([]byte(`{"name":"x"}`))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestIcon(t *testing.T) {
	require.Equal(t, "moon-outline", Icon("01n"))
	require.Equal(t, "menu-outline", Icon("50d"))
	require.Equal(t, DefaultIcon, Icon("99x"))
}

func TestRoundHalfUp(t *testing.T) {
	require.Equal(t, 3, roundHalfUp(2.5))
	require.Equal(t, -2, roundHalfUp(-2.5))
	require.Equal(t, 0, roundHalfUp(-0.4))
}

func TestClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/2.5/weather", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "secret", q.Get("appid"))
		require.Equal(t, "-23.5505", q.Get("lat"))
		require.Equal(t, "metric", q.Get("units"))
		require.Equal(t, "pt_br", q.Get("lang"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePayload))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "secret", Latitude: -23.5505, Longitude: -46.6333})
	report := client.Current(context.Background())
	require.NotNil(t, report)
	require.Equal(t, "23°C", report.Temp)
}

func TestClientFailureReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	logger, hook := test.NewNullLogger()
	client := NewClient(Config{BaseURL: srv.URL}, WithLogger(logger), WithHTTPClient(srv.Client()))

	_, err := client.Fetch(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.Nil(t, client.Current(context.Background()))
	require.NotNil(t, hook.LastEntry())

	srv.Close()
	require.Nil(t, client.Current(context.Background()))
}
