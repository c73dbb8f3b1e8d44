package pacchetto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSettings struct {
	App  AppSettings        `mapstructure:"app" validate:"required"`
	HTTP HTTPClientSettings `mapstructure:"http" validate:"required"`
}

var testBase = []byte(`
app:
  name: trattoria-test
  version: 0.0.1
http:
  base-url: http://localhost:5000
  timeout-in-seconds: 5
`)

func TestLoadConfigReadsBaseYAML(t *testing.T) {
	// Act
	cfg, err := LoadConfig[testSettings]("PACCHETTOTEST", testBase)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "trattoria-test", cfg.App.Name)
	assert.Equal(t, "http://localhost:5000", cfg.HTTP.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	// Arrange
	t.Setenv("PACCHETTOTEST_HTTP_BASEURL", "https://restaurant.example.by")

	// Act
	cfg, err := LoadConfig[testSettings]("PACCHETTOTEST", testBase)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "https://restaurant.example.by", cfg.HTTP.BaseURL)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		base string
	}{
		{
			name: "missing base url",
			base: "app:\n  name: x\nhttp:\n  timeout-in-seconds: 5\n",
		},
		{
			name: "zero timeout",
			base: "app:\n  name: x\nhttp:\n  base-url: http://localhost\n  timeout-in-seconds: 0\n",
		},
		{
			name: "not a url",
			base: "app:\n  name: x\nhttp:\n  base-url: restaurant\n  timeout-in-seconds: 3\n",
		},
	}

	for _, tt := range tests {
		// Act
		_, err := LoadConfig[testSettings]("PACCHETTOTEST", []byte(tt.base))

		// Assert
		assert.Error(t, err, tt.name)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	_, err := LoadConfig[testSettings]("PACCHETTOTEST", []byte("app: [unterminated"))
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresSettings{Host: "db", Port: 5432, User: "u", Password: "p", Database: "restaurant"}
	assert.Equal(t, "postgres://u:p@db:5432/restaurant?sslmode=disable", p.DSN())

	p.SSLMode = "require"
	assert.Equal(t, "postgres://u:p@db:5432/restaurant?sslmode=require", p.DSN())
}

func TestJitter(t *testing.T) {
	base := 10 * time.Second

	assert.Equal(t, base, Jitter(42, base, 0))

	for seed := uint64(0); seed < 50; seed++ {
		d := Jitter(seed, base, 0.1)
		assert.GreaterOrEqual(t, d, 9*time.Second)
		assert.LessOrEqual(t, d, 11*time.Second)
	}

	assert.Equal(t, Jitter(7, base, 0.5), Jitter(7, base, 0.5))
}
