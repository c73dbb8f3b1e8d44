package main

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taldoflemis/trattoria/pacchetto"
)

func TestLoadBaseConfig(t *testing.T) {
	// Act
	settings, err := pacchetto.LoadConfig[Settings]("VETRINA", baseConfig)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "vetrina", settings.App.Name)
	assert.Equal(t, "file", settings.Storage.Driver)
	assert.Equal(t, "restaurant_cart", settings.Storage.Key)
	assert.Equal(t, "/order", settings.Storefront.OrderPath)
	assert.Equal(t, "/profile/orders", settings.Storefront.HistoryPath)
	assert.Equal(t, 2*time.Second, settings.Storefront.RedirectDelay())
	assert.Equal(t, 3*time.Second, settings.Notifications.Duration())
	assert.Equal(t, 10, settings.Seats.IntervalInSeconds)
	assert.Equal(t, 10, settings.Seats.Threshold)
	assert.False(t, settings.needsNats())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	// Arrange
	t.Setenv("VETRINA_STORAGE_DRIVER", "nats")
	t.Setenv("VETRINA_HTTP_BASEURL", "https://trattoria.example")

	// Act
	settings, err := pacchetto.LoadConfig[Settings]("VETRINA", baseConfig)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "nats", settings.Storage.Driver)
	assert.Equal(t, "https://trattoria.example", settings.HTTP.BaseURL)
	assert.True(t, settings.needsNats())
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("VETRINA_STORAGE_DRIVER", "redis")

	_, err := pacchetto.LoadConfig[Settings]("VETRINA", baseConfig)

	assert.Error(t, err)
}

func TestStorageSettingsValidation(t *testing.T) {
	// Arrange
	validate := validator.New()

	tests := []struct {
		name    string
		storage StorageSettings
		wantErr bool
	}{
		{
			name:    "file with path",
			storage: StorageSettings{Driver: "file", Key: "restaurant_cart", FilePath: "/tmp/cart.json"},
			wantErr: false,
		},
		{
			name:    "file without path",
			storage: StorageSettings{Driver: "file", Key: "restaurant_cart"},
			wantErr: true,
		},
		{
			name:    "nats without bucket",
			storage: StorageSettings{Driver: "nats", Key: "restaurant_cart"},
			wantErr: true,
		},
		{
			name:    "postgres needs neither",
			storage: StorageSettings{Driver: "postgres", Key: "restaurant_cart"},
			wantErr: false,
		},
		{
			name:    "missing key",
			storage: StorageSettings{Driver: "memory"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		// Act
		err := validate.Struct(tt.storage)

		// Assert
		if tt.wantErr {
			assert.Error(t, err, tt.name)
		} else {
			assert.NoError(t, err, tt.name)
		}
	}
}

func TestSeatsSettingsValidation(t *testing.T) {
	validate := validator.New()

	assert.NoError(t, validate.Struct(SeatsSettings{Enabled: false}))
	assert.Error(t, validate.Struct(SeatsSettings{Enabled: true, Threshold: 10}))
	assert.Error(t, validate.Struct(SeatsSettings{Enabled: true, IntervalInSeconds: 10, Threshold: 10, JitterFactor: 2}))
	assert.NoError(t, validate.Struct(SeatsSettings{Enabled: true, IntervalInSeconds: 10, Threshold: 10, JitterFactor: 0.1}))
}
