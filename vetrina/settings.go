package main

import (
	"time"

	_ "embed"

	"github.com/taldoflemis/trattoria/pacchetto"
)

//go:embed base.yaml
var baseConfig []byte

type StorefrontSettings struct {
	OrderPath         string `mapstructure:"order-path" validate:"required"`
	HistoryPath       string `mapstructure:"history-path" validate:"required"`
	RedirectDelayInMs int    `mapstructure:"redirect-delay-in-ms" validate:"min=0"`
	ReservationLayout string `mapstructure:"reservation-layout" validate:"required"`
	Color             bool   `mapstructure:"color"`
}

func (s StorefrontSettings) RedirectDelay() time.Duration {
	return time.Duration(s.RedirectDelayInMs) * time.Millisecond
}

type StorageSettings struct {
	Driver   string `mapstructure:"driver" validate:"required,oneof=file nats postgres memory"`
	Key      string `mapstructure:"key" validate:"required"`
	FilePath string `mapstructure:"file-path" validate:"required_if=Driver file"`
	Bucket   string `mapstructure:"bucket" validate:"required_if=Driver nats"`
}

type NotificationSettings struct {
	DurationInMs  int    `mapstructure:"duration-in-ms" validate:"min=0"`
	PublishToNats bool   `mapstructure:"publish-to-nats"`
	SubjectPrefix string `mapstructure:"subject-prefix" validate:"required_if=PublishToNats true"`
}

func (n NotificationSettings) Duration() time.Duration {
	return time.Duration(n.DurationInMs) * time.Millisecond
}

type SeatsSettings struct {
	Enabled           bool    `mapstructure:"enabled"`
	IntervalInSeconds int     `mapstructure:"interval-in-seconds" validate:"required_if=Enabled true,min=0"`
	Threshold         int     `mapstructure:"threshold" validate:"required_if=Enabled true,min=0"`
	JitterFactor      float64 `mapstructure:"jitter-factor" validate:"min=0,max=1"`
}

type Settings struct {
	App           pacchetto.AppSettings           `mapstructure:"app" validate:"required"`
	Storefront    StorefrontSettings              `mapstructure:"storefront" validate:"required"`
	HTTP          pacchetto.HTTPClientSettings    `mapstructure:"http" validate:"required"`
	Storage       StorageSettings                 `mapstructure:"storage" validate:"required"`
	Nats          pacchetto.NatsSettings          `mapstructure:"nats" validate:"required"`
	Postgres      pacchetto.PostgresSettings      `mapstructure:"postgres" validate:"required"`
	Notifications NotificationSettings            `mapstructure:"notifications" validate:"required"`
	Seats         SeatsSettings                   `mapstructure:"seats" validate:"required"`
	OpenTelemetry pacchetto.OpenTelemetrySettings `mapstructure:"opentelemetry" validate:"required"`
}

// needsNats reports whether any component talks to NATS.
func (s *Settings) needsNats() bool {
	return s.Storage.Driver == "nats" || s.Notifications.PublishToNats
}
