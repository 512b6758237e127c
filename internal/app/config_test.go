package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			DatabaseURL: "postgres://localhost/littlelemon",
			Storage:     StorageConfig{Driver: StoragePostgres},
			Auth:        AuthConfig{Secret: "s"},
			RateLimit: RateLimitConfig{
				AnonMax: 20, AnonWindow: time.Minute,
				UserMax: 60, UserWindow: time.Minute,
			},
			Events: EventsConfig{Driver: EventsNone},
		}
	}
	require.NoError(t, valid().Validate())

	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"NoSecret", func(c *Config) { c.Auth.Secret = "" }},
		{"NoDatabaseURL", func(c *Config) { c.DatabaseURL = "" }},
		{"UnknownStorage", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"AMQPWithoutURL", func(c *Config) { c.Events.Driver = EventsAMQP }},
		{"KafkaWithoutBrokers", func(c *Config) { c.Events.Driver = EventsKafka }},
		{"UnknownEvents", func(c *Config) { c.Events.Driver = "nats" }},
		{"ZeroAnonMax", func(c *Config) { c.RateLimit.AnonMax = 0 }},
		{"ZeroUserWindow", func(c *Config) { c.RateLimit.UserWindow = 0 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			require.Error(t, c.Validate())
		})
	}

	t.Run("MemoryWithoutDatabaseURL", func(t *testing.T) {
		c := valid()
		c.Storage.Driver = StorageMemory
		c.DatabaseURL = ""
		require.NoError(t, c.Validate())
	})
}

func TestConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/db")
	t.Setenv("PORT", "9000")

	c := &Config{Addr: defaultAddr}
	c.applyPlatformDefaults()
	require.Equal(t, "postgres://platform/db", c.DatabaseURL)
	require.Equal(t, "0.0.0.0:9000", c.Addr)

	c = &Config{Addr: "127.0.0.1:1", DatabaseURL: "postgres://explicit/db"}
	c.applyPlatformDefaults()
	require.Equal(t, "postgres://explicit/db", c.DatabaseURL)
	require.Equal(t, "127.0.0.1:1", c.Addr)
}
