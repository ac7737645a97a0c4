package main

import (
	"roomchat/errors"
	"roomchat/session"
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T, overrides env.EnvSet) Config {
	t.Helper()
	set := env.EnvSet{"BADGER_FILEPATH": t.TempDir(), "JWT_SECRET": "secret"}
	for k, v := range overrides {
		set[k] = v
	}
	var config Config
	require.NoError(t, env.Unmarshal(set, &config))
	return config
}

func TestConfig_Defaults_Relay_Every_Message(t *testing.T) {
	req := require.New(t)

	// Given only the required variables
	config := loadConfig(t, nil)

	// Then rate limiting and the content cap are off
	req.NoError(config.Validate())
	req.Equal(session.DefaultConfig(), config.Session())
	req.Zero(config.Session().RateBurst)
	req.Zero(config.Session().MaxContentLength)
}

func TestConfig_Rate_Limit_Is_Opt_In(t *testing.T) {
	req := require.New(t)

	config := loadConfig(t, env.EnvSet{"RATE_LIMIT_BURST": "5", "RATE_LIMIT_INTERVAL": "1s"})

	req.NoError(config.Validate())
	req.Equal(5, config.Session().RateBurst)
	req.Equal(time.Second, config.Session().RateInterval)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		overrides env.EnvSet
	}{
		{"zero ping period", env.EnvSet{"PING_PERIOD": "0s"}},
		{"negative ping period", env.EnvSet{"PING_PERIOD": "-1s"}},
		{"ping slower than pong deadline", env.EnvSet{"PING_PERIOD": "2m", "PONG_WAIT": "1m"}},
		{"send buffer smaller than history", env.EnvSet{"SEND_BUFFER_SIZE": "5", "HISTORY_LIMIT": "10"}},
		{"zero send buffer", env.EnvSet{"SEND_BUFFER_SIZE": "0", "HISTORY_LIMIT": "0"}},
		{"zero write wait", env.EnvSet{"WRITE_WAIT": "0s"}},
		{"negative rate burst", env.EnvSet{"RATE_LIMIT_BURST": "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			config := loadConfig(t, tt.overrides)

			err := config.Validate()

			req.ErrorIs(err, errors.ErrValidation)
		})
	}
}

func TestConfig_Replacement(t *testing.T) {
	req := require.New(t)
	req.Equal('#', loadConfig(t, env.EnvSet{"CHARACTER_REPLACEMENT": "#!"}).Replacement())
	req.Equal('*', Config{}.Replacement())
}
