package main

import (
	"fmt"
	"roomchat/errors"
	"roomchat/session"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is read from the environment. Rate limiting and the content length
// cap are off unless configured.
type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	JWTSecret            string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=30m"`
	SendBufferSize       int           `env:"SEND_BUFFER_SIZE,default=256" validate:"gt=0,gtefield=HistoryLimit"`
	MaxMessageSize       int64         `env:"MAX_MESSAGE_SIZE,default=8192" validate:"gt=0"`
	MaxContentLength     int           `env:"MAX_CONTENT_LENGTH,default=0" validate:"gte=0"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=10" validate:"gte=0"`
	RateLimitBurst       int           `env:"RATE_LIMIT_BURST,default=0" validate:"gte=0"`
	RateLimitInterval    time.Duration `env:"RATE_LIMIT_INTERVAL,default=200ms"`
	WriteWait            time.Duration `env:"WRITE_WAIT,default=10s" validate:"gt=0"`
	PongWait             time.Duration `env:"PONG_WAIT,default=60s" validate:"gt=0"`
	PingPeriod           time.Duration `env:"PING_PERIOD,default=54s" validate:"gt=0,ltfield=PongWait"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=1s"`
	StatsInterval        time.Duration `env:"STATS_INTERVAL,default=15s" validate:"gt=0"`
	CensoredWords        string        `env:"CENSORED_WORDS"`
	CharacterReplacement string        `env:"CHARACTER_REPLACEMENT,default=*"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS,default=*"`
}

var validate = validator.New()

// Validate rejects settings the connection machinery cannot run with. Every
// primed frame has to fit in the send buffer, and pings must beat the pong
// deadline.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) Conn() session.ConnConfig {
	return session.ConnConfig{
		SendBufferSize: c.SendBufferSize,
		MaxMessageSize: c.MaxMessageSize,
		WriteWait:      c.WriteWait,
		PongWait:       c.PongWait,
		PingPeriod:     c.PingPeriod,
	}
}

func (c Config) Session() session.Config {
	return session.Config{
		HistoryLimit:     c.HistoryLimit,
		MaxContentLength: c.MaxContentLength,
		RateBurst:        c.RateLimitBurst,
		RateInterval:     c.RateLimitInterval,
	}
}

func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Replacement is the first rune of CHARACTER_REPLACEMENT, '*' when empty.
func (c Config) Replacement() rune {
	for _, r := range c.CharacterReplacement {
		return r
	}
	return '*'
}
