package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
)

// Load parses the process environment into cfg, which must be a pointer to a
// struct using `env` and `envDefault` tags.
//
//	type Config struct {
//	    Port     int           `env:"HTTP_PORT" envDefault:"8080"`
//	    CacheTTL time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"15m"`
//	}
func Load(cfg any) error {
	return LoadFrom(cfg, nil)
}

// LoadFrom parses the given environment map instead of the process
// environment. A nil map falls back to os.Environ.
func LoadFrom(cfg any, environ map[string]string) error {
	opts := env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			reflect.TypeOf(time.Duration(0)): parseDuration,
		},
	}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// parseDuration accepts Go duration strings ("15m") as well as bare seconds
// ("900"), the form cache timeouts are usually written in.
func parseDuration(v string) (any, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q", v)
	}
	return time.Duration(secs) * time.Second, nil
}
