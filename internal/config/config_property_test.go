//go:build property

package config

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/viper"
)

func TestConfigurationProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("ports are accepted exactly within range", prop.ForAll(
		func(port int) bool {
			v := viper.New()
			v.Set("server.port", port)
			cfg, err := LoadFrom(v)
			if port >= 0 && port <= 65535 {
				return err == nil && cfg.Server.Port == port
			}
			return err != nil
		},
		gen.IntRange(-1000, 70000),
	))

	properties.Property("preview radius is never negative after load", prop.ForAll(
		func(radius int) bool {
			v := viper.New()
			v.Set("search.preview_radius", radius)
			cfg, err := LoadFrom(v)
			if radius < 0 {
				return err != nil
			}
			return err == nil && cfg.Search.PreviewRadius == radius
		},
		gen.IntRange(-100, 100),
	))

	properties.Property("alphanumeric hosts are valid", prop.ForAll(
		func(host string) bool {
			v := viper.New()
			v.Set("server.host", host)
			_, err := LoadFrom(v)
			return err == nil
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
