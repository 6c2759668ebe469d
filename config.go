// Copyright © 2024 The portofcall Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// ────────────────────────────────────────────────────────────────────────────
//
//  ██████╗  ██████╗ ██████╗ ████████╗ ██████╗ ███████╗ ██████╗ █████╗ ██╗     ██╗
//  ██╔══██╗██╔═══██╗██╔══██╗╚══██╔══╝██╔═══██╗██╔════╝██╔════╝██╔══██╗██║     ██║
//  ██████╔╝██║   ██║██████╔╝   ██║   ██║   ██║█████╗  ██║     ███████║██║     ██║
//  ██╔═══╝ ██║   ██║██╔══██╗   ██║   ██║   ██║██╔══╝  ██║     ██╔══██║██║     ██║
//  ██║     ╚██████╔╝██║  ██║   ██║   ╚██████╔╝██║     ╚██████╗██║  ██║███████╗███████╗
//  ╚═╝      ╚═════╝ ╚═╝  ╚═╝   ╚═╝    ╚═════╝ ╚═╝      ╚═════╝╚═╝  ╚═╝╚══════╝╚══════╝
//
// ────────────────────────────────────────────────────────────────────────────

package portofcall

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DefaultRTMPPort  = 1935
	DefaultRTMPApp   = "live"
	DefaultTimeoutMS = 10000
)

// Config holds the defaults every protocol client falls back to when the
// caller leaves a field empty. Flags override config, config overrides env.
type Config struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	App       string `mapstructure:"app"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
	StreamKey string `mapstructure:"stream_key"`
	Verbose   bool   `mapstructure:"verbose"`
}

// LoadConfig reads an optional TOML config file and PORTOFCALL_* environment
// variables. An empty path yields pure defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("host", "localhost")
	v.SetDefault("port", DefaultRTMPPort)
	v.SetDefault("app", DefaultRTMPApp)
	v.SetDefault("timeout_ms", DefaultTimeoutMS)
	v.SetDefault("stream_key", "")
	v.SetDefault("verbose", false)
	v.SetEnvPrefix("portofcall")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return cfg, nil
}
