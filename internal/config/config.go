/*
 * MIT License
 *
 * Copyright (c) 2026 transferd authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package config loads and validates the typed configuration for listeners,
// TLS and the authorizator: struct tags for spf13/viper's mapstructure
// decoding plus go-playground/validator/v10 for the "required"/format
// constraints.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Listener is one address the TCP server should bind.
type Listener struct {
	Name    string `mapstructure:"name" json:"name" yaml:"name" toml:"name" validate:"required"`
	Address string `mapstructure:"address" json:"address" yaml:"address" toml:"address" validate:"required,hostname_port"`
	TLS     bool   `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
}

// TLS carries the minimum negotiated protocol version and certificate
// paths for any listener marked TLS: true.
type TLS struct {
	MinVersion  string `mapstructure:"min_version" json:"min_version" yaml:"min_version" toml:"min_version" validate:"omitempty,oneof=1.0 1.1 1.2 1.3"`
	CertFile    string `mapstructure:"cert_file" json:"cert_file" yaml:"cert_file" toml:"cert_file" validate:"required_with=KeyFile,omitempty,file"`
	KeyFile     string `mapstructure:"key_file" json:"key_file" yaml:"key_file" toml:"key_file" validate:"required_with=CertFile,omitempty,file"`
}

// Authorizator carries the authorization core's tunables.
type Authorizator struct {
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl" json:"access_token_ttl" yaml:"access_token_ttl" toml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl" json:"refresh_token_ttl" yaml:"refresh_token_ttl" toml:"refresh_token_ttl"`
	AccessKeyHex    string        `mapstructure:"access_key_hex" json:"access_key_hex" yaml:"access_key_hex" toml:"access_key_hex" validate:"required,hexadecimal,len=64"`
	RefreshKeyHex   string        `mapstructure:"refresh_key_hex" json:"refresh_key_hex" yaml:"refresh_key_hex" toml:"refresh_key_hex" validate:"required,hexadecimal,len=64"`
	ShareKeyHex     string        `mapstructure:"share_key_hex" json:"share_key_hex" yaml:"share_key_hex" toml:"share_key_hex" validate:"required,hexadecimal,len=64"`
}

// Config is the complete configuration surface of the server.
type Config struct {
	Listeners    []Listener   `mapstructure:"listeners" json:"listeners" yaml:"listeners" toml:"listeners" validate:"required,dive"`
	TLS          TLS          `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
	Authorizator Authorizator `mapstructure:"authorizator" json:"authorizator" yaml:"authorizator" toml:"authorizator"`
}

// Load reads configuration from path (any format viper supports:
// yaml/json/toml), with environment variables prefixed TRANSFERD_ taking
// precedence over the file's values, then validates it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("TRANSFERD")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validating %s: %w", path, err)
	}
	return &cfg, nil
}

var validate = validator.New()
