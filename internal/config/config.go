// Package config resolves run settings from flags, IQ2US_* environment
// variables, an optional config file and defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Adda-Baaj/iq2us-rss/internal/feed"
	"github.com/Adda-Baaj/iq2us-rss/internal/filters"
	"github.com/Adda-Baaj/iq2us-rss/internal/logger"
	"github.com/Adda-Baaj/iq2us-rss/pkg/httpclient"
)

// Version is stamped at build time with -ldflags "-X .../internal/config.Version=...".
var Version = "dev"

const EnvPrefix = "IQ2US"

// Keys shared by flags, environment variables and the config file.
const (
	KeyLogLevel        = "log-level"
	KeyAudio           = "audio"
	KeySince           = "since"
	KeyNoSort          = "no-sort"
	KeyTitle           = "title"
	KeyOutput          = "output"
	KeyConfig          = "config"
	KeyTimeout         = "timeout"
	KeyRetries         = "retries"
	KeyUserAgent       = "user-agent"
	KeyRequestDelay    = "request-delay"
	KeyNoContentLength = "no-content-length"
	KeyStateDB         = "state-db"
	KeyPublishers      = "publishers"

	// Channel fields have no flags.
	KeyDescription = "description"
	KeyImageURL    = "image-url"
	KeyGenerator   = "generator"
)

// Config is the validated configuration of one run.
type Config struct {
	URL           string
	LogLevel      string
	Audio         filters.Mode
	SinceDays     int
	Sort          bool
	Title         string
	Output        string
	Timeout       time.Duration
	Retries       int
	UserAgent     string
	RequestDelay  time.Duration
	ContentLength bool
	StateDB       string
	Publishers    string
	Description   string
	ImageURL      string
	Generator     string
}

// DefaultUserAgent identifies the tool to the sites it scrapes.
func DefaultUserAgent() string {
	return "iq2us-rss/" + Version
}

// BindFlags registers the command-line flags and binds them to v.
func BindFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	flags.String(KeyLogLevel, "INFO", "set logging level ("+strings.Join(logger.Levels, "|")+")")
	flags.String(KeyAudio, string(filters.ModeUnedited), "audio stream to extract (all|edited|unedited)")
	flags.Int(KeySince, 0, "ignore podcasts older than <since> days (0 disables)")
	flags.Bool(KeyNoSort, false, "don't sort podcast entries by publication date")
	flags.String(KeyTitle, feed.DefaultTitle, "title of generated podcast rss feed")
	flags.StringP(KeyOutput, "o", "", "output filename (default stdout)")
	flags.String(KeyConfig, "", "config file (yaml, json or toml)")
	flags.Duration(KeyTimeout, httpclient.DefaultTimeout, "connect and read timeout per request")
	flags.Int(KeyRetries, httpclient.DefaultRetryCount, "maximum retries for transient failures")
	flags.String(KeyUserAgent, DefaultUserAgent(), "User-Agent header sent with every request")
	flags.Duration(KeyRequestDelay, 0, "pause between debate page fetches")
	flags.Bool(KeyNoContentLength, false, "skip HEAD requests for enclosure lengths")
	flags.String(KeyStateDB, "", "bbolt file caching enclosure lengths and seen episodes")
	flags.String(KeyPublishers, "", "publishers file announcing new episodes")

	if err := v.BindPFlags(flags); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	v.SetDefault(KeyDescription, feed.DefaultDescription)
	v.SetDefault(KeyImageURL, feed.DefaultImageURL)
	v.SetDefault(KeyGenerator, feed.DefaultGenerator)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return nil
}

// LoadDotEnv loads variables from path without overriding the environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads the optional config file and returns the validated Config for url.
func Load(v *viper.Viper, url string) (Config, error) {
	if path := strings.TrimSpace(v.GetString(KeyConfig)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		URL:           strings.TrimSpace(url),
		LogLevel:      strings.ToUpper(strings.TrimSpace(v.GetString(KeyLogLevel))),
		SinceDays:     v.GetInt(KeySince),
		Sort:          !v.GetBool(KeyNoSort),
		Title:         v.GetString(KeyTitle),
		Output:        strings.TrimSpace(v.GetString(KeyOutput)),
		Timeout:       v.GetDuration(KeyTimeout),
		Retries:       v.GetInt(KeyRetries),
		UserAgent:     strings.TrimSpace(v.GetString(KeyUserAgent)),
		RequestDelay:  v.GetDuration(KeyRequestDelay),
		ContentLength: !v.GetBool(KeyNoContentLength),
		StateDB:       strings.TrimSpace(v.GetString(KeyStateDB)),
		Publishers:    strings.TrimSpace(v.GetString(KeyPublishers)),
		Description:   v.GetString(KeyDescription),
		ImageURL:      strings.TrimSpace(v.GetString(KeyImageURL)),
		Generator:     strings.TrimSpace(v.GetString(KeyGenerator)),
	}

	mode, err := filters.ParseMode(v.GetString(KeyAudio))
	if err != nil {
		return Config{}, err
	}
	cfg.Audio = mode

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.URL == "" {
		errs = append(errs, errors.New("sitemap url is required"))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.SinceDays < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeySince, c.SinceDays))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %s", KeyTimeout, c.Timeout))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %d", KeyRetries, c.Retries))
	}
	if c.RequestDelay < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative, got %s", KeyRequestDelay, c.RequestDelay))
	}
	return errors.Join(errs...)
}

// FeedTitle returns the channel title, suffixed with the audio mode when the
// default title is in use.
func (c Config) FeedTitle() string {
	if c.Title == feed.DefaultTitle {
		return c.Title + c.Audio.TitleSuffix()
	}
	return c.Title
}

// Channel returns the channel fields for the feed.
func (c Config) Channel() feed.Channel {
	ch := feed.DefaultChannel(feed.HomeURL(c.URL))
	ch.Title = c.FeedTitle()
	if c.Description != "" {
		ch.Description = c.Description
	}
	if c.ImageURL != "" {
		ch.ImageURL = c.ImageURL
	}
	if c.Generator != "" {
		ch.Generator = c.Generator
	}
	return ch
}
