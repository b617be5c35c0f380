/*
Copyright 2025 Payintel Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

var ConfigStore atomic.Value

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"PAYINTEL_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"PAYINTEL_REDIS_DNS"`
}

// BotConfig holds the tunables for the per-account monitoring sessions.
// Zero values are replaced with defaults in validateAndAddDefaults.
type BotConfig struct {
	IntervalSec        int    `json:"interval_sec" envconfig:"PAYINTEL_BOT_INTERVAL_SEC"`
	StopPollSec        int    `json:"stop_poll_sec" envconfig:"PAYINTEL_BOT_STOP_POLL_SEC"`
	CaptchaMaxAttempts int    `json:"captcha_max_attempts" envconfig:"PAYINTEL_BOT_CAPTCHA_MAX_ATTEMPTS"`
	ReloginMaxAttempts int    `json:"relogin_max_attempts" envconfig:"PAYINTEL_BOT_RELOGIN_MAX_ATTEMPTS"`
	ReloginDelaySec    int    `json:"relogin_delay_sec" envconfig:"PAYINTEL_BOT_RELOGIN_DELAY_SEC"`
	StaleAfterMin      int    `json:"stale_after_min" envconfig:"PAYINTEL_BOT_STALE_AFTER_MIN"`
	LeaseTTLHours      int    `json:"lease_ttl_hours" envconfig:"PAYINTEL_BOT_LEASE_TTL_HOURS"`
	DownloadDir        string `json:"download_dir" envconfig:"PAYINTEL_BOT_DOWNLOAD_DIR"`
}

func (b BotConfig) Interval() time.Duration { return time.Duration(b.IntervalSec) * time.Second }
func (b BotConfig) StopPoll() time.Duration { return time.Duration(b.StopPollSec) * time.Second }
func (b BotConfig) ReloginDelay() time.Duration {
	return time.Duration(b.ReloginDelaySec) * time.Second
}
func (b BotConfig) StaleAfter() time.Duration { return time.Duration(b.StaleAfterMin) * time.Minute }
func (b BotConfig) LeaseTTL() time.Duration   { return time.Duration(b.LeaseTTLHours) * time.Hour }

// RecognizerConfig points at the external text-recognition service used for
// captcha images. The service is a black box; wrong answers are tolerated by
// the captcha retry loop.
type RecognizerConfig struct {
	Url        string            `json:"url" envconfig:"PAYINTEL_RECOGNIZER_URL"`
	TimeoutSec int               `json:"timeout_sec" envconfig:"PAYINTEL_RECOGNIZER_TIMEOUT_SEC"`
	Headers    map[string]string `json:"headers"`
}

func (r RecognizerConfig) Timeout() time.Duration { return time.Duration(r.TimeoutSec) * time.Second }

type QueueConfig struct {
	BotQueue     string `json:"bot_queue" envconfig:"PAYINTEL_QUEUE_BOT"`
	WebhookQueue string `json:"webhook_queue" envconfig:"PAYINTEL_QUEUE_WEBHOOK"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"PAYINTEL_PROJECT_NAME"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Bot          BotConfig        `json:"bot"`
	Recognizer   RecognizerConfig `json:"recognizer"`
	Queue        QueueConfig      `json:"queue"`
	Notification Notification     `json:"notification"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("payintel", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called payintel.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Payintel"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Bot.IntervalSec == 0 {
		cnf.Bot.IntervalSec = 30
	}
	if cnf.Bot.StopPollSec == 0 {
		cnf.Bot.StopPollSec = 2
	}
	if cnf.Bot.CaptchaMaxAttempts == 0 {
		cnf.Bot.CaptchaMaxAttempts = 10
	}
	if cnf.Bot.ReloginMaxAttempts == 0 {
		cnf.Bot.ReloginMaxAttempts = 5
	}
	if cnf.Bot.ReloginDelaySec == 0 {
		cnf.Bot.ReloginDelaySec = 3
	}
	if cnf.Bot.StaleAfterMin == 0 {
		cnf.Bot.StaleAfterMin = 11
	}
	if cnf.Bot.LeaseTTLHours == 0 {
		// Safety backstop only. Normal termination releases the lease itself.
		cnf.Bot.LeaseTTLHours = 24
	}
	if cnf.Bot.DownloadDir == "" {
		cnf.Bot.DownloadDir = os.TempDir()
	}

	if cnf.Recognizer.TimeoutSec == 0 {
		cnf.Recognizer.TimeoutSec = 30
	}

	if cnf.Queue.BotQueue == "" {
		cnf.Queue.BotQueue = "bot:run"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "webhook:event"
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
