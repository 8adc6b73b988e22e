/*
Copyright 2025 Ondo Authors.

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

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const DEFAULT_PORT = "5101"

var ConfigStore atomic.Value

type ServerConfig struct {
	SecretKey string `json:"secret_key" envconfig:"ONDO_SERVER_SECRET_KEY"`
	Secure    bool   `json:"secure" envconfig:"ONDO_SERVER_SECURE"`
	Port      string `json:"port" envconfig:"ONDO_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"ONDO_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"ONDO_REDIS_DNS"`
}

// MatchingConfig holds the transfer-pairing knobs. AmountTolerance bounds
// tolerant amount matching in minor units; entries further apart never pair.
// TransferKeywords is the internal-transfer keyword set the scorer checks
// category text against. The memo-similarity bands gate the +-10 memo
// adjustment.
type MatchingConfig struct {
	AmountTolerance    int64    `json:"amount_tolerance" envconfig:"ONDO_MATCHING_AMOUNT_TOLERANCE"`
	TransferKeywords   []string `json:"transfer_keywords" envconfig:"ONDO_MATCHING_TRANSFER_KEYWORDS"`
	MemoSimilarityHigh float64  `json:"memo_similarity_high" envconfig:"ONDO_MATCHING_MEMO_SIMILARITY_HIGH"`
	MemoSimilarityLow  float64  `json:"memo_similarity_low" envconfig:"ONDO_MATCHING_MEMO_SIMILARITY_LOW"`
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
	ProjectName  string           `json:"project_name" envconfig:"ONDO_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Matching     MatchingConfig   `json:"matching"`
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
	err = envconfig.Process("ondo", &cnf)
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
		return nil, errors.New("config not loaded from file. Create a json file called ondo.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Ondo Server"
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
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Matching.AmountTolerance == 0 {
		cnf.Matching.AmountTolerance = 10
	}
	if len(cnf.Matching.TransferKeywords) == 0 {
		cnf.Matching.TransferKeywords = []string{"transfer", "internal", "이체", "내계좌"}
	}
	if cnf.Matching.MemoSimilarityHigh == 0 {
		cnf.Matching.MemoSimilarityHigh = 0.7
	}
	if cnf.Matching.MemoSimilarityLow == 0 {
		cnf.Matching.MemoSimilarityLow = 0.3
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	mc := *mockConfig
	if err := mc.validateAndAddDefaults(); err == nil {
		ConfigStore.Store(&mc)
		return
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
