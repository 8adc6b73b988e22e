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

package ondo

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/withondo/ondo/config"
	"github.com/withondo/ondo/database"
)

// Ondo is the bulk-import reconciliation engine. All pairing, scoring,
// dedup and commit logic hangs off this struct; the datasource is the only
// collaborator it owns.
type Ondo struct {
	datasource database.IDataSource
	redis      redis.UniversalClient
	matching   config.MatchingConfig
}

// NewOndo initializes the engine with the provided datasource. Matching
// knobs and the redis commit-lock client come from the loaded configuration.
func NewOndo(db database.IDataSource) (*Ondo, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	opts, err := redis.ParseURL(fmt.Sprintf("redis://%s", configuration.Redis.Dns))
	if err != nil {
		return nil, err
	}
	return &Ondo{
		datasource: db,
		redis:      redis.NewClient(opts),
		matching:   configuration.Matching,
	}, nil
}
