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

package payintel

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/payintel/payintel/config"
	"github.com/payintel/payintel/database"
	redis_db "github.com/payintel/payintel/internal/redis-db"
)

// Payintel represents the main struct for the Payintel application. It holds
// the extraction pipeline and reconciliation engine along with their shared
// resources.
type Payintel struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	formats    map[string]StatementFormat
}

// NewPayintel initializes a new instance of Payintel with the provided
// database datasource. It fetches the configuration and initializes the Redis
// client, the task queue, and the built-in statement formats.
//
// Parameters:
// - db database.IDataSource: The datasource for database operations.
//
// Returns:
// - *Payintel: A pointer to the newly created Payintel instance.
// - error: An error if any of the initialization steps fail.
func NewPayintel(db database.IDataSource) (*Payintel, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	newPayintel := &Payintel{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		formats:    DefaultFormats(),
	}
	return newPayintel, nil
}

// RegisterFormat adds or overrides the statement format used for a bank type.
func (p *Payintel) RegisterFormat(bankType string, format StatementFormat) {
	p.formats[bankType] = format
}

// formatFor resolves the statement format for a bank type, falling back to
// the IOB layout for unknown types.
func (p *Payintel) formatFor(bankType string) StatementFormat {
	if format, ok := p.formats[bankType]; ok {
		return format
	}
	return IOBFormat
}

// Queue exposes the task queue for enqueueing bot runs.
func (p *Payintel) Queue() *Queue {
	return p.queue
}

// Redis exposes the shared Redis client.
func (p *Payintel) Redis() redis.UniversalClient {
	return p.redis
}

// Datasource exposes the underlying datasource.
func (p *Payintel) Datasource() database.IDataSource {
	return p.datasource
}
