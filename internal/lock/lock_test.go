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

package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLockIsExclusive(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()

	first := NewLocker(client, "lease:acc_1", "owner-1")
	require.NoError(t, first.Lock(ctx, time.Hour))

	second := NewLocker(client, "lease:acc_1", "owner-2")
	assert.Error(t, second.Lock(ctx, time.Hour))
}

func TestUnlockOnlyByOwner(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	owner := NewLocker(client, "lease:acc_1", "owner-1")
	require.NoError(t, owner.Lock(ctx, time.Hour))

	intruder := NewLocker(client, "lease:acc_1", "owner-2")
	assert.Error(t, intruder.Unlock(ctx))
	assert.True(t, mr.Exists("lease:acc_1"))

	require.NoError(t, owner.Unlock(ctx))
	assert.False(t, mr.Exists("lease:acc_1"))
}

func TestLockExpiresOnItsOwn(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	crashed := NewLocker(client, "lease:acc_1", "owner-1")
	require.NoError(t, crashed.Lock(ctx, time.Minute))

	mr.FastForward(2 * time.Minute)

	next := NewLocker(client, "lease:acc_1", "owner-2")
	assert.NoError(t, next.Lock(ctx, time.Minute))
}

func TestExtendLock(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()

	owner := NewLocker(client, "lease:acc_1", "owner-1")
	require.NoError(t, owner.Lock(ctx, time.Minute))
	require.NoError(t, owner.ExtendLock(ctx, time.Hour))

	mr.FastForward(2 * time.Minute)
	assert.True(t, mr.Exists("lease:acc_1"))
}
