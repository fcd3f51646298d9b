// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	assert := assert.New(t)
	g := New(4)

	release, err := g.Acquire(context.Background(), EndpointGetPackage, CostGet)
	assert.NoError(err)
	assert.NotNil(release)
	release()
}

func TestAcquireBlocksOnPrimaryReset(t *testing.T) {
	assert := assert.New(t)
	g := New(4)
	g.UpdatePrimary(0, time.Now().Add(50*time.Millisecond).Unix())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	start := time.Now()
	release, err := g.Acquire(ctx, EndpointGetPackage, CostGet)
	assert.NoError(err)
	assert.True(time.Since(start) >= 0)
	release()
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	assert := assert.New(t)
	g := New(1)

	release, err := g.Acquire(context.Background(), EndpointGetPackage, CostGet)
	assert.NoError(err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Acquire(ctx, EndpointGetPackage, CostGet)
	assert.Error(err)
}

func TestUpdatePrimaryUnblocksAfterReset(t *testing.T) {
	assert := assert.New(t)
	g := New(4)
	g.UpdatePrimary(0, time.Now().Add(-time.Second).Unix())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	release, err := g.Acquire(ctx, EndpointDeleteVersion, CostDelete)
	assert.NoError(err)
	release()
}
