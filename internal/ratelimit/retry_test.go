// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package ratelimit

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(OutcomeRetryAfter, Classify(http.StatusTooManyRequests, false))
	assert.Equal(OutcomeRetryAfter, Classify(http.StatusForbidden, true))
	assert.Equal(OutcomeTerminal, Classify(http.StatusForbidden, false))
	assert.Equal(OutcomeBackoff, Classify(http.StatusInternalServerError, false))
	assert.Equal(OutcomeBackoff, Classify(http.StatusBadGateway, false))
	assert.Equal(OutcomeTerminal, Classify(http.StatusNotFound, false))
	assert.Equal(OutcomeOK, Classify(http.StatusOK, false))
}

func TestParseRetryAfter(t *testing.T) {
	assert := assert.New(t)

	d, ok := ParseRetryAfter("30")
	assert.True(ok)
	assert.Equal(30*time.Second, d)

	_, ok = ParseRetryAfter("")
	assert.False(ok)

	_, ok = ParseRetryAfter("not-a-number")
	assert.False(ok)
}

func TestBackoffDelayCapsOut(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(backoffBase, BackoffDelay(0))
	assert.Equal(2*backoffBase, BackoffDelay(1))
	assert.Equal(backoffCap, BackoffDelay(10))
}
