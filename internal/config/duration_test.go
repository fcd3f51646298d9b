// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCutOff(t *testing.T) {
	assert := assert.New(t)

	d, err := ParseCutOff("2w 3d 5h 2s")
	assert.NoError(err)
	want := 2*7*24*time.Hour + 3*24*time.Hour + 5*time.Hour + 2*time.Second
	assert.Equal(want, d)
}

func TestParseCutOffSingleUnit(t *testing.T) {
	assert := assert.New(t)

	d, err := ParseCutOff("30d")
	assert.NoError(err)
	assert.Equal(30*24*time.Hour, d)
}

func TestParseCutOffAnyOrder(t *testing.T) {
	assert := assert.New(t)

	d1, err := ParseCutOff("5h 2s")
	assert.NoError(err)
	d2, err := ParseCutOff("2s 5h")
	assert.NoError(err)
	assert.Equal(d1, d2)
}

func TestParseCutOffEmpty(t *testing.T) {
	assert := assert.New(t)

	d, err := ParseCutOff("")
	assert.NoError(err)
	assert.Equal(time.Duration(0), d)
}

func TestParseCutOffRejectsRepeatedUnit(t *testing.T) {
	assert := assert.New(t)

	_, err := ParseCutOff("2d 3d")
	assert.Error(err)
}

func TestParseCutOffRejectsUnknownUnit(t *testing.T) {
	assert := assert.New(t)

	_, err := ParseCutOff("2y")
	assert.Error(err)
}

func TestParseCutOffRejectsMissingMagnitude(t *testing.T) {
	assert := assert.New(t)

	_, err := ParseCutOff("d")
	assert.Error(err)
}
