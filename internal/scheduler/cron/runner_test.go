package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSpec(t *testing.T) {
	assert.NoError(t, ValidateSpec("0 3 * * *"))
	assert.NoError(t, ValidateSpec("@every 5m"))
	assert.NoError(t, ValidateSpec("@daily"))
	assert.Error(t, ValidateSpec("not a spec"))
	assert.Error(t, ValidateSpec("61 * * * *"))
}

func TestRunner_Add(t *testing.T) {
	r := NewRunner(time.Second)
	noop := func(context.Context) {}

	require.NoError(t, r.Add("cleanup", "0 3 * * *", noop))
	require.NoError(t, r.Add("disabled", "", noop))
	assert.Error(t, r.Add("broken", "every tuesday", noop))
	assert.Equal(t, 1, r.Entries())

	r.Start()
	r.Stop()
}
