package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/domain"
)

func parseTaskFlags(t *testing.T, args ...string) (*cobra.Command, *taskFlags) {
	t.Helper()
	var tf taskFlags
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	tf.bind(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, &tf
}

func TestTaskFlagsOnlySendChanged(t *testing.T) {
	cmd, tf := parseTaskFlags(t, "--priority", "high", "--progress", "0", "--tags", "a,b")

	fields := tf.fields(cmd)
	assert.Equal(t, map[string]any{"priority": "high", "progress": 0, "tags": []string{"a", "b"}}, fields)

	c := tf.changes(cmd)
	require.NotNil(t, c.Priority)
	assert.Equal(t, domain.PriorityHigh, *c.Priority)
	require.NotNil(t, c.Progress)
	assert.Equal(t, 0, *c.Progress)
	assert.Nil(t, c.Name)
	assert.Nil(t, c.Status)
	require.NotNil(t, c.Tags)
	assert.Equal(t, []string{"a", "b"}, *c.Tags)
}

func TestTaskFlagsValidate(t *testing.T) {
	cases := [][]string{
		{"--status", "done"},
		{"--priority", "urgent"},
		{"--type", "epic"},
		{"--progress", "101"},
	}
	for _, args := range cases {
		_, tf := parseTaskFlags(t, args...)
		assert.Error(t, tf.validate(), "%v", args)
	}
	_, tf := parseTaskFlags(t, "--status", "on_hold", "--type", "milestone")
	assert.NoError(t, tf.validate())
}
