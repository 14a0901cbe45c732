package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressdesk/brandbatch/internal/config"
	"github.com/pressdesk/brandbatch/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "run-1",
			Source:    "favoritos",
			Status:    model.RunStatusComplete,
			CreatedAt: created,
			UpdatedAt: created.Add(90 * time.Second),
			Result: &model.RunResult{
				NewsCount:  120,
				FinalCount: 95,
				LastStage:  "finalize",
			},
		},
		{
			ID:        "run-2",
			Source:    "favoritos",
			Status:    model.RunStatusFailed,
			CreatedAt: created,
			UpdatedAt: created.Add(5 * time.Second),
		},
	}

	var sb strings.Builder
	formatRunsList(&sb, runs)
	out := sb.String()

	assert.Contains(t, out, "LAST_STAGE")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "finalize")
	assert.Contains(t, out, "120")
	assert.Contains(t, out, "95")
	assert.Contains(t, out, "1m30s")

	// A run without a result renders placeholders instead of zeroes.
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[3], "-")
	assert.Contains(t, lines[3], "failed")
}

func TestFilterSources(t *testing.T) {
	sources := []config.SourceEndpoint{
		{Name: "favoritos"},
		{Name: "institucional"},
	}

	all, err := filterSources(sources, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := filterSources(sources, "institucional")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "institucional", one[0].Name)

	_, err = filterSources(sources, "desconhecido")
	assert.Error(t, err)
}
