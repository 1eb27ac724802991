package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"news-api/internal/config"
	"news-api/internal/lib/logger/sl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ProdIsJSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.EnvProd, &buf)

	log.Debug("hidden")
	log.Info("shown", sl.Error(errors.New("boom")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, config.EnvProd, entry["env"])
}

func TestNewWithWriter_LocalIsTextAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.EnvLocal, &buf)

	log.Debug("debugging")

	assert.Contains(t, buf.String(), "msg=debugging")
	assert.Contains(t, buf.String(), "level=DEBUG")
}
