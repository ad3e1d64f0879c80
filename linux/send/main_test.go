package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyWriter struct {
	fails  int
	writes []string
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.fails > 0 {
		w.fails--
		return 0, errors.New("broken pipe")
	}
	w.writes = append(w.writes, string(p))
	return len(p), nil
}

func TestSendLines(t *testing.T) {
	w := &flakyWriter{}
	require.NoError(t, sendLines(w, strings.NewReader("... --- ...\n\n  .- / -... \n")))
	assert.Equal(t, []string{"... --- ...\n", ".- / -...\n"}, w.writes)
}

func TestSendLinesRetriesOnce(t *testing.T) {
	w := &flakyWriter{fails: 1}
	require.NoError(t, sendLines(w, strings.NewReader(".\n")))
	assert.Equal(t, []string{".\n"}, w.writes)
}

func TestSendLinesGivesUp(t *testing.T) {
	w := &flakyWriter{fails: 2}
	err := sendLines(w, bytes.NewBufferString("-\n.\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Empty(t, w.writes)
}
