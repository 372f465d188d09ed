package console

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_SplitsStreams(t *testing.T) {
	var out, errOut bytes.Buffer
	l := New(&out, &errOut, 0)

	l.Log("loaded level.dat")
	l.Error("snapshot failed")

	assert.Equal(t, "[LOG] loaded level.dat\n", out.String())
	assert.Equal(t, "[ERROR] snapshot failed\n", errOut.String())
}

func TestLogger_Flags(t *testing.T) {
	var out bytes.Buffer
	New(&out, &out, log.Lmsgprefix).Log("x")
	assert.Equal(t, "[LOG] x\n", out.String())
}
