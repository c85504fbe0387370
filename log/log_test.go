package log_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"pipelined.dev/graph/log"
)

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := log.GetLogger()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	log.WithFields(l, map[string]interface{}{"graph": "test"}).Info("built")
	assert.Contains(t, buf.String(), "graph=test")
	assert.Contains(t, buf.String(), "msg=built")

	log.Discard().Info("dropped")
}
