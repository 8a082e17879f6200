package logging

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"error", logrus.ErrorLevel},
		{"warn", logrus.WarnLevel},
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"", logrus.InfoLevel},
		{"verbose", logrus.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestInitAddsModuleField(t *testing.T) {
	Init("consumer", "debug")
	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(bytes.NewBuffer(nil))

	WithFields(Fields{"event": "receive_message"}).Debug("got it")

	out := buf.String()
	assert.Contains(t, out, "module=consumer")
	assert.Contains(t, out, "event=receive_message")
	assert.Contains(t, out, "got it")
}
