package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriterLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("editor", &buf, WARN)

	l.Info("скрытое сообщение")
	l.Warn("stroke %d", 7)

	out := buf.String()
	assert.NotContains(t, out, "скрытое")
	assert.Contains(t, out, "[WARN] [editor] stroke 7")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel("что-то"))
}

func TestLoggerManager_ReusesComponent(t *testing.T) {
	SetLogDir("")
	defer SetLogDir("logs")

	lm := &LoggerManager{loggers: make(map[string]*Logger)}
	a, err := lm.GetLogger("storage")
	assert.NoError(t, err)
	b := lm.MustGetLogger("storage")
	assert.Same(t, a, b)
	assert.Equal(t, []string{"storage"}, lm.ListComponents())
	assert.NoError(t, lm.CloseAll())
}

func TestSetConsoleLevel(t *testing.T) {
	SetLogDir("")
	defer SetLogDir("logs")
	defer SetConsoleLevel(INFO)

	var buf bytes.Buffer
	existing := GetComponentLogger("console-level")
	existing.consoleLogger.SetOutput(&buf)

	SetConsoleLevel(ERROR)
	existing.Warn("не видно")
	existing.Error("ошибка сохранения")
	assert.NotContains(t, buf.String(), "не видно")
	assert.Contains(t, buf.String(), "ошибка сохранения")

	fresh, err := NewLogger("console-level-new")
	assert.NoError(t, err)
	assert.Equal(t, ERROR, fresh.minConsoleLevel)
}
