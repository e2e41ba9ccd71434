package logger

import (
	"bytes"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func redirectLogsToBuffer(buf *bytes.Buffer, severity string) {
	var lvl = new(slog.LevelVar)
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(buf, lvl, ""))
	setLoggingLevel(severity, lvl)
}

func (t *LoggerTest) TestSeverityGating() {
	var buf bytes.Buffer
	redirectLogsToBuffer(&buf, WARNING)

	Infof("should not appear")
	t.Empty(buf.String())

	Warnf("should appear")
	t.Contains(buf.String(), "should appear")
	t.Contains(buf.String(), "severity=WARNING")
}

func (t *LoggerTest) TestJSONFormatContainsTimestampObject() {
	var buf bytes.Buffer
	defaultLoggerFactory.format = "json"
	redirectLogsToBuffer(&buf, TRACE)

	Tracef("hello %s", "world")

	assert.Regexp(t.T(), regexp.MustCompile(`"timestamp":\{"seconds":\d+,"nanos":\d+}`), buf.String())
	assert.Contains(t.T(), buf.String(), `"severity":"TRACE"`)
	assert.Contains(t.T(), buf.String(), `"message":"hello world"`)
}

func (t *LoggerTest) TestOffSuppressesEverything() {
	var buf bytes.Buffer
	defaultLoggerFactory.format = "text"
	redirectLogsToBuffer(&buf, OFF)

	Tracef("t")
	Debugf("d")
	Infof("i")
	Warnf("w")
	Errorf("e")

	t.Empty(buf.String())
}

func (t *LoggerTest) TestFatalfPanics() {
	defer func() {
		r := recover()
		t.NotNil(r)
	}()
	Fatalf("boom %d", 42)
	t.Fail("Fatalf did not panic")
}
