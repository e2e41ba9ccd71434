package cfg

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// LogFormat and LogSeverity are string-kinded types with a restricted
// vocabulary, decoded through hookFunc below.
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

type LogSeverity string

const (
	SeverityTrace   LogSeverity = "TRACE"
	SeverityDebug   LogSeverity = "DEBUG"
	SeverityInfo    LogSeverity = "INFO"
	SeverityWarning LogSeverity = "WARNING"
	SeverityError   LogSeverity = "ERROR"
	SeverityOff     LogSeverity = "OFF"
)

func hookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		s, _ := data.(string)

		switch t {
		case reflect.TypeOf(LogFormat("")):
			format := strings.ToLower(s)
			if !slices.Contains([]string{"json", "text"}, format) {
				return nil, fmt.Errorf("invalid log format: %s", s)
			}
			return LogFormat(format), nil

		case reflect.TypeOf(LogSeverity("")):
			severity := strings.ToUpper(s)
			if !slices.Contains([]string{"TRACE", "DEBUG", "INFO", "WARNING", "ERROR", "OFF"}, severity) {
				return nil, fmt.Errorf("invalid log severity: %s", s)
			}
			return LogSeverity(severity), nil

		default:
			return data, nil
		}
	}
}

// DecodeHook composes the custom string-enum hook above with
// mapstructure's own default hooks for durations and comma-separated
// slices.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		hookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
