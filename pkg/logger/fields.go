package logger

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// CorrelationIDFieldKey is the field key used for correlation ID in log entries
	CorrelationIDFieldKey = "correlation_id"
	// UserIDFieldKey identifies the conversation owner in log entries
	UserIDFieldKey = "user_id"
)

// StringField returns a LogField for a string value.
func StringField(key, value string) LogField {
	return LogField{Key: key, Value: value}
}

// IntField returns a LogField for an integer value.
func IntField(key string, value int) LogField {
	return LogField{Key: key, Value: strconv.Itoa(value)}
}

// Int64Field returns a LogField for an int64 value.
func Int64Field(key string, value int64) LogField {
	return LogField{Key: key, Value: strconv.FormatInt(value, 10)}
}

// BoolField returns a LogField for a boolean value.
func BoolField(key string, value bool) LogField {
	return LogField{Key: key, Value: strconv.FormatBool(value)}
}

// DurationField returns a LogField for a time.Duration value.
func DurationField(key string, value time.Duration) LogField {
	return LogField{Key: key, Value: value.String()}
}

// ErrorField returns a LogField for an error value.
func ErrorField(err error) LogField {
	if err == nil {
		return LogField{Key: "error", Value: "<nil>"}
	}
	return LogField{Key: "error", Value: err.Error()}
}

// Field renders any value with %v. Prefer the typed helpers where one exists.
func Field[T any](key string, value T) LogField {
	return LogField{Key: key, Value: fmt.Sprintf("%v", value)}
}

// CorrelationIDField returns a LogField for a correlation ID.
func CorrelationIDField(id string) LogField {
	return StringField(CorrelationIDFieldKey, id)
}

// UserIDField tags an entry with the transport-scoped user id.
func UserIDField(id string) LogField {
	return StringField(UserIDFieldKey, id)
}

func HTTPMethodField(method string) LogField { return StringField("http_method", method) }
func HTTPPathField(path string) LogField     { return StringField("http_path", path) }
func HTTPStatusField(status int) LogField    { return IntField("http_status", status) }
func ClientIPField(ip string) LogField       { return StringField("client_ip", ip) }
