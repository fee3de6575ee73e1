package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

const (
	requestBodyLogKey  = "http.request.body.summary"
	responseBodyLogKey = "http.response.body.summary"
	maxLoggedBody      = 2048
	redacted           = "redacted"
)

// sensitiveKeys are matched as substrings of lower-cased field names.
var sensitiveKeys = []string{"password", "token", "iban", "bic", "secret", "authorization"}

func registerLogging(e *echo.Echo, log zerolog.Logger) {
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := log.Info()
			switch {
			case v.Status >= 500:
				event = log.Error()
			case v.Status >= 400:
				event = log.Warn()
			}
			event = event.
				Str("method", v.Method).
				Str("uri", redactQuery(v.URI)).
				Int("status", v.Status).
				Int64("latency_ms", v.Latency.Milliseconds()).
				Str("remote_ip", v.RemoteIP)
			if v.RequestID != "" {
				event = event.Str("request_id", v.RequestID)
			}
			if principal, ok := CurrentPrincipal(c); ok {
				event = event.Int64("user_id", principal.UserID).Str("role", string(principal.Role))
			}
			if body := c.Get(requestBodyLogKey); body != nil {
				event = event.Interface("request_body", body)
			}
			if body := c.Get(responseBodyLogKey); body != nil && v.Status >= 400 {
				event = event.Interface("response_body", body)
			}
			if v.Error != nil {
				event = event.Err(v.Error)
			}
			event.Msg("http request")
			return nil
		},
	}))

	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		if summary := sanitizeBody(reqBody, c.Request().Header.Get(echo.HeaderContentType)); summary != nil {
			c.Set(requestBodyLogKey, summary)
		}
		if summary := sanitizeBody(resBody, c.Response().Header().Get(echo.HeaderContentType)); summary != nil {
			c.Set(responseBodyLogKey, summary)
		}
	}))
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

func redactQuery(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.RawQuery == "" {
		return uri
	}
	q := u.Query()
	for key := range q {
		if isSensitive(key) {
			q.Set(key, redacted)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func sanitizeBody(body []byte, contentType string) interface{} {
	if len(body) == 0 {
		return nil
	}
	lowered := strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case strings.HasPrefix(lowered, "multipart/form-data"):
		return sanitizeMultipart(body, contentType)
	case strings.HasPrefix(lowered, "application/json") || json.Valid(body):
		var data interface{}
		if err := json.Unmarshal(body, &data); err == nil {
			return limitJSONSize(sanitizeJSON(data, false))
		}
	case strings.HasPrefix(lowered, "application/x-www-form-urlencoded"):
		if values, err := url.ParseQuery(string(body)); err == nil {
			fields := make(map[string]interface{}, len(values))
			for key, vals := range values {
				for _, v := range vals {
					addFormField(fields, key, sanitizeString(v, isSensitive(key)))
				}
			}
			return limitJSONSize(fields)
		}
	}

	if containsBinaryBytes(body) {
		return "binary"
	}
	return clampString(string(body))
}

func sanitizeJSON(value interface{}, sensitive bool) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, val := range v {
			out[key] = sanitizeJSON(val, sensitive || isSensitive(key))
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = sanitizeJSON(item, sensitive)
		}
		return out
	case string:
		return sanitizeString(v, sensitive)
	default:
		if sensitive {
			return redacted
		}
		return v
	}
}

func sanitizeString(value string, sensitive bool) string {
	if sensitive {
		return redacted
	}
	if containsBinaryBytes([]byte(value)) {
		return "binary"
	}
	return clampString(value)
}

func sanitizeMultipart(body []byte, contentType string) interface{} {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || params["boundary"] == "" {
		return "binary"
	}
	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	fields := make(map[string]interface{})
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "binary"
		}
		name := part.FormName()
		if name == "" {
			_ = part.Close()
			continue
		}
		var value interface{} = "binary"
		if part.FileName() == "" {
			if data, err := io.ReadAll(part); err == nil {
				value = sanitizeString(string(data), isSensitive(name))
			}
		}
		_ = part.Close()
		addFormField(fields, name, value)
	}
	if len(fields) == 0 {
		return "binary"
	}
	return limitJSONSize(fields)
}

func limitJSONSize(value interface{}) interface{} {
	buf, err := json.Marshal(value)
	if err != nil || len(buf) <= maxLoggedBody {
		return value
	}
	return map[string]interface{}{"_truncated": true, "_bytes": len(buf)}
}

func containsBinaryBytes(data []byte) bool {
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			return true
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return true
		}
		data = data[size:]
	}
	return false
}

func clampString(value string) string {
	if len(value) <= maxLoggedBody {
		return value
	}
	truncated := value[:maxLoggedBody]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "...(truncated)"
}

func addFormField(fields map[string]interface{}, key string, value interface{}) {
	existing, ok := fields[key]
	if !ok {
		fields[key] = value
		return
	}
	if items, isSlice := existing.([]interface{}); isSlice {
		fields[key] = append(items, value)
		return
	}
	fields[key] = []interface{}{existing, value}
}
