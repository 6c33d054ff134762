package config

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// String returns the effective configuration as an indented listing with
// credentials in database.url masked.
func (c *Config) String() string {
	redacted := *c
	redacted.Database.URL = RedactURL(c.Database.URL)
	return formatStruct(reflect.ValueOf(redacted), "")
}

// RedactURL masks the password of a URL or a user:password@ DSN.
func RedactURL(raw string) string {
	if raw == "" {
		return raw
	}
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil {
			return u.Redacted()
		}
	}
	at := strings.LastIndex(raw, "@")
	if at < 0 {
		return raw
	}
	credentials := raw[:at]
	colon := strings.Index(credentials, ":")
	if colon < 0 {
		return raw
	}
	return credentials[:colon+1] + "xxxxx" + raw[at:]
}

func formatStruct(v reflect.Value, prefix string) string {
	var sb strings.Builder
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		value := v.Field(i)

		if !value.CanInterface() {
			continue
		}

		fieldName := strings.ToLower(field.Name)
		if tag := field.Tag.Get("mapstructure"); tag != "" && tag != "-" {
			fieldName = tag
		}

		switch value.Kind() {
		case reflect.Struct:
			sb.WriteString(fmt.Sprintf("%s%s:\n", prefix, fieldName))
			sb.WriteString(formatStruct(value, prefix+"  "))
		case reflect.Slice:
			if value.Len() == 0 {
				sb.WriteString(fmt.Sprintf("%s%s: []\n", prefix, fieldName))
				continue
			}
			sb.WriteString(fmt.Sprintf("%s%s:\n", prefix, fieldName))
			for j := 0; j < value.Len(); j++ {
				sb.WriteString(fmt.Sprintf("%s  - %v\n", prefix, value.Index(j).Interface()))
			}
		default:
			sb.WriteString(fmt.Sprintf("%s%s: %v\n", prefix, fieldName, value.Interface()))
		}
	}

	return sb.String()
}
