package config

import (
	"reflect"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/fsbroker/internal/bytesize"
)

var byteSizeType = reflect.TypeOf(bytesize.ByteSize(0))

// configDecodeHooks lets config files write sizes as "16Mi" or "1MB" and
// durations as "30s". Bare numbers are bytes and nanoseconds.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook,
		mapstructure.StringToTimeDurationHookFunc(),
	)
}

func byteSizeDecodeHook(from, to reflect.Type, data any) (any, error) {
	if to != byteSizeType {
		return data, nil
	}
	rv := reflect.ValueOf(data)
	switch from.Kind() {
	case reflect.String:
		return bytesize.Parse(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return bytesize.ByteSize(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return bytesize.ByteSize(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		// YAML and JSON numbers may arrive as floats
		return bytesize.ByteSize(rv.Float()), nil
	}
	return data, nil
}
