package polaris

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

var timeType = reflect.TypeOf(time.Time{})

// emptyStringToZeroTime lets absent timestamps decode to the zero time.
func emptyStringToZeroTime(f reflect.Type, t reflect.Type, data any) (any, error) {
	if f.Kind() == reflect.String && t == timeType && data == "" {
		return time.Time{}, nil
	}
	return data, nil
}

func decode(operation string, in any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			emptyStringToZeroTime,
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(in); err != nil {
		return &SchemaMismatchError{Operation: operation, Message: err.Error()}
	}
	return nil
}

// decodeRecords converts normalized records into typed models.
func decodeRecords[T any](operation string, records []Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		var v T
		if err := decode(operation, map[string]any(r), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
