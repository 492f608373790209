package bind

import (
	"database/sql"
	"reflect"
	"time"

	"github.com/pkg/errors"
)

// setter writes one raw cursor value into an addressable field value.
// Setters are compiled once per field type and cached with the field index.
type setter func(fv reflect.Value, raw any) error

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

func makeSetter(ft reflect.Type) setter {
	// Fields with their own Scanner see every value, nil included.
	if reflect.PointerTo(ft).Implements(scannerType) {
		return func(fv reflect.Value, raw any) error {
			return fv.Addr().Interface().(sql.Scanner).Scan(raw)
		}
	}
	if ft.Kind() == reflect.Ptr {
		elem := makeSetter(ft.Elem())
		return func(fv reflect.Value, raw any) error {
			if raw == nil {
				fv.Set(reflect.Zero(fv.Type()))
				return nil
			}
			p := reflect.New(fv.Type().Elem())
			if err := elem(p.Elem(), raw); err != nil {
				return err
			}
			fv.Set(p)
			return nil
		}
	}
	return withNilAsZero(valueSetter(ft))
}

// withNilAsZero translates the cursor's null marker into the field's zero
// value before delegating.
func withNilAsZero(inner setter) setter {
	return func(fv reflect.Value, raw any) error {
		if raw == nil {
			fv.Set(reflect.Zero(fv.Type()))
			return nil
		}
		return inner(fv, raw)
	}
}

var timeType = reflect.TypeOf(time.Time{})

// valueSetter compiles the conversion from driver-native raw values
// (int64, float64, bool, string, []byte, time.Time and friends) into a
// non-pointer, non-Scanner field type.
func valueSetter(ft reflect.Type) setter {
	if ft == timeType {
		return setTime
	}
	switch ft.Kind() {
	case reflect.String:
		return func(fv reflect.Value, raw any) error {
			switch v := raw.(type) {
			case string:
				fv.SetString(v)
			case []byte:
				fv.SetString(string(v))
			default:
				return errors.Errorf("cannot convert %T to string", raw)
			}
			return nil
		}
	case reflect.Bool:
		return func(fv reflect.Value, raw any) error {
			switch v := raw.(type) {
			case bool:
				fv.SetBool(v)
			case int64:
				fv.SetBool(v != 0)
			default:
				return errors.Errorf("cannot convert %T to bool", raw)
			}
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(fv reflect.Value, raw any) error {
			n, ok := asInt64(raw)
			if !ok {
				return errors.Errorf("cannot convert %T to %s", raw, fv.Type())
			}
			if fv.OverflowInt(n) {
				return errors.Errorf("value %d overflows %s", n, fv.Type())
			}
			fv.SetInt(n)
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(fv reflect.Value, raw any) error {
			n, ok := asInt64(raw)
			if !ok || n < 0 {
				return errors.Errorf("cannot convert %T(%v) to %s", raw, raw, fv.Type())
			}
			u := uint64(n)
			if fv.OverflowUint(u) {
				return errors.Errorf("value %d overflows %s", u, fv.Type())
			}
			fv.SetUint(u)
			return nil
		}
	case reflect.Float32, reflect.Float64:
		return func(fv reflect.Value, raw any) error {
			switch v := raw.(type) {
			case float64:
				fv.SetFloat(v)
			case float32:
				fv.SetFloat(float64(v))
			case int64:
				fv.SetFloat(float64(v))
			default:
				return errors.Errorf("cannot convert %T to %s", raw, fv.Type())
			}
			return nil
		}
	case reflect.Slice:
		if ft.Elem().Kind() == reflect.Uint8 {
			return func(fv reflect.Value, raw any) error {
				switch v := raw.(type) {
				case []byte:
					// Copy: the cursor may reuse the backing array.
					b := make([]byte, len(v))
					copy(b, v)
					fv.SetBytes(b)
				case string:
					fv.SetBytes([]byte(v))
				default:
					return errors.Errorf("cannot convert %T to []byte", raw)
				}
				return nil
			}
		}
	case reflect.Interface:
		if ft.NumMethod() == 0 {
			return func(fv reflect.Value, raw any) error {
				fv.Set(reflect.ValueOf(raw))
				return nil
			}
		}
	}
	// Last resort: assign or Convert when reflect allows it.
	return func(fv reflect.Value, raw any) error {
		rv := reflect.ValueOf(raw)
		if rv.Type().AssignableTo(fv.Type()) {
			fv.Set(rv)
			return nil
		}
		if rv.Type().ConvertibleTo(fv.Type()) {
			fv.Set(rv.Convert(fv.Type()))
			return nil
		}
		return errors.Errorf("cannot convert %T to %s", raw, fv.Type())
	}
}

func setTime(fv reflect.Value, raw any) error {
	switch v := raw.(type) {
	case time.Time:
		fv.Set(reflect.ValueOf(v))
		return nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return errors.Wrap(err, "parsing time")
		}
		fv.Set(reflect.ValueOf(t))
		return nil
	case []byte:
		t, err := time.Parse(time.RFC3339Nano, string(v))
		if err != nil {
			return errors.Wrap(err, "parsing time")
		}
		fv.Set(reflect.ValueOf(t))
		return nil
	}
	return errors.Errorf("cannot convert %T to time.Time", raw)
}

func asInt64(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint:
		return int64(v), true
	}
	return 0, false
}
