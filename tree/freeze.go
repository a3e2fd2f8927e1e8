package tree

import "reflect"

// FreezeMap detaches caller-owned data into a canonical tree. The result never
// aliases the input, so later mutations of the caller's maps cannot leak into
// a store snapshot.
func FreezeMap(value map[string]any) map[string]any {
	if value == nil {
		return map[string]any{}
	}
	return Freeze(value).(map[string]any)
}

// Freeze converts value into its canonical tree form: string-keyed maps
// become map[string]any, slices and arrays (other than byte slices) become
// []any, and every other value is deep copied preserving its type.
func Freeze(value any) any {
	if value == nil {
		return nil
	}
	return freezeValue(reflect.ValueOf(value))
}

func freezeValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return freezeValue(v.Elem())
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return cloneValue(v).Interface()
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = freezeValue(iter.Value())
		}
		return out
	case reflect.Slice:
		if v.IsNil() {
			return []any(nil)
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return cloneValue(v).Interface()
		}
		fallthrough
	case reflect.Array:
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = freezeValue(v.Index(i))
		}
		return out
	default:
		return cloneValue(v).Interface()
	}
}

func cloneValue(v reflect.Value) reflect.Value {
	if !v.IsValid() {
		return v
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.New(v.Type().Elem())
		clone.Elem().Set(cloneValue(v.Elem()))
		return clone
	case reflect.Interface:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		elem := cloneValue(v.Elem())
		if !elem.IsValid() {
			return reflect.Zero(v.Type())
		}
		return elem.Convert(v.Type())
	case reflect.Struct:
		clone := reflect.New(v.Type()).Elem()
		clone.Set(v)
		for i := 0; i < v.NumField(); i++ {
			field := clone.Field(i)
			if !field.CanSet() {
				continue
			}
			field.Set(cloneValue(v.Field(i)))
		}
		return clone
	case reflect.Map:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			clone.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return clone
	case reflect.Slice:
		if v.IsNil() {
			return reflect.Zero(v.Type())
		}
		clone := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	case reflect.Array:
		clone := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			clone.Index(i).Set(cloneValue(v.Index(i)))
		}
		return clone
	default:
		return v
	}
}
