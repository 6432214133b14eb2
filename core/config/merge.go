package config

import (
	"reflect"
)

// DeepMerge overlays src onto dst, field by field. Zero-valued scalars in
// src leave dst untouched, maps merge per key, and non-empty slices
// replace wholesale. Both arguments must be pointers; anything else is a
// no-op. Used to apply sparse overrides (request bodies, flag sets) onto
// a config snapshot.
func DeepMerge(dst, src any) {
	dstVal := reflect.ValueOf(dst)
	srcVal := reflect.ValueOf(src)

	if dstVal.Kind() != reflect.Ptr || srcVal.Kind() != reflect.Ptr {
		return
	}

	overlay(dstVal.Elem(), srcVal.Elem())
}

func overlay(dst, src reflect.Value) {
	if !dst.CanSet() || !src.IsValid() {
		return
	}

	switch dst.Kind() {
	case reflect.Struct:
		for i := 0; i < dst.NumField(); i++ {
			overlay(dst.Field(i), src.Field(i))
		}
	case reflect.Map:
		overlayMap(dst, src)
	case reflect.Slice:
		if src.Len() > 0 {
			dst.Set(src)
		}
	default:
		if dst.IsZero() || !src.IsZero() {
			dst.Set(src)
		}
	}
}

func overlayMap(dst, src reflect.Value) {
	if src.IsNil() {
		return
	}
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}

	for _, key := range src.MapKeys() {
		srcElem := src.MapIndex(key)
		dstElem := dst.MapIndex(key)

		if !dstElem.IsValid() {
			dst.SetMapIndex(key, srcElem)
			continue
		}

		// Map elements are not addressable; merge through a copy.
		switch srcElem.Kind() {
		case reflect.Struct, reflect.Map:
			merged := reflect.New(dstElem.Type()).Elem()
			merged.Set(dstElem)
			overlay(merged, srcElem)
			dst.SetMapIndex(key, merged)
		default:
			dst.SetMapIndex(key, srcElem)
		}
	}
}
