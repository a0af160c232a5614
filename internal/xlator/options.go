// Copyright 2025 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package xlator

import "fmt"

// Options is a validated, typed replacement for the C source's dict_t-keyed
// volfile option block. Translators declare their accepted keys through an
// OptionSpec table; Options holds the parsed, already-range-checked values
// a translator reads at Init time and (for Reconfigurable translators)
// again on reload.
type Options struct {
	spec   []OptionSpec
	values map[string]any
}

// OptionSpec describes one accepted option key: its default, and (for
// numeric options) the inclusive range the C source enforced with
// GF_OPTION_INIT's min/max arguments.
type OptionSpec struct {
	Key     string
	Default any
	Min     int64
	Max     int64
	// Validate, if set, is called in place of the min/max range check
	// for options that aren't a bare numeric range (e.g. enumerations).
	Validate func(any) error
}

// NewOptions builds an Options table from spec, seeding every key with its
// default so a translator with no explicit configuration still sees a
// complete, valid table.
func NewOptions(spec []OptionSpec) *Options {
	values := make(map[string]any, len(spec))
	for _, s := range spec {
		values[s.Key] = s.Default
	}
	return &Options{spec: spec, values: values}
}

// Set validates and stores one option value, per the bounds or Validate
// func declared for key in the spec it was built from.
func (o *Options) Set(key string, value any) error {
	for _, s := range o.spec {
		if s.Key != key {
			continue
		}
		if s.Validate != nil {
			if err := s.Validate(value); err != nil {
				return fmt.Errorf("option %s: %w", key, err)
			}
			o.values[key] = value
			return nil
		}
		if n, ok := asInt64(value); ok {
			if n < s.Min || n > s.Max {
				return fmt.Errorf("option %s: value %d out of range [%d,%d]", key, n, s.Min, s.Max)
			}
		}
		o.values[key] = value
		return nil
	}
	return fmt.Errorf("option %s: not declared by this translator", key)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// Int returns the int value stored for key, or 0 if the key is unset or
// not an int. Translators call this in Init after validation already ran,
// so the zero-value fallback only fires for programmer error.
func (o *Options) Int(key string) int {
	if v, ok := o.values[key].(int); ok {
		return v
	}
	return 0
}

// Bool returns the bool value stored for key.
func (o *Options) Bool(key string) bool {
	v, _ := o.values[key].(bool)
	return v
}

// String returns the string value stored for key.
func (o *Options) String(key string) string {
	v, _ := o.values[key].(string)
	return v
}

// Float64 returns the float64 value stored for key.
func (o *Options) Float64(key string) float64 {
	v, _ := o.values[key].(float64)
	return v
}

// Raw returns the stored value for key without a type assertion, for
// options whose value type varies by translator (e.g. enum-like strings
// validated through Validate).
func (o *Options) Raw(key string) any {
	return o.values[key]
}
