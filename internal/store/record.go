package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

// SchemaVersion is the envelope version written by Save.
const SchemaVersion = 1

var (
	// ErrNotFound is returned by Load when the key has never been written.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidRecord is returned by Load when the stored value cannot be
	// trusted: bad JSON, unknown version, unknown fields or failed validation.
	ErrInvalidRecord = errors.New("invalid record")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Save validates v and stores it under key inside a versioned envelope.
func (db *DB) Save(key string, v any) error {
	if err := Validate(v); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	raw, err := json.Marshal(envelope{Version: SchemaVersion, Data: data})
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return db.Put(key, raw)
}

// Load decodes the record stored under key into v, which must be a pointer.
// Anything other than a well-formed, current-version, valid record yields
// ErrInvalidRecord and leaves v untouched.
func (db *DB) Load(key string, v any) error {
	raw, ok, err := db.Get(key)
	if err != nil {
		return fmt.Errorf("load %q: %w", key, err)
	}
	if !ok {
		return ErrNotFound
	}
	return Decode(raw, v)
}

// Decode unwraps a stored envelope into v.
func Decode(raw []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if env.Version != SchemaVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidRecord, env.Version)
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return fmt.Errorf("%w: empty data", ErrInvalidRecord)
	}

	target := reflect.New(reflect.TypeOf(v).Elem())
	dec := json.NewDecoder(bytes.NewReader(env.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target.Interface()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := Validate(target.Interface()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	reflect.ValueOf(v).Elem().Set(target.Elem())
	return nil
}

// Validate runs struct-tag validation over a record. Slices and maps are
// validated element by element.
func Validate(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return errors.New("nil record")
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		return validate.Struct(rv.Interface())
	case reflect.Slice, reflect.Array:
		return validate.Var(rv.Interface(), "dive")
	case reflect.Map:
		return validate.Var(rv.Interface(), "dive,keys,required,endkeys,dive")
	default:
		return fmt.Errorf("unsupported record kind %s", rv.Kind())
	}
}
