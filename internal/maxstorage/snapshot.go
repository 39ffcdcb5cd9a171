package maxstorage

import "fmt"

// Snapshot is one fetched live-data payload. The coordinator replaces the
// whole value on every poll cycle; nothing reads and writes the same
// snapshot, so readers never need to lock it.
type Snapshot map[string]interface{}

// MissingFieldError reports a required key absent from an otherwise present
// snapshot. A well-formed device payload always carries every key the sensor
// table projects, so hitting one of these means the device sent something
// malformed and the affected sensor should be surfaced as unavailable.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("snapshot missing required field %q", e.Field)
}

func IsMissingField(err error) bool {
	_, ok := err.(*MissingFieldError)
	return ok
}

// Value returns the top-level value stored under key, unmodified.
func (s Snapshot) Value(key string) (interface{}, error) {
	value, ok := s[key]
	if !ok {
		return nil, &MissingFieldError{Field: key}
	}
	return value, nil
}

// SubMap returns the nested block stored under key.
func (s Snapshot) SubMap(key string) (map[string]interface{}, error) {
	value, ok := s[key]
	if !ok {
		return nil, &MissingFieldError{Field: key}
	}
	sub, ok := value.(map[string]interface{})
	if !ok {
		return nil, &MissingFieldError{Field: key}
	}
	return sub, nil
}

// RawFlag returns the string the device transmitted for a boolean flag
// inside a nested block.
func (s Snapshot) RawFlag(block, key string) (string, error) {
	sub, err := s.SubMap(block)
	if err != nil {
		return "", err
	}
	value, ok := sub[key]
	if !ok {
		return "", &MissingFieldError{Field: block + "." + key}
	}
	raw, _ := value.(string)
	return raw, nil
}

// Flag decodes a boolean flag transmitted as a string. The device firmware
// sends the lowercase literals "true" and "false"; anything else, including
// case variants, decodes to false.
func (s Snapshot) Flag(block, key string) (bool, error) {
	raw, err := s.RawFlag(block, key)
	if err != nil {
		return false, err
	}
	return raw == "true", nil
}
