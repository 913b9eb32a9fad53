package summary

import (
	"fmt"
	"strings"
	"time"
)

// #region level
// Level is the severity of a recorded result.
type Level int

const (
	// LevelError marks an evaluation that raised an error.
	LevelError Level = iota
	// LevelInfo marks an unresolved or unexpected value that did not raise.
	LevelInfo
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelInfo:
		return "INFO"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel converts "ERROR" or "INFO" (any case) to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError, nil
	case "INFO":
		return LevelInfo, nil
	}
	return 0, fmt.Errorf("unknown level %q", s)
}

// MarshalText lets levels round-trip through JSON and YAML as their names.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// #endregion level

// #region kind
// Kind names the category of error behind an ERROR result. Empty means absent.
type Kind string

// KindNone is used for INFO results that did not come from an error.
const KindNone Kind = ""

// KindOf names the dynamic type of err, looking through errors built by
// fmt.Errorf so a wrapped *strconv.NumError still reports as such.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for isFmtWrapper(err) {
		var next error
		switch w := err.(type) {
		case interface{ Unwrap() error }:
			next = w.Unwrap()
		case interface{ Unwrap() []error }:
			if errs := w.Unwrap(); len(errs) > 0 {
				next = errs[0]
			}
		}
		if next == nil {
			break
		}
		err = next
	}
	return Kind(fmt.Sprintf("%T", err))
}

// isFmtWrapper reports whether err was produced by fmt.Errorf with %w.
func isFmtWrapper(err error) bool {
	switch fmt.Sprintf("%T", err) {
	case "*fmt.wrapError", "*fmt.wrapErrors":
		return true
	}
	return false
}

// #endregion kind

// #region result
// Result is one diagnostic event recorded against an expression.
type Result struct {
	Level       Level
	Timestamp   time.Time
	Description string
	Cause       Kind
}

// TimestampMillis returns the record time as Unix milliseconds.
func (r Result) TimestampMillis() int64 {
	return r.Timestamp.UnixMilli()
}

func (r Result) String() string {
	cause := string(r.Cause)
	if cause == "" {
		cause = "null"
	}
	return fmt.Sprintf("Result {description='%s', cause=%s, timestamp=%d, level=%s}",
		r.Description, cause, r.TimestampMillis(), r.Level)
}

// #endregion result
