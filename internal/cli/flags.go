package cli

import (
	"fmt"
	"strconv"
	"time"
)

// Seconds parses a fractional seconds flag value into a duration.
type Seconds struct {
	value time.Duration
	set   bool
}

// NewSeconds returns a Seconds holding a default value.
func NewSeconds(d time.Duration) Seconds {
	return Seconds{value: d}
}

func (s *Seconds) Set(raw string) error {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	if v <= 0 {
		return fmt.Errorf("must be a positive number of seconds: %s", raw)
	}
	s.value = time.Duration(v * float64(time.Second))
	s.set = true
	return nil
}

func (s *Seconds) String() string {
	if s.value == 0 {
		return ""
	}
	return strconv.FormatFloat(s.value.Seconds(), 'f', -1, 64)
}

// Duration returns the parsed value (or the default).
func (s *Seconds) Duration() time.Duration { return s.value }

// Counter counts flag repetitions, for flags like -v -v.
type Counter int

func (c *Counter) Set(raw string) error {
	// The flag package hands bool flags "true" when given bare; an
	// explicit -v=false must not count as a repetition.
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return err
	}
	if v {
		*c++
	}
	return nil
}

func (c *Counter) String() string {
	return strconv.Itoa(int(*c))
}

// IsBoolFlag lets the counter be given without a value.
func (c *Counter) IsBoolFlag() bool { return true }

// Count returns the number of times the flag appeared.
func (c *Counter) Count() int { return int(*c) }
