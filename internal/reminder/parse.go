package reminder

import (
	"errors"
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var ErrUnparsable = errors.New("no date or time found")

var parser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseWhen reads a reminder time written in English ("tomorrow at 9am",
// "in 2 hours") relative to now.
func ParseWhen(text string, now time.Time) (time.Time, error) {
	r, err := parser.Parse(text, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("parse %q: %w", text, ErrUnparsable)
	}
	return r.Time, nil
}
