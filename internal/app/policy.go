package app

import (
	"errors"
	"fmt"

	"qnup/internal/config"
	"qnup/internal/report"
)

// ErrBatchFailed is returned by CheckPolicy when the batch outcome violates
// the configured fail_on policy.
var ErrBatchFailed = errors.New("batch failed")

// CheckPolicy maps a finished batch to an error according to policy:
// never ignores failures, any fails on any failed, skipped or crashed
// object, all fails only when nothing was uploaded.
func CheckPolicy(policy string, s report.Summary) error {
	switch policy {
	case "", config.FailNever:
		return nil
	case config.FailAny:
		if s.Failed() || s.Tally.Skipped > 0 {
			return fmt.Errorf("%w: %d failed, %d skipped, %d workers crashed",
				ErrBatchFailed, s.Tally.Failed, s.Tally.Skipped, len(s.Crashed))
		}
		return nil
	case config.FailAll:
		if s.Tally.Success == 0 && s.Tally.Total() > 0 {
			return fmt.Errorf("%w: none of %d files uploaded", ErrBatchFailed, s.Tally.Total())
		}
		return nil
	default:
		return fmt.Errorf("unknown fail_on policy %q", policy)
	}
}
