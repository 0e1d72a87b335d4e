package types

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// PolicyMode tags the two mutually exclusive retention strategies.
type PolicyMode string

const (
	PolicyByCount PolicyMode = "by-count"
	PolicyByAge   PolicyMode = "by-age"
)

// RetentionConfig carries the raw, optional policy knobs as entered by the
// user. Nil means "not set"; a MaxAgeDays of 0 is a valid, set value.
type RetentionConfig struct {
	RetainCount     *int
	MaxAgeDays      *int
	MinCreationDate *time.Time
}

// RetentionPolicy decides which pipelines and releases are preserved.
//
// A policy is either count-based (keep the N most recently created items) or
// age-based (keep items created on/after a cutoff). The two are mutually
// exclusive; NewRetentionPolicy rejects mixed or empty configurations, so a
// constructed policy is always in exactly one mode.
type RetentionPolicy struct {
	mode            PolicyMode
	retainCount     int
	maxAgeDays      int
	maxAgeSet       bool
	minCreationDate time.Time
	minCreationSet  bool
}

const invalidPolicyMsg = "invalid retention policy"

// NewRetentionPolicy validates the configuration and returns an immutable
// policy value.
func NewRetentionPolicy(cfg RetentionConfig) (RetentionPolicy, error) {
	countSet := cfg.RetainCount != nil
	ageSet := cfg.MaxAgeDays != nil
	dateSet := cfg.MinCreationDate != nil

	if countSet && (ageSet || dateSet) {
		return RetentionPolicy{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(invalidPolicyMsg + ": retain count is mutually exclusive with age parameters")
	}
	if !countSet && !ageSet && !dateSet {
		return RetentionPolicy{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(invalidPolicyMsg + ": at least one parameter must be set")
	}
	if countSet {
		if *cfg.RetainCount <= 0 {
			return RetentionPolicy{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(invalidPolicyMsg + ": retain count must be positive")
		}
		return RetentionPolicy{mode: PolicyByCount, retainCount: *cfg.RetainCount}, nil
	}
	policy := RetentionPolicy{mode: PolicyByAge}
	if ageSet {
		if *cfg.MaxAgeDays < 0 {
			return RetentionPolicy{}, errbuilder.New().
				WithCode(errbuilder.CodeInvalidArgument).
				WithMsg(invalidPolicyMsg + ": maximum age must not be negative")
		}
		policy.maxAgeDays = *cfg.MaxAgeDays
		policy.maxAgeSet = true
	}
	if dateSet {
		policy.minCreationDate = cfg.MinCreationDate.UTC()
		policy.minCreationSet = true
	}
	return policy, nil
}

// Mode reports whether the policy preserves by count or by age.
func (p RetentionPolicy) Mode() PolicyMode {
	return p.mode
}

// RetainCount returns the number of most recent items to keep. Only
// meaningful in count mode.
func (p RetentionPolicy) RetainCount() int {
	return p.retainCount
}

// EffectiveCutoff computes the creation-time cutoff for age mode. Items
// created before the cutoff are deletion candidates, items created at or
// after it are preserved.
//
// When both a maximum age and a minimum creation date are set, the later of
// the two dates wins, i.e. the stricter retention. The result depends on the
// supplied now whenever a maximum age is configured, so callers must not
// cache it across long-running invocations.
func (p RetentionPolicy) EffectiveCutoff(now time.Time) time.Time {
	if p.mode != PolicyByAge {
		return time.Time{}
	}
	var cutoff time.Time
	if p.maxAgeSet {
		cutoff = now.UTC().AddDate(0, 0, -p.maxAgeDays)
	}
	if p.minCreationSet && p.minCreationDate.After(cutoff) {
		cutoff = p.minCreationDate
	}
	return cutoff
}

// String renders the policy for log output.
func (p RetentionPolicy) String() string {
	if p.mode == PolicyByCount {
		return fmt.Sprintf("retain latest %d", p.retainCount)
	}
	if p.maxAgeSet && p.minCreationSet {
		return fmt.Sprintf("max age %dd, min creation %s", p.maxAgeDays, p.minCreationDate.Format(time.RFC3339))
	}
	if p.maxAgeSet {
		return fmt.Sprintf("max age %dd", p.maxAgeDays)
	}
	return fmt.Sprintf("min creation %s", p.minCreationDate.Format(time.RFC3339))
}
