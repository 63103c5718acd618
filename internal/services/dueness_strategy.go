// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring transaction dueness
// checking. Each frequency (daily, weekly, monthly) has its own strategy that
// decides whether a definition is due given the UTC date of its last
// occurrence and the UTC date of the tick.

package services

import (
	"fmt"
	"sync"

	"expentrax/internal/core"
)

// DuenessChecker is the strategy interface for checking if a recurring
// definition is due. A zero last date means no occurrence exists yet.
type DuenessChecker interface {
	IsDue(last, today core.Date) bool
}

// DailyChecker implements DuenessChecker for daily definitions.
type DailyChecker struct{}

// IsDue returns true if at least one calendar day has passed.
func (DailyChecker) IsDue(last, today core.Date) bool {
	if last.IsEmpty() {
		return true
	}
	return today.DaysSince(last) >= 1
}

// WeeklyChecker implements DuenessChecker for weekly definitions.
type WeeklyChecker struct{}

// IsDue returns true if 7 or more calendar days have passed.
func (WeeklyChecker) IsDue(last, today core.Date) bool {
	if last.IsEmpty() {
		return true
	}
	return today.DaysSince(last) >= 7
}

// MonthlyChecker implements DuenessChecker for monthly definitions.
type MonthlyChecker struct{}

// IsDue returns true once the calendar month has changed. Day-of-month
// alignment is not enforced: a definition first fired on the 31st fires
// again on the 1st after.
func (MonthlyChecker) IsDue(last, today core.Date) bool {
	if last.IsEmpty() {
		return true
	}
	if today.Before(last) {
		return false
	}
	return last.Year() != today.Year() || last.Month() != today.Month()
}

// duenessStrategies maps frequencies to their corresponding checkers.
var (
	duenessMu         sync.RWMutex
	duenessStrategies = map[core.Frequency]DuenessChecker{
		core.Daily:   DailyChecker{},
		core.Weekly:  WeeklyChecker{},
		core.Monthly: MonthlyChecker{},
	}
)

// GetDuenessChecker returns the dueness checker for a frequency.
// Returns an error if the frequency is not supported.
func GetDuenessChecker(frequency core.Frequency) (DuenessChecker, error) {
	duenessMu.RLock()
	defer duenessMu.RUnlock()
	checker, ok := duenessStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, frequency)
	}
	return checker, nil
}

// RegisterDuenessChecker installs a checker for a frequency, replacing any
// existing one.
func RegisterDuenessChecker(frequency core.Frequency, checker DuenessChecker) {
	duenessMu.Lock()
	defer duenessMu.Unlock()
	duenessStrategies[frequency] = checker
}
