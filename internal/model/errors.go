package model

import (
	"fmt"
	"sort"
	"strings"
)

// ParseError reports a malformed line of a source file
type ParseError struct {
	File    string
	Line    int
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s line %d %q: %v", e.File, e.Line, e.Content, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConsistencyError reports a hierarchy or uniqueness violation
type ConsistencyError struct {
	Entity string
	ID     int64
	Reason string
}

func (e *ConsistencyError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("inconsistent %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("inconsistent %s %d: %s", e.Entity, e.ID, e.Reason)
}

// PreconditionError is returned when a non-destructive load finds existing rows
type PreconditionError struct {
	Counts map[string]int64
}

func (e *PreconditionError) Error() string {
	tables := make([]string, 0, len(e.Counts))
	for table, n := range e.Counts {
		tables = append(tables, fmt.Sprintf("%s=%d", table, n))
	}
	sort.Strings(tables)
	return "database is not empty: " + strings.Join(tables, ", ")
}

// ReconciliationError reports a locality left without a timezone
type ReconciliationError struct {
	LocalityID int64
	LongName   string
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("locality %d %q has no timezone candidate in its country", e.LocalityID, e.LongName)
}
