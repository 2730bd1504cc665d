package main

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrNoFrontMatter = errors.New("no front matter")
	ErrMissingTitle  = errors.New("front matter has no title")
	ErrInvalidDate   = errors.New("invalid date")
	ErrTemplate      = errors.New("template rendering failed")

	// Task errors.
	ErrUnknownTask = errors.New("unknown task")
	ErrTaskCycle   = errors.New("task depends on itself")

	ErrNoDeployRepo = errors.New("no deploy repository configured")
)
