package persistence

import "errors"

// Sentinel errors shared by every persistence implementation.
var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrContactNotFound    = errors.New("contact not found")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrAutomationNotFound = errors.New("automation not found")
	ErrNodeNotFound       = errors.New("node not found")
	ErrRunNotFound        = errors.New("run not found")
)

func IsProfileNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}

func IsContactNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound)
}

func IsTemplateNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}

func IsAutomationNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}

func IsNodeNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

func IsRunNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
