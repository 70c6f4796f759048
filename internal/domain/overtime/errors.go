package overtime

import "errors"

var (
	ErrRequestNotFound   = errors.New("overtime request not found")
	ErrRequestNotPending = errors.New("overtime request already decided")
	ErrInvalidHours      = errors.New("overtime hours must be between 0 and 24 with at most two decimal places")
	ErrInvalidWorkDate   = errors.New("overtime work date is required")
)
