package health

// Status is the two-valued verdict of a health check. Descriptive
// sub-reasons are carried separately in Report.Reason.
type Status string

const (
	StatusUp   Status = "UP"
	StatusDown Status = "DOWN"
)

func (s Status) IsUp() bool {
	return s == StatusUp
}

// StatusOf translates a boolean outcome into a Status.
func StatusOf(up bool) Status {
	if up {
		return StatusUp
	}
	return StatusDown
}
