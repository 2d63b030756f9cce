package health

// Aggregate folds named sub-results into one verdict. The verdict is UP
// only if every recorded sub-result is UP.
type Aggregate struct {
	names    []string
	statuses []Status
}

func (a *Aggregate) Record(name string, s Status) {
	a.names = append(a.names, name)
	a.statuses = append(a.statuses, s)
}

func (a *Aggregate) Status() Status {
	for _, s := range a.statuses {
		if !s.IsUp() {
			return StatusDown
		}
	}
	return StatusUp
}

// Failed lists the names of sub-results that are not UP, in recording order.
func (a *Aggregate) Failed() []string {
	var failed []string
	for i, s := range a.statuses {
		if !s.IsUp() {
			failed = append(failed, a.names[i])
		}
	}
	return failed
}
