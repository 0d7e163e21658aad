package orchestrator

import "time"

const dateLayout = "2006-01-02"

// missingDates returns every calendar date in [first, last] (inclusive) not
// present in existingDates, ascending. existingDates need not be sorted.
func missingDates(existingDates []string, first, last string) ([]string, error) {
	firstDate, err := time.Parse(dateLayout, first)
	if err != nil {
		return nil, err
	}
	lastDate, err := time.Parse(dateLayout, last)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(existingDates))
	for _, d := range existingDates {
		present[d] = true
	}

	var gaps []string
	for d := firstDate; !d.After(lastDate); d = d.AddDate(0, 0, 1) {
		s := d.Format(dateLayout)
		if !present[s] {
			gaps = append(gaps, s)
		}
	}
	return gaps, nil
}
