package rates

const (
	DefaultThreshold = 5

	noMinute = -1
)

// Tracker counts swears per wall-clock minute bucket. A new minute value
// restarts the count rather than carrying it over, so a burst straddling a
// minute boundary does not escalate.
type Tracker struct {
	threshold int
	minute    int
	count     int
}

func NewTracker(threshold int) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{
		threshold: threshold,
		minute:    noMinute,
	}
}

// RecordSwearEvent registers one swearing message at nowMinute and reports
// whether the bucket reached the threshold. The count resets to zero when it does.
func (t *Tracker) RecordSwearEvent(nowMinute int) bool {
	if nowMinute != t.minute {
		t.minute = nowMinute
		t.count = 1
		return false
	}
	t.count++
	if t.count >= t.threshold {
		t.count = 0
		return true
	}
	return false
}

func (t *Tracker) Count() int {
	return t.count
}

func (t *Tracker) Minute() int {
	return t.minute
}

func (t *Tracker) Threshold() int {
	return t.threshold
}
