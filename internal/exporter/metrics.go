package exporter

// EventMetricKey groups events for the polaris_events_count gauge.
type EventMetricKey struct {
	Status       string
	ActivityType string
	ObjectType   string
}

// String returns a string representation for logging.
func (k EventMetricKey) String() string {
	return k.Status + "|" + k.ActivityType + "|" + k.ObjectType
}

// Labels returns the metric labels as a slice.
func (k EventMetricKey) Labels() []string {
	return []string{k.Status, k.ActivityType, k.ObjectType}
}
