package ran

import "errors"

// Sink receives every record the analyzer emits, one method per record
// kind. Implementations must tolerate being called from the dispatch
// goroutine only; the analyzer never calls a sink concurrently. Errors are
// logged by the analyzer and never abort a run.
type Sink interface {
	RecordMeasurement(s MeasurementSample) error
	RecordConnection(c ConnectionEvent) error
	RecordHandover(h HandoverEvent) error
	RecordIncident(i SecurityIncident) error
	RecordFlowRate(f FlowRateRecord) error
	RecordMobility(m MobilityUpdate) error
}

// NopSink discards everything. Embed it to build sinks that only care
// about some record kinds.
type NopSink struct{}

func (NopSink) RecordMeasurement(MeasurementSample) error { return nil }
func (NopSink) RecordConnection(ConnectionEvent) error    { return nil }
func (NopSink) RecordHandover(HandoverEvent) error        { return nil }
func (NopSink) RecordIncident(SecurityIncident) error     { return nil }
func (NopSink) RecordFlowRate(FlowRateRecord) error       { return nil }
func (NopSink) RecordMobility(MobilityUpdate) error       { return nil }

// MultiSink fans every record out to each member in order. All members are
// attempted even when one fails; the joined error is returned.
type MultiSink []Sink

func (m MultiSink) RecordMeasurement(s MeasurementSample) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.RecordMeasurement(s))
	}
	return errors.Join(errs...)
}

func (m MultiSink) RecordConnection(c ConnectionEvent) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.RecordConnection(c))
	}
	return errors.Join(errs...)
}

func (m MultiSink) RecordHandover(h HandoverEvent) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.RecordHandover(h))
	}
	return errors.Join(errs...)
}

func (m MultiSink) RecordIncident(i SecurityIncident) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.RecordIncident(i))
	}
	return errors.Join(errs...)
}

func (m MultiSink) RecordFlowRate(f FlowRateRecord) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.RecordFlowRate(f))
	}
	return errors.Join(errs...)
}

func (m MultiSink) RecordMobility(u MobilityUpdate) error {
	var errs []error
	for _, sink := range m {
		errs = append(errs, sink.RecordMobility(u))
	}
	return errors.Join(errs...)
}
