package metrics

// NoopMetrics is a no-operation implementation of Recorder.
// All methods are empty and do nothing, providing zero overhead when metrics
// are disabled.
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

// Identity resolution - noop implementations
func (n *NoopMetrics) RecordUIDMinted()            {}
func (n *NoopMetrics) RecordUnseal(result string)  {}
func (n *NoopMetrics) RecordCookieResealed()       {}

// Device/session binding - noop implementations
func (n *NoopMetrics) RecordInstallRegistered(success bool) {}
func (n *NoopMetrics) RecordSessionStarted(success bool)    {}
func (n *NoopMetrics) RecordSessionRevoked(result string)   {}
func (n *NoopMetrics) RecordBindingLookup(hit bool)         {}

// Gauge setters - noop implementations
func (n *NoopMetrics) SetActiveSessionsCount(count int) {}
func (n *NoopMetrics) SetInstallsCount(count int)       {}
func (n *NoopMetrics) SetUserDevicesCount(count int)    {}

// Infrastructure - noop implementations
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
