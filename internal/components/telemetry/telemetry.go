package telemetry

import "strings"

// API is where components report what went wrong or what they counted.
// Components never log directly, so tests can swap in NopAPI or a recorder.
type API interface {
	// ReportBroken reports a failure that needs attention. The id names the
	// component and method that broke, ex. `client.request`, all lowercase
	// with underscores. Params are usually the error and a few values.
	ReportBroken(id string, params ...any)
	// ReportWarning reports something odd that did not stop the component.
	ReportWarning(id string, params ...any)
	ReportDebug(msg string, params ...any)
	// ReportCount reports the value of a counter at this moment, values are
	// points in time and must not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, scopes nest as `outer.inner`.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	if parent, ok := inner.(ScopedAPI); ok {
		return ScopedAPI{
			namespace: parent.namespace + "." + namespace,
			inner:     parent.inner,
		}
	}
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scope(id string) string {
	var b strings.Builder
	b.WriteString(s.namespace)
	b.WriteString(".")
	b.WriteString(id)
	return b.String()
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scope(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scope(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.namespace+": "+msg, params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scope(id), count)
}

// NopAPI drops every report.
type NopAPI struct{}

func (NopAPI) ReportBroken(string, ...any)  {}
func (NopAPI) ReportWarning(string, ...any) {}
func (NopAPI) ReportDebug(string, ...any)   {}
func (NopAPI) ReportCount(string, int64)    {}
