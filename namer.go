package tracebind

// SpanNamer defines how operation names are transformed into span names.
// A [Provider] applies its namer to every span it starts.
type SpanNamer interface {
	Name(operation string) string
}

// DefaultNamer returns operation names unchanged, as OpenTelemetry semantic
// conventions recommend.
type DefaultNamer struct{}

// Name returns the operation name as is.
func (DefaultNamer) Name(operation string) string {
	return operation
}

// NamerFunc adapts a function to [SpanNamer].
type NamerFunc func(operation string) string

// Name calls f.
func (f NamerFunc) Name(operation string) string { return f(operation) }

// PrefixNamer prepends Prefix and a colon, e.g. "billing:charge".
type PrefixNamer struct {
	Prefix string
}

// Name returns the prefixed operation name.
func (n PrefixNamer) Name(operation string) string {
	if n.Prefix == "" {
		return operation
	}

	return n.Prefix + ":" + operation
}

// NameHTTP returns "METHOD /route", e.g. "GET /users/{id}".
func NameHTTP(method, route string) string {
	return method + " " + route
}

// NameRPC returns "Service/Method", e.g. "Greeter/SayHello".
func NameRPC(service, method string) string {
	return service + "/" + method
}

// NameMessaging returns "verb destination", e.g. "publish orders".
func NameMessaging(verb, destination string) string {
	return verb + " " + destination
}

// NameDB returns "verb table", e.g. "SELECT users".
func NameDB(verb, table string) string {
	return verb + " " + table
}
