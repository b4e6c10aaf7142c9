package tracebind

// ScopeName is the instrumentation name used by this module's own tracers and
// meters.
const ScopeName = "github.com/arloliu/tracebind"

// Version is the module version.
const Version = "0.4.0"

// SemVersion returns the instrumentation version adapters pass to
// [GetTracer], in the form "semver:<version>".
func SemVersion() string {
	return "semver:" + Version
}
