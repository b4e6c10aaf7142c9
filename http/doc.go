// Package http instruments HTTP clients and servers with tracebind spans.
//
// The wrappers are built on otelhttp and report through the tracebind default
// provider, so they can be constructed at package init before
// [tracebind.SetDefault] runs. Outgoing requests carry the span context and
// the current correlation context; incoming baggage is merged into the
// correlation context of the request.
//
// # HTTP Server
//
//	http.Handle("/api", tbhttp.Middleware()(myHandler))
//	http.Handle("/users", tbhttp.Handler(usersHandler, "users"))
//
// # HTTP Client
//
//	client := tbhttp.NewClient(
//	    tbhttp.WithTimeout(30 * time.Second),
//	)
//	resp, err := client.Get("https://example.com")
package http
