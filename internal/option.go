package internal

// Option is a functional option for configuring the application.
type Option func(*application)

// Transport selects the outer surface Run serves.
type Transport int

const (
	// TransportHTTP serves the REST API and the SSE stream.
	TransportHTTP Transport = iota
	// TransportMCP serves MCP tools on stdin/stdout.
	TransportMCP
)

type application struct {
	config    *Config
	transport Transport
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithTransport selects HTTP (the default) or MCP over stdio.
func WithTransport(t Transport) Option {
	return func(a *application) {
		a.transport = t
	}
}
