package tracing

import "go.opentelemetry.io/otel"

// tracer is the named tracer every span helper in this package starts
// spans from. It resolves through the global provider, which delegates
// late: spans stay no-ops until a TracerProvider is installed, and
// pick up whichever one the process registers.
var tracer = otel.Tracer("callguard")
