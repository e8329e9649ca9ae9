package config

// TracingConfig holds OTLP trace export configuration.
//
// Traces are exported over OTLP HTTP to a local collector (an OpenTelemetry
// Collector or any agent speaking OTLP on :4318). The collector handles
// authentication, buffering, and forwarding; the application never needs
// backend credentials. See internal/observability for setup.
type TracingConfig struct {
	// Enabled turns trace export on. Default: false.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Endpoint is the collector's OTLP HTTP endpoint (default: localhost:4318).
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	// ServiceName tags exported spans (default: lectern).
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	// Environment is the deployment environment tag (default: dev).
	Environment string `mapstructure:"environment" json:"environment"`
}
