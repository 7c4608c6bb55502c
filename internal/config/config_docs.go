package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The gendoc tool uses [FieldDoc] values to annotate the generated dgrpc.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "serde.serializer_threads")
// to their [FieldDoc] entries. The gendoc tool uses this map to annotate the
// generated dgrpc.default.toml with inline comments and alternative examples.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version, managed by migrations. Do not edit.",
	},

	// ── Client ───────────────────────────────────────────────────
	"client.app_id": {
		Comment: "Discord application ID sent in the IPC handshake payload.",
	},

	// ── Serde ────────────────────────────────────────────────────
	"serde.serializer_threads": {
		Comment: "Worker threads in the outbound (encode) serialization pool.",
	},
	"serde.serializer_channel_buffer": {
		Comment: "Job queue depth for the outbound serialization pool.",
	},
	"serde.deserializer_threads": {
		Comment: "Worker threads in the inbound (decode) serialization pool.\nSized larger than serializer_threads: inbound push events can arrive\nin bursts independent of outbound request rate.",
	},
	"serde.deserializer_channel_buffer": {
		Comment: "Job queue depth for the inbound serialization pool.",
	},

	// ── Pipeline ─────────────────────────────────────────────────
	"pipeline.request_timeout_seconds": {
		Comment: "How long a request waits for its correlated response before failing with Timeout.",
	},
	"pipeline.event_queue_capacity": {
		Comment: "Buffered push-event capacity. The coordinator blocks delivery\n(backpressure, not drop) once this many events are queued and unread.",
	},

	// ── OAuth2 ───────────────────────────────────────────────────
	"oauth2": {
		Comment: "Optional OAuth2 authorization. Omit this section entirely for a\nclient that only sends unauthenticated commands (e.g. SET_ACTIVITY).",
	},
	"oauth2.client_secret": {
		Comment: "Discord application OAuth2 client secret.",
	},
	"oauth2.scopes": {
		Comment: "OAuth2 scopes requested during the authorize flow.",
		Alternatives: []string{
			`# scopes = ["identify", "rpc", "guilds"]`,
		},
	},
	"oauth2.scope_allowlist": {
		Comment: "Restricts which scopes above may be requested, as doublestar glob\npatterns matched against each entry in scopes. Empty allows any scope.",
		Alternatives: []string{
			`# scope_allowlist = ["identify", "rpc.*"]`,
		},
	},
	"oauth2.config_path": {
		Comment: "Token file path. Empty uses the default data directory's token.json.",
		Alternatives: []string{
			`# config_path = "/path/to/token.json"`,
		},
	},
	"oauth2.refresh_window_seconds": {
		Comment: "A token within this many seconds of expiry is treated as already expired.",
	},

	// ── Metrics ──────────────────────────────────────────────────
	"metrics.enabled": {
		Comment: "Serve Prometheus metrics and a /ready health check over HTTP.",
	},
	"metrics.listen": {
		Comment: "Address the metrics HTTP server binds to.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\", \"fail\"",
		Alternatives: []string{
			`level = "debug"`,
			`level = "warn"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Maximum log file size in megabytes before rotation.",
	},
}
