// Package config loads the lapboard server configuration from config.yaml.
//
// Sections:
//   - server: http_port (default 3000), env, public_dir, cors_origins
//   - data:   path (default data.json), save_debounce (default 200ms)
//   - ws:     send_buffer (default 16)
//   - log:    level (default info)
//   - metrics: enabled (default true)
//   - nats:   url (empty disables the mirror), subject
//
// Load(path) applies defaults before unmarshalling, then validates. Watch
// reloads the file on change; the binary applies the new log level.
package config
