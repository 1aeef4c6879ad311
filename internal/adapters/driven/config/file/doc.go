// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under ~/.procrag by default.
//
// Adapters:
//   - ConfigStore: TOML configuration with dot-notation keys
//   - PromptStore: editable prompt templates, optionally watched for changes
package file
