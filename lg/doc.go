// Package lg turns output templates into user-facing text. The default
// TemplateGenerator renders Go text/template syntax against the memory
// snapshot with locale-aware formatting helpers; custom implementations can
// plug in full language-generation systems behind the Generator interface.
package lg
