// Package output owns the HTML output plugin contracts and their registry.
//
// Ownership boundary:
// - header meta plugins (HeaderMeta::*), which queue layout blocks
// - notification plugins (Notification::*), which return notification HTML
// - ordered, failure-tolerant plugin execution per request
package output
