// Package alerts implements the rule evaluation engine and notification
// delivery for the wearable's readings. Rules are evaluated against the
// current reading on a ticker; notifications go to Slack, Teams, generic
// HTTP targets, or to every emergency contact over Telegram.
package alerts
