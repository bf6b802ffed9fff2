// Package events classifies inbound room webhooks into a closed set of typed
// variants. The `event` discriminator selects the variant; unknown
// discriminators map to Generic so new webhook types never break dispatch.
//
// Nested room, user, and message objects are decoded on first access and
// cached for the lifetime of the event.
package events
