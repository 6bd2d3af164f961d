// Package notifications delivers stage change messages to the record's
// requester.
//
// A Notifier is chosen by notifications.transport: SMTP email, an ntfy topic,
// or a no-op. The Dispatcher runs deliveries off the request path with their
// own deadline and logs failures instead of returning them, so a broken mail
// relay never turns a committed transition into an error.
package notifications
