// Package notifier delivers high-score announcements to a Telegram chat.
//
// Delivery is a plain Bot API sendMessage call with form fields chat_id and
// text. Sends are rate limited so a burst of cycles (e.g. after a long
// outage) cannot trip Telegram's flood control.
package notifier
