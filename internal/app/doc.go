// Package app wires config, the Kaggle client, storage, the Telegram
// notifier, metrics and the poll loop into one process lifecycle.
package app
