package feed

import (
	"fmt"
	"strings"
)

// Channel naming: one channel per (table, conversation) filter, mirroring the
// store's per-table per-filter notification surface.
const channelMessages = "feed:messages:%s"

// TableMessages is the table name carried in message insert events.
const TableMessages = "messages"

// MessagesChannel returns the channel for message inserts in a conversation.
func MessagesChannel(conversationID string) string {
	return fmt.Sprintf(channelMessages, conversationID)
}

// parseChannel splits "feed:<table>:<filterID>" into its parts.
func parseChannel(channel string) (table, filterID string, err error) {
	parts := strings.Split(channel, ":")
	if len(parts) != 3 || parts[0] != "feed" {
		return "", "", fmt.Errorf("invalid channel format: %s", channel)
	}
	return parts[1], parts[2], nil
}
