package service

import "strconv"

const (
	recordKeyPrefix    = "file:"
	listKeyPrefix      = "files:"
	tombstoneKeyPrefix = "deleted:"
	legacyLinkPrefix   = "short:"
)

// recordKey returns the key holding one FileRecord.
func recordKey(fileID string) string {
	return recordKeyPrefix + fileID
}

// listKey returns the key of the newest-first id list for a channel.
func listKey(channelID string) string {
	return listKeyPrefix + channelID
}

func tombstoneKey(messageID int64) string {
	return tombstoneKeyPrefix + strconv.FormatInt(messageID, 10)
}

func legacyLinkKey(shortID string) string {
	return legacyLinkPrefix + shortID
}
