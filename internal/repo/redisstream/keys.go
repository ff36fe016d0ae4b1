package redisstream

// Key naming conventions for everything the delivery core keeps in Redis.
// These formats are load-bearing: other services tail the same streams.

func roomStreamKey(roomID string) string {
	return "stream:room:" + roomID
}

func dedupeKey(roomID, clientMessageID string) string {
	return "dedupe:" + roomID + ":" + clientMessageID
}

func cursorKey(userID string) string {
	return "cursor:" + userID
}

const roomStreamKeyPrefix = "stream:room:"

func roomIDFromStreamKey(key string) string {
	if len(key) > len(roomStreamKeyPrefix) && key[:len(roomStreamKeyPrefix)] == roomStreamKeyPrefix {
		return key[len(roomStreamKeyPrefix):]
	}
	return ""
}
