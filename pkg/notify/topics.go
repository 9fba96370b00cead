package notify

// Topic names for a page's broadcast channels. Transports subscribe clients
// to these logical topics; nothing here knows about connections.

// PageTopic carries change snapshots.
func PageTopic(pageID string) string {
	return "pages/" + pageID
}

// PresenceTopic carries viewer membership lists.
func PresenceTopic(pageID string) string {
	return "pages/" + pageID + "/presence"
}

// CursorTopic carries relayed cursor positions.
func CursorTopic(pageID string) string {
	return "pages/" + pageID + "/cursors"
}

// ChildrenDeletedTopic carries child-removal events for a container.
func ChildrenDeletedTopic(pageID string) string {
	return "pages/" + pageID + "/children/deleted"
}
