package models

// Toggle actions shared by persisted users and virtual admins.
const (
	ActionMarked   = "marked"
	ActionUnmarked = "unmarked"
	ActionPinned   = "pinned"
	ActionUnpinned = "unpinned"
)

// ToggleRead flips membership of title in the read set. The returned
// slice never contains duplicates.
func ToggleRead(readPoems []string, title string) (string, []string) {
	for i, t := range readPoems {
		if t == title {
			return ActionUnmarked, append(readPoems[:i:i], readPoems[i+1:]...)
		}
	}
	return ActionMarked, append(readPoems[:len(readPoems):len(readPoems)], title)
}

// TogglePin pins title, replacing any prior pin, or clears the pin when
// title is already pinned.
func TogglePin(pinned *string, title string) (string, *string) {
	if pinned != nil && *pinned == title {
		return ActionUnpinned, nil
	}
	return ActionPinned, &title
}
