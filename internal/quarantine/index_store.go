package quarantine

// IndexStore persists the quarantine index as a single document.
type IndexStore interface {
	// Load returns the persisted index, or an empty index when nothing has
	// been saved yet.
	Load() (*Index, error)

	// Save durably replaces the persisted index. A failed Save must leave the
	// previously persisted document intact.
	Save(index *Index) error
}
