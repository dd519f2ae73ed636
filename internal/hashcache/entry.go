package hashcache

// Entry is the GORM model backing the on-disk digest cache (spec.md
// §4.8): one row per (absolute path, size, mtime_ns) observation.
type Entry struct {
	Path    string `gorm:"primaryKey;size:4096"`
	Size    int64  `gorm:"not null"`
	MtimeNs int64  `gorm:"not null"`
	Digest  string `gorm:"size:64;not null"`
}

// TableName pins the table name regardless of struct renames.
func (Entry) TableName() string { return "file_cache" }
