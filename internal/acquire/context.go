package acquire

// Context records the outcome of acquiring one table. Each path is set only
// once its stage has succeeded; an empty string means the stage did not run
// or produced nothing.
type Context struct {
	Name        string
	URL         string
	Timestamp   string // Run timestamp, TimestampLayout
	ZipPath     string
	ExtractDir  string
	DataCSVPath string
	MetaCSVPath string
}

// HasMetadata reports whether a single metadata CSV was found.
func (c *Context) HasMetadata() bool {
	return c.MetaCSVPath != ""
}
