// Package scenecache implements the file-based hierarchical scene cache on
// top of SQLite: a location tree whose transforms, bounds, objects and
// attributes are stored as time samples.
package scenecache

import "errors"

var (
	ErrClosed   = errors.New("scenecache: closed")
	ErrReadOnly = errors.New("scenecache: read only")
)

// FormatVersion is stored in the header of every file written here.
const FormatVersion = "1"

// Header keys.
const (
	HeaderVersion          = "version"
	HeaderMayaFrameRate    = "maya.frameRate"
	HeaderHoudiniFrameRate = "houdini.frameRate"
)

const (
	channelTransform = "transform"
	channelBound     = "bound"
	channelObject    = "object"
	channelAttribute = "attribute"
)

const schema = `
CREATE TABLE IF NOT EXISTS header (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS locations (
	id INTEGER PRIMARY KEY,
	parent_id INTEGER,
	name TEXT NOT NULL,
	path TEXT NOT NULL UNIQUE,
	ord INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_locations_parent ON locations(parent_id, ord);

CREATE TABLE IF NOT EXISTS samples (
	location_id INTEGER NOT NULL,
	channel TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	time REAL NOT NULL,
	payload BLOB NOT NULL,
	PRIMARY KEY (location_id, channel, name, time)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS tags (
	location_id INTEGER NOT NULL,
	tag TEXT NOT NULL,
	PRIMARY KEY (location_id, tag)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS variables (
	location_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	interpolation INTEGER NOT NULL,
	data_type TEXT NOT NULL,
	interpretation INTEGER,
	has_indices INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (location_id, name)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS sample_times (
	id INTEGER PRIMARY KEY,
	times TEXT NOT NULL
);
`
