package bridge

import (
	"sort"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/scenebridge/internal/sdf"
)

// collectionIndex maps tag -> set of prim paths carrying it. Paths get a
// monotonic internal ID when first tagged, so iterating a bitmap yields
// paths in the order they were tagged.
type collectionIndex struct {
	tags      map[string]*roaring.Bitmap
	pathIntID map[sdf.Path]uint32
	intToPath []sdf.Path
}

func newCollectionIndex() *collectionIndex {
	c := &collectionIndex{}
	c.reset()
	return c
}

// reset drops every collection. The walker calls it when entering a new
// top-level prim, since each one carries its own collections.
func (c *collectionIndex) reset() {
	c.tags = make(map[string]*roaring.Bitmap)
	c.pathIntID = make(map[sdf.Path]uint32)
	c.intToPath = c.intToPath[:0]
}

func (c *collectionIndex) add(tag string, path sdf.Path) {
	intID, ok := c.pathIntID[path]
	if !ok {
		intID = uint32(len(c.intToPath))
		c.pathIntID[path] = intID
		c.intToPath = append(c.intToPath, path)
	}
	bm, exists := c.tags[tag]
	if !exists {
		bm = roaring.New()
		c.tags[tag] = bm
	}
	bm.Add(intID)
}

// names returns the tags in lexical order.
func (c *collectionIndex) names() []string {
	out := make([]string, 0, len(c.tags))
	for tag := range c.tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// members returns the paths tagged with tag, in tagging order.
func (c *collectionIndex) members(tag string) []sdf.Path {
	bm, ok := c.tags[tag]
	if !ok {
		return nil
	}
	out := make([]sdf.Path, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		out = append(out, c.intToPath[it.Next()])
	}
	return out
}
