package imageops

import (
	"container/list"
	"image"
	"sync"
)

type sourceEntry struct {
	path string
	img  image.Image
}

// sourceCache is an LRU of decoded source images keyed by path.
type sourceCache struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lruList *list.List
}

func newSourceCache(maxSize int) *sourceCache {
	return &sourceCache{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		lruList: list.New(),
	}
}

func (c *sourceCache) get(path string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[path]
	if !ok {
		return nil, false
	}

	c.lruList.MoveToFront(elem)
	return elem.Value.(*sourceEntry).img, true
}

func (c *sourceCache) set(path string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[path]; ok {
		elem.Value.(*sourceEntry).img = img
		c.lruList.MoveToFront(elem)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		oldest := c.lruList.Back()
		if oldest != nil {
			delete(c.items, oldest.Value.(*sourceEntry).path)
			c.lruList.Remove(oldest)
		}
	}

	ent := &sourceEntry{path: path, img: img}
	c.items[path] = c.lruList.PushFront(ent)
}

func (c *sourceCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}
