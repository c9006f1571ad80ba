package jsonapi

// Collection is the result of a fetch: the resources in server order plus
// optional pagination metadata. Collections are transient values, they are
// not cached across fetches.
type Collection struct {
	Resources  []*Resource
	Pagination *Pagination
}

// Pagination describes the neighboring pages of a fetched collection.
// Iterating pages is up to the caller; the engine only surfaces the
// descriptors the server supplied.
type Pagination struct {
	Next string
	Prev string
}

// Len returns the number of fetched resources.
func (c *Collection) Len() int { return len(c.Resources) }

// IsEmpty tells whether the fetch matched no resources.
func (c *Collection) IsEmpty() bool { return len(c.Resources) == 0 }

// First returns the first fetched resource, or nil for an empty collection.
func (c *Collection) First() *Resource {
	if c.IsEmpty() {
		return nil
	}
	return c.Resources[0]
}
